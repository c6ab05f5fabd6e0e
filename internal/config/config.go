// Package config handles configuration loading and flowlet home resolution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the per-home configuration file.
	FileName = "config.yaml"
	// DefaultRemoteURL is the remote service used when none is configured.
	DefaultRemoteURL = "http://localhost:8080"

	envHome      = "FLOWLET_HOME"
	envRemoteURL = "FLOWLET_REMOTE_URL"
	keyHome      = "home"
)

// ErrUnknownKey is returned by Set for a key that is not a config setting.
var ErrUnknownKey = errors.New("unknown config key")

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// RemoteConfig holds settings for the remote mirror.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"` // "" disables remote mirroring
}

// StoreConfig selects the local store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "json" | "sqlite"
	Path   string `yaml:"path"`   // "" = <home>/flowlet.json or flowlet.db
}

// Config is the root per-home configuration.
type Config struct {
	Remote RemoteConfig `yaml:"remote"`
	Store  StoreConfig  `yaml:"store"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{BaseURL: DefaultRemoteURL},
		Store:  StoreConfig{Driver: "json"},
	}
}

// Load reads a per-home config.yaml from path.
// If the file does not exist it returns Default() with no error.
// Missing keys retain their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	// Unmarshal into a plain map so we can apply only the keys that are present.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config.Load %s: %w", path, err)
	}

	if rem, ok := raw["remote"].(map[string]any); ok {
		if _, present := rem["base_url"]; present {
			v, _ := rem["base_url"].(string)
			cfg.Remote.BaseURL = strings.TrimSpace(v)
		}
	}

	if st, ok := raw["store"].(map[string]any); ok {
		if v, ok := st["driver"].(string); ok && v != "" {
			cfg.Store.Driver = v
		}
		if v, ok := st["path"].(string); ok {
			cfg.Store.Path = v
		}
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with FLOWLET_REMOTE_URL when it is set, even to "".
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(envRemoteURL); ok {
		c.Remote.BaseURL = strings.TrimSpace(v)
	}
}

// RemoteEnabled reports whether a remote base URL is configured.
func (c *Config) RemoteEnabled() bool { return c.Remote.BaseURL != "" }

// StorePath returns the configured store path, normalized, or "" when unset.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path == "" {
		return "", nil
	}
	return normalizePath(c.Store.Path)
}

// Keys lists the settings accepted by Set, in display order.
var Keys = []string{"remote.base_url", "store.driver", "store.path"}

// Get returns the value of a dotted key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "remote.base_url":
		return c.Remote.BaseURL, nil
	case "store.driver":
		return c.Store.Driver, nil
	case "store.path":
		return c.Store.Path, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Set assigns a dotted key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "remote.base_url":
		c.Remote.BaseURL = strings.TrimSpace(value)
	case "store.driver":
		if value != "json" && value != "sqlite" {
			return fmt.Errorf("store.driver must be json or sqlite, got %q", value)
		}
		c.Store.Driver = value
	case "store.path":
		c.Store.Path = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Flowlet home resolution
// ---------------------------------------------------------------------------

// globalConfigPath returns the path to the global flowlet config file.
// This file stores only home (and future global settings).
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "flowlet", "config.yaml"), nil
}

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// ResolveHome returns the flowlet home path and the source of the resolution.
// Priority: flag → FLOWLET_HOME env → persisted global config → ~/.flowlet
// source is one of "flag", "env", "config", or "default".
func ResolveHome(flag string) (path, source string) {
	if flag != "" {
		if p, err := normalizePath(flag); err == nil {
			return p, "flag"
		}
	}

	if env := os.Getenv(envHome); env != "" {
		if p, err := normalizePath(env); err == nil {
			return p, "env"
		}
	}

	if persisted, ok, _ := GetPersistedHome(); ok {
		return persisted, "config"
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".flowlet"), "default"
}

// GetPersistedHome reads home from the global config.
// Returns ("", false, nil) if not set.
func GetPersistedHome() (string, bool, error) {
	raw, err := readGlobal()
	if err != nil || raw == nil {
		return "", false, err
	}

	val, _ := raw[keyHome].(string)
	val = strings.TrimSpace(val)
	if val == "" {
		return "", false, nil
	}

	p, err := normalizePath(val)
	if err != nil {
		return "", false, err
	}
	return p, true, nil
}

// SetPersistedHome normalizes path and persists it in the global config.
// Returns the normalized path.
func SetPersistedHome(path string) (string, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return "", err
	}

	// Preserve any other keys already in the global config.
	raw, _ := readGlobal()
	if raw == nil {
		raw = make(map[string]any)
	}
	raw[keyHome] = normalized

	if err := writeGlobal(raw); err != nil {
		return "", err
	}
	return normalized, nil
}

// ClearPersistedHome removes home from the global config.
// Returns true if the key was present and removed.
// If the file becomes empty after removal it is deleted.
func ClearPersistedHome() (bool, error) {
	raw, err := readGlobal()
	if err != nil || raw == nil {
		return false, err
	}
	if _, ok := raw[keyHome]; !ok {
		return false, nil
	}
	delete(raw, keyHome)

	if len(raw) == 0 {
		cfgPath, err := globalConfigPath()
		if err != nil {
			return false, err
		}
		_ = os.Remove(cfgPath)
		return true, nil
	}
	return true, writeGlobal(raw)
}

// readGlobal returns the parsed global config, or nil when it is missing or
// unparseable.
func readGlobal() (map[string]any, error) {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(cfgPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil
	}
	return raw, nil
}

func writeGlobal(raw map[string]any) error {
	cfgPath, err := globalConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return err
	}
	out, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(cfgPath, out, 0o600)
}
