// Package projectcfg reads and writes the per-project flowlet.toml file.
package projectcfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the project file looked up from the working directory upwards.
const FileName = "flowlet.toml"

// ErrExists is returned by Write when the directory already has a project file.
var ErrExists = errors.New(FileName + " already exists")

// Project is the [project] table.
type Project struct {
	Name        string `toml:"name"`
	Description string `toml:"description,omitempty"`
	Environment string `toml:"environment,omitempty"`
}

// File is the decoded flowlet.toml.
type File struct {
	Project Project `toml:"project"`
}

// Found is a project file located by Find.
type Found struct {
	Path string
	File File
}

// Find walks up from dir looking for flowlet.toml and returns the first one
// found, or nil when none exists up to the filesystem root. A file that cannot
// be parsed is an error.
func Find(dir string) (*Found, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("projectcfg.Find: %w", err)
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			f, err := Read(path)
			if err != nil {
				return nil, err
			}
			return &Found{Path: path, File: *f}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Read decodes the project file at path.
func Read(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("projectcfg.Read %s: %w", path, err)
	}
	return &f, nil
}

// Write creates flowlet.toml in dir. It refuses to overwrite an existing file.
func Write(dir string, p Project) (string, error) {
	path := filepath.Join(dir, FileName)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("projectcfg.Write %s: %w", path, ErrExists)
	}
	if err != nil {
		return "", fmt.Errorf("projectcfg.Write: %w", err)
	}
	enc := toml.NewEncoder(out)
	if err := enc.Encode(File{Project: p}); err != nil {
		out.Close()
		return "", fmt.Errorf("projectcfg.Write: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("projectcfg.Write: %w", err)
	}
	return path, nil
}

// Name returns the project name declared above dir, or "" when there is none.
func Name(dir string) (string, error) {
	f, err := Find(dir)
	if err != nil || f == nil {
		return "", err
	}
	return f.File.Project.Name, nil
}
