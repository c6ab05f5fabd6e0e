// Package configcmd implements the `flowlet config` command group.
package configcmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-ports/flowlet/cmd/flowlet/shared"
	"github.com/go-ports/flowlet/internal/config"
	"github.com/go-ports/flowlet/internal/service"
)

const configTemplate = `# flowlet configuration

# Remote mirror. Every local write is copied here when set.
# Leave empty to run fully offline. FLOWLET_REMOTE_URL overrides it.
remote:
  base_url: http://localhost:8080

# Local store backend.
store:
  driver: json                  # json | sqlite
  # path: ~/.flowlet/flowlet.json
`

// Command implements `flowlet config`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the config command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		Args:  cobra.NoArgs,
		RunE:  c.runShow,
	}
	c.cmd.AddCommand(
		c.newInit(),
		c.newSet(),
		newSetHome(),
		newClearHome(),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) runShow(cmd *cobra.Command, _ []string) error {
	home, source := config.ResolveHome(c.ctx.Home)
	cfg, err := config.Load(service.ConfigPath(home))
	if err != nil {
		return err
	}
	cfg.ApplyEnv()

	data := map[string]any{
		"remote": map[string]any{
			"base_url": cfg.Remote.BaseURL,
		},
		"store": map[string]any{
			"driver": cfg.Store.Driver,
			"path":   cfg.Store.Path,
		},
		"home":        home,
		"home_source": source,
	}
	b, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(b))
	return nil
}

// ---------------------------------------------------------------------------
// config init
// ---------------------------------------------------------------------------

func (c *Command) newInit() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home, _ := config.ResolveHome(c.ctx.Home)
			cfgPath := service.ConfigPath(home)
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				fmt.Fprintf(out, "Config already exists at %s\n", cfgPath)
				fmt.Fprintln(out, "Use --force to overwrite.")
				return nil
			}
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

// ---------------------------------------------------------------------------
// config set
// ---------------------------------------------------------------------------

func (c *Command) newSet() *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change one setting in config.yaml",
		Long:      fmt.Sprintf("Change one setting in the home's config.yaml. Keys: %v.", config.Keys),
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := config.ResolveHome(c.ctx.Home)
			cfgPath := service.ConfigPath(home)
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				if errors.Is(err, config.ErrUnknownKey) {
					return fmt.Errorf("%w (valid keys: %v)", err, config.Keys)
				}
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			v, _ := cfg.Get(args[0])
			shared.Printer(cmd).Success("Config", fmt.Sprintf("%s = %q", args[0], v))
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// config set-home / clear-home
// ---------------------------------------------------------------------------

func newSetHome() *cobra.Command {
	return &cobra.Command{
		Use:   "set-home <path>",
		Short: "Persist flowlet home location (used when FLOWLET_HOME is unset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := config.SetPersistedHome(args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(resolved, 0o755); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Persisted flowlet home: %s\n", resolved)
			fmt.Fprintln(out, "Override anytime with FLOWLET_HOME.")
			return nil
		},
	}
}

func newClearHome() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-home",
		Short: "Remove persisted flowlet home location from global config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed, err := config.ClearPersistedHome()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if changed {
				fmt.Fprintln(out, "Cleared persisted flowlet home setting.")
			} else {
				fmt.Fprintln(out, "No persisted flowlet home setting was found.")
			}
			return nil
		},
	}
}
