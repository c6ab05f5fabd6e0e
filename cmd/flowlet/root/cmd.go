// Package rootcmd wires the root cobra.Command for the flowlet CLI binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	authcmd "github.com/go-ports/flowlet/cmd/flowlet/auth"
	commandcmd "github.com/go-ports/flowlet/cmd/flowlet/command"
	configcmd "github.com/go-ports/flowlet/cmd/flowlet/config"
	mcpcmd "github.com/go-ports/flowlet/cmd/flowlet/mcp"
	projectcmd "github.com/go-ports/flowlet/cmd/flowlet/project"
	"github.com/go-ports/flowlet/cmd/flowlet/shared"
	taskcmd "github.com/go-ports/flowlet/cmd/flowlet/task"
	varscmd "github.com/go-ports/flowlet/cmd/flowlet/vars"
	versioncmd "github.com/go-ports/flowlet/cmd/flowlet/version"
)

// New creates and returns the root cobra.Command for the flowlet CLI.
func New() *cobra.Command {
	ctx := &shared.Context{}

	commands := commandcmd.New(ctx)

	root := &cobra.Command{
		Use:   "flowlet [command-name]",
		Short: "flowlet — save, share and run your developer workflows",
		Long: "flowlet stores shell commands, variables, projects and tasks locally and\n" +
			"mirrors them to a remote service. Run a saved command with `flowlet <name>`.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return shared.SetupLogging(cmd, ctx.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return commands.Run(cmd, args[0], nil, commandcmd.RunOptions{})
		},
	}

	root.PersistentFlags().StringVar(
		&ctx.Home, "home", "",
		"Override flowlet home directory (default: $FLOWLET_HOME env → persisted config → ~/.flowlet)",
	)
	root.PersistentFlags().StringVar(
		&ctx.LogLevel, "log-level", "error",
		"Log level: debug, info, warn or error",
	)

	root.AddCommand(
		commands.Cmd(),
		varscmd.New(ctx).Cmd(),
		projectcmd.New(ctx).Cmd(),
		taskcmd.New(ctx).Cmd(),
		authcmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
		versioncmd.New().Cmd(),
	)

	return root
}
