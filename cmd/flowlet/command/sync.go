package commandcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/flowlet/cmd/flowlet/shared"
)

func (c *Command) newPush() *cobra.Command {
	return &cobra.Command{
		Use:   "push <name>",
		Short: "Copy a local command to the remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			if _, err := fc.Commands.Push(cmd.Context(), args[0]); err != nil {
				return err
			}
			shared.Printer(cmd).Success("Command", fmt.Sprintf("Pushed `%s` to %s.", args[0], fc.Remote.BaseURL()))
			return nil
		},
	}
}

func (c *Command) newPull() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <name>",
		Short: "Copy a command from the remote store to this machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			if _, err := fc.Commands.Pull(cmd.Context(), args[0]); err != nil {
				return err
			}
			shared.Printer(cmd).Success("Command", fmt.Sprintf("Pulled `%s` from %s.", args[0], fc.Remote.BaseURL()))
			return nil
		},
	}
}
