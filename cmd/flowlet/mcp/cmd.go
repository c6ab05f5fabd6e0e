// Package mcpcmd implements the `flowlet mcp` command.
package mcpcmd

import (
	"github.com/spf13/cobra"

	"github.com/go-ports/flowlet/cmd/flowlet/shared"
	internalmcp "github.com/go-ports/flowlet/internal/mcp"
	"github.com/go-ports/flowlet/internal/service"
)

// Command implements `flowlet mcp`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the mcp command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "mcp",
		Short: "Start the flowlet MCP server (stdio transport)",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	return internalmcp.Serve(cmd.Context(), service.Options{Home: c.ctx.Home})
}
