// Package authcmd implements the `flowlet auth` group.
package authcmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/go-ports/flowlet/cmd/flowlet/shared"
	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/prompt"
	"github.com/go-ports/flowlet/internal/repo"
)

// Command implements `flowlet auth`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the auth group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "auth",
		Short: "Register, log in to and log out of the remote service",
	}
	c.cmd.AddCommand(c.newRegister(), c.newLogin(), c.newLogout())
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// credentialFlags binds --email and --password onto cmd.
func credentialFlags(cmd *cobra.Command, creds *models.Credentials) {
	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password (prompted when omitted)")
}

func (c *Command) newRegister() *cobra.Command {
	var creds models.Credentials
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the remote service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := prompt.Credentials(cmd.Context(), &creds); err != nil {
				return err
			}
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			if err := fc.Auths.Register(cmd.Context(), creds); err != nil {
				return err
			}
			shared.Printer(cmd).Success("Registered", creds.Email+". Log in with `flowlet auth login`.")
			return nil
		},
	}
	credentialFlags(cmd, &creds)
	return cmd
}

func (c *Command) newLogin() *cobra.Command {
	var creds models.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := prompt.Credentials(cmd.Context(), &creds); err != nil {
				return err
			}
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			if _, err := fc.Auths.Create(cmd.Context(), creds); err != nil {
				return err
			}
			shared.Printer(cmd).Success("Logged in", creds.Email)
			return nil
		},
	}
	credentialFlags(cmd, &creds)
	return cmd
}

func (c *Command) newLogout() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the local session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			p := shared.Printer(cmd)
			_, err = fc.Auths.Remove(cmd.Context(), models.LogoutInput{})
			if errors.Is(err, repo.ErrNotFound) {
				p.Info("Logout", "No active session.")
				return nil
			}
			if err != nil {
				return err
			}
			p.Success("Logged out", "session token removed")
			return nil
		},
	}
}
