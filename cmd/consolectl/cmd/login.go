package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const passwordEnv = "CONSOLE_PASSWORD"

func newLoginCmd(opts *options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Signs in against the identity service and stores the session on disk.

The password is taken from --password, then from $CONSOLE_PASSWORD, and is
otherwise prompted for.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if password == "" {
				p, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = p
			}

			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.Auth.SignIn(cmd.Context(), email, password)
			if !result.Success {
				pterm.Error.Println(result.Error)
				return errors.New("sign-in failed")
			}

			waitCtx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
			defer cancel()
			if err := a.Auth.WaitResolved(waitCtx); err != nil {
				return fmt.Errorf("resolve profile: %w", err)
			}

			state := a.Auth.Snapshot()
			pterm.Success.Printf("Signed in as %s\n", email)
			if state.Profile != nil && state.Profile.IsAdmin {
				pterm.Info.Println("This identity has admin access.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Auth.Snapshot().SignedIn() {
				pterm.Info.Println("Not signed in.")
				return nil
			}
			// Local state is cleared even when the remote call fails.
			if err := a.Auth.SignOut(cmd.Context()); err != nil {
				pterm.Warning.Printf("Identity service sign-out failed: %v\n", err)
			}
			pterm.Success.Println("Signed out.")
			return nil
		},
	}
}
