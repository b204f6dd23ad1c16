package cmd

import (
	"errors"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in, run 'consolectl login' first")

func newWhoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity and its profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			state := a.Auth.Snapshot()
			if !state.SignedIn() {
				return errNotSignedIn
			}

			pterm.DefaultSection.Println("Identity")
			rows := pterm.TableData{
				{"FIELD", "VALUE"},
				{"id", state.Identity.ID},
				{"email", state.Identity.Email},
			}
			if state.Session != nil && !state.Session.ExpiresAt.IsZero() {
				rows = append(rows, []string{"session expires", state.Session.ExpiresAt.Local().Format("2006-01-02 15:04:05")})
			}
			if state.Profile == nil {
				rows = append(rows, []string{"profile", "unavailable"})
			} else {
				rows = append(rows,
					[]string{"name", valueOrDash(state.Profile.DisplayName())},
					[]string{"avatar", valueOrDash(state.Profile.Avatar())},
					[]string{"admin", strconv.FormatBool(state.Profile.IsAdmin)},
				)
			}
			return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		},
	}
}

func newAdminStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "admin-status",
		Short: "Re-check whether the signed-in identity is an administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Auth.Snapshot().SignedIn() {
				return errNotSignedIn
			}
			if a.Auth.CheckAdminStatus(cmd.Context()) {
				pterm.Success.Println("admin")
				return nil
			}
			pterm.Info.Println("not an admin")
			return nil
		},
	}
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
