package cmd

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newProfileCmd(opts *options) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect console profiles",
	}
	profileCmd.AddCommand(&cobra.Command{
		Use:   "get <identity-id>",
		Short: "Resolve the profile for an identity",
		Long: `Resolves the profile for an identity the same way the console does on
sign-in: a missing row is created, and privileged identities are healed to admin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			profile := a.Service.FetchProfile(cmd.Context(), args[0])
			if profile == nil {
				return fmt.Errorf("profile for %s could not be resolved", args[0])
			}

			pterm.DefaultSection.Printf("Profile %s\n", profile.ID)
			return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
				{"FIELD", "VALUE"},
				{"name", valueOrDash(profile.DisplayName())},
				{"avatar", valueOrDash(profile.Avatar())},
				{"admin", strconv.FormatBool(profile.IsAdmin)},
				{"updated", profile.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
			}).Render()
		},
	})
	return profileCmd
}
