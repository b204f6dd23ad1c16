package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"adminconsole/internal/platform/config"
)

func newConfigCmd(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the consolectl config file",
	}
	configCmd.AddCommand(newConfigInitCmd(opts), newConfigShowCmd(opts))
	return configCmd
}

func newConfigInitCmd(opts *options) *cobra.Command {
	var (
		f     config.File
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.DefaultFilePath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if f.Session.Store == "" {
				f.Session.Store = config.SessionStoreFile
			}
			if err := f.Save(path); err != nil {
				return err
			}
			pterm.Success.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.Identity.URL, "identity-url", "", "Identity service base URL")
	cmd.Flags().StringVar(&f.Identity.APIKey, "api-key", "", "Identity service API key")
	cmd.Flags().StringVar(&f.Profiles.Backend, "profile-backend", "", "Profile store backend (rest, postgres, sqlite, memory)")
	cmd.Flags().StringVar(&f.Database.URL, "database-url", "", "Database URL for the postgres and sqlite backends")
	cmd.Flags().StringVar(&f.Session.Store, "session-store", "", "Session store (file, memory, redis)")
	cmd.Flags().StringVar(&f.Session.Dir, "session-dir", "", "Directory for the file session store")
	cmd.Flags().StringSliceVar(&f.Auth.PrivilegedIDs, "privileged-id", nil, "Identity id always treated as admin (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			apiKey := "(unset)"
			if cfg.Identity.APIKey != "" {
				apiKey = "(set)"
			}
			return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
				{"SETTING", "VALUE"},
				{"identity url", cfg.Identity.URL},
				{"api key", apiKey},
				{"profile backend", cfg.Profiles.Backend},
				{"session store", cfg.Session.Store},
				{"session dir", valueOrDash(cfg.Session.Dir)},
				{"privileged ids", fmt.Sprint(len(cfg.Auth.PrivilegedIDs))},
				{"grant admin on sign-in", fmt.Sprint(cfg.Auth.GrantAdminOnSignIn)},
			}).Render()
		},
	}
}
