// Package cmd holds the consolectl command tree.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"adminconsole/internal/app"
	"adminconsole/internal/platform/config"
	"adminconsole/internal/platform/logger"
)

const resolveTimeout = 15 * time.Second

type options struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "consolectl",
		Short: "Operate the admin console from a terminal",
		Long: `consolectl signs in against the identity service, keeps the session on disk,
and reports the profile and admin status the console would derive for it.

Configuration is read from the YAML file given by --config (default
$XDG_CONFIG_HOME/adminconsole/config.yaml) and then from environment variables.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the consolectl config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr (debug, info, warn, error)")

	rootCmd.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newAdminStatusCmd(opts),
		newProfileCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers the config file over CLI defaults. Sessions persist to
// disk so that separate invocations share them.
func (o *options) loadConfig() (config.Server, error) {
	defaults := config.Default()
	defaults.Session.Store = config.SessionStoreFile
	defaults.LogLevel = o.logLevel
	return config.Load(o.configPath, defaults)
}

// openApp builds and starts the stack, then waits until the persisted
// session and its profile are resolved. Callers must Close the result.
func (o *options) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("start authorization context: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	if err := a.Auth.WaitResolved(waitCtx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return a, nil
}
