package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/you/storefront/internal/app"
	"github.com/you/storefront/internal/config"
	"github.com/you/storefront/internal/observability"
)

var (
	configPath string
	verbose    bool

	container *app.Container
)

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Storefront session, cart and checkout client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err := observability.NewLogger(level, cfg.LogDevelopment)
		if err != nil {
			return err
		}

		container, err = app.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		container.Start(cmd.Context())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $STOREFRONT_CONFIG or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, refreshCmd, cartCmd, checkoutCmd, orderCmd)
}

func main() {
	err := rootCmd.Execute()
	if container != nil {
		if cerr := container.Close(); cerr != nil {
			container.Logger.Warn("failed to close resources", zap.Error(cerr))
		}
		_ = container.Logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
