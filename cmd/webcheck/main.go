package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hazz-dev/webcheck/internal/config"
	"github.com/hazz-dev/webcheck/internal/storage"
	"github.com/hazz-dev/webcheck/internal/version"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "webcheck",
		Short:        "HTTP endpoint liveness and latency monitor",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "webcheck.yml", "config file path")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(statusCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webcheck %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the monitor and its dashboard",
		RunE:  runServe,
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe every monitored URL once and print the results",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	urls, err := monitoredURLs(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return executeCheck(cmd, cfg, urls)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the last saved status of every resource",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	return executeStatus(cmd, store)
}

// monitoredURLs returns the URLs of the stored snapshot, or the configured
// defaults when none is stored.
func monitoredURLs(ctx context.Context, cfg *config.Config) ([]string, error) {
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	reg, _ := storage.LoadOrDefault(ctx, store, defaultsFrom(cfg), zap.NewNop())
	return reg.URLs(), nil
}

func defaultsFrom(cfg *config.Config) storage.Defaults {
	return storage.Defaults{
		URLs:   cfg.Defaults.URLs,
		Config: cfg.AppConfig(),
	}
}
