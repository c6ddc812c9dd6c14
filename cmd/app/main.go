package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"SignalPull/internal/di"
	"SignalPull/internal/domain/models"
	drepo "SignalPull/internal/domain/repository"
	"SignalPull/pkg/cache"
	"SignalPull/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "signalpull",
	Short:        "Outcome polling and signal engine",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engines and the HTTP API",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the configuration, then print a summary",
	RunE:  runConfigCheck,
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots [strategy]",
	Short: "Print the latest snapshot a server saved in the shared cache",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshots,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(serveCmd, configCmd, snapshotsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "env=%s feed=%s poll=%s timeout=%s\n", cfg.Environment, cfg.Feed.URL, cfg.Feed.PollInterval, cfg.Feed.FetchTimeout)
	fmt.Fprintf(out, "strategies: colors=%t white=%t (offset=%s tz=%s)\n",
		cfg.Strategies.Colors.Enabled, cfg.Strategies.White.Enabled, cfg.Strategies.White.Offset, cfg.Strategies.White.Timezone)
	fmt.Fprintf(out, "redis=%t kafka=%t journal=%s\n", cfg.Redis.Enabled, cfg.Kafka.Enabled, cfg.Journal.Backend)
	return nil
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	store, cleanup, err := di.InitializeSnapshotStore(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	var strategies []models.Strategy
	switch {
	case len(args) == 1:
		strategies = []models.Strategy{models.Strategy(args[0])}
	default:
		if cfg.Strategies.Colors.Enabled {
			strategies = append(strategies, models.StrategyColors)
		}
		if cfg.Strategies.White.Enabled {
			strategies = append(strategies, models.StrategyWhite)
		}
	}
	return printSnapshots(ctx, cmd.OutOrStdout(), store, strategies)
}

func printSnapshots(ctx context.Context, out io.Writer, store drepo.SnapshotStore, strategies []models.Strategy) error {
	if len(strategies) == 1 {
		snap, err := store.Load(ctx, strategies[0])
		if errors.Is(err, cache.ErrCacheMiss) {
			fmt.Fprintf(out, "%s: no snapshot\n", strategies[0])
			return nil
		}
		if err != nil {
			return err
		}
		printSnapshot(out, snap)
		return nil
	}

	all, err := store.LoadAll(ctx, strategies...)
	if err != nil {
		return err
	}
	for _, st := range strategies {
		snap, ok := all[st]
		if !ok {
			fmt.Fprintf(out, "%s: no snapshot\n", st)
			continue
		}
		printSnapshot(out, snap)
	}
	return nil
}

func printSnapshot(out io.Writer, s models.Snapshot) {
	fmt.Fprintf(out, "%s: seq=%d source=%s state=%s signal=%s fallbacks=%d updated=%s\n",
		s.Strategy, s.Sequence, s.Source, s.Signal.State, s.Signal.ID, s.ConsecutiveFallbacks, s.UpdatedAt.Format(time.RFC3339))
}
