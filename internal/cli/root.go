package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"songplay_etl/internal/config"
	"songplay_etl/internal/engine"
	"songplay_etl/internal/etl"
	"songplay_etl/internal/logging"
)

const (
	appName    = "songplay-etl"
	jobTimeout = 6 * time.Hour
)

// Options are the command line overrides. Empty or zero values keep the config file value.
type Options struct {
	ConfigPath string
	Input      string
	Output     string
	Timezone   string
	Workers    int
	StatsFile  string
}

// NewRootCmd returns the root command. It runs the whole job and takes no arguments.
func NewRootCmd() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Load song and event logs into partitioned parquet tables",
		Long:          "Reads song metadata and user activity logs, builds the songs, artists, users, time and songplays tables and writes them as parquet.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			ctx, cancel := context.WithTimeout(cmd.Context(), jobTimeout)
			defer cancel()
			return Run(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", config.DefaultPath, "Path to the ini config file")
	cmd.Flags().StringVar(&opts.Input, "input", "", "Input location, overrides INPUT_DATA")
	cmd.Flags().StringVar(&opts.Output, "output", "", "Output location, overrides OUTPUT_DATA")
	cmd.Flags().StringVar(&opts.Timezone, "timezone", "", "Timezone for the time table, overrides TIMEZONE")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Concurrent file reads and writes, overrides WORKERS")
	cmd.Flags().StringVar(&opts.StatsFile, "stats-file", "", "Where to write run statistics, overrides STATS_FILE")

	return cmd
}

// Run executes the song pipeline and then the log pipeline.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	opts.apply(cfg)

	slog.Info("Starting ETL pipeline", "input", cfg.InputData, "output", cfg.OutputData, "workers", cfg.Workers)
	start := time.Now()

	ec, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ec.Close(); err != nil {
			slog.Warn("Cleanup failed", "error", err)
		}
	}()

	if err := ec.Probe(ctx); err != nil {
		return err
	}
	if err := etl.ProcessSongData(ctx, ec); err != nil {
		return fmt.Errorf("song data: %w", err)
	}
	if err := etl.ProcessLogData(ctx, ec); err != nil {
		return fmt.Errorf("log data: %w", err)
	}

	slog.Info("ETL pipeline completed", "duration", time.Since(start).String())

	if cfg.StatsFile != "" {
		if err := ec.Stats().WriteFile(cfg.StatsFile); err != nil {
			slog.Warn("Failed to write stats", "error", err)
		} else {
			slog.Info("Wrote stats", "path", cfg.StatsFile)
		}
	}
	return nil
}

func (o Options) apply(cfg *config.Config) {
	if o.Input != "" {
		cfg.InputData = o.Input
	}
	if o.Output != "" {
		cfg.OutputData = o.Output
	}
	if o.Timezone != "" {
		cfg.Timezone = o.Timezone
	}
	if o.Workers > 0 {
		cfg.Workers = o.Workers
	}
	if o.StatsFile != "" {
		cfg.StatsFile = o.StatsFile
	}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	logging.Initialize(appName)

	if err := NewRootCmd().Execute(); err != nil {
		slog.Error("ETL pipeline failed", "error", err)
		os.Exit(1)
	}
}
