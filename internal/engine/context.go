package engine

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/xitongsys/parquet-go/parquet"

	"songplay_etl/internal/config"
	"songplay_etl/internal/storage"
)

const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"

	probeKey = "connection-test.txt"
)

// Context is the shared execution context for one run. The driver creates it once and
// hands it to every pipeline.
type Context struct {
	Input  storage.Store
	Output storage.Store

	// Location is the zone start_time is split into date parts in.
	Location        *time.Location
	Workers         int
	Compression     parquet.CompressionCodec
	LatestUserLevel bool
	RunID           string

	tempDir string
	stats   *Stats
}

type Option func(*Context)

// WithStores replaces the stores opened from the configured locations.
func WithStores(input, output storage.Store) Option {
	return func(c *Context) {
		c.Input = input
		c.Output = output
	}
}

// New exports the credentials to the process environment, then opens the input and output stores.
func New(cfg *config.Config, opts ...Option) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := exportCredentials(cfg.AWS); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	codec, err := compressionCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	runID := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	c := &Context{
		Location:        loc,
		Workers:         cfg.Workers,
		Compression:     codec,
		LatestUserLevel: cfg.LatestUserLevel,
		RunID:           runID,
		stats:           newStats(runID),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.Input == nil {
		if c.Input, err = storage.Open(cfg.AWS, cfg.InputData); err != nil {
			return nil, fmt.Errorf("failed to open input %s: %w", cfg.InputData, err)
		}
	}
	if c.Output == nil {
		if c.Output, err = storage.Open(cfg.AWS, cfg.OutputData); err != nil {
			return nil, fmt.Errorf("failed to open output %s: %w", cfg.OutputData, err)
		}
	}

	// parquet files are staged locally before upload
	if c.tempDir, err = os.MkdirTemp("", "songplay-etl-"+strings.ToLower(runID)+"-"); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	slog.Info("Execution context ready",
		"run_id", runID,
		"input", c.Input.Location(),
		"output", c.Output.Location(),
		"timezone", loc.String(),
		"workers", c.Workers,
		"compression", strings.ToLower(codec.String()))
	return c, nil
}

// Probe checks the output store is writable by writing and removing a small object.
func (c *Context) Probe(ctx context.Context) error {
	slog.Info("Testing output store access...", "location", c.Output.Location())

	err := c.Output.Put(ctx, probeKey, strings.NewReader("connection test successful"), nil)
	if err != nil {
		return fmt.Errorf("output store write test failed: %w", err)
	}
	if err := c.Output.Delete(ctx, probeKey); err != nil {
		slog.Warn("Failed to clean up test object", "key", probeKey, "error", err)
	}
	return nil
}

// Stats returns the statistics collected so far.
func (c *Context) Stats() *Stats {
	return c.stats
}

// Close removes the local staging directory.
func (c *Context) Close() error {
	if c.tempDir == "" {
		return nil
	}
	slog.Debug("Cleaning up temp directory", "dir", c.tempDir)
	if err := os.RemoveAll(c.tempDir); err != nil {
		return fmt.Errorf("failed to clean up temp directory: %w", err)
	}
	return nil
}

func exportCredentials(awsCfg config.AWSConfig) error {
	if err := os.Setenv(EnvAccessKeyID, awsCfg.AccessKeyID); err != nil {
		return fmt.Errorf("failed to set %s: %w", EnvAccessKeyID, err)
	}
	if err := os.Setenv(EnvSecretAccessKey, awsCfg.SecretAccessKey); err != nil {
		return fmt.Errorf("failed to set %s: %w", EnvSecretAccessKey, err)
	}
	return nil
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch name {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY, nil
	case "gzip":
		return parquet.CompressionCodec_GZIP, nil
	case "zstd":
		return parquet.CompressionCodec_ZSTD, nil
	case "uncompressed":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression %q", name)
	}
}
