package dataset

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"songplay_etl/internal/storage"
)

const maxLineSize = 64 * 1024 * 1024

// LoadStats describes what a Load call read.
type LoadStats struct {
	Files     int   `json:"files"`
	Bytes     int64 `json:"bytes"`
	Lines     int   `json:"lines"`
	Malformed int   `json:"malformed"`
}

// Load reads every newline-delimited JSON file matching pattern and maps each record with decode.
// Files are read concurrently, at most workers at a time, but rows are returned in key order
// then line order. Lines that are not JSON objects are counted as malformed and dropped.
func Load[T any](ctx context.Context, s storage.Store, pattern string, workers int, decode func(Record) T) ([]T, LoadStats, error) {
	var stats LoadStats

	objects, err := storage.Match(ctx, s, pattern)
	if err != nil {
		return nil, stats, err
	}
	slog.Info("Found files to load", "pattern", pattern, "count", len(objects))

	perFile := make([][]T, len(objects))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, obj := range objects {
		i, obj := i, obj
		g.Go(func() error {
			slog.Debug("Processing file", "key", obj.Key)

			data, err := s.Get(gctx, obj.Key)
			if err != nil {
				return err
			}
			rows, lines, malformed, err := parseLines(obj.Key, data, decode)
			if err != nil {
				return err
			}
			perFile[i] = rows

			mu.Lock()
			stats.Files++
			stats.Bytes += int64(len(data))
			stats.Lines += lines
			stats.Malformed += malformed
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	var rows []T
	for _, fileRows := range perFile {
		rows = append(rows, fileRows...)
	}

	if stats.Malformed > 0 {
		slog.Warn("Dropped malformed records", "pattern", pattern, "count", stats.Malformed)
	}
	return rows, stats, nil
}

func parseLines[T any](key string, data []byte, decode func(Record) T) (rows []T, lines, malformed int, err error) {
	var r io.Reader = bytes.NewReader(data)
	if strings.HasSuffix(key, ".gz") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("failed to open gzip stream %s: %w", key, err)
		}
		defer zr.Close()
		r = zr
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines++

		rec, err := ParseRecord(line)
		if err != nil {
			slog.Debug("Skipping malformed record", "key", key, "line", lines, "error", err)
			malformed++
			continue
		}
		rows = append(rows, decode(rec))
	}
	if err := scanner.Err(); err != nil {
		return nil, lines, malformed, fmt.Errorf("error reading %s: %w", key, err)
	}
	return rows, lines, malformed, nil
}
