package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"songplay_etl/internal/dataset"
)

// TableStats describes one written table.
type TableStats struct {
	Rows       int64 `json:"rows"`
	Partitions int   `json:"partitions"`
	Files      int   `json:"files"`
	Bytes      int64 `json:"bytes"`
}

// Stats holds the metrics of one run.
type Stats struct {
	mu sync.Mutex

	RunID              string                       `json:"run_id"`
	StartedAt          time.Time                    `json:"started_at"`
	TotalExecutionTime string                       `json:"total_execution_time"`
	Inputs             map[string]dataset.LoadStats `json:"inputs"`
	Tables             map[string]TableStats        `json:"tables"`
	TotalRowsWritten   int64                        `json:"total_rows_written"`
	TotalBytesWritten  int64                        `json:"total_bytes_written"`
	TotalBytesRead     int64                        `json:"total_bytes_read"`
}

func newStats(runID string) *Stats {
	return &Stats{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Inputs:    make(map[string]dataset.LoadStats),
		Tables:    make(map[string]TableStats),
	}
}

// RecordLoad adds a load under name. Loading the same name twice accumulates.
func (s *Stats) RecordLoad(name string, ls dataset.LoadStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.Inputs[name]
	prev.Files += ls.Files
	prev.Bytes += ls.Bytes
	prev.Lines += ls.Lines
	prev.Malformed += ls.Malformed
	s.Inputs[name] = prev
	s.TotalBytesRead += ls.Bytes
}

// Table returns the stats recorded for a table.
func (s *Stats) Table(name string) TableStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Tables[name]
}

func (s *Stats) recordTable(name string, ts TableStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Tables[name] = ts
	s.TotalRowsWritten += ts.Rows
	s.TotalBytesWritten += ts.Bytes
}

// WriteFile writes the stats as indented JSON, stamping the elapsed time.
func (s *Stats) WriteFile(path string) error {
	s.mu.Lock()
	s.TotalExecutionTime = time.Since(s.StartedAt).String()
	statsJSON, err := json.MarshalIndent(s, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to serialize stats: %w", err)
	}
	if err := os.WriteFile(path, statsJSON, 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}
