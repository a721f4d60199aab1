package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"golang.org/x/sync/errgroup"

	"songplay_etl/internal/dataset"
)

const (
	// NullPartition is the directory value used for a null partition column.
	NullPartition = "__HIVE_DEFAULT_PARTITION__"

	successMarker = "_SUCCESS"
	// parquet-go marshalling goroutines per file
	writerParallelism = 4
)

// Table describes how rows of type R are laid out on disk. F is the parquet row struct
// written to each file; it carries parquet-go tags and leaves out the partition columns.
type Table[R any, F any] struct {
	Name        string
	PartitionBy []string
	// Partition returns the directory values for PartitionBy, formatted with PartitionValue.
	Partition func(R) []string
	File      func(R) F
}

// Dir is the table directory relative to the output root.
func (t Table[R, F]) Dir() string {
	return fmt.Sprintf("%s/%s_table.parquet/", t.Name, t.Name)
}

// PartitionValue formats a nullable column value for a partition directory.
func PartitionValue[T comparable](n dataset.Null[T]) string {
	if !n.Valid {
		return NullPartition
	}
	switch v := any(n.V).(type) {
	case string:
		if v == "" {
			return NullPartition
		}
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Sprint(v)
	}
}

// WriteTable replaces the table's output with rows. Rows are grouped into Hive-style
// partition directories, one part file each, written concurrently. An empty unpartitioned
// table is written as a single zero-row part file. A _SUCCESS marker is written once every
// part file is in place.
func WriteTable[R any, F any](ctx context.Context, ec *Context, t Table[R, F], rows []R) error {
	dir := t.Dir()
	slog.Info("Writing table", "table", t.Name, "rows", len(rows), "partition_by", t.PartitionBy)

	if err := ec.Output.DeleteAll(ctx, dir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dir, err)
	}

	partitions := make(map[string][]F)
	for _, row := range rows {
		p, err := partitionPath(t, row)
		if err != nil {
			return err
		}
		partitions[p] = append(partitions[p], t.File(row))
	}
	paths := make([]string, 0, len(partitions))
	for p := range partitions {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	// an empty unpartitioned table still gets one zero-row file carrying the schema
	if len(paths) == 0 && len(t.PartitionBy) == 0 {
		paths = []string{""}
	}

	sizes := make([]int64, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ec.Workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			key := dir + p + partFileName(ec.Compression)
			size, err := writePartFile(gctx, ec, key, partitions[p])
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", key, err)
			}
			sizes[i] = size
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := ec.Output.Put(ctx, dir+successMarker, strings.NewReader(""), nil); err != nil {
		return fmt.Errorf("failed to write %s marker: %w", successMarker, err)
	}

	ts := TableStats{Rows: int64(len(rows)), Partitions: len(paths), Files: len(paths)}
	for _, size := range sizes {
		ts.Bytes += size
	}
	ec.stats.recordTable(t.Name, ts)

	slog.Info("Table written",
		"table", t.Name,
		"rows", ts.Rows,
		"files", ts.Files,
		"size", humanize.Bytes(uint64(ts.Bytes)))
	return nil
}

func partitionPath[R, F any](t Table[R, F], row R) (string, error) {
	if len(t.PartitionBy) == 0 {
		return "", nil
	}
	values := t.Partition(row)
	if len(values) != len(t.PartitionBy) {
		return "", fmt.Errorf("table %s: got %d partition values for %d columns", t.Name, len(values), len(t.PartitionBy))
	}
	var sb strings.Builder
	for i, col := range t.PartitionBy {
		sb.WriteString(col)
		sb.WriteByte('=')
		sb.WriteString(escapePathName(values[i]))
		sb.WriteByte('/')
	}
	return sb.String(), nil
}

// writePartFile encodes records into a local parquet file and uploads it under key.
func writePartFile[F any](ctx context.Context, ec *Context, key string, records []F) (int64, error) {
	localFileName := filepath.Join(ec.tempDir, strings.ReplaceAll(key, "/", "_"))

	fw, err := local.NewLocalFileWriter(localFileName)
	if err != nil {
		return 0, fmt.Errorf("failed to create local file writer: %w", err)
	}
	defer os.Remove(localFileName)

	pw, err := writer.NewParquetWriter(fw, new(F), writerParallelism)
	if err != nil {
		fw.Close()
		return 0, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = ec.Compression

	slog.Debug("Writing records to parquet file", "key", key, "records", len(records))
	for i, record := range records {
		if err := pw.Write(record); err != nil {
			fw.Close()
			return 0, fmt.Errorf("error writing record %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return 0, fmt.Errorf("error in WriteStop: %w", err)
	}
	if err := fw.Close(); err != nil {
		return 0, fmt.Errorf("error closing file writer: %w", err)
	}

	file, err := os.Open(localFileName)
	if err != nil {
		return 0, fmt.Errorf("failed to open temp file for upload: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}

	err = ec.Output.Put(ctx, key, file, map[string]string{
		"record-count": strconv.Itoa(len(records)),
		"run-id":       ec.RunID,
	})
	if err != nil {
		return 0, err
	}
	slog.Debug("Uploaded part file", "key", key, "size", humanize.Bytes(uint64(info.Size())))
	return info.Size(), nil
}

func partFileName(codec parquet.CompressionCodec) string {
	switch codec {
	case parquet.CompressionCodec_SNAPPY:
		return "part-00000.snappy.parquet"
	case parquet.CompressionCodec_GZIP:
		return "part-00000.gz.parquet"
	case parquet.CompressionCodec_ZSTD:
		return "part-00000.zstd.parquet"
	default:
		return "part-00000.parquet"
	}
}

// escapePathName percent-encodes the characters that cannot appear in a partition directory.
func escapePathName(v string) string {
	var sb strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < 0x20 || c == 0x7f || strings.IndexByte("\"#%'*/:=?\\{[]^", c) >= 0 {
			fmt.Fprintf(&sb, "%%%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
