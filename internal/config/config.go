package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

const (
	DefaultPath        = "dl.cfg"
	DefaultInputData   = "s3a://udacity-dend/"
	DefaultOutputData  = "s3a://my-udacity-course-bucket/"
	DefaultRegion      = "us-east-1"
	DefaultTimezone    = "UTC"
	DefaultCompression = "snappy"
	DefaultStatsFile   = "etl_stats.json"

	sectionAWS = "aws"
	sectionETL = "etl"
)

var (
	ErrMissingFile = errors.New("config file not found")
	ErrMissingKey  = errors.New("config key missing")
)

var compressionCodecs = map[string]struct{}{
	"snappy":       {},
	"gzip":         {},
	"zstd":         {},
	"uncompressed": {},
}

// AWSConfig holds the object store credentials and endpoint.
type AWSConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint string
}

// Config is the job configuration, read once at startup.
type Config struct {
	AWS AWSConfig

	InputData  string
	OutputData string

	// Timezone is the IANA zone used to split start_time into date parts.
	// "Local" uses the machine zone.
	Timezone    string
	Workers     int
	Compression string

	// LatestUserLevel keeps only the most recent level per user in the users table.
	LatestUserLevel bool
	StatsFile       string
}

// Load reads the ini file at path. The [AWS] section must carry both credential keys;
// everything in [ETL] is optional.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	f, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	aws, err := f.GetSection(sectionAWS)
	if err != nil {
		return nil, fmt.Errorf("%w: section [AWS] in %s", ErrMissingKey, path)
	}

	cfg := Default()
	if cfg.AWS.AccessKeyID, err = requireKey(aws, "aws_access_key_id"); err != nil {
		return nil, err
	}
	if cfg.AWS.SecretAccessKey, err = requireKey(aws, "aws_secret_access_key"); err != nil {
		return nil, err
	}
	cfg.AWS.Region = aws.Key("aws_region").MustString(cfg.AWS.Region)
	cfg.AWS.Endpoint = aws.Key("aws_endpoint").String()

	// [ETL] is optional as a whole
	if etl, err := f.GetSection(sectionETL); err == nil {
		cfg.InputData = etl.Key("input_data").MustString(cfg.InputData)
		cfg.OutputData = etl.Key("output_data").MustString(cfg.OutputData)
		cfg.Timezone = etl.Key("timezone").MustString(cfg.Timezone)
		cfg.Workers = etl.Key("workers").MustInt(cfg.Workers)
		cfg.Compression = strings.ToLower(etl.Key("compression").MustString(cfg.Compression))
		cfg.LatestUserLevel = etl.Key("latest_user_level").MustBool(cfg.LatestUserLevel)
		cfg.StatsFile = etl.Key("stats_file").MustString(cfg.StatsFile)
	}

	return cfg, nil
}

// Default returns a config with every optional value set and no credentials.
func Default() *Config {
	return &Config{
		AWS:         AWSConfig{Region: DefaultRegion},
		InputData:   DefaultInputData,
		OutputData:  DefaultOutputData,
		Timezone:    DefaultTimezone,
		Workers:     runtime.NumCPU() * 2,
		Compression: DefaultCompression,
		StatsFile:   DefaultStatsFile,
	}
}

// Validate checks the values that flags may have overridden after Load.
func (c *Config) Validate() error {
	if c.InputData == "" {
		return errors.New("input location is required")
	}
	if c.OutputData == "" {
		return errors.New("output location is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, ok := compressionCodecs[c.Compression]; !ok {
		return fmt.Errorf("unsupported compression %q", c.Compression)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func requireKey(sec *ini.Section, name string) (string, error) {
	if !sec.HasKey(name) || strings.TrimSpace(sec.Key(name).String()) == "" {
		return "", fmt.Errorf("%w: %s in [AWS]", ErrMissingKey, strings.ToUpper(name))
	}
	return strings.TrimSpace(sec.Key(name).String()), nil
}
