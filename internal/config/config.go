// Package config loads wordvault configuration from a YAML or TOML file.
//
// Values of the form ${VAR_NAME} are replaced with the environment
// variable before parsing. Sizes are human strings such as "100MB" or
// "1GiB". Command-line flags override whatever the file sets.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/eunmann/wordvault/pkg/dedupstore"
	"github.com/eunmann/wordvault/pkg/export"
	"github.com/eunmann/wordvault/pkg/lines"
	"github.com/eunmann/wordvault/pkg/logging"
	"github.com/eunmann/wordvault/pkg/membudget"
	"github.com/eunmann/wordvault/pkg/s3fetch"
)

// DBFileName is the database file inside the store directory.
const DBFileName = "wordvault.db"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete wordvault configuration.
type Config struct {
	Inputs  []string      `yaml:"inputs" toml:"inputs"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Store   StoreConfig   `yaml:"store" toml:"store"`
	Ingest  IngestConfig  `yaml:"ingest" toml:"ingest"`
	S3      S3Config      `yaml:"s3" toml:"s3"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// OutputConfig describes the exported wordlists.
type OutputConfig struct {
	Dir      string `yaml:"dir" toml:"dir"`
	BaseName string `yaml:"base_name" toml:"base_name"`
	// MaxFileSize caps each output file, e.g. "1GiB".
	MaxFileSize string `yaml:"max_file_size" toml:"max_file_size"`
}

// StoreConfig describes the dedup store.
type StoreConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
	// Driver is "sqlite3" (cgo) or "sqlite" (pure Go).
	Driver string `yaml:"driver" toml:"driver"`
	// MaxSize is the size reservation, e.g. "50GiB".
	MaxSize     string `yaml:"max_size" toml:"max_size"`
	Synchronous string `yaml:"synchronous" toml:"synchronous"`
}

// IngestConfig tunes reading and batching.
type IngestConfig struct {
	BatchSize     string `yaml:"batch_size" toml:"batch_size"`
	SampleSize    string `yaml:"sample_size" toml:"sample_size"`
	MaxRunes      int    `yaml:"max_runes" toml:"max_runes"`
	MaxBytes      int    `yaml:"max_bytes" toml:"max_bytes"`
	Encoding      string `yaml:"encoding" toml:"encoding"`
	ParquetColumn string `yaml:"parquet_column" toml:"parquet_column"`
}

// S3Config tunes S3 inputs.
type S3Config struct {
	StagingDir  string `yaml:"staging_dir" toml:"staging_dir"`
	Concurrency int    `yaml:"concurrency" toml:"concurrency"`
	PartSize    string `yaml:"part_size" toml:"part_size"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Debug  bool   `yaml:"debug" toml:"debug"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Output: OutputConfig{
			BaseName: export.DefaultBaseName,
		},
		Logging: LoggingConfig{Format: logging.FormatAuto},
	}
}

// Load reads a configuration file. Files ending in .toml are TOML;
// everything else is YAML. Fields missing from the file keep their
// Default values. The result is not validated; call Validate once
// flags are applied.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	expanded := expandEnvVars(string(data))

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or with
// nothing when it is unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// DefaultStoreDir keeps the store next to the exported wordlists when no
// store directory is configured.
func (c *Config) DefaultStoreDir() {
	if c.Store.Dir == "" {
		c.Store.Dir = c.Output.Dir
	}
}

// Validate checks the fields every command needs and that every size
// parses. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Store.Dir == "" {
		return fmt.Errorf("%w: store.dir is required", ErrInvalid)
	}
	switch c.Store.Driver {
	case "", dedupstore.DriverCGo, dedupstore.DriverPure:
	default:
		return fmt.Errorf("%w: store.driver %q must be %s or %s", ErrInvalid, c.Store.Driver, dedupstore.DriverCGo, dedupstore.DriverPure)
	}
	if _, err := logging.ResolveFormat(c.Logging.Format); err != nil {
		return fmt.Errorf("%w: logging.format: %w", ErrInvalid, err)
	}
	if c.Ingest.MaxRunes < 0 || c.Ingest.MaxBytes < 0 {
		return fmt.Errorf("%w: ingest.max_runes and ingest.max_bytes must not be negative", ErrInvalid)
	}
	if c.S3.Concurrency < 0 {
		return fmt.Errorf("%w: s3.concurrency must not be negative", ErrInvalid)
	}

	for _, s := range []struct{ name, value string }{
		{"output.max_file_size", c.Output.MaxFileSize},
		{"store.max_size", c.Store.MaxSize},
		{"ingest.batch_size", c.Ingest.BatchSize},
		{"ingest.sample_size", c.Ingest.SampleSize},
		{"s3.part_size", c.S3.PartSize},
	} {
		if _, err := size(s.value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, s.name, err)
		}
	}
	return nil
}

// ValidateExport additionally requires an output directory.
func (c *Config) ValidateExport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("%w: output.dir is required", ErrInvalid)
	}
	return nil
}

// size parses an optional human size; empty is zero.
func size(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := membudget.ParseHumanSize(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// DBPath returns the database file inside the store directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.Store.Dir, DBFileName)
}

// DedupStoreConfig returns the store configuration. Call after Validate.
func (c *Config) DedupStoreConfig() dedupstore.Config {
	cfg := dedupstore.DefaultConfig(c.DBPath())
	if c.Store.Driver != "" {
		cfg.Driver = c.Store.Driver
	}
	if c.Store.Synchronous != "" {
		cfg.Synchronous = strings.ToUpper(c.Store.Synchronous)
	}
	if n, _ := size(c.Store.MaxSize); n > 0 {
		cfg.MaxSizeBytes = n
	}
	return cfg
}

// ExportOptions returns the export configuration. Call after Validate.
func (c *Config) ExportOptions() export.Options {
	n, _ := size(c.Output.MaxFileSize)
	return export.Options{
		Dir:          c.Output.Dir,
		BaseName:     c.Output.BaseName,
		MaxFileBytes: n,
	}
}

// LineOptions returns the reader configuration. Call after Validate.
func (c *Config) LineOptions() lines.Options {
	n, _ := size(c.Ingest.SampleSize)
	return lines.Options{
		Rules: lines.Rules{
			MaxRunes: c.Ingest.MaxRunes,
			MaxBytes: c.Ingest.MaxBytes,
		},
		SampleBytes:   int(n),
		Encoding:      c.Ingest.Encoding,
		ParquetColumn: c.Ingest.ParquetColumn,
	}
}

// DownloaderConfig returns the S3 download settings. Call after Validate.
func (c *Config) DownloaderConfig() s3fetch.DownloaderConfig {
	n, _ := size(c.S3.PartSize)
	return s3fetch.DownloaderConfig{
		Concurrency: c.S3.Concurrency,
		PartSize:    n,
	}
}
