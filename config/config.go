// Package config loads contacttidy settings.
//
// Values are layered, later sources winning: built-in defaults, the YAML
// config file, a .env file, then process environment variables. Command-line
// flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/contacttidy/dedupe"
)

// Environment variables read by Load.
const (
	EnvDatabase           = "CONTACTTIDY_DB"
	EnvThreshold          = "CONTACTTIDY_THRESHOLD"
	EnvAutoMergeThreshold = "CONTACTTIDY_AUTO_MERGE_THRESHOLD"
	EnvMaxResults         = "CONTACTTIDY_MAX_RESULTS"
	EnvBatchSize          = "CONTACTTIDY_BATCH_SIZE"
	EnvBatchPacing        = "CONTACTTIDY_BATCH_PACING"
	EnvCriteria           = "CONTACTTIDY_CRITERIA"
	EnvReportTo           = "CONTACTTIDY_REPORT_TO"
	EnvLogLevel           = "CONTACTTIDY_LOG_LEVEL"
)

const (
	defaultEnvFile = ".env"
	maxMaxResults  = 100000
	maxBatchSize   = 50
)

// BatchConfig controls bulk directory writes.
type BatchConfig struct {
	Size   int           `yaml:"size"`
	Pacing time.Duration `yaml:"pacing"`
}

// Config holds contacttidy settings.
type Config struct {
	// Database is the path of the SQLite contact directory.
	Database string `yaml:"database"`
	// Threshold is the name similarity reported by duplicates.
	Threshold int `yaml:"threshold"`
	// AutoMergeThreshold is the name similarity merged by auto-merge.
	AutoMergeThreshold int `yaml:"auto_merge_threshold"`
	// MaxResults caps the contacts read per run.
	MaxResults int `yaml:"max_results"`
	// Criteria names the match phases to run; empty means all.
	Criteria []string `yaml:"criteria"`
	// ReportTo receives auto-merge summaries by email.
	ReportTo []string    `yaml:"report_to"`
	LogLevel string      `yaml:"log_level"`
	Batch    BatchConfig `yaml:"batch"`

	dotenv map[string]string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:           DefaultDatabasePath(),
		Threshold:          dedupe.DefaultDetectThreshold,
		AutoMergeThreshold: dedupe.DefaultAutoMergeThreshold,
		MaxResults:         dedupe.DefaultMaxResults,
		LogLevel:           "warn",
		Batch: BatchConfig{
			Size:   dedupe.DefaultBatchSize,
			Pacing: dedupe.DefaultBatchPacing,
		},
	}
}

// DefaultDatabasePath is ~/.contacttidy/contacts.db, or contacts.db in the
// working directory when the home directory is unknown.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "contacts.db"
	}
	return filepath.Join(home, ".contacttidy", "contacts.db")
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// Path is a YAML config file. Empty skips it; a missing explicit file is
	// an error.
	Path string
	// EnvFile is a dotenv file. Empty means ".env", which may be absent.
	EnvFile string
}

// Load builds a validated Config from defaults, the YAML file, the dotenv
// file and the environment.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(opts.Path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: reading %s failed: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s failed: %w", path, err)
		}
	}

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return cfg, err
	}
	cfg.dotenv = dotenv

	if err := applyEnv(&cfg, cfg.lookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = defaultEnvFile
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("config: reading env file %s failed: %w", path, err)
	}
	return values, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if value, ok := lookup(EnvDatabase); ok && strings.TrimSpace(value) != "" {
		cfg.Database = strings.TrimSpace(value)
	}
	if err := parseEnvInt(lookup, EnvThreshold, &cfg.Threshold); err != nil {
		return err
	}
	if err := parseEnvInt(lookup, EnvAutoMergeThreshold, &cfg.AutoMergeThreshold); err != nil {
		return err
	}
	if err := parseEnvInt(lookup, EnvMaxResults, &cfg.MaxResults); err != nil {
		return err
	}
	if err := parseEnvInt(lookup, EnvBatchSize, &cfg.Batch.Size); err != nil {
		return err
	}
	if value, ok := lookup(EnvBatchPacing); ok && strings.TrimSpace(value) != "" {
		pacing, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", EnvBatchPacing, err)
		}
		cfg.Batch.Pacing = pacing
	}
	if value, ok := lookup(EnvCriteria); ok && strings.TrimSpace(value) != "" {
		cfg.Criteria = splitList(value)
	}
	if value, ok := lookup(EnvReportTo); ok && strings.TrimSpace(value) != "" {
		cfg.ReportTo = splitList(value)
	}
	if value, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		cfg.LogLevel = strings.TrimSpace(value)
	}
	return nil
}

func parseEnvInt(lookup func(string) (string, bool), key string, dest *int) error {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("config: invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks every setting and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		errs = append(errs, fmt.Errorf("threshold must be between 0 and 100 (got %d)", c.Threshold))
	}
	if c.AutoMergeThreshold < 0 || c.AutoMergeThreshold > 100 {
		errs = append(errs, fmt.Errorf("auto_merge_threshold must be between 0 and 100 (got %d)", c.AutoMergeThreshold))
	}
	if c.MaxResults <= 0 || c.MaxResults > maxMaxResults {
		errs = append(errs, fmt.Errorf("max_results must be between 1 and %d (got %d)", maxMaxResults, c.MaxResults))
	}
	if c.Batch.Size <= 0 || c.Batch.Size > maxBatchSize {
		errs = append(errs, fmt.Errorf("batch.size must be between 1 and %d (got %d)", maxBatchSize, c.Batch.Size))
	}
	if c.Batch.Pacing < 0 {
		errs = append(errs, fmt.Errorf("batch.pacing cannot be negative (got %v)", c.Batch.Pacing))
	}
	if _, err := c.Kinds(); err != nil {
		errs = append(errs, err)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Getenv returns the process environment value of key, falling back to the
// dotenv file read by Load.
func (c Config) Getenv(key string) string {
	value, _ := c.lookupEnv(key)
	return value
}

func (c Config) lookupEnv(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok {
		return value, true
	}
	value, ok := c.dotenv[key]
	return value, ok
}

// Kinds parses Criteria.
func (c Config) Kinds() ([]dedupe.MatchKind, error) {
	return dedupe.ParseKinds(c.Criteria...)
}

// BatchOptions converts the batch settings. A zero pacing disables pacing.
func (c Config) BatchOptions() dedupe.BatchOptions {
	opts := dedupe.BatchOptions{Size: c.Batch.Size, Pacing: c.Batch.Pacing}
	if opts.Pacing == 0 {
		opts.Pacing = -1
	}
	return opts
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
