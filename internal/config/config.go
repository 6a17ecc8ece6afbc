// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by FromEnv.
const (
	EnvBaseURL           = "RAGCON_BASE_URL"
	EnvTimeout           = "RAGCON_TIMEOUT"
	EnvDatasetPath       = "RAGCON_DATASET_PATH"
	EnvDatasetS3Bucket   = "RAGCON_DATASET_S3_BUCKET"
	EnvDatasetS3Key      = "RAGCON_DATASET_S3_KEY"
	EnvDatasetS3Region   = "RAGCON_DATASET_S3_REGION"
	EnvDatasetS3Endpoint = "RAGCON_DATASET_S3_ENDPOINT"
	EnvLogLevel          = "RAGCON_LOG_LEVEL"
	EnvLogFormat         = "RAGCON_LOG_FORMAT"
)

// Defaults used when neither the config file, the environment nor a flag
// sets a value.
const (
	DefaultBaseURL     = "http://localhost:8080"
	DefaultTimeout     = 90
	DefaultDatasetPath = "data/accident_cases.jsonl"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Generation service
	BaseURL string `json:"base_url,omitempty"` // Base URL of the generation service
	Timeout int    `json:"timeout,omitempty"`  // Request timeout in seconds

	// Accident-case dataset; a local file or one S3 object, not both
	DatasetPath       string `json:"dataset_path,omitempty"`
	DatasetS3Bucket   string `json:"dataset_s3_bucket,omitempty"`
	DatasetS3Key      string `json:"dataset_s3_key,omitempty"`
	DatasetS3Region   string `json:"dataset_s3_region,omitempty"`
	DatasetS3Endpoint string `json:"dataset_s3_endpoint,omitempty"` // S3-compatible endpoint, e.g. MinIO

	// Initial selection
	Process   string `json:"process,omitempty"`
	Equipment string `json:"equipment,omitempty"`

	// Logging
	LogLevel  string `json:"log_level,omitempty"`  // debug, info, warn, error
	LogFormat string `json:"log_format,omitempty"` // console or json
	Verbose   bool   `json:"verbose,omitempty"`    // Print every item instead of the first few
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     DefaultTimeout,
		DatasetPath: DefaultDatasetPath,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a configuration from RAGCON_* environment variables.
// Unset variables leave fields empty.
func FromEnv() (Config, error) {
	cfg := Config{
		BaseURL:           os.Getenv(EnvBaseURL),
		DatasetPath:       os.Getenv(EnvDatasetPath),
		DatasetS3Bucket:   os.Getenv(EnvDatasetS3Bucket),
		DatasetS3Key:      os.Getenv(EnvDatasetS3Key),
		DatasetS3Region:   os.Getenv(EnvDatasetS3Region),
		DatasetS3Endpoint: os.Getenv(EnvDatasetS3Endpoint),
		LogLevel:          os.Getenv(EnvLogLevel),
		LogFormat:         os.Getenv(EnvLogFormat),
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config error: %s must be a number of seconds: %w", EnvTimeout, err)
		}
		cfg.Timeout = n
	}
	return cfg, nil
}

// UsesS3 reports whether the dataset is read from S3.
func (c *Config) UsesS3() bool {
	return c.DatasetS3Bucket != ""
}

// TimeoutDuration returns the request timeout.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config error: 'base_url' must be an http(s) URL: %q", c.BaseURL)
		}
	}

	// Validate mutually exclusive fields
	if c.DatasetPath != "" && c.DatasetS3Bucket != "" {
		return fmt.Errorf("config error: 'dataset_path' and 'dataset_s3_bucket' are mutually exclusive")
	}
	if c.DatasetS3Bucket != "" && c.DatasetS3Key == "" {
		return fmt.Errorf("config error: 'dataset_s3_key' is required with 'dataset_s3_bucket'")
	}

	// Validate numeric ranges
	if c.Timeout < 0 {
		return fmt.Errorf("config error: 'timeout' must be non-negative")
	}

	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("config error: 'log_format' must be console or json, got %q", c.LogFormat)
	}

	// Validate file paths exist (if specified)
	if c.DatasetPath != "" {
		if _, err := os.Stat(c.DatasetPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: dataset file not found: %s", c.DatasetPath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to layer the config file, the environment and the built-in
// defaults beneath CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	// The dataset location is merged as a unit so a file default never
	// collides with a configured bucket.
	if result.DatasetPath == "" && result.DatasetS3Bucket == "" {
		result.DatasetPath = defaults.DatasetPath
		result.DatasetS3Bucket = defaults.DatasetS3Bucket
		result.DatasetS3Key = defaults.DatasetS3Key
	}
	if result.DatasetS3Region == "" {
		result.DatasetS3Region = defaults.DatasetS3Region
	}
	if result.DatasetS3Endpoint == "" {
		result.DatasetS3Endpoint = defaults.DatasetS3Endpoint
	}
	if result.Process == "" {
		result.Process = defaults.Process
	}
	if result.Equipment == "" {
		result.Equipment = defaults.Equipment
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}

	// Int fields: use default if zero
	if result.Timeout == 0 {
		result.Timeout = defaults.Timeout
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
