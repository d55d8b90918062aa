package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sink kinds accepted in pipeline.sinks.
const (
	SinkJSON        = "json"
	SinkSpreadsheet = "spreadsheet"
	SinkParquet     = "parquet"
)

type Config struct {
	Satcatflow SatcatflowConfig `yaml:"satcatflow"`
	SpaceTrack SpaceTrackConfig `yaml:"spacetrack"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Output     OutputConfig     `yaml:"output"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type SatcatflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SpaceTrackConfig describes the remote catalog service. Identity and
// Password are normally supplied through SPACETRACK_IDENTITY and
// SPACETRACK_PASSWORD rather than the file.
type SpaceTrackConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Identity          string        `yaml:"identity"`
	Password          string        `yaml:"password"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// PipelineConfig is the core configuration injected into the pipeline.
type PipelineConfig struct {
	MaxRecords         int           `yaml:"max_records"`
	RateLimitBatchSize int           `yaml:"rate_limit_batch_size"`
	RateLimitPause     time.Duration `yaml:"rate_limit_pause"`
	Sinks              []string      `yaml:"sinks"`
	Seed               int64         `yaml:"seed"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	JSONFile    string `yaml:"json_file"`
	XLSXFile    string `yaml:"xlsx_file"`
	XLSXSheet   string `yaml:"xlsx_sheet"`
	ParquetFile string `yaml:"parquet_file"`
	// ParquetCompression is one of snappy, gzip or none.
	ParquetCompression string `yaml:"parquet_compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch     CloudWatchConfig `yaml:"cloudwatch"`
	PushgatewayURL string           `yaml:"pushgateway_url"`
	Job            string           `yaml:"job"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// Default returns the configuration used for keys missing from the file.
// The rate limit defaults keep a run under 20 requests/minute and 200/hour.
func Default() Config {
	return Config{
		Satcatflow: SatcatflowConfig{Name: "satcatflow", Version: "dev"},
		SpaceTrack: SpaceTrackConfig{
			BaseURL:           "https://www.space-track.org",
			Timeout:           90 * time.Second,
			RequestsPerMinute: 20,
		},
		Pipeline: PipelineConfig{
			MaxRecords:         3000,
			RateLimitBatchSize: 18,
			RateLimitPause:     60 * time.Second,
			Sinks:              []string{SinkJSON},
		},
		Output: OutputConfig{
			Dir:                ".",
			JSONFile:           "starlink-track.json",
			XLSXFile:           "starlink-track.xlsx",
			XLSXSheet:          "Satellites",
			ParquetFile:        "starlink-track.parquet",
			ParquetCompression: "snappy",
		},
		Metrics: MetricsConfig{Job: "satcatflow"},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// LoadConfig reads the YAML file at path over Default and applies
// environment overrides for secrets.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes raw YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv("SPACETRACK_IDENTITY"); v != "" {
		config.SpaceTrack.Identity = strings.TrimSpace(v)
	}
	if v := os.Getenv("SPACETRACK_PASSWORD"); v != "" {
		config.SpaceTrack.Password = v
	}
	if v := os.Getenv("SPACETRACK_BASE_URL"); v != "" {
		config.SpaceTrack.BaseURL = strings.TrimSpace(v)
	}

	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	for i, s := range config.Pipeline.Sinks {
		config.Pipeline.Sinks[i] = strings.ToLower(strings.TrimSpace(s))
	}
}

// HasSink reports whether kind is among the configured sinks.
func (c *Config) HasSink(kind string) bool {
	for _, s := range c.Pipeline.Sinks {
		if s == kind {
			return true
		}
	}
	return false
}

// Validate re-checks the configuration after command line overrides.
func (c *Config) Validate() error {
	if err := validateConfig(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Satcatflow.Name == "" {
		return fmt.Errorf("satcatflow.name is required")
	}

	if cfg.SpaceTrack.BaseURL == "" {
		return fmt.Errorf("spacetrack.base_url is required")
	}
	if u, err := url.Parse(cfg.SpaceTrack.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("spacetrack.base_url '%s' is not an absolute url", cfg.SpaceTrack.BaseURL)
	}
	if cfg.SpaceTrack.Identity == "" || cfg.SpaceTrack.Password == "" {
		return fmt.Errorf("spacetrack identity and password are required (set SPACETRACK_IDENTITY and SPACETRACK_PASSWORD)")
	}
	if cfg.SpaceTrack.RequestsPerMinute < 0 {
		return fmt.Errorf("spacetrack.requests_per_minute must not be negative")
	}

	if cfg.Pipeline.MaxRecords < 0 {
		return fmt.Errorf("pipeline.max_records must not be negative")
	}
	if cfg.Pipeline.RateLimitBatchSize <= 0 {
		return fmt.Errorf("pipeline.rate_limit_batch_size must be greater than 0")
	}
	if cfg.Pipeline.RateLimitPause < 0 {
		return fmt.Errorf("pipeline.rate_limit_pause must not be negative")
	}
	if len(cfg.Pipeline.Sinks) == 0 {
		return fmt.Errorf("pipeline.sinks must name at least one sink")
	}
	seen := map[string]bool{}
	for _, s := range cfg.Pipeline.Sinks {
		switch s {
		case SinkJSON, SinkSpreadsheet, SinkParquet:
		default:
			return fmt.Errorf("pipeline.sinks: unknown sink '%s'", s)
		}
		if seen[s] {
			return fmt.Errorf("pipeline.sinks: duplicate sink '%s'", s)
		}
		seen[s] = true
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
