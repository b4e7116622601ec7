package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/imgshard/pkg/shard"
)

// Sentinel validation errors.
var (
	ErrInvalidChunkSize     = errors.New("chunk size must be positive")
	ErrInvalidThreadCount   = errors.New("thread count must be positive")
	ErrMissingTrainPath     = errors.New("train path is required")
	ErrMissingOutputPath    = errors.New("output path is required")
	ErrInvalidExtension     = errors.New("invalid image extension")
	ErrInvalidFormat        = errors.New("invalid shard format")
	ErrInvalidCompression   = errors.New("invalid compression")
	ErrInvalidReadPolicy    = errors.New("invalid read error policy")
	ErrInvalidMaxSampleSize = errors.New("invalid max sample size")
)

// Config holds all configuration for imgshard.
type Config struct {
	Convert   ConvertConfig   `mapstructure:"convert"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ConvertConfig holds the conversion settings.
type ConvertConfig struct {
	TrainPath      string `mapstructure:"train_path"`
	ValidationPath string `mapstructure:"validation_path"`
	OutputPath     string `mapstructure:"output_path"`
	ImageExtension string `mapstructure:"image_extension"`
	Format         string `mapstructure:"format"`
	Compression    string `mapstructure:"compression"`
	OnReadError    string `mapstructure:"on_read_error"`
	MaxSampleSize  string `mapstructure:"max_sample_size"`
	DatasetName    string `mapstructure:"dataset_name"`
	ChunkSize      int    `mapstructure:"chunk_size"`
	ThreadCount    int    `mapstructure:"thread_count"`
	Seed           uint64 `mapstructure:"seed"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	DebugTrace   bool    `mapstructure:"debug_trace"`
}

// MaxSampleBytes parses MaxSampleSize ("64MB", "1GiB", "1048576").
// Empty or "0" means unlimited and returns 0.
func (c *ConvertConfig) MaxSampleBytes() (int64, error) {
	if c.MaxSampleSize == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(c.MaxSampleSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidMaxSampleSize, c.MaxSampleSize, err)
	}

	if size > uint64(1<<62) {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidMaxSampleSize, c.MaxSampleSize)
	}

	return int64(size), nil
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	return c.Convert.Validate()
}

// Validate checks the conversion settings.
func (c *ConvertConfig) Validate() error {
	if c.TrainPath == "" {
		return ErrMissingTrainPath
	}

	if c.OutputPath == "" {
		return ErrMissingOutputPath
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, c.ChunkSize)
	}

	if c.ThreadCount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreadCount, c.ThreadCount)
	}

	ext := strings.TrimPrefix(c.ImageExtension, ".")
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidExtension, c.ImageExtension)
	}

	err := shard.CheckCompression(c.Format, c.Compression)
	if err != nil {
		if errors.Is(err, shard.ErrUnknownFormat) {
			return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}

		return fmt.Errorf("%w: %w", ErrInvalidCompression, err)
	}

	_, err = shard.ParseReadPolicy(c.OnReadError)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReadPolicy, err)
	}

	_, err = c.MaxSampleBytes()
	if err != nil {
		return err
	}

	return nil
}
