// Package config provides YAML/env configuration for imgshard, loaded with viper.
package config

// Convert defaults.
const (
	DefaultChunkSize      = 49152
	DefaultThreadCount    = 8
	DefaultImageExtension = "webp"
	DefaultFormat         = "arrow"
	DefaultCompression    = "none"
	DefaultOnReadError    = "fail"
	DefaultMaxSampleSize  = ""
	DefaultDatasetName    = "imagefolder"
	DefaultSeed           = 0
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 1.0
	DefaultMetricsAddr  = ""
)
