package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".imgshard"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for imgshard settings.
const envPrefix = "IMGSHARD"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Standard OpenTelemetry exporter variables honored as fallbacks.
const (
	envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPHeaders  = "OTEL_EXPORTER_OTLP_HEADERS"
	envOTLPInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
)

// FlagBindings maps command-line flag names to config keys. A flag overrides
// the file and environment only when it was set explicitly.
type FlagBindings map[string]string

// LoadConfig loads configuration from defaults, file, env vars and flags, in
// increasing precedence. If configPath is non-empty it is used as the explicit
// config file path; otherwise .imgshard.yaml is searched in CWD and $HOME.
// A missing config file is not an error. The result is not validated: callers
// decide which sections they need via Validate.
func LoadConfig(configPath string, flags *pflag.FlagSet, bindings FlagBindings) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	err := bindTelemetryEnv(viperCfg)
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, homeErr := os.UserHomeDir()
		if homeErr == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	for name, key := range bindings {
		if flags == nil {
			break
		}

		flag := flags.Lookup(name)
		if flag == nil {
			return nil, fmt.Errorf("bind flag %q: no such flag", name)
		}

		bindErr := viperCfg.BindPFlag(key, flag)
		if bindErr != nil {
			return nil, fmt.Errorf("bind flag %q: %w", name, bindErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	return &cfg, nil
}

func bindTelemetryEnv(viperCfg *viper.Viper) error {
	envs := map[string]string{
		"telemetry.otlp_endpoint": envOTLPEndpoint,
		"telemetry.otlp_headers":  envOTLPHeaders,
		"telemetry.otlp_insecure": envOTLPInsecure,
	}

	for key, fallback := range envs {
		own := envPrefix + envKeySeparator + strings.ToUpper(strings.ReplaceAll(key, ".", envKeySeparator))

		err := viperCfg.BindEnv(key, own, fallback)
		if err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	return nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("convert.train_path", "")
	viperCfg.SetDefault("convert.validation_path", "")
	viperCfg.SetDefault("convert.output_path", "")
	viperCfg.SetDefault("convert.chunk_size", DefaultChunkSize)
	viperCfg.SetDefault("convert.thread_count", DefaultThreadCount)
	viperCfg.SetDefault("convert.image_extension", DefaultImageExtension)
	viperCfg.SetDefault("convert.format", DefaultFormat)
	viperCfg.SetDefault("convert.compression", DefaultCompression)
	viperCfg.SetDefault("convert.on_read_error", DefaultOnReadError)
	viperCfg.SetDefault("convert.max_sample_size", DefaultMaxSampleSize)
	viperCfg.SetDefault("convert.dataset_name", DefaultDatasetName)
	viperCfg.SetDefault("convert.seed", DefaultSeed)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.debug_trace", false)
	viperCfg.SetDefault("telemetry.metrics_addr", DefaultMetricsAddr)
}
