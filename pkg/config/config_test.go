package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/imgshard/pkg/config"
)

func validConvert() config.ConvertConfig {
	return config.ConvertConfig{
		TrainPath:      "/data/train",
		OutputPath:     "/data/out",
		ChunkSize:      4,
		ThreadCount:    2,
		ImageExtension: "webp",
		Format:         "arrow",
		Compression:    "none",
		OnReadError:    "fail",
	}
}

func TestConvertConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.ConvertConfig)
		want   error
	}{
		{"valid", func(*config.ConvertConfig) {}, nil},
		{"missing train", func(c *config.ConvertConfig) { c.TrainPath = "" }, config.ErrMissingTrainPath},
		{"missing output", func(c *config.ConvertConfig) { c.OutputPath = "" }, config.ErrMissingOutputPath},
		{"zero chunk", func(c *config.ConvertConfig) { c.ChunkSize = 0 }, config.ErrInvalidChunkSize},
		{"negative threads", func(c *config.ConvertConfig) { c.ThreadCount = -1 }, config.ErrInvalidThreadCount},
		{"empty extension", func(c *config.ConvertConfig) { c.ImageExtension = "." }, config.ErrInvalidExtension},
		{"path extension", func(c *config.ConvertConfig) { c.ImageExtension = "a/b" }, config.ErrInvalidExtension},
		{"unknown format", func(c *config.ConvertConfig) { c.Format = "csv" }, config.ErrInvalidFormat},
		{"snappy on arrow", func(c *config.ConvertConfig) { c.Compression = "snappy" }, config.ErrInvalidCompression},
		{"bad policy", func(c *config.ConvertConfig) { c.OnReadError = "retry" }, config.ErrInvalidReadPolicy},
		{"bad size", func(c *config.ConvertConfig) { c.MaxSampleSize = "lots" }, config.ErrInvalidMaxSampleSize},
		{"parquet snappy", func(c *config.ConvertConfig) {
			c.Format = "parquet"
			c.Compression = "snappy"
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConvert()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConvertConfig_MaxSampleBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  int64
	}{
		{"", 0},
		{"0", 0},
		{"1024", 1024},
		{"64MB", 64_000_000},
		{"1MiB", 1 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			cfg := config.ConvertConfig{MaxSampleSize: tt.input}

			got, err := cfg.MaxSampleBytes()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_ValidateDelegatesToConvert(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Convert: validConvert()}
	require.NoError(t, cfg.Validate())

	cfg.Convert.ChunkSize = 0
	assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidChunkSize)
}
