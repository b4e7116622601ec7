package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/imgshard/pkg/config"
	"github.com/Sumatoshi-tech/imgshard/pkg/observability"
	"github.com/Sumatoshi-tech/imgshard/pkg/pipeline"
	"github.com/Sumatoshi-tech/imgshard/pkg/shard"
	"github.com/Sumatoshi-tech/imgshard/pkg/version"
)

// convertFlagBindings maps convert flags to config keys.
var convertFlagBindings = config.FlagBindings{
	"train":           "convert.train_path",
	"validation":      "convert.validation_path",
	"output":          "convert.output_path",
	"chunk-size":      "convert.chunk_size",
	"threads":         "convert.thread_count",
	"ext":             "convert.image_extension",
	"format":          "convert.format",
	"compression":     "convert.compression",
	"seed":            "convert.seed",
	"on-read-error":   "convert.on_read_error",
	"max-sample-size": "convert.max_sample_size",
	"dataset-name":    "convert.dataset_name",
	"metrics-addr":    "telemetry.metrics_addr",
	"log-json":        "logging.json",
}

// ConvertCommand holds dependencies for the convert command.
type ConvertCommand struct {
	root *RootOptions
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(root *RootOptions) *cobra.Command {
	cc := &ConvertCommand{root: root}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert image folders into shards",
		Long: `Convert scans the train folder (and the optional validation folder)
for images, shuffles them, and writes fixed-size shards named
data-<i>-of-<total>.<ext> under <output>/<split>/. Labels are the names of the
images' parent directories. dataset_info.json and state.json are written once
every split has converted.`,
		Args: cobra.NoArgs,
		RunE: cc.run,
	}

	flags := cmd.Flags()
	flags.String("train", "", "Train split root folder (required)")
	flags.String("validation", "", "Validation split root folder (optional)")
	flags.StringP("output", "o", "", "Output directory (required)")
	flags.Int("chunk-size", config.DefaultChunkSize, "Samples per shard")
	flags.Int("threads", config.DefaultThreadCount, "Shards converted concurrently")
	flags.String("ext", config.DefaultImageExtension, "Image file extension to collect (case-sensitive)")
	flags.String("format", config.DefaultFormat, "Shard format: arrow, parquet")
	flags.String("compression", config.DefaultCompression, "Compression: none, lz4, zstd (arrow); none, snappy, lz4, zstd (parquet)")
	flags.Uint64("seed", config.DefaultSeed, "Shuffle seed (0 = random)")
	flags.String("on-read-error", config.DefaultOnReadError, "Unreadable sample policy: fail, skip")
	flags.String("max-sample-size", config.DefaultMaxSampleSize, "Largest accepted image (e.g. '64MB'; empty = unlimited)")
	flags.String("dataset-name", config.DefaultDatasetName, "Dataset name recorded in dataset_info.json")
	flags.String("metrics-addr", config.DefaultMetricsAddr, "Serve Prometheus /metrics on this address during the run")
	flags.Bool("log-json", config.DefaultLogJSON, "Emit JSON logs")

	return cmd
}

func (cc *ConvertCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(cc.root.ConfigPath, cmd.Flags(), convertFlagBindings)
	if err != nil {
		return err
	}

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	obsCfg := cc.observabilityConfig(cfg, cmd)

	var prom *observability.PrometheusReader

	if cfg.Telemetry.MetricsAddr != "" {
		prom, err = observability.NewPrometheusReader()
		if err != nil {
			return err
		}

		obsCfg.MetricReaders = []sdkmetric.Reader{prom.Reader}
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer closeLogged(providers.Logger, "telemetry", providers.Shutdown)

	if prom != nil {
		srv, srvErr := observability.NewDiagnosticsServer(cfg.Telemetry.MetricsAddr, prom.Handler, providers.Logger)
		if srvErr != nil {
			return srvErr
		}

		defer closeLogged(providers.Logger, "diagnostics server", srv.Close)

		providers.Logger.Info("serving metrics", "addr", srv.Addr())
	}

	metrics, err := observability.NewConversionMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	opts, err := pipelineOptions(&cfg.Convert)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(opts,
		pipeline.WithLogger(providers.Logger),
		pipeline.WithTracer(providers.Tracer),
		pipeline.WithMetrics(metrics),
	)

	summary, err := runner.Run(ctx, []pipeline.Split{
		{Name: pipeline.SplitTrain, Root: cfg.Convert.TrainPath, Required: true},
		{Name: pipeline.SplitValidation, Root: cfg.Convert.ValidationPath},
	})
	if err != nil {
		return err
	}

	if !cc.root.Quiet {
		if cc.root.NoColor {
			color.NoColor = true //nolint:reassign // --no-color overrides terminal detection
		}

		renderSummary(cmd.OutOrStdout(), summary)
	}

	return nil
}

func (cc *ConvertCommand) observabilityConfig(cfg *config.Config, cmd *cobra.Command) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.LogLevel = cc.root.logLevel(observability.ParseLogLevel(cfg.Logging.Level))
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogWriter = cmd.ErrOrStderr()
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.DebugTrace = cfg.Telemetry.DebugTrace

	return obsCfg
}

func pipelineOptions(cfg *config.ConvertConfig) (pipeline.Options, error) {
	encoder, err := shard.NewEncoder(cfg.Format, cfg.Compression, nil)
	if err != nil {
		return pipeline.Options{}, err
	}

	policy, err := shard.ParseReadPolicy(cfg.OnReadError)
	if err != nil {
		return pipeline.Options{}, err
	}

	maxBytes, err := cfg.MaxSampleBytes()
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		OutputDir:      cfg.OutputPath,
		ChunkSize:      cfg.ChunkSize,
		Workers:        cfg.ThreadCount,
		Extension:      cfg.ImageExtension,
		Encoder:        encoder,
		Policy:         policy,
		MaxSampleBytes: maxBytes,
		Seed:           cfg.Seed,
		DatasetName:    cfg.DatasetName,
	}, nil
}

// closeLogged runs shutdown and logs a failure at WARN.
func closeLogged(logger *slog.Logger, what string, shutdown func(context.Context) error) {
	err := shutdown(context.Background())
	if err != nil {
		logger.Warn(what+" shutdown failed", "error", err)
	}
}
