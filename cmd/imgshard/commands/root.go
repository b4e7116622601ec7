// Package commands implements CLI command handlers for imgshard.
package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/imgshard/pkg/dataset"
	"github.com/Sumatoshi-tech/imgshard/pkg/metadata"
	"github.com/Sumatoshi-tech/imgshard/pkg/pipeline"
	"github.com/Sumatoshi-tech/imgshard/pkg/version"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitFailure = 2
)

// RootOptions holds the persistent flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	NoColor    bool
}

// logLevel resolves the effective level: --verbose wins, then --quiet, then configured.
func (o *RootOptions) logLevel(configured slog.Level) slog.Level {
	switch {
	case o.Verbose:
		return slog.LevelDebug
	case o.Quiet:
		return slog.LevelWarn
	default:
		return configured
	}
}

// NewRootCommand builds the imgshard command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	rootCmd := &cobra.Command{
		Use:   "imgshard",
		Short: "Convert image folders into sharded columnar datasets",
		Long: `imgshard packs a folder-per-label image dataset into fixed-size
Arrow or Parquet shards with dataset_info.json and state.json metadata.

Commands:
  convert   Convert train (and optional validation) folders into shards
  inspect   Verify an output directory against its metadata`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: .imgshard.yaml in CWD or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress output")
	rootCmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewConvertCommand(opts))
	rootCmd.AddCommand(NewInspectCommand(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "imgshard %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}

// ExitCode maps a command error to the process exit code. Run failures,
// empty datasets and datasets that fail inspection exit with ExitFailure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, pipeline.ErrRunFailed),
		errors.Is(err, dataset.ErrEmptyDataset),
		errors.Is(err, metadata.ErrInvalidMetadata),
		errors.Is(err, ErrInspectFailed):
		return ExitFailure
	default:
		return ExitError
	}
}
