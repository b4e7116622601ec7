package commands

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/imgshard/pkg/metadata"
	"github.com/Sumatoshi-tech/imgshard/pkg/persist"
	"github.com/Sumatoshi-tech/imgshard/pkg/shard"
)

// Inspect output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var (
	// ErrInspectFailed reports an output directory whose shards disagree with its metadata.
	ErrInspectFailed = errors.New("dataset failed inspection")
	// ErrUnknownOutputFormat indicates an unsupported --format value.
	ErrUnknownOutputFormat = errors.New("unknown output format")
)

// ShardReport is the inspection result for one shard file.
type ShardReport struct {
	File     string `json:"file"             yaml:"file"`
	Split    string `json:"split"            yaml:"split"`
	Rows     int    `json:"rows"             yaml:"rows"`
	Expected int    `json:"expected"         yaml:"expected"`
	Bytes    int64  `json:"bytes"            yaml:"bytes"`
	Problem  string `json:"problem,omitempty" yaml:"problem,omitempty"`
}

// InspectReport is the full inspection result.
type InspectReport struct {
	Dir         string               `json:"dir"          yaml:"dir"`
	Valid       bool                 `json:"valid"        yaml:"valid"`
	DatasetName string               `json:"dataset_name" yaml:"dataset_name"`
	Format      string               `json:"format"       yaml:"format"`
	Fingerprint string               `json:"fingerprint"  yaml:"fingerprint"`
	NumSamples  int                  `json:"num_samples"  yaml:"num_samples"`
	Labels      []string             `json:"labels"       yaml:"labels"`
	Splits      []metadata.SplitInfo `json:"splits"       yaml:"splits"`
	Shards      []ShardReport        `json:"shards"       yaml:"shards"`
	Problems    []string             `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// InspectCommand holds configuration for the inspect command.
type InspectCommand struct {
	root   *RootOptions
	format string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(root *RootOptions) *cobra.Command {
	ic := &InspectCommand{root: root}

	cmd := &cobra.Command{
		Use:   "inspect [output]",
		Short: "Verify a converted dataset",
		Long: `Inspect validates dataset_info.json and state.json against their
schemas, opens every shard listed in state.json and checks its row count, column
alignment and labels against the metadata.`,
		Args: cobra.MaximumNArgs(1),
		RunE: ic.run,
	}

	cmd.Flags().StringVar(&ic.format, "format", FormatTable, "Output format: table, json, yaml")

	return cmd
}

func (ic *InspectCommand) run(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	var codec persist.Codec

	switch ic.format {
	case FormatTable:
	case FormatJSON:
		codec = persist.NewJSONCodec()
	case FormatYAML:
		codec = persist.NewYAMLCodec()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutputFormat, ic.format)
	}

	report, err := inspectDir(cmd, dir)
	if err != nil {
		return err
	}

	if codec != nil {
		err = codec.Encode(cmd.OutOrStdout(), report)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	} else if !ic.root.Quiet {
		if ic.root.NoColor {
			color.NoColor = true //nolint:reassign // --no-color overrides terminal detection
		}

		renderInspect(cmd.OutOrStdout(), report)
	}

	if !report.Valid {
		return fmt.Errorf("%w: %s", ErrInspectFailed, strings.Join(report.Problems, "; "))
	}

	return nil
}

func inspectDir(cmd *cobra.Command, dir string) (*InspectReport, error) {
	info, state, err := metadata.Verify(dir)
	if info == nil || state == nil {
		return nil, err
	}

	report := &InspectReport{
		Dir:         dir,
		DatasetName: info.DatasetName,
		Format:      info.Format,
		Fingerprint: state.Fingerprint,
		NumSamples:  info.NumSamples,
		Labels:      info.Features["label"].Names,
	}

	var vErr *metadata.ValidationError

	switch {
	case errors.As(err, &vErr):
		report.Problems = append(report.Problems, vErr.Problems...)
	case err != nil:
		report.Problems = append(report.Problems, err.Error())
	}

	splitNames := make([]string, 0, len(info.Splits))
	for name := range info.Splits {
		splitNames = append(splitNames, name)
	}

	slices.Sort(splitNames)

	for _, name := range splitNames {
		report.Splits = append(report.Splits, info.Splits[name])
	}

	for _, df := range state.DataFiles {
		shardReport := inspectShard(cmd, dir, df, report.Labels)
		if shardReport.Problem != "" {
			report.Problems = append(report.Problems, df.Filename+": "+shardReport.Problem)
		}

		report.Shards = append(report.Shards, shardReport)
	}

	report.Valid = len(report.Problems) == 0

	return report, nil
}

func inspectShard(cmd *cobra.Command, dir string, df metadata.DataFile, labels []string) ShardReport {
	result := ShardReport{File: df.Filename, Split: df.Split, Expected: df.NumRows}

	_, _, ok := shard.ParseShardName(path.Base(df.Filename))
	if !ok {
		result.Problem = "not a shard file name"

		return result
	}

	info, err := shard.Stat(cmd.Context(), filepath.Join(dir, filepath.FromSlash(df.Filename)), nil)
	if err != nil {
		result.Problem = err.Error()

		return result
	}

	result.Rows = info.Rows
	result.Bytes = info.Bytes

	var problems []string

	if info.Rows != df.NumRows {
		problems = append(problems, fmt.Sprintf("%d rows, state.json says %d", info.Rows, df.NumRows))
	}

	for label := range info.Labels {
		if !slices.Contains(labels, label) {
			problems = append(problems, fmt.Sprintf("label %q missing from dataset_info.json", label))
		}
	}

	slices.Sort(problems)
	result.Problem = strings.Join(problems, "; ")

	return result
}

func renderInspect(w io.Writer, report *InspectReport) {
	fmt.Fprintf(w, "Dataset %s (%s), %s samples, %d labels\n",
		report.DatasetName, report.Format, humanize.Comma(int64(report.NumSamples)), len(report.Labels))

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"File", "Rows", "Expected", "Size", "Status"})

	for _, s := range report.Shards {
		status := color.GreenString("ok")
		if s.Problem != "" {
			status = color.RedString(s.Problem)
		}

		tbl.AppendRow(table.Row{s.File, s.Rows, s.Expected, humanize.Bytes(uint64(max(s.Bytes, 0))), status})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d shards", len(report.Shards))})
	tbl.Render()

	if report.Valid {
		color.New(color.FgGreen).Fprintln(w, "Dataset is consistent")

		return
	}

	color.New(color.FgRed).Fprintf(w, "Dataset has %d problems:\n", len(report.Problems))

	for _, problem := range report.Problems {
		color.New(color.FgRed).Fprintf(w, "  - %s\n", problem)
	}
}
