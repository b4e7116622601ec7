package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/imgshard/pkg/pipeline"
)

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

// renderSummary prints the end-of-run table: one row per converted split.
func renderSummary(w io.Writer, summary *pipeline.Summary) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Split", "Samples", "Rows", "Skipped", "Shards", "Labels", "Size", "Duration"})

	var (
		rows, shards, skipped int
		size                  int64
	)

	for _, split := range summary.Splits {
		splitSkipped := len(split.Skipped) + split.ScanSkipped

		tbl.AppendRow(table.Row{
			split.Name,
			humanize.Comma(int64(split.Samples)),
			humanize.Comma(int64(split.Rows)),
			splitSkipped,
			len(split.Files),
			len(split.Labels),
			humanize.Bytes(uint64(max(split.Bytes, 0))),
			split.Duration.Round(time.Millisecond),
		})

		rows += split.Rows
		shards += len(split.Files)
		skipped += splitSkipped
		size += split.Bytes
	}

	tbl.AppendFooter(table.Row{
		"Total", "", humanize.Comma(int64(rows)), skipped, shards, "",
		humanize.Bytes(uint64(max(size, 0))), summary.Duration.Round(time.Millisecond),
	})
	tbl.Render()

	color.New(color.FgGreen).Fprintf(w, "Wrote %s rows in %d %s shards to %s\n",
		humanize.Comma(int64(rows)), shards, summary.Format, summary.OutputDir)
	fmt.Fprintf(w, "Fingerprint: %s\n", summary.Fingerprint)

	if skipped > 0 {
		color.New(color.FgYellow).Fprintf(w, "%d samples were skipped; see the log for paths\n", skipped)
	}
}
