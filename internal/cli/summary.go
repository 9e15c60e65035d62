package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/eunmann/wordvault/pkg/counters"
	"github.com/eunmann/wordvault/pkg/dedup"
	"github.com/eunmann/wordvault/pkg/export"
	"github.com/eunmann/wordvault/pkg/humanfmt"
)

var (
	heading = color.New(color.Bold, color.FgCyan).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
)

func row(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %-28s %v\n", label, value)
}

func printRunSummary(w io.Writer, run dedup.RunResult, exp export.Result, exported bool, totals counters.Totals) {
	fmt.Fprintln(w, heading("Run "+run.ID))
	row(w, "Files ingested", humanfmt.Count(int64(run.Ingested)))
	row(w, "Files already ingested", humanfmt.Count(int64(run.Skipped)))
	if run.Failed > 0 {
		row(w, "Files failed", warn(humanfmt.Count(int64(run.Failed))))
	}
	row(w, "Words in this run", humanfmt.Count(run.Lines))
	row(w, "New words", good(humanfmt.Count(run.New)))
	row(w, "Duplicates", humanfmt.Count(run.Duplicates)+" ("+humanfmt.Ratio(run.Duplicates, run.Lines)+")")
	row(w, "Lines that were not words", humanfmt.Count(run.NonWords))
	row(w, "Input read", humanfmt.Bytes(run.Bytes))
	row(w, "Duration", humanfmt.Duration(run.FinishedAt.Sub(run.StartedAt)))

	if exported {
		printExport(w, exp)
	}

	fmt.Fprintln(w, heading("All time"))
	printTotals(w, totals)
}

func printExport(w io.Writer, exp export.Result) {
	fmt.Fprintln(w, heading("Export"))
	row(w, "Lines exported", good(humanfmt.Count(exp.Lines)))
	row(w, "Bytes written", humanfmt.Bytes(exp.Bytes))
	if exp.Recovered > 0 {
		row(w, "Files repaired", warn(humanfmt.Count(int64(exp.Recovered))))
	}
	for _, f := range exp.Files {
		row(w, "Wrote", filepath.Base(f))
	}
}

func printTotals(w io.Writer, t counters.Totals) {
	row(w, "Words", humanfmt.Count(t.Words))
	row(w, "New words", humanfmt.Count(t.NewWords))
	row(w, "Duplicates", humanfmt.Count(t.Duplicates))
	row(w, "Lines that were not words", humanfmt.Count(t.NonWords))
	row(w, "Files", humanfmt.Count(t.Files))
	row(w, "Runs", humanfmt.Count(t.Runs))
}

func printStats(w io.Writer, s storeStats) {
	fmt.Fprintln(w, heading("All time"))
	printTotals(w, s.Totals)

	fmt.Fprintln(w, heading("Store"))
	row(w, "Unique lines", humanfmt.Count(s.Lines))
	row(w, "Waiting for export", humanfmt.Count(s.Pending))
	row(w, "Files ingested", humanfmt.Count(s.Markers))
	row(w, "Database size", humanfmt.Bytes(s.DBBytes))

	if len(s.LastRuns) == 0 {
		return
	}
	fmt.Fprintln(w, heading("Recent runs"))
	for _, r := range s.LastRuns {
		fmt.Fprintf(w, "  %s  %s  files %s  new %s  dup %s  exported %s\n",
			r.FinishedAt.Local().Format("2006-01-02 15:04"),
			r.ID[:min(8, len(r.ID))],
			humanfmt.Count(r.Files), humanfmt.Count(r.New), humanfmt.Count(r.Duplicates), humanfmt.Count(r.Exported))
	}
}
