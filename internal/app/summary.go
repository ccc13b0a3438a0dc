package app

import (
	"fmt"
	"io"

	"helptree/internal/extract"
	"helptree/internal/report"
	"helptree/internal/tree"
)

func printProgress(w io.Writer, i, total int, leaf tree.Leaf) {
	fmt.Fprintf(w, "(%d/%d) Processing: %s\n", i, total, displayLabel(leaf))
}

func printOutcome(w io.Writer, out extract.Outcome) {
	switch out.Status {
	case extract.Skipped:
		fmt.Fprintf(w, "  skipped %q (not a clickable link)\n", displayLabel(out.Leaf))
	case extract.Failed:
		fmt.Fprintf(w, "  ERROR: could not process %s: %v\n", out.Leaf.ID, out.Err)
	}
}

// PrintLeaves writes the enumerated leaves, one per line.
func PrintLeaves(w io.Writer, leaves []tree.Leaf) {
	if len(leaves) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, l := range leaves {
		fmt.Fprintf(w, "%4d  %-24s %s\n", i+1, l.ID, l.Label)
	}
}

func printSummary(w io.Writer, run *report.Run, outputPath string) {
	fmt.Fprintln(w, run.Summary())
	for _, f := range run.Failures() {
		fmt.Fprintf(w, "  - %s: %s\n", f.ID, f.Error)
	}
	if outputPath != "" {
		fmt.Fprintf(w, "Wrote archive: %s\n", outputPath)
	}
}

func displayLabel(l tree.Leaf) string {
	if l.Label != "" {
		return l.Label
	}
	return string(l.ID)
}
