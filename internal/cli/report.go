package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/skyload/skyload/internal/schema"
	"github.com/skyload/skyload/pkg/skyload"
)

// printLoadReport writes the run summary to w. Tables that were never
// reached are omitted, as is the fingerprint of a dataset that was not
// read to completion.
func printLoadReport(w io.Writer, report *skyload.LoadReport, sourcePath, sourceSum string) {
	if report == nil {
		return
	}

	fmt.Fprintf(w, "Run:      %s\n", report.RunID)
	if sourceSum != "" {
		fmt.Fprintf(w, "Source:   %s (sha256:%s)\n", sourcePath, sourceSum)
	} else {
		fmt.Fprintf(w, "Source:   %s\n", sourcePath)
	}
	fmt.Fprintf(w, "Status:   %s\n", report.Status)
	fmt.Fprintf(w, "Duration: %s\n", report.Duration.Round(time.Millisecond))
	if len(report.Tables) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TABLE\tROWS\tBATCHES\t")
	for _, t := range report.Tables {
		fmt.Fprintf(tw, "%s\t%d\t%d\t\n", t.Table, t.Rows, t.Batches)
	}
	_ = tw.Flush()
}

// printIntegrityReport writes row counts and orphan checks to w.
func printIntegrityReport(w io.Writer, report *schema.IntegrityReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, t := range schema.Tables {
		fmt.Fprintf(tw, "%s\t%d\n", t.Name, report.Rows[t.Name])
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "REFERENCE\tORPHANS")
	for _, c := range report.Checks {
		fmt.Fprintf(tw, "%s.%s -> %s.%s\t%d\n", c.Table, c.Column, c.ParentTable, c.ParentColumn, c.Orphans)
	}
	_ = tw.Flush()

	if report.OK() {
		fmt.Fprintln(w, "✓ No orphaned rows")
	}
}
