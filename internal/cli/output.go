// Package cli provides output formatting for the efsearch command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/greenbase/efsearch/internal/search"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteResults writes search results to w in the given format.
func WriteResults(w io.Writer, resp *search.Response, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintf(w, "\nFound %d results\n\n", len(resp.Results))
	for i, res := range resp.Results {
		fmt.Fprintf(w, "%2d. [score %.4f] ef_id=%d\n", i+1, res.SimilarityScore, res.EFID)
		if res.Gas != "" {
			fmt.Fprintf(w, "    Gas: %s\n", res.Gas)
		}
		if res.IPCCCategory2006 != "" {
			fmt.Fprintf(w, "    Category: %s\n", res.IPCCCategory2006)
		}
		if res.Description != "" {
			fmt.Fprintf(w, "    %s\n", Truncate(res.Description, 160))
		}
		if res.Value != "" {
			fmt.Fprintf(w, "    Value: %s %s\n", res.Value, res.Unit)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteStatus writes the service status to w in the given format.
func WriteStatus(w io.Writer, st search.Status, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	fmt.Fprintf(w, "state:           %s\n", st.State)
	fmt.Fprintf(w, "record_count:    %d\n", st.RecordCount)
	fmt.Fprintf(w, "dimension:       %d\n", st.Dimension)
	fmt.Fprintf(w, "invalid_records: %d\n", st.InvalidRecords)
	return nil
}

// Truncate truncates s to maxLen and appends "..." if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
