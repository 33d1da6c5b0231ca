// Package cli provides output formatting for the Kioku command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/kioku/internal/index"
	"github.com/hyperjump/kioku/internal/store"
	"github.com/hyperjump/kioku/pkg/utils"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const contentPreviewLen = 100

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, query string, results []index.Result, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"query": query, "results": results})
	}
	fmt.Fprintf(w, "\nSearch results for: %q\n\n", query)
	if len(results) == 0 {
		fmt.Fprintln(w, "  (no results)")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(w, "  #%d [score: %.3f]\n", r.ID, r.Score)
		fmt.Fprintf(w, "     %s\n", utils.Truncate(r.Content, contentPreviewLen))
		if len(r.Metadata) > 0 {
			meta, err := json.Marshal(r.Metadata)
			if err == nil {
				fmt.Fprintf(w, "     meta: %s\n", meta)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteStats writes store statistics to w in the given format.
func WriteStats(w io.Writer, stats *store.Stats, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprintln(w, "Index statistics:")
	fmt.Fprintf(w, "  units: %d\n", stats.Units)
	fmt.Fprintf(w, "  mode: %s\n", stats.Mode)
	if stats.Dimensions > 0 {
		fmt.Fprintf(w, "  dimensions: %d\n", stats.Dimensions)
	}
	if stats.VocabularySize > 0 {
		fmt.Fprintf(w, "  vocabulary: %d terms\n", stats.VocabularySize)
	}
	fmt.Fprintf(w, "  size: %d bytes\n", stats.SizeBytes)
	if stats.Newest != nil && stats.Oldest != nil {
		fmt.Fprintf(w, "  newest: %s\n", stats.Newest.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "  oldest: %s\n", stats.Oldest.Format("2006-01-02 15:04:05"))
	}
	return nil
}
