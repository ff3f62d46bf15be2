package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pfrederiksen/election-scraper/internal/election"
	"github.com/pfrederiksen/election-scraper/internal/logger"
)

// OutputFormat specifies the summary format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// RunSummary describes a finished run
type RunSummary struct {
	ScrapedAt           time.Time              `json:"scraped_at"`
	ListingURL          string                 `json:"listing_url"`
	District            string                 `json:"district"`
	Output              string                 `json:"output"`
	FilenameSubstituted bool                   `json:"filename_substituted,omitempty"`
	Towns               int                    `json:"towns"`
	Parties             []string               `json:"parties"`
	Metrics             logger.MetricsSnapshot `json:"metrics"`
}

// WriteOutput writes the summary in the specified format
func WriteOutput(w io.Writer, summary *RunSummary, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, summary)
	case FormatText:
		return writeText(w, summary, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs the summary as JSON
func writeJSON(w io.Writer, summary *RunSummary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}

// writeText outputs the summary as human-readable text
func writeText(w io.Writer, summary *RunSummary, verbose bool) error {
	fmt.Fprintf(w, "District: %s\n", summary.District)
	fmt.Fprintf(w, "Towns:    %d\n", summary.Towns)
	fmt.Fprintf(w, "Parties:  %d\n", len(summary.Parties))
	fmt.Fprintf(w, "Saved to: %s\n", summary.Output)

	if !verbose {
		return nil
	}

	fmt.Fprintf(w, "\nSource: %s\n", summary.ListingURL)
	if len(summary.Parties) > 0 {
		fmt.Fprintln(w, "\nParties:")
		for i, party := range summary.Parties {
			fmt.Fprintf(w, "  %2d. %s\n", i+1, party)
		}
	}

	if len(summary.Metrics.Counters) > 0 {
		fmt.Fprintln(w, "\nMetrics:")
		names := make([]string, 0, len(summary.Metrics.Counters))
		for name := range summary.Metrics.Counters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %d\n", name, summary.Metrics.Counters[name])
		}
		if fetch, ok := summary.Metrics.Timings["page.fetch"]; ok {
			fmt.Fprintf(w, "  page.fetch: avg %s, max %s\n", fetch.Average, fetch.Max)
		}
	}

	return nil
}

// WritePreview renders the dataset as a table
func WritePreview(w io.Writer, ds *election.Dataset) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(ds.Header))
	for i, name := range ds.Header {
		header[i] = name
	}
	t.AppendHeader(header)

	records := ds.Records()
	for _, record := range records[1:] {
		row := make(table.Row, len(record))
		for i, v := range record {
			row[i] = v
		}
		t.AppendRow(row)
	}

	// Everything except the town name is numeric
	configs := make([]table.ColumnConfig, 0, len(ds.Header))
	for i := range ds.Header {
		if i == 1 {
			continue
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
	}
	t.SetColumnConfigs(configs)

	fmt.Fprintln(w)
	t.Render()
	fmt.Fprintf(w, "%d towns\n", len(ds.Rows))
}
