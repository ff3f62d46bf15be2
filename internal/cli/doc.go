// Package cli implements the command-line interface for election-scraper.
//
// The cli package provides the Cobra root command that validates the district URL
// and output filename, runs the scraper, resolves the final filename against the
// district name and writes the CSV. A short run summary is printed as text or JSON,
// optionally followed by a table preview of the dataset.
package cli
