package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pfrederiksen/election-scraper/internal/config"
	"github.com/pfrederiksen/election-scraper/internal/election"
	"github.com/pfrederiksen/election-scraper/internal/logger"
	"github.com/pfrederiksen/election-scraper/internal/scraper"
	"github.com/pfrederiksen/election-scraper/internal/storage"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// ErrUsage marks bad command-line arguments
var ErrUsage = errors.New("invalid arguments")

var (
	flagConfig    string
	flagOutputDir string
	flagFormat    string
	flagTimeout   time.Duration
	flagLenient   bool
	flagPreview   bool
	flagVerbose   bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "election-scraper <district-url> <output.csv>",
		Short: "Scrape district election results into a CSV file",
		Long: `Scrape the results of every town in an electoral district into one CSV file.

The first argument is a district listing URL on the election results site,
the second the name of the CSV file to write. The file name should contain the
district name; otherwise "<district>.csv" is used instead.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScrape,
	}

	cmd.Flags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&flagOutputDir, "output-dir", ".", "Directory the CSV file is written to")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Summary format: text or json")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", config.DefaultTimeout, "HTTP timeout per page")
	cmd.Flags().BoolVar(&flagLenient, "lenient", false, "Keep towns whose vote counts do not match the party list")
	cmd.Flags().BoolVar(&flagPreview, "preview", false, "Print the scraped table after writing the CSV")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	return cmd
}

// ValidateArgs checks the positional arguments before anything is fetched
func ValidateArgs(args []string, sitePrefix string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: two arguments expected, <district-url> <output.csv>", ErrUsage)
	}
	if !strings.Contains(args[0], sitePrefix) {
		return fmt.Errorf("%w: first argument should be a district URL under %s", ErrUsage, sitePrefix)
	}
	if !strings.Contains(strings.ToLower(args[1]), election.CSVSuffix) {
		return fmt.Errorf("%w: second argument should be the name of a CSV file", ErrUsage)
	}
	return nil
}

// runScrape is the main command logic
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if flagLenient {
		cfg.Lenient = true
	}
	if flagVerbose {
		cfg.LogLevel = "debug"
	}

	if err := ValidateArgs(args, cfg.SitePrefix); err != nil {
		return err
	}

	// Validate format
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("%w: invalid format: %s (must be 'text' or 'json')", ErrUsage, flagFormat)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))
	logger.ResetMetrics()

	listingURL, requested := args[0], args[1]

	// Initialize storage
	store, err := storage.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	logger.Info("Starting scrape", logger.Fields{
		"url":  listingURL,
		"file": requested,
	})

	result, err := scraper.New(scraper.OptionsFromConfig(cfg)).Scrape(cmd.Context(), listingURL)
	if err != nil {
		logger.Error("Scrape failed", logger.Fields{"url": listingURL}, err)
		return fmt.Errorf("scraping district: %w", err)
	}

	filename, substituted := election.ResolveFilename(requested, result.District)
	if substituted {
		fmt.Fprintf(cmd.ErrOrStderr(), "Notice: %q does not match district %q, saving to %q instead\n",
			requested, result.District, filename)
		logger.Warn("Output filename replaced", logger.Fields{
			"requested": requested,
			"district":  result.District,
			"filename":  filename,
		})
	}

	path, err := store.WriteCSV(filename, result.Dataset)
	if err != nil {
		return fmt.Errorf("saving results: %w", err)
	}

	logger.Info("Saved results", logger.Fields{
		"path":  path,
		"towns": len(result.Dataset.Rows),
	})

	summary := &RunSummary{
		ScrapedAt:           time.Now().UTC(),
		ListingURL:          listingURL,
		District:            result.District,
		Output:              path,
		FilenameSubstituted: substituted,
		Towns:               len(result.Dataset.Rows),
		Parties:             result.Dataset.Parties(),
		Metrics:             logger.GetMetricsSnapshot(),
	}

	out := cmd.OutOrStdout()
	if err := WriteOutput(out, summary, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if flagPreview {
		WritePreview(out, result.Dataset)
	}

	return nil
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, ErrUsage) {
			fmt.Fprintln(os.Stderr, "Run 'election-scraper --help' for usage.")
		}
		stop()
		os.Exit(ExitError)
	}
}
