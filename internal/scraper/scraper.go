package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/pfrederiksen/election-scraper/internal/config"
	"github.com/pfrederiksen/election-scraper/internal/election"
	"github.com/pfrederiksen/election-scraper/internal/logger"
)

// Options configures a Scraper
type Options struct {
	UserAgent     string
	Timeout       time.Duration
	ListingMarker string
	// Lenient keeps towns whose vote count differs from the party list
	Lenient bool
}

// OptionsFromConfig maps the loaded configuration onto scraper options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		UserAgent:     cfg.UserAgent,
		Timeout:       cfg.Timeout,
		ListingMarker: cfg.ListingMarker,
		Lenient:       cfg.Lenient,
	}
}

// Scraper fetches and parses election result pages
type Scraper struct {
	client  *resty.Client
	marker  string
	lenient bool
}

// Result is the outcome of scraping one district
type Result struct {
	ListingURL string
	District   string
	Towns      []election.TownRef
	Dataset    *election.Dataset
}

// New creates a new Scraper instance
func New(opts Options) *Scraper {
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	if opts.ListingMarker == "" {
		opts.ListingMarker = config.DefaultListingMarker
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetLogger(restyLogger{})

	return &Scraper{
		client:  client,
		marker:  opts.ListingMarker,
		lenient: opts.Lenient,
	}
}

// restyLogger routes resty's own diagnostics into the structured log
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	logger.Debug("HTTP client error", logger.Fields{"detail": fmt.Sprintf(format, v...)})
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	logger.Warn("HTTP client warning", logger.Fields{"detail": fmt.Sprintf(format, v...)})
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	logger.Debug("HTTP client debug", logger.Fields{"detail": fmt.Sprintf(format, v...)})
}

// FetchPage downloads and parses one HTML page
func (s *Scraper) FetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	start := time.Now()

	resp, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching page %s: %w", pageURL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetching page %s: unexpected status code: %d", pageURL, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", pageURL, err)
	}

	logger.IncrCounter("pages.fetched")
	logger.RecordTiming("page.fetch", time.Since(start))
	logger.Debug("Fetched page", logger.Fields{
		"url":      pageURL,
		"duration": time.Since(start).String(),
	})

	return doc, nil
}

// FetchTown downloads a town detail page and extracts its row
func (s *Scraper) FetchTown(ctx context.Context, ref election.TownRef) (election.RawRow, error) {
	doc, err := s.FetchPage(ctx, ref.URL)
	if err != nil {
		return election.RawRow{}, fmt.Errorf("town %d: %w", ref.Code, err)
	}
	return ParseTownDetail(doc, ref)
}

// Scrape runs the whole district: listing page, party discovery on the first
// town, then every town in page order. Any failure aborts the run.
func (s *Scraper) Scrape(ctx context.Context, listingURL string) (*Result, error) {
	logger.Info("Fetching district listing", logger.Fields{"url": listingURL})

	listing, err := s.FetchPage(ctx, listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetching listing: %w", err)
	}

	district, err := ParseDistrictName(listing)
	if err != nil {
		return nil, err
	}

	towns, err := ParseTownIndex(listing, listingURL, s.marker)
	if err != nil {
		return nil, fmt.Errorf("district %s: %w", district, err)
	}

	logger.Info("Found towns", logger.Fields{
		"district": district,
		"towns":    len(towns),
	})

	first, err := s.FetchPage(ctx, towns[0].URL)
	if err != nil {
		return nil, fmt.Errorf("town %d: %w", towns[0].Code, err)
	}
	parties := ParseParties(first)
	if len(parties) == 0 {
		return nil, &StructureError{Town: towns[0].Code, Element: "party name cells"}
	}
	header := election.NewHeader(parties)

	logger.Debug("Discovered parties", logger.Fields{
		"count":   len(parties),
		"parties": parties,
	})

	rows := make([]election.RawRow, 0, len(towns))
	for _, ref := range towns {
		row, err := s.FetchTown(ctx, ref)
		if err != nil {
			return nil, err
		}

		if votes := len(row.Fields) - 3; votes != len(parties) && s.lenient {
			logger.Warn("Town vote counts do not match party list", logger.Fields{
				"code":    ref.Code,
				"name":    row.Name,
				"votes":   votes,
				"parties": len(parties),
			})
		}

		rows = append(rows, row)
		logger.IncrCounter("towns.scraped")
		logger.Debug("Scraped town", logger.Fields{
			"code": ref.Code,
			"name": row.Name,
		})
	}

	dataset, err := election.Assemble(header, rows, s.lenient)
	if err != nil {
		return nil, fmt.Errorf("assembling dataset: %w", err)
	}

	return &Result{
		ListingURL: listingURL,
		District:   district,
		Towns:      towns,
		Dataset:    dataset,
	}, nil
}
