package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pfrederiksen/election-scraper/internal/election"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPath = "/pls/ps2017nss/ps32?xjazyk=CZ&xkraj=2&xnumnuts=2102"

// siteServer serves fixture pages in the layout of the results site and
// records every requested town code
type siteServer struct {
	*httptest.Server
	listing string
	towns   map[string]string

	mu        sync.Mutex
	requested []string
}

func newSiteServer(t *testing.T, listing string, towns map[string]string) *siteServer {
	t.Helper()
	s := &siteServer{listing: listing, towns: towns}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "election-scraper") {
			t.Errorf("User-Agent = %q, should contain 'election-scraper'", ua)
		}

		var fixture string
		switch r.URL.Path {
		case "/pls/ps2017nss/ps32":
			fixture = s.listing
		case "/pls/ps2017nss/ps311":
			code := r.URL.Query().Get("xobec")
			s.mu.Lock()
			s.requested = append(s.requested, code)
			s.mu.Unlock()
			fixture = s.towns[code]
		}

		if fixture == "" {
			http.NotFound(w, r)
			return
		}

		data, err := os.ReadFile(filepath.Join("testdata", fixture))
		if err != nil {
			t.Errorf("failed to load test fixture: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data) // nolint:errcheck
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *siteServer) townRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requested...)
}

func testScraper(lenient bool) *Scraper {
	return New(Options{Timeout: 5 * time.Second, Lenient: lenient})
}

func TestScrape(t *testing.T) {
	server := newSiteServer(t, "listing.html", map[string]string{
		"501": "town_501.html",
		"502": "town_502.html",
	})

	result, err := testScraper(false).Scrape(context.Background(), server.URL+listingPath)
	require.NoError(t, err)

	assert.Equal(t, "Beroun", result.District)
	require.Len(t, result.Towns, 2)
	assert.Equal(t, 501, result.Towns[0].Code)
	assert.Equal(t, 502, result.Towns[1].Code)
	assert.Equal(t, server.URL+"/pls/ps2017nss/ps311?xjazyk=CZ&xkraj=2&xobec=501&xvyber=2102", result.Towns[0].URL)

	want := &election.Dataset{
		Header: []string{"Town code", "Town name", "Registered", "Envelopes", "Valid votes", "PartyA", "PartyB", "PartyC"},
		Rows: []election.TownResult{
			{Code: 501, Name: "Alpha", Registered: 1200, Envelopes: 800, ValidVotes: 795, VoteCounts: []int{400, 300, 95}},
			{Code: 502, Name: "Beta", Registered: 1050, Envelopes: 700, ValidVotes: 690, VoteCounts: []int{10, 600, 80}},
		},
	}
	if diff := cmp.Diff(want, result.Dataset); diff != "" {
		t.Errorf("Scrape() dataset mismatch (-want +got):\n%s", diff)
	}

	for _, record := range result.Dataset.Records()[1:] {
		assert.Len(t, record, 8)
	}

	// First town is fetched once for party discovery and once for its row
	assert.Equal(t, []string{"501", "501", "502"}, server.townRequests())
}

func TestScrape_NoTowns(t *testing.T) {
	server := newSiteServer(t, "listing_empty.html", nil)

	_, err := testScraper(false).Scrape(context.Background(), server.URL+listingPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoTowns), "got %v", err)
	assert.Empty(t, server.townRequests())
}

func TestScrape_MissingValidVotes(t *testing.T) {
	server := newSiteServer(t, "listing.html", map[string]string{
		"501": "town_501.html",
		"502": "town_missing_valid.html",
	})

	result, err := testScraper(false).Scrape(context.Background(), server.URL+listingPath)
	require.Error(t, err)
	assert.Nil(t, result)

	var structErr *StructureError
	require.True(t, errors.As(err, &structErr), "got %v", err)
	assert.Equal(t, 502, structErr.Town)
	assert.Contains(t, structErr.Element, "valid votes")
}

func TestScrape_MalformedNumber(t *testing.T) {
	server := newSiteServer(t, "listing.html", map[string]string{
		"501": "town_501.html",
		"502": "town_bad_number.html",
	})

	_, err := testScraper(false).Scrape(context.Background(), server.URL+listingPath)
	require.Error(t, err)

	var numErr *election.NumericError
	require.True(t, errors.As(err, &numErr), "got %v", err)
	assert.Equal(t, 502, numErr.Town)
	assert.Equal(t, "Valid votes", numErr.Column)
}

func TestScrape_PartyMismatch(t *testing.T) {
	towns := map[string]string{
		"501": "town_501.html",
		"502": "town_extra_party.html",
	}

	t.Run("strict", func(t *testing.T) {
		server := newSiteServer(t, "listing.html", towns)
		_, err := testScraper(false).Scrape(context.Background(), server.URL+listingPath)
		require.Error(t, err)
		assert.True(t, errors.Is(err, election.ErrPartyMismatch), "got %v", err)
	})

	t.Run("lenient", func(t *testing.T) {
		server := newSiteServer(t, "listing.html", towns)
		result, err := testScraper(true).Scrape(context.Background(), server.URL+listingPath)
		require.NoError(t, err)
		require.Len(t, result.Dataset.Rows, 2)
		assert.Len(t, result.Dataset.Rows[1].VoteCounts, 4)
	})
}

func TestScrape_TownNotFound(t *testing.T) {
	server := newSiteServer(t, "listing.html", map[string]string{
		"501": "town_501.html",
	})

	_, err := testScraper(false).Scrape(context.Background(), server.URL+listingPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "town 502")
	assert.Contains(t, err.Error(), "404")
}

func TestFetchPage(t *testing.T) {
	tests := []struct {
		name        string
		htmlContent string
		statusCode  int
		wantError   bool
	}{
		{
			name:        "successful fetch",
			htmlContent: "<html><body><h3>Okres: Beroun</h3></body></html>",
			statusCode:  http.StatusOK,
		},
		{
			name:       "HTTP error",
			statusCode: http.StatusInternalServerError,
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.htmlContent)) // nolint:errcheck
			}))
			defer server.Close()

			doc, err := testScraper(false).FetchPage(context.Background(), server.URL)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			name, err := ParseDistrictName(doc)
			require.NoError(t, err)
			assert.Equal(t, "Beroun", name)
		})
	}
}

func TestFetchPage_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>")) // nolint:errcheck
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testScraper(false).FetchPage(ctx, server.URL)
	assert.Error(t, err)
}

func TestFetchPage_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := testScraper(false).FetchPage(context.Background(), url)
	assert.Error(t, err)
}
