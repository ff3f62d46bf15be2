package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/election-scraper/internal/election"
	"golang.org/x/net/html"
)

// Markup conventions of the results site
const (
	townLinkSelector = "td.cislo a"
	townLabel        = "Obec:"
	districtLabel    = "Okres:"
	registeredHeader = "sa2"
	envelopesHeader  = "sa3"
	validHeader      = "sa6"
	partyNameSuffix  = "sb2"
	voteCountSuffix  = "sb3"
)

const nbsp = "\u00a0"

// ErrNoTowns is returned when a listing page links no towns
var ErrNoTowns = errors.New("no towns found on listing page")

// StructureError reports an element missing from a page
type StructureError struct {
	// Town is zero for the listing page
	Town    int
	Element string
}

func (e *StructureError) Error() string {
	if e.Town == 0 {
		return fmt.Sprintf("listing page: missing %s", e.Element)
	}
	return fmt.Sprintf("town %d: missing %s", e.Town, e.Element)
}

// BaseURL derives the base for relative town links by cutting the listing URL
// at the first occurrence of marker
func BaseURL(listingURL, marker string) (*url.URL, error) {
	prefix := listingURL
	if i := strings.Index(listingURL, marker); i >= 0 {
		prefix = listingURL[:i]
	}

	base, err := url.Parse(prefix)
	if err != nil {
		return nil, fmt.Errorf("parsing listing URL: %w", err)
	}
	return base, nil
}

// ParseTownIndex extracts every town code and detail URL from a listing page, in page order
func ParseTownIndex(doc *goquery.Document, listingURL, marker string) ([]election.TownRef, error) {
	base, err := BaseURL(listingURL, marker)
	if err != nil {
		return nil, err
	}

	towns := make([]election.TownRef, 0)
	var parseErr error

	doc.Find(townLinkSelector).EachWithBreak(func(i int, a *goquery.Selection) bool {
		text := strings.TrimSpace(strings.ReplaceAll(a.Text(), nbsp, ""))
		code, err := strconv.Atoi(text)
		if err != nil {
			parseErr = fmt.Errorf("town link %d: invalid code %q: %w", i+1, text, err)
			return false
		}

		href, ok := a.Attr("href")
		if !ok {
			parseErr = &StructureError{Element: fmt.Sprintf("href of town link %d", code)}
			return false
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			parseErr = fmt.Errorf("town link %d: invalid href %q: %w", code, href, err)
			return false
		}

		towns = append(towns, election.TownRef{
			Code: code,
			URL:  base.ResolveReference(ref).String(),
		})
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	if len(towns) == 0 {
		return nil, ErrNoTowns
	}

	return towns, nil
}

// ParseDistrictName extracts the district name from a listing page
func ParseDistrictName(doc *goquery.Document) (string, error) {
	name, ok := findLabel(doc, districtLabel)
	if !ok || name == "" {
		return "", &StructureError{Element: fmt.Sprintf("%q label", districtLabel)}
	}
	return name, nil
}

// ParseParties lists the party names on a town detail page in column order
func ParseParties(doc *goquery.Document) []string {
	return probeBlocks(doc, partyNameSuffix, func(s *goquery.Selection) string {
		return strings.TrimSpace(strings.ReplaceAll(s.Text(), nbsp, " "))
	})
}

// ParseTownDetail extracts one town's row from its detail page
func ParseTownDetail(doc *goquery.Document, ref election.TownRef) (election.RawRow, error) {
	name, ok := findLabel(doc, townLabel)
	if !ok || name == "" {
		return election.RawRow{}, &StructureError{Town: ref.Code, Element: fmt.Sprintf("%q label", townLabel)}
	}

	fields := make([]string, 0, 3)
	for _, cell := range []struct {
		header string
		what   string
	}{
		{registeredHeader, "registered voters"},
		{envelopesHeader, "envelopes"},
		{validHeader, "valid votes"},
	} {
		sel := doc.Find(headerSelector(cell.header)).First()
		if sel.Length() == 0 {
			return election.RawRow{}, &StructureError{
				Town:    ref.Code,
				Element: fmt.Sprintf("%s cell (%s)", cell.what, cell.header),
			}
		}
		fields = append(fields, numericText(sel))
	}

	fields = append(fields, probeBlocks(doc, voteCountSuffix, numericText)...)

	return election.RawRow{
		Code:   ref.Code,
		Name:   name,
		Fields: fields,
	}, nil
}

// probeBlocks collects the text of cells keyed t1<suffix>, t2<suffix>, ... and
// stops at the first block without any cell
func probeBlocks(doc *goquery.Document, suffix string, text func(*goquery.Selection) string) []string {
	values := make([]string, 0)
	for block := 1; ; block++ {
		cells := doc.Find(headerSelector(fmt.Sprintf("t%d%s", block, suffix)))
		if cells.Length() == 0 {
			return values
		}
		cells.Each(func(_ int, cell *goquery.Selection) {
			values = append(values, text(cell))
		})
	}
}

// headerSelector matches table cells whose headers attribute lists key
func headerSelector(key string) string {
	return fmt.Sprintf(`td[headers~="%s"]`, key)
}

func numericText(s *goquery.Selection) string {
	return strings.TrimSpace(strings.ReplaceAll(s.Text(), nbsp, ""))
}

// findLabel returns the text following label in the first text node containing it
func findLabel(doc *goquery.Document, label string) (string, bool) {
	for _, root := range doc.Nodes {
		if text, ok := findTextNode(root, label); ok {
			value := text[strings.Index(text, label)+len(label):]
			value = strings.ReplaceAll(value, "\n", "")
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

func findTextNode(n *html.Node, needle string) (string, bool) {
	if n.Type == html.TextNode && strings.Contains(n.Data, needle) {
		return n.Data, true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text, ok := findTextNode(c, needle); ok {
			return text, true
		}
	}
	return "", false
}
