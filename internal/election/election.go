package election

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FixedColumns are the leading CSV columns that precede the party columns
var FixedColumns = []string{"Town code", "Town name", "Registered", "Envelopes", "Valid votes"}

// ErrPartyMismatch is returned when a town reports a different number of vote
// counts than there are parties in the header
var ErrPartyMismatch = errors.New("town vote counts do not match party list")

// TownRef points at a single town detail page
type TownRef struct {
	Code int    `json:"code"`
	URL  string `json:"url"`
}

// RawRow is one town as extracted from its detail page, before numeric coercion.
// Fields holds registered voters, envelopes, valid votes and then one vote count
// per party, all with non-breaking spaces already stripped.
type RawRow struct {
	Code   int
	Name   string
	Fields []string
}

// TownResult is a fully coerced town row
type TownResult struct {
	Code       int    `json:"code"`
	Name       string `json:"name"`
	Registered int    `json:"registered"`
	Envelopes  int    `json:"envelopes"`
	ValidVotes int    `json:"valid_votes"`
	VoteCounts []int  `json:"vote_counts"`
}

// Dataset is the final header plus one row per town
type Dataset struct {
	Header []string     `json:"header"`
	Rows   []TownResult `json:"rows"`
}

// NumericError reports a field that is not a plain decimal integer
type NumericError struct {
	Town   int
	Column string
	Value  string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("town %d: column %q: invalid integer %q", e.Town, e.Column, e.Value)
}

// NewHeader builds the CSV header from the discovered parties
func NewHeader(parties []string) []string {
	header := make([]string, 0, len(FixedColumns)+len(parties))
	header = append(header, FixedColumns...)
	return append(header, parties...)
}

// Parties returns the party columns of the header
func (d *Dataset) Parties() []string {
	if len(d.Header) <= len(FixedColumns) {
		return nil
	}
	return d.Header[len(FixedColumns):]
}

// Records renders the dataset as CSV records, header first
func (d *Dataset) Records() [][]string {
	records := make([][]string, 0, len(d.Rows)+1)
	records = append(records, d.Header)

	for _, row := range d.Rows {
		record := make([]string, 0, len(FixedColumns)+len(row.VoteCounts))
		record = append(record,
			strconv.Itoa(row.Code),
			row.Name,
			strconv.Itoa(row.Registered),
			strconv.Itoa(row.Envelopes),
			strconv.Itoa(row.ValidVotes),
		)
		for _, v := range row.VoteCounts {
			record = append(record, strconv.Itoa(v))
		}
		records = append(records, record)
	}

	return records
}

// Assemble coerces every raw row and binds it to the header.
// Unless lenient is set, a row whose vote count length differs from the
// number of parties in the header fails the whole dataset.
func Assemble(header []string, rows []RawRow, lenient bool) (*Dataset, error) {
	parties := len(header) - len(FixedColumns)
	if parties < 0 {
		return nil, fmt.Errorf("header has %d columns, want at least %d", len(header), len(FixedColumns))
	}

	ds := &Dataset{
		Header: header,
		Rows:   make([]TownResult, 0, len(rows)),
	}

	for _, raw := range rows {
		result, err := CoerceRow(header, raw)
		if err != nil {
			return nil, err
		}
		if !lenient && len(result.VoteCounts) != parties {
			return nil, fmt.Errorf("town %d (%s): got %d vote counts for %d parties: %w",
				raw.Code, raw.Name, len(result.VoteCounts), parties, ErrPartyMismatch)
		}
		ds.Rows = append(ds.Rows, result)
	}

	return ds, nil
}

// CoerceRow converts the string fields of a raw row into integers.
// header is only used to name the offending column in errors.
func CoerceRow(header []string, raw RawRow) (TownResult, error) {
	if len(raw.Fields) < 3 {
		return TownResult{}, fmt.Errorf("town %d: got %d fields, want at least 3", raw.Code, len(raw.Fields))
	}

	values := make([]int, len(raw.Fields))
	for i, field := range raw.Fields {
		n, err := ParseCount(field)
		if err != nil {
			return TownResult{}, &NumericError{
				Town:   raw.Code,
				Column: columnName(header, i+2),
				Value:  field,
			}
		}
		values[i] = n
	}

	return TownResult{
		Code:       raw.Code,
		Name:       raw.Name,
		Registered: values[0],
		Envelopes:  values[1],
		ValidVotes: values[2],
		VoteCounts: values[3:],
	}, nil
}

// ParseCount parses a vote or registration count. All whitespace, including
// non-breaking spaces used as thousands separators, is removed first; what
// remains must be decimal digits only.
func ParseCount(s string) (int, error) {
	cleaned := strings.Join(strings.Fields(s), "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty count")
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid count %q", s)
		}
	}
	return strconv.Atoi(cleaned)
}

func columnName(header []string, i int) string {
	if i < len(header) {
		return header[i]
	}
	return fmt.Sprintf("column %d", i+1)
}
