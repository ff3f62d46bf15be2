package election

import "strings"

// CSVSuffix is the suffix every output filename must carry
const CSVSuffix = ".csv"

// ResolveFilename checks the user supplied filename against the district name.
// When the lowercased name does not mention the district or does not end in
// .csv, "<district>.csv" is returned instead and substituted is true.
func ResolveFilename(supplied, district string) (name string, substituted bool) {
	district = strings.ToLower(strings.TrimSpace(district))
	lower := strings.ToLower(strings.TrimSpace(supplied))

	if !strings.Contains(lower, district) || !strings.HasSuffix(lower, CSVSuffix) {
		return DefaultFilename(district), true
	}
	return lower, false
}

// DefaultFilename derives the fallback output filename for a district
func DefaultFilename(district string) string {
	return strings.ToLower(strings.TrimSpace(district)) + CSVSuffix
}
