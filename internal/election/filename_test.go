package election

import "testing"

func TestResolveFilename(t *testing.T) {
	tests := []struct {
		name            string
		supplied        string
		district        string
		wantName        string
		wantSubstituted bool
	}{
		{
			name:     "matching name is kept",
			supplied: "vysledky_beroun.csv",
			district: "Beroun",
			wantName: "vysledky_beroun.csv",
		},
		{
			name:     "matching name is lowercased",
			supplied: "Vysledky_BEROUN.CSV",
			district: "Beroun",
			wantName: "vysledky_beroun.csv",
		},
		{
			name:            "other district is replaced",
			supplied:        "vysledky_kladno.csv",
			district:        "Beroun",
			wantName:        "beroun.csv",
			wantSubstituted: true,
		},
		{
			name:            "missing suffix is replaced",
			supplied:        "beroun.txt",
			district:        "Beroun",
			wantName:        "beroun.csv",
			wantSubstituted: true,
		},
		{
			name:            "suffix in the middle is replaced",
			supplied:        "beroun.csv.bak",
			district:        "Beroun",
			wantName:        "beroun.csv",
			wantSubstituted: true,
		},
		{
			name:            "non-ascii district",
			supplied:        "results.csv",
			district:        "Praha-východ",
			wantName:        "praha-východ.csv",
			wantSubstituted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, substituted := ResolveFilename(tt.supplied, tt.district)
			if got != tt.wantName {
				t.Errorf("ResolveFilename(%q, %q) = %q, want %q", tt.supplied, tt.district, got, tt.wantName)
			}
			if substituted != tt.wantSubstituted {
				t.Errorf("ResolveFilename(%q, %q) substituted = %v, want %v", tt.supplied, tt.district, substituted, tt.wantSubstituted)
			}
		})
	}
}
