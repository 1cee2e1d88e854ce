package alerts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCategorize(t *testing.T) {
	category := func(s string) *string { return &s }

	tests := []struct {
		name        string
		title       string
		description string
		category    *string
		want        Classification
	}{
		{
			name:        "paralysis tick warning in queensland",
			title:       "Paralysis Tick Warning - Southeast Queensland",
			description: "High risk conditions reported near Brisbane",
			want:        Classification{Type: TypeTick, Severity: SeverityWarning, Region: RegionQLD},
		},
		{
			name:  "emergency outranks caution",
			title: "Caution: emergency snake relocation in Darwin",
			want:  Classification{Type: TypeSnake, Severity: SeverityEmergency, Region: RegionNT},
		},
		{
			name:        "tick outranks disease",
			title:       "Tick-borne disease outbreak",
			description: "Reported across Victoria",
			want:        Classification{Type: TypeTick, Severity: SeverityInfo, Region: RegionVIC},
		},
		{
			name:  "heat prefix matches heatwave",
			title: "Heatwave advisory for Adelaide",
			want:  Classification{Type: TypeHeatwave, Severity: SeverityWatch, Region: RegionSA},
		},
		{
			name:  "wheat is not heat",
			title: "Wheat harvest update",
			want:  Classification{Type: TypeOther, Severity: SeverityInfo},
		},
		{
			name:  "biosecurity act is not the ACT",
			title: "Changes under the Biosecurity Act",
			want:  Classification{Type: TypeOther, Severity: SeverityInfo},
		},
		{
			name:  "canberra maps to ACT",
			title: "Parvo virus cases rise in Canberra",
			want:  Classification{Type: TypeDisease, Severity: SeverityInfo, Region: RegionACT},
		},
		{
			name:     "category contributes keywords",
			title:    "Animal health notice",
			category: category("Urgent - New South Wales"),
			want:     Classification{Type: TypeOther, Severity: SeverityEmergency, Region: RegionNSW},
		},
		{
			name:  "case insensitive",
			title: "SEVERE SNAKE SEASON IN PERTH",
			want:  Classification{Type: TypeSnake, Severity: SeverityWarning, Region: RegionWA},
		},
		{
			name: "empty text",
			want: Classification{Type: TypeOther, Severity: SeverityInfo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.title, tt.description, tt.category)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Categorize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCategorizeIsDeterministic(t *testing.T) {
	title := "Snake sighting warning near Hobart"
	first := Categorize(title, "", nil)

	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Categorize(title, "", nil)); diff != "" {
			t.Fatalf("Categorize() changed between calls (-first +got):\n%s", diff)
		}
	}
}

func TestParseRegion(t *testing.T) {
	for _, in := range []string{"qld", " NSW ", "all", "Act"} {
		if _, err := ParseRegion(in); err != nil {
			t.Errorf("ParseRegion(%q) unexpected error: %v", in, err)
		}
	}

	if _, err := ParseRegion("NZ"); err == nil {
		t.Error("ParseRegion(NZ) expected error")
	}
}

func TestSeverityRank(t *testing.T) {
	ordered := []Severity{SeverityEmergency, SeverityWarning, SeverityWatch, SeverityInfo, Severity("UNKNOWN")}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Errorf("%s should rank before %s", ordered[i-1], ordered[i])
		}
	}
}
