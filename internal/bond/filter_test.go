package bond

import "testing"

func sampleRow() ViewRow {
	return FormatActivity(Activity{
		ExternalID:    "abc",
		Description:   "Performance Bond - Riverside Plant",
		PrincipalName: "Acme Constructors LLC",
		ObligeeName:   "City of Riverside",
		JobName:       "Water Treatment Upgrade",
		Type:          "Performance",
		Status:        "In Review",
	})
}

func TestFilterMatches(t *testing.T) {
	row := sampleRow()

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches", Filter{}, true},
		{"term in description", Filter{Term: "riverside"}, true},
		{"term in principal", Filter{Term: "ACME"}, true},
		{"term in job name", Filter{Term: "treatment"}, true},
		{"term in obligee", Filter{Term: "city of"}, true},
		{"term not present", Filter{Term: "bridge"}, false},
		{"status substring", Filter{Status: "review"}, true},
		{"status full class", Filter{Status: "in-review"}, true},
		{"status mismatch", Filter{Status: "closed"}, false},
		{"type exact", Filter{Type: "performance"}, true},
		{"type mismatch", Filter{Type: "bid"}, false},
		{"all predicates and together", Filter{Term: "acme", Status: "in-review", Type: "Performance"}, true},
		{"one failing predicate fails all", Filter{Term: "acme", Status: "closed"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(row); got != tc.want {
				t.Fatalf("Matches(%+v)=%v, want %v", tc.filter, got, tc.want)
			}
		})
	}
}

func TestMatchesTypeNotSubstring(t *testing.T) {
	row := sampleRow()
	if MatchesType(row, "Perf") {
		t.Fatal("type filter must be exact equality, not substring")
	}
}
