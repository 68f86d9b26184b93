package bond

import "testing"

func TestValidEmail(t *testing.T) {
	cases := []struct {
		email string
		want  bool
	}{
		{"a@x.com", true},
		{"  jane.doe@example.co.uk  ", true},
		{"", false},
		{"not-an-email", false},
		{"missing@tld", false},
		{"two words@x.com", false},
		{"@x.com", false},
	}
	for _, tc := range cases {
		if got := ValidEmail(tc.email); got != tc.want {
			t.Errorf("ValidEmail(%q) = %v, want %v", tc.email, got, tc.want)
		}
	}
}

func TestValidToken(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{"AbC123xYz09qRsT", true},
		{"zzz", false},
		{"", false},
		{"has spaces here!", false},
		{"with-hyphens-xx", false},
	}
	for _, tc := range cases {
		if got := ValidToken(tc.token); got != tc.want {
			t.Errorf("ValidToken(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestTokenFromExternalID(t *testing.T) {
	if got := TokenFromExternalID("recAbC123xYz09qRsT"); got != "AbC123xYz09qRsT" {
		t.Fatalf("got %q", got)
	}
	if got := TokenFromExternalID("AbC123xYz09qRsT"); got != "" {
		t.Fatalf("id without prefix should yield empty token, got %q", got)
	}
	if got := TokenFromExternalID("rec"); got != "" {
		t.Fatalf("bare prefix should yield empty token, got %q", got)
	}
}
