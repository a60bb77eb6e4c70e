package subtakeover

import "testing"

func TestIsKnownVulnerableService(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cname string
		want  bool
	}{
		{"dangling.s3.amazonaws.com", true},
		{"something.github.io", true},
		{"app.herokuapp.com", true},
		{"www.example.com", false},
	}

	for _, tc := range cases {
		vulnerable, provider := IsKnownVulnerableService(tc.cname)
		if vulnerable != tc.want {
			t.Errorf("IsKnownVulnerableService(%q) = %v, want %v", tc.cname, vulnerable, tc.want)
		}
		if vulnerable && provider == "" {
			t.Errorf("expected a provider name for %q", tc.cname)
		}
	}
}

func TestMatchesCNAME(t *testing.T) {
	t.Parallel()
	if !matchesCNAME("foo.S3.amazonaws.com", []string{".s3.amazonaws.com"}) {
		t.Error("expected case-insensitive match")
	}
	if matchesCNAME("example.com", []string{".s3.amazonaws.com"}) {
		t.Error("expected no match")
	}
}
