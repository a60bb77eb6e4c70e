package riskfactors

import (
	"testing"

	"github.com/qrshield/urlscan/pkg/domaintrust"
	"github.com/qrshield/urlscan/pkg/mlmodel"
	"github.com/qrshield/urlscan/pkg/netprobe"
	"github.com/qrshield/urlscan/pkg/normalizeurl"
)

func mustNormalize(t *testing.T, raw string) *normalizeurl.URL {
	t.Helper()
	u, err := normalizeurl.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize(%q): %v", raw, err)
	}
	return u
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestDetect_IPLiteral(t *testing.T) {
	t.Parallel()
	u := mustNormalize(t, "http://185.23.14.9/login")
	factors := Detect(u, nil, nil, nil)
	if !hasCode(factors, "ip_literal_url") {
		t.Error("expected ip_literal_url to fire")
	}
}

func TestDetect_NoFactorsForCleanURL(t *testing.T) {
	t.Parallel()
	u := mustNormalize(t, "https://example.com/")
	factors := Detect(u, nil, nil, nil)
	if len(factors) != 0 {
		t.Errorf("expected no factors, got %v", factors)
	}
}

func TestDetect_InvalidSSL(t *testing.T) {
	t.Parallel()
	u := mustNormalize(t, "https://example.com/")
	obs := &netprobe.Observation{SSLValid: boolPtr(false)}
	factors := Detect(u, obs, nil, nil)
	if !hasCode(factors, "invalid_ssl") {
		t.Error("expected invalid_ssl to fire")
	}
}

func TestDetect_ManyRedirects(t *testing.T) {
	t.Parallel()
	u := mustNormalize(t, "https://example.com/")
	obs := &netprobe.Observation{RedirectCount: 6}
	factors := Detect(u, obs, nil, nil)
	if !hasCode(factors, "many_redirects") {
		t.Error("expected many_redirects to fire")
	}
}

func TestDetect_CrossDomainRedirect(t *testing.T) {
	t.Parallel()
	u := mustNormalize(t, "https://bit.ly/abc")
	final := "https://evil.tk/login"
	obs := &netprobe.Observation{FinalURL: &final}
	factors := Detect(u, obs, nil, nil)
	if !hasCode(factors, "cross_domain_redirect") {
		t.Error("expected cross_domain_redirect to fire")
	}
}

func TestDetect_NewDomain(t *testing.T) {
	t.Parallel()
	u := mustNormalize(t, "https://example.com/")
	trust := &domaintrust.Trust{AgeDays: intPtr(5)}
	factors := Detect(u, nil, trust, nil)
	if !hasCode(factors, "new_domain") {
		t.Error("expected new_domain to fire")
	}
}

func TestDetect_MLHighRisk(t *testing.T) {
	t.Parallel()
	u := mustNormalize(t, "https://example.com/")
	ml := &mlmodel.MLDetails{XGBScore: 0.9}
	factors := Detect(u, nil, nil, ml)
	if !hasCode(factors, "ml_high_risk") {
		t.Error("expected ml_high_risk to fire")
	}
}

func TestDetect_SortedBySeverityDescending(t *testing.T) {
	t.Parallel()
	u := mustNormalize(t, "http://185.23.14.9:8080/login")
	obs := &netprobe.Observation{RedirectCount: 10}
	factors := Detect(u, obs, nil, nil)
	for i := 1; i < len(factors); i++ {
		if factors[i].Severity.Score() > factors[i-1].Severity.Score() {
			t.Fatalf("factors not sorted by severity descending: %v", factors)
		}
	}
}

func TestDetect_NilObservationsTolerated(t *testing.T) {
	t.Parallel()
	u := mustNormalize(t, "https://example.com/")
	if factors := Detect(u, nil, nil, nil); len(factors) != 0 {
		t.Error("expected empty, non-panicking result")
	}
}

func hasCode(factors []RiskFactor, code string) bool {
	for _, f := range factors {
		if f.Code == code {
			return true
		}
	}
	return false
}
