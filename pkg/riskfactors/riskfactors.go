// Package riskfactors is the risk-factor synthesizer (C6): a registry of
// independent rule functions, each checking one heuristic signal across
// the normalized URL, network observation, domain trust, and ML output,
// and emitting a RiskFactor when its condition fires. Rules never share
// state or depend on each other's output — no class hierarchy, just a
// slice of pure functions, so adding a twelfth rule never risks breaking
// the eleven before it.
package riskfactors

import (
	"fmt"
	"sort"

	"github.com/qrshield/urlscan/pkg/defaults"
	"github.com/qrshield/urlscan/pkg/domaintrust"
	"github.com/qrshield/urlscan/pkg/features"
	"github.com/qrshield/urlscan/pkg/finding"
	"github.com/qrshield/urlscan/pkg/mlmodel"
	"github.com/qrshield/urlscan/pkg/netprobe"
	"github.com/qrshield/urlscan/pkg/normalizeurl"
)

// RiskFactor is one triggered heuristic, carried through to C7 unchanged.
type RiskFactor struct {
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Severity finding.Severity `json:"severity"`
	Evidence string           `json:"evidence,omitempty"`
}

// Rule inspects one signal and returns a RiskFactor if it fires, or nil.
// obs, trust, and ml may individually be nil when their stage failed or
// hasn't run yet — every rule must tolerate that.
type Rule func(u *normalizeurl.URL, obs *netprobe.Observation, trust *domaintrust.Trust, ml *mlmodel.MLDetails) *RiskFactor

// Rules is the fixed registry, in the order new factors are first
// considered. Detect's insertion-order tie-break depends on this order.
var Rules = []Rule{
	ruleIPLiteralURL,
	rulePunycodeMixedScript,
	ruleSuspiciousTLD,
	ruleNonstandardPort,
	ruleRecentCert,
	ruleInvalidSSL,
	ruleManyRedirects,
	ruleCrossDomainRedirect,
	ruleLoginOnNonDomain,
	ruleNewDomain,
	ruleMLHighRisk,
}

// Detect runs every rule and returns the triggered factors sorted by
// severity descending, then registry insertion order.
func Detect(u *normalizeurl.URL, obs *netprobe.Observation, trust *domaintrust.Trust, ml *mlmodel.MLDetails) []RiskFactor {
	var factors []RiskFactor
	for _, rule := range Rules {
		if rf := rule(u, obs, trust, ml); rf != nil {
			factors = append(factors, *rf)
		}
	}
	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].Severity.Score() != factors[j].Severity.Score() {
			return factors[i].Severity.Score() > factors[j].Severity.Score()
		}
		// Equal severity: SliceStable keeps registry insertion order.
		return false
	})
	return factors
}

func ruleIPLiteralURL(u *normalizeurl.URL, _ *netprobe.Observation, _ *domaintrust.Trust, _ *mlmodel.MLDetails) *RiskFactor {
	if !u.IsIPLiteral {
		return nil
	}
	return &RiskFactor{
		Code:     "ip_literal_url",
		Message:  "URL host is a raw IP address rather than a domain name",
		Severity: finding.High,
		Evidence: fmt.Sprintf("host=%s", u.Host),
	}
}

func rulePunycodeMixedScript(u *normalizeurl.URL, _ *netprobe.Observation, _ *domaintrust.Trust, _ *mlmodel.MLDetails) *RiskFactor {
	if !u.IsPunycode || !features.IsHomoglyphCandidate(u.UnicodeHost) {
		return nil
	}
	return &RiskFactor{
		Code:     "punycode_mixed_script",
		Message:  "Punycode host mixes scripts in a way consistent with a homograph attack",
		Severity: finding.Critical,
		Evidence: fmt.Sprintf("host=%s unicode_host=%s", u.Host, u.UnicodeHost),
	}
}

func ruleSuspiciousTLD(u *normalizeurl.URL, _ *netprobe.Observation, _ *domaintrust.Trust, _ *mlmodel.MLDetails) *RiskFactor {
	if !features.IsHighAbuseTLD(u.Host) {
		return nil
	}
	return &RiskFactor{
		Code:     "suspicious_tld",
		Message:  "Domain uses a TLD with a disproportionately high abuse rate",
		Severity: finding.Medium,
		Evidence: fmt.Sprintf("host=%s", u.Host),
	}
}

func ruleNonstandardPort(u *normalizeurl.URL, _ *netprobe.Observation, _ *domaintrust.Trust, _ *mlmodel.MLDetails) *RiskFactor {
	if !u.HasNonstandardPort() {
		return nil
	}
	return &RiskFactor{
		Code:     "nonstandard_port",
		Message:  "URL targets a nonstandard port",
		Severity: finding.Low,
		Evidence: fmt.Sprintf("port=%d", u.Port),
	}
}

func ruleRecentCert(_ *normalizeurl.URL, obs *netprobe.Observation, _ *domaintrust.Trust, _ *mlmodel.MLDetails) *RiskFactor {
	if obs == nil || obs.SSLIsNewCert == nil || !*obs.SSLIsNewCert {
		return nil
	}
	return &RiskFactor{
		Code:     "recent_cert",
		Message:  "TLS certificate was issued very recently",
		Severity: finding.Medium,
	}
}

func ruleInvalidSSL(_ *normalizeurl.URL, obs *netprobe.Observation, _ *domaintrust.Trust, _ *mlmodel.MLDetails) *RiskFactor {
	if obs == nil || obs.SSLValid == nil || *obs.SSLValid {
		return nil
	}
	return &RiskFactor{
		Code:     "invalid_ssl",
		Message:  "TLS certificate failed validation",
		Severity: finding.High,
	}
}

func ruleManyRedirects(_ *normalizeurl.URL, obs *netprobe.Observation, _ *domaintrust.Trust, _ *mlmodel.MLDetails) *RiskFactor {
	if obs == nil || obs.RedirectCount <= defaults.ManyRedirectsThreshold {
		return nil
	}
	return &RiskFactor{
		Code:     "many_redirects",
		Message:  "URL chains through an unusually long redirect sequence",
		Severity: finding.Medium,
		Evidence: fmt.Sprintf("redirect_count=%d", obs.RedirectCount),
	}
}

func ruleCrossDomainRedirect(u *normalizeurl.URL, obs *netprobe.Observation, _ *domaintrust.Trust, _ *mlmodel.MLDetails) *RiskFactor {
	if obs == nil || obs.FinalURL == nil {
		return nil
	}
	final, err := normalizeurl.Normalize(*obs.FinalURL)
	if err != nil || final.RegisteredDomain == u.RegisteredDomain {
		return nil
	}
	return &RiskFactor{
		Code:     "cross_domain_redirect",
		Message:  "Redirect chain ends on a different registered domain than the original URL",
		Severity: finding.Medium,
		Evidence: fmt.Sprintf("from=%s to=%s", u.RegisteredDomain, final.RegisteredDomain),
	}
}

func ruleLoginOnNonDomain(_ *normalizeurl.URL, obs *netprobe.Observation, _ *domaintrust.Trust, _ *mlmodel.MLDetails) *RiskFactor {
	if obs == nil || !containsFlag(obs.ContentFlags, "login_on_nondomain") {
		return nil
	}
	return &RiskFactor{
		Code:     "login_on_nondomain",
		Message:  "Login form submits to a domain different from the page it appears on",
		Severity: finding.High,
	}
}

func ruleNewDomain(_ *normalizeurl.URL, _ *netprobe.Observation, trust *domaintrust.Trust, _ *mlmodel.MLDetails) *RiskFactor {
	if trust == nil || trust.AgeDays == nil || *trust.AgeDays >= defaults.NewDomainAgeDays {
		return nil
	}
	return &RiskFactor{
		Code:     "new_domain",
		Message:  "Domain was registered very recently",
		Severity: finding.High,
		Evidence: fmt.Sprintf("age_days=%d", *trust.AgeDays),
	}
}

func ruleMLHighRisk(_ *normalizeurl.URL, _ *netprobe.Observation, _ *domaintrust.Trust, ml *mlmodel.MLDetails) *RiskFactor {
	if ml == nil || ml.XGBScore < defaults.MLHighRiskThreshold {
		return nil
	}
	return &RiskFactor{
		Code:     "ml_high_risk",
		Message:  "ML classifier independently scored this URL as high risk",
		Severity: finding.High,
		Evidence: fmt.Sprintf("xgb_score=%.3f", ml.XGBScore),
	}
}

func containsFlag(flags []string, target string) bool {
	for _, f := range flags {
		if f == target {
			return true
		}
	}
	return false
}
