// Package domaintrust classifies a scanned domain into a static reputation
// tier with a fixed dampening factor, optionally enriched with a WHOIS
// registration age lookup. The tier table is the single source of truth
// for how much the ML score gets dampened — nothing else may adjust
// dampening_factor, preserving the monotonic trust ordering C7 depends on.
package domaintrust

import (
	"context"
	_ "embed"
	"encoding/csv"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/qrshield/urlscan/pkg/defaults"
	"github.com/qrshield/urlscan/pkg/retry"
)

// Tier is a domain's reputation classification.
type Tier string

const (
	Trusted   Tier = "trusted"
	Moderate  Tier = "moderate"
	Neutral   Tier = "neutral"
	Untrusted Tier = "untrusted"
	Unknown   Tier = "unknown"
)

// dampening is the fixed, monotonic tier → dampening_factor table. Never
// computed from a formula — these are calibration constants fixed against
// the trained model.
var dampening = map[Tier]float64{
	Trusted:   defaults.DampeningTrusted,
	Moderate:  defaults.DampeningModerate,
	Neutral:   defaults.DampeningNeutral,
	Untrusted: defaults.DampeningUntrusted,
	Unknown:   defaults.DampeningUnknown,
}

// Signals holds optional explanatory enrichment for a Trust. Classify and
// EnrichWHOIS do not populate it, and nothing in it feeds back into
// DampeningFactor.
type Signals struct {
	SSLQualityScore float64 `json:"ssl_quality_score,omitempty"`
	BlacklistHits   int     `json:"blacklist_hits,omitempty"`
}

// Trust is the reputation verdict for one domain.
type Trust struct {
	RegisteredDomain string   `json:"registered_domain"`
	FullDomain       string   `json:"full_domain"`
	ReputationTier   Tier     `json:"reputation_tier"`
	DampeningFactor  float64  `json:"dampening_factor"`
	TrustDescription *string  `json:"trust_description,omitempty"`
	AgeDays          *int     `json:"age_days,omitempty"`
	Registrar        *string  `json:"registrar,omitempty"`
	Signals          *Signals `json:"signals,omitempty"`
}

type tableEntry struct {
	tier        Tier
	description string
}

//go:embed reputation.csv
var reputationCSV string

var reputationTable = mustParseCSV(reputationCSV)

func mustParseCSV(data string) map[string]tableEntry {
	r := csv.NewReader(strings.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		panic("domaintrust: invalid embedded reputation.csv: " + err.Error())
	}
	table := make(map[string]tableEntry, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) < 2 {
			continue // header row
		}
		entry := tableEntry{tier: Tier(rec[1])}
		if len(rec) >= 3 {
			entry.description = rec[2]
		}
		table[strings.ToLower(rec[0])] = entry
	}
	return table
}

// curatedParentSuffixes covers hosting platforms whose subdomains should
// inherit a tier from the parent even when the exact subdomain isn't in
// the table (e.g. "myapp.vercel.app").
var curatedParentSuffixes = []string{
	"github.io", "vercel.app", "netlify.app", "herokuapp.com",
	"blogspot.com", "wordpress.com",
}

// Classify looks up fullHost, then registeredDomain, then a curated parent
// suffix match, returning Unknown if nothing matches.
func Classify(fullHost, registeredDomain string) *Trust {
	t := &Trust{
		RegisteredDomain: registeredDomain,
		FullDomain:       fullHost,
		ReputationTier:   Unknown,
	}

	if entry, ok := reputationTable[strings.ToLower(fullHost)]; ok {
		t.apply(entry)
		return t
	}
	if entry, ok := reputationTable[strings.ToLower(registeredDomain)]; ok {
		t.apply(entry)
		return t
	}
	for _, suffix := range curatedParentSuffixes {
		if strings.HasSuffix(strings.ToLower(fullHost), "."+suffix) || strings.ToLower(fullHost) == suffix {
			if entry, ok := reputationTable[suffix]; ok {
				t.apply(entry)
				return t
			}
		}
	}

	t.DampeningFactor = dampening[Unknown]
	return t
}

func (t *Trust) apply(entry tableEntry) {
	t.ReputationTier = entry.tier
	if _, ok := dampening[entry.tier]; !ok {
		t.ReputationTier = Unknown
	}
	t.DampeningFactor = dampening[t.ReputationTier]
	if entry.description != "" {
		desc := entry.description
		t.TrustDescription = &desc
	}
}

// EnrichWHOIS performs a best-effort WHOIS lookup for registeredDomain and
// fills AgeDays/Registrar. Per spec, an otherwise-unknown tier with
// age_days < defaults.NewDomainAgeDays is promoted to Untrusted. Lookup
// failures are swallowed — WHOIS is enrichment, never a hard dependency.
func (t *Trust) EnrichWHOIS(ctx context.Context, registeredDomain string) {
	ageDays, registrar, ok := whoisAge(ctx, registeredDomain)
	if !ok {
		return
	}
	t.applyWHOIS(ageDays, registrar)
}

// applyWHOIS records a WHOIS result on t and promotes an unknown tier to
// Untrusted when the domain is younger than defaults.NewDomainAgeDays.
func (t *Trust) applyWHOIS(ageDays int, registrar string) {
	t.AgeDays = &ageDays
	if registrar != "" {
		t.Registrar = &registrar
	}
	if t.ReputationTier == Unknown && ageDays < defaults.NewDomainAgeDays {
		t.ReputationTier = Untrusted
		t.DampeningFactor = dampening[Untrusted]
	}
}

// whoisRetry governs transient-failure retries against public WHOIS
// servers, which rate-limit aggressively and often drop a fraction of
// queries under load. Two attempts keeps worst-case latency well inside
// duration.WHOISTimeout.
var whoisRetry = retry.Config{
	MaxAttempts: 2,
	InitDelay:   150 * time.Millisecond,
	MaxDelay:    500 * time.Millisecond,
	Strategy:    retry.Constant,
	Jitter:      true,
}

// whoisAge mirrors the parent-domain retry for subdomains that the vetting
// checker uses: a WHOIS server often only has a record for the registered
// domain, not an arbitrary subdomain.
func whoisAge(ctx context.Context, domain string) (ageDays int, registrar string, ok bool) {
	var raw string
	err := retry.Do(ctx, whoisRetry, func() error {
		var whoisErr error
		raw, whoisErr = whois.Whois(domain)
		return whoisErr
	})
	if err != nil {
		return 0, "", false
	}
	parsed, err := whoisparser.Parse(raw)
	if err != nil || parsed.Domain == nil {
		parts := strings.Split(domain, ".")
		if len(parts) > 2 {
			return whoisAge(ctx, strings.Join(parts[1:], "."))
		}
		return 0, "", false
	}

	created := parseWhoisTime(parsed.Domain.CreatedDate)
	if created.IsZero() {
		return 0, "", false
	}

	reg := ""
	if parsed.Registrar != nil {
		reg = parsed.Registrar.Name
	}
	return int(time.Since(created).Hours() / 24), reg, true
}

var whoisTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func parseWhoisTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range whoisTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
