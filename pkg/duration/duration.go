// Package duration provides canonical time.Duration constants for the URL
// analysis pipeline — the single source of truth for every timeout and
// interval used by more than one package.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.RequestBudget)
//	dnsCtx, cancel := context.WithTimeout(ctx, duration.DNSTimeout)
//
// Do not hardcode time.Duration literals elsewhere; reference a constant
// from this package instead.
package duration

import "time"

// ============================================================================
// PER-REQUEST BUDGETS
// ============================================================================

const (
	// RequestBudget is the overall wall-clock deadline for one scan
	// (spec: request_timeout_ms, default 8s).
	RequestBudget = 8 * time.Second

	// DNSTimeout bounds a single DNS resolution.
	DNSTimeout = 1500 * time.Millisecond

	// TLSTimeout bounds a single TLS handshake.
	TLSTimeout = 3 * time.Second

	// HTTPTimeout bounds the HTTP GET, including redirects.
	HTTPTimeout = 5 * time.Second

	// WHOISTimeout bounds an optional WHOIS lookup; WHOIS servers are
	// notoriously slow and unreliable, so this is generous relative to
	// the other probes but still well inside RequestBudget.
	WHOISTimeout = 2 * time.Second

	// HTTPProbing bounds a single probe HTTP round trip (favicon, DNS,
	// TLS metadata fetches) — shorter than HTTPTimeout since these are
	// best-effort enrichment, not the primary page fetch.
	HTTPProbing = 4 * time.Second

	// HTTPFuzzing bounds the slower multi-request probes (CNAME-chain
	// confirmation, JA3/JARM fingerprinting) that may issue several
	// requests per host.
	HTTPFuzzing = 6 * time.Second

	// HTTPAPI bounds calls to external reputation/OSINT APIs (crt.sh,
	// WHOIS-adjacent lookups).
	HTTPAPI = 5 * time.Second
)

// ============================================================================
// CACHE
// ============================================================================

const (
	// CacheTTL is the default LRU result-cache entry lifetime.
	CacheTTL = 10 * time.Minute
)

// ============================================================================
// NETWORK / TRANSPORT
// ============================================================================

const (
	// DialTimeout bounds TCP connection establishment.
	DialTimeout = 3 * time.Second

	// KeepAlive is the TCP keep-alive probe interval.
	KeepAlive = 30 * time.Second

	// IdleConnTimeout is how long an idle pooled connection is kept.
	IdleConnTimeout = 90 * time.Second

	// VerySlowResponse caps the adaptive rate limiter's backoff delay when
	// a host is repeatedly erroring — beyond this there's no point waiting
	// any longer before the probe gives up on the host instead.
	VerySlowResponse = 5 * time.Second
)

// ============================================================================
// BACKPRESSURE
// ============================================================================

const (
	// PoolWaitMax is the longest a probe will wait for an HTTP pool slot
	// before the probe is skipped and recorded absent (spec §5
	// backpressure: "wait up to their deadline").
	PoolWaitMax = RequestBudget
)
