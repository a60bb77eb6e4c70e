package httpclient

import (
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/qrshield/urlscan/pkg/iohelper"
)

// defaultUserAgents are realistic browser User-Agent strings used by
// RandomUserAgent to rotate per request.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.230 Mobile Safari/537.36",
}

// RandomUserAgent returns a randomly selected realistic browser User-Agent string.
func RandomUserAgent() string {
	return defaultUserAgents[rand.Intn(len(defaultUserAgents))]
}

// containsPort reports whether addr already has a port component.
// IPv6 bracket notation ("[::1]:53") is handled specially: the port
// indicator is "]:", not just ":", since bare IPv6 addresses contain colons.
func containsPort(addr string) bool {
	if addr == "" {
		return false
	}
	if strings.HasPrefix(addr, "[") {
		return strings.Contains(addr, "]:")
	}
	return strings.Count(addr, ":") == 1
}

// middlewareTransport wraps a base RoundTripper to add request-level
// middleware: user-agent rotation, auth headers, and retry logic.
//
// Features:
//   - Fixed or random User-Agent header per request
//   - Auth headers on initial request (stripped on cross-origin redirects)
//   - Retry on transport errors and HTTP 429/503 responses
type middlewareTransport struct {
	base        http.RoundTripper
	userAgent   string
	randomUA    bool
	authHeaders http.Header
	retryCount  int
	retryDelay  time.Duration
}

// retryableStatusCodes are HTTP status codes that trigger automatic retry.
// 429 = Too Many Requests (rate limiting), 503 = Service Unavailable (WAF DDoS protection).
var retryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusServiceUnavailable: true,
}

// RoundTrip implements http.RoundTripper with middleware.
func (m *middlewareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid mutating the caller's request.
	r := req.Clone(req.Context())

	// Set User-Agent.
	if m.randomUA {
		r.Header.Set("User-Agent", RandomUserAgent())
	} else if m.userAgent != "" {
		r.Header.Set("User-Agent", m.userAgent)
	}

	// Set auth headers (only on the initial request host).
	for key, vals := range m.authHeaders {
		for _, v := range vals {
			r.Header.Add(key, v)
		}
	}

	// Execute with retry logic.
	attempts := m.retryCount + 1
	if attempts < 1 {
		attempts = 1
	}

	var resp *http.Response
	var err error

	for i := 0; i < attempts; i++ {
		if i > 0 {
			if m.retryDelay > 0 {
				time.Sleep(m.retryDelay)
			}
			// Reset body for retry if possible.
			if r.GetBody != nil {
				r.Body, _ = r.GetBody()
			}
		}

		resp, err = m.base.RoundTrip(r)
		if err != nil {
			continue // Transport error — retry.
		}

		// Check for retryable HTTP status codes.
		if retryableStatusCodes[resp.StatusCode] && i < attempts-1 {
			// Drain and close the body before retry.
			iohelper.DrainAndClose(resp.Body)
			continue
		}

		return resp, nil
	}

	return resp, err
}

// needsMiddleware reports whether the config requires the middleware transport.
func needsMiddleware(cfg Config) bool {
	return cfg.UserAgent != "" ||
		cfg.RandomUserAgent ||
		len(cfg.AuthHeaders) > 0 ||
		cfg.RetryCount > 0
}

// redirectPolicyWithAuthStrip returns a CheckRedirect function that strips
// auth headers on cross-origin redirects to prevent credential leakage.
func redirectPolicyWithAuthStrip(authHeaders http.Header) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) == 0 {
			return http.ErrUseLastResponse
		}

		// Security scanners don't follow redirects by default.
		// If the first request's host differs from the redirect target,
		// strip auth headers to prevent credential leakage.
		originalHost := via[0].URL.Host
		if req.URL.Host != originalHost {
			for key := range authHeaders {
				req.Header.Del(key)
			}
		}

		return http.ErrUseLastResponse
	}
}
