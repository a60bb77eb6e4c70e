// Package redirect looks for open-redirect-style parameters embedded in a
// URL itself — a query parameter such as ?redirect=https://evil.example
// that, if followed, sends the visitor somewhere other than the domain
// they think they're trusting. This is a common phishing technique: a
// legitimate-looking domain is used as a launderer for the real
// destination, so detecting the pattern is a feature for the extractor
// (C2), independent of what the network probe (C3) observes when it
// actually follows the URL.
package redirect

import (
	"net/url"
	"strings"
)

// CommonRedirectParams lists query parameter names conventionally used to
// carry a post-login or post-action redirect target.
func CommonRedirectParams() []string {
	return []string{
		"url", "redirect", "redirect_url", "redirect_uri",
		"return", "return_url", "return_to", "returnUrl",
		"next", "next_url", "nextUrl", "next_page",
		"goto", "go", "dest", "destination",
		"target", "to", "link", "href",
		"forward", "forward_url", "continue",
		"out", "exit", "exit_url",
		"callback", "callback_url", "callbackUrl",
		"ref", "redir", "rurl", "u", "r", "l",
	}
}

// DetectRedirectParams returns the names of any conventional redirect
// parameters present in targetURL's query string.
func DetectRedirectParams(targetURL string) []string {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil
	}

	var detected []string
	q := parsed.Query()
	for _, param := range CommonRedirectParams() {
		if q.Get(param) != "" {
			detected = append(detected, param)
		}
	}
	return detected
}

// ExternalRedirectTargets returns the values of any detected redirect
// parameters whose value is itself an absolute URL pointing at a host
// different from targetURL's own host — the open-redirect-abuse pattern
// phishing kits use to launder a malicious destination behind a
// trusted-looking domain.
func ExternalRedirectTargets(targetURL string) []string {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil
	}
	ownHost := strings.ToLower(parsed.Hostname())

	var externals []string
	q := parsed.Query()
	for _, param := range CommonRedirectParams() {
		val := q.Get(param)
		if val == "" {
			continue
		}
		target, err := url.Parse(val)
		if err != nil || target.Host == "" {
			continue
		}
		if !strings.EqualFold(target.Hostname(), ownHost) {
			externals = append(externals, val)
		}
	}
	return externals
}
