// Package cors inspects the CORS response headers already collected by the
// network probe (C3) for permissive configurations that correlate with
// compromised or malicious hosting (wildcard origins with credentials
// enabled, reflected null origin, etc). It does no requests of its own —
// everything here is passive analysis of a response header set.
package cors

import "strings"

// Analysis summarizes the CORS posture inferred from one response's headers.
type Analysis struct {
	Enabled          bool     `json:"enabled"`
	AllowOrigin      string   `json:"allow_origin,omitempty"`
	AllowCredentials bool     `json:"allow_credentials"`
	AllowMethods     string   `json:"allow_methods,omitempty"`
	Issues           []string `json:"issues,omitempty"`
	Permissive       bool     `json:"permissive"`
}

// Headers is the minimal header accessor Analyze needs, satisfied by
// http.Header without importing net/http here.
type Headers interface {
	Get(key string) string
}

// Analyze inspects a response's CORS-related headers and flags
// misconfigurations that are unusual for a benign site.
func Analyze(h Headers) *Analysis {
	a := &Analysis{
		AllowOrigin:      h.Get("Access-Control-Allow-Origin"),
		AllowCredentials: h.Get("Access-Control-Allow-Credentials") == "true",
		AllowMethods:     h.Get("Access-Control-Allow-Methods"),
	}
	a.Enabled = a.AllowOrigin != ""
	if !a.Enabled {
		return a
	}

	if a.AllowOrigin == "*" && a.AllowCredentials {
		a.Issues = append(a.Issues, "wildcard origin with credentials enabled")
	}
	if a.AllowOrigin == "null" {
		a.Issues = append(a.Issues, "null origin is trusted")
	}
	if strings.Contains(strings.ToLower(a.AllowMethods), "*") {
		a.Issues = append(a.Issues, "all HTTP methods allowed")
	}

	a.Permissive = len(a.Issues) > 0
	return a
}
