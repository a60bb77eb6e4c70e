// Package normalizeurl parses and canonicalizes a raw URL string into the
// immutable shape every later pipeline stage consumes: lowercase ASCII
// host, decoded IDNA form tracked separately, default ports stripped, and
// the registered domain (eTLD+1) resolved against the public suffix list.
package normalizeurl

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// URL is the canonical, immutable form of a scanned URL. Every field is
// fixed at construction time by Normalize; nothing downstream mutates it.
type URL struct {
	Scheme           string `json:"scheme"`
	Host             string `json:"host"`
	Port             int    `json:"port"`
	Path             string `json:"path"`
	Query            string `json:"query,omitempty"`
	Fragment         string `json:"fragment,omitempty"`
	RegisteredDomain string `json:"registered_domain"`
	IsIPLiteral      bool   `json:"is_ip_literal"`
	IsPunycode       bool   `json:"is_punycode"`

	// UnicodeHost is the host in Unicode form (punycode labels decoded), kept for
	// homoglyph/mixed-script feature extraction in pkg/features — Host is
	// always the ASCII/punycode form actually dialed.
	UnicodeHost string `json:"unicode_host,omitempty"`
}

// String renders the canonical form the network probe dials — never the
// original raw input, and never including the fragment (spec: "the
// fragment is preserved but never sent to the network").
func (u *URL) String() string {
	host := u.Host
	if (u.Scheme == "http" && u.Port != 80) || (u.Scheme == "https" && u.Port != 443) {
		host = net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
	}
	s := u.Scheme + "://" + host + u.Path
	if u.Query != "" {
		s += "?" + u.Query
	}
	return s
}

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// ErrInvalidURL is returned when the input cannot be parsed as a URL at all.
var ErrInvalidURL = fmt.Errorf("normalizeurl: invalid URL")

// ErrUnsupportedScheme is returned when the parsed scheme is neither http
// nor https.
var ErrUnsupportedScheme = fmt.Errorf("normalizeurl: unsupported scheme")

// Normalize parses raw into a canonical URL, defaulting a missing scheme to
// https, rejecting anything other than http/https, lowercasing the host,
// IDNA-encoding non-ASCII hosts, and resolving the registered domain via
// the public suffix list.
func Normalize(raw string) (*URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = schemeHTTPS + "://" + raw
	}

	parsed, err := parseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(parsed.scheme)
	if scheme != schemeHTTP && scheme != schemeHTTPS {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}

	hostname := strings.ToLower(parsed.hostname)
	if hostname == "" {
		return nil, fmt.Errorf("%w: empty host", ErrInvalidURL)
	}
	if strings.ContainsAny(hostname, " \t\r\n") {
		return nil, fmt.Errorf("%w: host contains whitespace", ErrInvalidURL)
	}

	u := &URL{
		Scheme:   scheme,
		Path:     defaultPath(parsed.path),
		Query:    parsed.query,
		Fragment: parsed.fragment,
	}

	if ip := net.ParseIP(hostname); ip != nil {
		u.IsIPLiteral = true
		u.Host = hostname
		u.UnicodeHost = hostname
	} else {
		ascii, err := idna.Lookup.ToASCII(hostname)
		if err != nil {
			// Fall back to the raw lowercase host rather than failing the
			// whole scan over a single malformed label.
			ascii = hostname
		}
		u.Host = ascii
		u.UnicodeHost = hostname
		u.IsPunycode = strings.Contains(ascii, "xn--")
		if u.IsPunycode {
			if uni, err := idna.ToUnicode(ascii); err == nil {
				u.UnicodeHost = uni
			}
		}
	}

	u.Port = defaultPort(scheme, parsed.port)

	u.RegisteredDomain = registeredDomain(u.Host)

	return u, nil
}

// registeredDomain resolves host's eTLD+1 via the public suffix list,
// falling back to host itself when no match is found (e.g. IP literals,
// single-label hosts, or hosts entirely made of unrecognized suffix).
func registeredDomain(host string) string {
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func defaultPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

func defaultPort(scheme, portStr string) int {
	if portStr == "" {
		if scheme == schemeHTTPS {
			return 443
		}
		return 80
	}
	if p, err := strconv.Atoi(portStr); err == nil {
		return p
	}
	if scheme == schemeHTTPS {
		return 443
	}
	return 80
}

// HasNonstandardPort reports whether u's port is neither the scheme's
// default (80/443) nor absent.
func (u *URL) HasNonstandardPort() bool {
	if u.Scheme == schemeHTTP {
		return u.Port != 80
	}
	return u.Port != 443
}
