// Package netprobe performs the live network observation stage: DNS
// resolution, a TLS handshake against the leaf certificate, and a bounded
// HTTP GET that follows redirects hop by hop. Every step is independently
// time-boxed and failure-isolated — a step that times out or errors leaves
// its fields absent on the returned Observation rather than failing the
// whole probe. BlockedAddr (from ssrfguard.go) is applied to
// every hop, not just the initial host, since a redirect is exactly as
// capable of pointing at an internal address as the original URL.
package netprobe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/qrshield/urlscan/pkg/bufpool"
	"github.com/qrshield/urlscan/pkg/cors"
	"github.com/qrshield/urlscan/pkg/defaults"
	"github.com/qrshield/urlscan/pkg/duration"
	"github.com/qrshield/urlscan/pkg/hosterrors"
	"github.com/qrshield/urlscan/pkg/httpclient"
	"github.com/qrshield/urlscan/pkg/normalizeurl"
	"github.com/qrshield/urlscan/pkg/probes"
	"github.com/qrshield/urlscan/pkg/ratelimit"
	"github.com/qrshield/urlscan/pkg/regexcache"
	"github.com/qrshield/urlscan/pkg/subtakeover"
	browsertls "github.com/qrshield/urlscan/pkg/tls"
)

// Observation is C3's output — always produced, partial on any step's
// failure. A nil pointer field means that step did not complete; it is
// never a synonym for false/zero.
type Observation struct {
	DNSResolved *bool `json:"dns_resolved"`
	// DNSTTL is always nil: net.Resolver doesn't surface record TTLs
	// through LookupIPAddr.
	DNSTTL   *int     `json:"dns_ttl"`
	DNSFlags []string `json:"dns_flags"`

	SSLValid           *bool   `json:"ssl_valid"`
	SSLIssuer          *string `json:"ssl_issuer"`
	SSLDaysUntilExpiry *int    `json:"ssl_days_until_expiry"`
	SSLIsNewCert       *bool   `json:"ssl_is_new_cert"`

	HTTPStatus    *int     `json:"http_status"`
	RedirectCount int      `json:"redirect_count"`
	FinalURL      *string  `json:"final_url"`
	ContentFlags  []string `json:"content_flags"`
}

// Budgets bounds each step of the probe.
type Budgets struct {
	DNSTimeout   time.Duration
	TLSTimeout   time.Duration
	HTTPTimeout  time.Duration
	MaxRedirects int
}

// DefaultBudgets returns the canonical per-step budgets.
func DefaultBudgets() Budgets {
	return Budgets{
		DNSTimeout:   duration.DNSTimeout,
		TLSTimeout:   duration.TLSTimeout,
		HTTPTimeout:  duration.HTTPTimeout,
		MaxRedirects: defaults.MaxRedirects,
	}
}

// Prober runs the DNS/TLS/HTTP/content-inspection steps, sharing a rate
// limiter and host-failure cache across requests so a burst of scans
// against a dead host doesn't each burn their own timeout budget.
type Prober struct {
	client     *http.Client
	limiter    *ratelimit.Limiter
	global     *rate.Limiter
	hostErrors *hosterrors.Cache
	takeover   *subtakeover.Checker
}

// NewProber builds a Prober. Either argument may be nil to use a
// freshly-constructed default.
func NewProber(limiter *ratelimit.Limiter, hostErrors *hosterrors.Cache) *Prober {
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.DefaultConfig())
	}
	if hostErrors == nil {
		hostErrors = hosterrors.NewCache(hosterrors.DefaultMaxErrors, hosterrors.DefaultExpiry)
	}
	// httpclient.New never follows redirects, so probeHTTP walks them hop by hop.
	client := httpclient.New(httpclient.Config{})
	// A rotating uTLS fingerprint transport, not the default Go TLS
	// stack: a flat JA3 and a bare "Go-http-client" UA is itself a
	// signal to bot-detection in front of the scanned site, which
	// can suppress or alter the very content C3 is trying to
	// observe. A handshake failure against a profile just surfaces
	// as a probe error like any other network failure.
	client.Transport = browsertls.NewTransport(browsertls.DefaultConfig())
	return &Prober{
		client:     client,
		limiter:    limiter,
		global:     rate.NewLimiter(rate.Limit(defaults.GlobalRequestsPerSecond), defaults.GlobalRequestBurst),
		hostErrors: hostErrors,
		takeover:   subtakeover.NewChecker(nil),
	}
}

// Probe runs every step for u and returns a best-effort Observation. It
// never returns an error: per-step failures are recorded as absent fields
// or flags, per the probe's failure-isolation contract.
func (p *Prober) Probe(ctx context.Context, u *normalizeurl.URL, budgets Budgets) *Observation {
	obs := &Observation{RedirectCount: 0}

	if p.hostErrors.Check(u.Host) {
		obs.DNSFlags = append(obs.DNSFlags, "host_skipped_known_bad")
		return obs
	}

	ips, ok := p.probeDNS(ctx, u.Host, budgets.DNSTimeout, obs)
	if !ok {
		p.hostErrors.MarkError(u.Host)
		return obs
	}

	for _, ip := range ips {
		if blocked, matched := ssrfBlocked(ip); blocked {
			obs.DNSFlags = append(obs.DNSFlags, "private_ip")
			_ = matched
			return obs
		}
	}

	if u.Scheme == "https" {
		p.probeTLS(ctx, u.Host, u.Port, budgets.TLSTimeout, obs)
	}

	p.probeHTTP(ctx, u, budgets, obs)
	return obs
}

func (p *Prober) probeDNS(ctx context.Context, host string, timeout time.Duration, obs *Observation) ([]net.IP, bool) {
	dnsCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if net.ParseIP(host) != nil {
		resolved := true
		obs.DNSResolved = &resolved
		return []net.IP{net.ParseIP(host)}, true
	}

	result := probes.NewDNSProber().Resolve(dnsCtx, host)
	if len(result.IPs) == 0 {
		resolved := false
		obs.DNSResolved = &resolved
		obs.DNSFlags = append(obs.DNSFlags, "nxdomain")
		return nil, false
	}

	resolved := true
	obs.DNSResolved = &resolved
	if len(result.IPv4) > 1 {
		obs.DNSFlags = append(obs.DNSFlags, "multiple_a")
	}

	if tk, err := p.takeover.Check(dnsCtx, host); err == nil && tk.Takeover {
		obs.DNSFlags = append(obs.DNSFlags, "dangling_cname_takeover")
	}

	ips := make([]net.IP, 0, len(result.IPs))
	for _, s := range result.IPs {
		if ip := net.ParseIP(s); ip != nil {
			ips = append(ips, ip)
		}
	}
	return ips, true
}

func (p *Prober) probeTLS(ctx context.Context, host string, port int, timeout time.Duration, obs *Observation) {
	tlsCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prober := probes.NewTLSProber()
	info, err := prober.Probe(tlsCtx, host, port)
	if err != nil {
		return
	}

	issuer := info.IssuerDN
	obs.SSLIssuer = &issuer

	daysLeft := int(time.Until(info.NotAfter).Hours() / 24)
	obs.SSLDaysUntilExpiry = &daysLeft

	isNew := time.Since(info.NotBefore) <= time.Duration(defaults.CertNewCertDays)*24*time.Hour
	obs.SSLIsNewCert = &isNew

	valid := !info.Expired && !info.Mismatched && !info.SelfSigned && verifiesAgainstSystemRoots(host, port, timeout)
	obs.SSLValid = &valid
}

// verifiesAgainstSystemRoots performs a second, strictly-verified TLS dial
// (hostname + chain checked against the system trust store) since the
// probe connection above intentionally skips verification to still collect
// certificate details from untrusted hosts.
func verifiesAgainstSystemRoots(host string, port int, timeout time.Duration) bool {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	defer conn.Close()

	tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
	defer tlsConn.Close()
	if err := tlsConn.Handshake(); err != nil {
		return false
	}

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return false
	}
	opts := x509.VerifyOptions{DNSName: host}
	if len(state.PeerCertificates) > 1 {
		opts.Intermediates = x509.NewCertPool()
		for _, cert := range state.PeerCertificates[1:] {
			opts.Intermediates.AddCert(cert)
		}
	}
	_, err = state.PeerCertificates[0].Verify(opts)
	return err == nil
}

func (p *Prober) probeHTTP(ctx context.Context, u *normalizeurl.URL, budgets Budgets, obs *Observation) {
	httpCtx, cancel := context.WithTimeout(ctx, budgets.HTTPTimeout)
	defer cancel()

	if err := p.limiter.WaitForHost(httpCtx, u.Host); err != nil {
		return
	}

	visited := map[string]bool{}
	current := u.String()
	var finalResp *http.Response

	for hop := 0; hop <= budgets.MaxRedirects; hop++ {
		if visited[current] {
			break
		}
		visited[current] = true

		if err := p.global.Wait(httpCtx); err != nil {
			return
		}

		req, err := http.NewRequestWithContext(httpCtx, http.MethodGet, current, nil)
		if err != nil {
			return
		}

		if nu, err := normalizeurl.Normalize(current); err == nil {
			if ips, err := net.LookupIP(nu.Host); err == nil {
				for _, ip := range ips {
					if blocked, _ := ssrfBlocked(ip); blocked {
						return
					}
				}
			}
		}

		resp, err := p.client.Do(req)
		if err != nil {
			p.hostErrors.MarkError(u.Host)
			return
		}

		if isRedirect(resp.StatusCode) {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			next, ok := resolveRedirect(current, loc)
			if !ok {
				return
			}
			current = next
			obs.RedirectCount++
			continue
		}

		finalResp = resp
		break
	}

	if finalResp == nil {
		return
	}
	defer finalResp.Body.Close()

	status := finalResp.StatusCode
	obs.HTTPStatus = &status
	final := current
	obs.FinalURL = &final

	corsAnalysis := cors.Analyze(finalResp.Header)
	if corsAnalysis.Permissive {
		obs.ContentFlags = append(obs.ContentFlags, "permissive_cors")
	}

	headers := probes.NewHeaderExtractor().Extract(finalResp)
	if headers.Grade == "D" || headers.Grade == "F" {
		obs.ContentFlags = append(obs.ContentFlags, "weak_security_headers")
	}

	pooled := bufpool.GetResponse()
	defer bufpool.PutResponse(pooled)
	if _, err := pooled.ReadFromLimited(finalResp, defaults.MaxBodyInspectBytes); err == nil {
		obs.ContentFlags = append(obs.ContentFlags, inspectContent(pooled.Bytes(), final)...)
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// resolveRedirect resolves loc against current and rejects anything that
// would leave the scheme to a non-web scheme.
func resolveRedirect(current, loc string) (string, bool) {
	if loc == "" {
		return "", false
	}
	base, err := normalizeurl.Normalize(current)
	if err != nil {
		return "", false
	}
	if strings.Contains(loc, "://") {
		target, err := normalizeurl.Normalize(loc)
		if err != nil {
			return "", false
		}
		return target.String(), true
	}
	// Relative redirect — stays on the same scheme/host.
	if strings.HasPrefix(loc, "/") {
		return base.Scheme + "://" + base.Host + loc, true
	}
	return "", false
}

var (
	metaRefreshPattern = `(?i)<meta[^>]+http-equiv=["']?refresh["']?[^>]*>`
	jsRedirectPattern  = `(?i)window\.location(\.href)?\s*=`
	formActionPattern  = `(?i)<form[^>]*action=["']([^"']*)["'][^>]*>`
	passwordPattern    = `(?i)<input[^>]+type=["']?password["']?`
)

func inspectContent(body []byte, pageURL string) []string {
	var flags []string
	if re, err := regexcache.Get(metaRefreshPattern); err == nil && re.Match(body) {
		flags = append(flags, "meta_refresh")
	}
	if re, err := regexcache.Get(jsRedirectPattern); err == nil && re.Match(body) {
		flags = append(flags, "js_redirect")
	}
	if loginOnNonDomain(body, pageURL) {
		flags = append(flags, "login_on_nondomain")
	}
	return flags
}

func loginOnNonDomain(body []byte, pageURL string) bool {
	pwRe, err := regexcache.Get(passwordPattern)
	if err != nil || !pwRe.Match(body) {
		return false
	}
	formRe, err := regexcache.Get(formActionPattern)
	if err != nil {
		return false
	}
	page, err := normalizeurl.Normalize(pageURL)
	if err != nil {
		return false
	}
	for _, m := range formRe.FindAllSubmatch(body, -1) {
		if len(m) < 2 {
			continue
		}
		action := string(m[1])
		if action == "" || strings.HasPrefix(action, "/") || strings.HasPrefix(action, "#") {
			continue
		}
		if target, err := normalizeurl.Normalize(action); err == nil {
			if target.RegisteredDomain != page.RegisteredDomain {
				return true
			}
		}
	}
	return false
}

// ssrfBlocked re-exports BlockedAddr so this file doesn't need to import
// the guard file's identifiers directly in more than one place.
func ssrfBlocked(ip net.IP) (bool, string) {
	return BlockedAddr(ip)
}
