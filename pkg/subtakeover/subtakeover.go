// Package subtakeover detects dangling CNAME records that point at an
// unclaimed cloud resource (S3, GitHub Pages, Heroku, Azure, ...). A URL
// whose host resolves through such a chain is a takeover risk in its own
// right, and a domain that has already been taken over is a common vector
// for hosting convincing phishing pages on an otherwise-reputable-looking
// subdomain — so this feeds a risk factor into the network probe (C3)
// rather than standing alone as an attack tool.
package subtakeover

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/qrshield/urlscan/pkg/defaults"
	"github.com/qrshield/urlscan/pkg/duration"
	"github.com/qrshield/urlscan/pkg/httpclient"
	"github.com/qrshield/urlscan/pkg/iohelper"
)

// Provider is a cloud service whose dangling CNAME is exploitable by an
// attacker able to register the underlying resource.
type Provider string

const (
	ProviderS3         Provider = "aws_s3"
	ProviderGitHubPages Provider = "github_pages"
	ProviderHeroku     Provider = "heroku"
	ProviderAzure      Provider = "azure"
	ProviderShopify    Provider = "shopify"
	ProviderFastly     Provider = "fastly"
	ProviderPantheon   Provider = "pantheon"
	ProviderNetlify    Provider = "netlify"
	ProviderOther      Provider = "other_cloud_service"
)

// fingerprint matches a CNAME suffix and an unclaimed-resource response
// pattern to a specific cloud provider.
type fingerprint struct {
	provider Provider
	cnames   []string
	pattern  *regexp.Regexp
}

func fingerprints() []fingerprint {
	return []fingerprint{
		{ProviderS3, []string{".s3.amazonaws.com", ".s3-website", ".s3."}, regexp.MustCompile(`(?i)NoSuchBucket|The specified bucket does not exist`)},
		{ProviderGitHubPages, []string{".github.io", ".githubusercontent.com"}, regexp.MustCompile(`(?i)There isn't a GitHub Pages site here`)},
		{ProviderHeroku, []string{".herokuapp.com", ".herokussl.com", ".herokudns.com"}, regexp.MustCompile(`(?i)No such app`)},
		{ProviderAzure, []string{".azurewebsites.net", ".cloudapp.azure.com", ".blob.core.windows.net", ".azurefd.net"}, regexp.MustCompile(`(?i)Azure Web App - Error|BlobNotFound`)},
		{ProviderShopify, []string{".myshopify.com"}, regexp.MustCompile(`(?i)Sorry, this shop is currently unavailable`)},
		{ProviderFastly, []string{".fastly.net", ".fastlylb.net"}, regexp.MustCompile(`(?i)Fastly error: unknown domain`)},
		{ProviderPantheon, []string{".pantheonsite.io", ".pantheon.io"}, regexp.MustCompile(`(?i)The gods are wise|404: Unknown site`)},
		{ProviderNetlify, []string{".netlify.app", ".netlify.com"}, regexp.MustCompile(`(?i)Not Found.*Netlify`)},
	}
}

// Result describes a host's CNAME chain and whether it resolves to a
// provider known to serve a claimable "not found" page.
type Result struct {
	Host         string        `json:"host"`
	CNAMEChain   []string      `json:"cname_chain,omitempty"`
	DanglingCNAME bool         `json:"dangling_cname"`
	Takeover     bool          `json:"takeover"`
	Provider     Provider      `json:"provider,omitempty"`
	Evidence     string        `json:"evidence,omitempty"`
	CheckedAt    time.Time     `json:"checked_at"`
	Duration     time.Duration `json:"duration"`
}

// Checker resolves CNAME chains and, for hosts pointing at a recognized
// cloud provider, fetches the page to confirm it is still unclaimed.
type Checker struct {
	client *http.Client
}

// NewChecker builds a Checker. client is optional; nil builds a new client
// with httpclient.New and the HTTP timeout from pkg/duration.
func NewChecker(client *http.Client) *Checker {
	if client == nil {
		client = httpclient.New(httpclient.WithTimeout(duration.HTTPTimeout))
	}
	return &Checker{client: client}
}

// Check resolves host's CNAME chain and checks it against known
// subdomain-takeover fingerprints.
func (c *Checker) Check(ctx context.Context, host string) (*Result, error) {
	start := time.Now()
	res := &Result{Host: host, CheckedAt: start}

	chain, err := resolveCNAMEChain(host)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such host") {
			res.DanglingCNAME = true
			res.Evidence = fmt.Sprintf("DNS resolution failed: %v", err)
		}
		res.Duration = time.Since(start)
		return res, nil
	}
	res.CNAMEChain = chain

	for _, cname := range chain {
		for _, fp := range fingerprints() {
			if !matchesCNAME(cname, fp.cnames) {
				continue
			}
			if confirmUnclaimed(ctx, c.client, host, fp) {
				res.Takeover = true
				res.Provider = fp.provider
				res.Evidence = fmt.Sprintf("%s points to unclaimed %s resource", cname, fp.provider)
			}
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

func resolveCNAMEChain(domain string) ([]string, error) {
	var chain []string
	current := domain
	seen := make(map[string]bool)

	for i := 0; i < 10; i++ {
		if seen[current] {
			break
		}
		seen[current] = true

		cname, err := net.LookupCNAME(current)
		if err != nil {
			if len(chain) == 0 {
				return nil, err
			}
			break
		}
		cname = strings.TrimSuffix(cname, ".")
		if cname == current {
			break
		}
		chain = append(chain, cname)
		current = cname
	}
	return chain, nil
}

func matchesCNAME(cname string, suffixes []string) bool {
	lower := strings.ToLower(cname)
	for _, s := range suffixes {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func confirmUnclaimed(ctx context.Context, client *http.Client, host string, fp fingerprint) bool {
	for _, scheme := range []string{"https", "http"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s://%s", scheme, host), nil)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", defaults.UserAgent)

		resp, err := client.Do(req)
		if err != nil {
			continue
		}
		body, _ := iohelper.ReadBody(resp.Body, iohelper.MediumMaxBodySize)
		iohelper.DrainAndClose(resp.Body)

		if fp.pattern.Match(body) {
			return true
		}
	}
	return false
}

// IsKnownVulnerableService reports whether cname matches a fingerprinted
// takeover-prone provider, without making any network request.
func IsKnownVulnerableService(cname string) (bool, Provider) {
	lower := strings.ToLower(cname)
	for _, fp := range fingerprints() {
		for _, suffix := range fp.cnames {
			if strings.Contains(lower, strings.ToLower(suffix)) {
				return true, fp.provider
			}
		}
	}
	return false, ""
}
