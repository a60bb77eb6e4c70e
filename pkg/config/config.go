// Package config loads and validates pipeline configuration: per-stage
// timeouts, cache sizing, concurrency caps, and verdict thresholds. A YAML
// file supplies the base configuration; command-line flags override it.
// cmd/scancli reads TargetURL, ListFile, Concurrency, RequestTimeout, the
// output fields and Verbose. The other fields (stage timeouts, MaxRedirects,
// pool sizes, cache settings, thresholds, SkipNetworkProbe and Proxy) are
// parsed and stored, but no pipeline stage reads them.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/qrshield/urlscan/pkg/defaults"
	"github.com/qrshield/urlscan/pkg/duration"
)

// Config holds all tunables for the URL analysis pipeline.
type Config struct {
	// Target settings
	TargetURL string `yaml:"-"`
	ListFile  string `yaml:"-"`

	// Per-request budgets
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DNSTimeout     time.Duration `yaml:"dns_timeout"`
	TLSTimeout     time.Duration `yaml:"tls_timeout"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	MaxRedirects   int           `yaml:"max_redirects"`

	// Concurrency / backpressure
	Concurrency     int `yaml:"concurrency"`
	HTTPPoolPerHost int `yaml:"http_pool_per_host"`
	HTTPPoolGlobal  int `yaml:"http_pool_global"`

	// Cache
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CacheSize    int           `yaml:"cache_size"`

	// Verdict fusion thresholds. pkg/verdict uses the defaults package
	// constants and does not read these fields.
	DangerThreshold     float64 `yaml:"danger_threshold"`
	SuspiciousThreshold float64 `yaml:"suspicious_threshold"`

	// Output
	OutputFile   string `yaml:"-"`
	OutputFormat string `yaml:"output_format"`
	Verbose      bool   `yaml:"-"`

	// Network
	SkipNetworkProbe bool   `yaml:"-"`
	Proxy            string `yaml:"proxy"`
}

// Default returns a Config populated from the canonical constants.
func Default() *Config {
	return &Config{
		RequestTimeout:      duration.RequestBudget,
		DNSTimeout:          duration.DNSTimeout,
		TLSTimeout:          duration.TLSTimeout,
		HTTPTimeout:         duration.HTTPTimeout,
		MaxRedirects:        defaults.MaxRedirects,
		Concurrency:         10,
		HTTPPoolPerHost:     defaults.HTTPPoolPerHost,
		HTTPPoolGlobal:      defaults.HTTPPoolGlobal,
		CacheEnabled:        defaults.CacheEnabled,
		CacheTTL:            duration.CacheTTL,
		CacheSize:           defaults.CacheSize,
		DangerThreshold:     defaults.DangerThreshold,
		SuspiciousThreshold: defaults.SuspiciousThreshold,
		OutputFormat:        "json",
	}
}

// LoadFile reads a YAML configuration file and merges it onto Default().
// A missing file is not an error — callers get defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// ParseFlags parses command-line flags onto a base Config (typically from
// LoadFile) and validates the result.
func ParseFlags(base *Config, args []string) (*Config, error) {
	if base == nil {
		base = Default()
	}
	fs := flag.NewFlagSet("urlscan", flag.ContinueOnError)

	fs.StringVar(&base.TargetURL, "u", base.TargetURL, "Target URL to scan")
	fs.StringVar(&base.ListFile, "l", base.ListFile, "File containing target URLs, one per line")
	fs.IntVar(&base.Concurrency, "concurrency", base.Concurrency, "Concurrent scan workers")
	fs.DurationVar(&base.RequestTimeout, "timeout", base.RequestTimeout, "Per-scan wall-clock budget")
	fs.StringVar(&base.OutputFile, "o", base.OutputFile, "Output file path (empty = stdout)")
	fs.StringVar(&base.OutputFormat, "format", base.OutputFormat, "Output format: json, jsonl")
	fs.BoolVar(&base.Verbose, "verbose", base.Verbose, "Verbose logging")
	fs.BoolVar(&base.SkipNetworkProbe, "offline", base.SkipNetworkProbe, "Set SkipNetworkProbe (not read by the pipeline; the network probe always runs)")
	fs.StringVar(&base.Proxy, "proxy", base.Proxy, "Set Proxy (not read by the pipeline; the network probe dials directly)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := base.Validate(); err != nil {
		return nil, err
	}
	return base, nil
}

// Validate checks that a target (-u or -l) is set and replaces a
// non-positive RequestTimeout, Concurrency or CacheSize (RequestTimeout and
// CacheSize with their defaults, Concurrency with 1). Other fields are not
// checked.
func (c *Config) Validate() error {
	if c.TargetURL == "" && c.ListFile == "" {
		return fmt.Errorf("%w: target required (-u or -l)", ErrMissingRequired)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = duration.RequestBudget
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaults.CacheSize
	}
	return nil
}
