// Package orchestrator is the analysis orchestrator (C8): the single
// entry point that normalizes a raw URL, fans the feature extraction,
// network probe, and domain-trust lookup stages out concurrently within
// one request budget, then runs risk-factor synthesis and score fusion
// once a consistent snapshot of their results is available.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/qrshield/urlscan/pkg/defaults"
	"github.com/qrshield/urlscan/pkg/domaintrust"
	"github.com/qrshield/urlscan/pkg/duration"
	"github.com/qrshield/urlscan/pkg/features"
	"github.com/qrshield/urlscan/pkg/hosterrors"
	"github.com/qrshield/urlscan/pkg/mlmodel"
	"github.com/qrshield/urlscan/pkg/netprobe"
	"github.com/qrshield/urlscan/pkg/normalizeurl"
	"github.com/qrshield/urlscan/pkg/ratelimit"
	"github.com/qrshield/urlscan/pkg/riskfactors"
	"github.com/qrshield/urlscan/pkg/scancache"
	"github.com/qrshield/urlscan/pkg/scanerr"
	"github.com/qrshield/urlscan/pkg/scanmetrics"
	"github.com/qrshield/urlscan/pkg/verdict"
)

// Details is the "details" object inside ScanResult's wire schema.
type Details struct {
	ML             *mlmodel.MLDetails       `json:"ml"`
	Domain         *domaintrust.Trust       `json:"domain"`
	Network        *netprobe.Observation    `json:"network"`
	RiskFactors    []riskfactors.RiskFactor `json:"risk_factors"`
	AnalysisTimeMs int64                    `json:"analysis_time_ms"`
}

// ScanResult is the full response C8 produces for one scanned URL.
type ScanResult struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	RiskScore float64 `json:"risk_score"`
	Details   Details `json:"details"`
}

// Orchestrator holds the long-lived, concurrency-safe handles shared
// across every Scan call: the probe (with its rate limiter and
// host-failure cache), the ML predictor, and an optional result cache.
type Orchestrator struct {
	prober    *netprobe.Prober
	predictor *mlmodel.Predictor
	cache     *scancache.Cache
	logger    *slog.Logger
}

// New builds an Orchestrator with default-configured stages.
func New() *Orchestrator {
	return &Orchestrator{
		prober:    netprobe.NewProber(ratelimit.New(ratelimit.DefaultConfig()), hosterrors.NewCache(hosterrors.DefaultMaxErrors, hosterrors.DefaultExpiry)),
		predictor: mlmodel.NewPredictor(nil),
		cache:     scancache.New(defaults.CacheSize, duration.CacheTTL),
		logger:    slog.Default(),
	}
}

// snapshot holds the in-flight results of C2/C5, C3, and C4, guarded by
// one mutex so the timeout path can read a consistent partial view while
// the normal path is still writing to it.
type snapshot struct {
	mu    sync.Mutex
	ml    *mlmodel.MLDetails
	obs   *netprobe.Observation
	trust *domaintrust.Trust
}

func (s *snapshot) setML(v *mlmodel.MLDetails) {
	s.mu.Lock()
	s.ml = v
	s.mu.Unlock()
}

func (s *snapshot) setObs(v *netprobe.Observation) {
	s.mu.Lock()
	s.obs = v
	s.mu.Unlock()
}

func (s *snapshot) setTrust(v *domaintrust.Trust) {
	s.mu.Lock()
	s.trust = v
	s.mu.Unlock()
}

func (s *snapshot) get() (*mlmodel.MLDetails, *netprobe.Observation, *domaintrust.Trust) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ml, s.obs, s.trust
}

// Scan runs the full pipeline for rawURL within the global request
// budget. It never returns a nil ScanResult on a nil error.
func (o *Orchestrator) Scan(ctx context.Context, rawURL string) (*ScanResult, error) {
	start := time.Now()
	logger := o.logger.With("scan_id", uuid.NewString())

	u, err := normalizeurl.Normalize(rawURL)
	if err != nil {
		scanmetrics.ErrorTotal.WithLabelValues(string(scanerr.InvalidInput)).Inc()
		return nil, scanerr.Wrap(scanerr.InvalidInput, "could not normalize URL", err)
	}
	key := u.String()

	if o.cache != nil {
		if cached, ok := o.cache.Get(key); ok {
			scanmetrics.CacheHitTotal.WithLabelValues("hit").Inc()
			return cached.(*ScanResult), nil
		}
		scanmetrics.CacheHitTotal.WithLabelValues("miss").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, duration.RequestBudget)
	defer cancel()

	snap := &snapshot{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fv := features.Extract(u)
		snap.setML(o.predictor.Predict(fv))
		return nil
	})

	g.Go(func() error {
		snap.setObs(o.prober.Probe(gctx, u, netprobe.DefaultBudgets()))
		return nil
	})

	g.Go(func() error {
		trust := domaintrust.Classify(u.Host, u.RegisteredDomain)
		whoisCtx, whoisCancel := context.WithTimeout(gctx, duration.WHOISTimeout)
		trust.EnrichWHOIS(whoisCtx, u.RegisteredDomain)
		whoisCancel()
		snap.setTrust(trust)
		return nil
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		ml, obs, trust := snap.get()
		return o.finish(start, u, ml, obs, trust, key)
	case <-ctx.Done():
		ml, obs, trust := snap.get()
		if ml == nil {
			logger.Warn("scan timed out before ML prediction completed", "url", key)
			result := o.reducedResult(start, u, obs, trust)
			scanmetrics.VerdictTotal.WithLabelValues(result.Status).Inc()
			return result, nil
		}
		return o.finish(start, u, ml, obs, trust, key)
	}
}

func (o *Orchestrator) finish(start time.Time, u *normalizeurl.URL, ml *mlmodel.MLDetails, obs *netprobe.Observation, trust *domaintrust.Trust, key string) (*ScanResult, error) {
	if trust == nil {
		trust = domaintrust.Classify(u.Host, u.RegisteredDomain)
	}
	factors := riskfactors.Detect(u, obs, trust, ml)
	v := verdict.Fuse(ml, trust, factors)

	result := &ScanResult{
		Status:    v.Status,
		Message:   v.Message,
		RiskScore: v.RiskScore,
		Details: Details{
			ML:             ml,
			Domain:         trust,
			Network:        obs,
			RiskFactors:    factors,
			AnalysisTimeMs: time.Since(start).Milliseconds(),
		},
	}

	if o.cache != nil {
		o.cache.Set(key, result)
	}
	scanmetrics.VerdictTotal.WithLabelValues(v.Status).Inc()
	return result, nil
}

// reducedResult builds the degraded verdict emitted when the request
// budget expires before C5 has a score to fuse — risk factors and
// dampening still get applied to whatever observation/trust data arrived
// in time, but the status/message/risk_score come from verdict.Timeout.
func (o *Orchestrator) reducedResult(start time.Time, u *normalizeurl.URL, obs *netprobe.Observation, trust *domaintrust.Trust) *ScanResult {
	v := verdict.Timeout()
	if trust == nil {
		trust = domaintrust.Classify(u.Host, u.RegisteredDomain)
	}
	factors := riskfactors.Detect(u, obs, trust, nil)
	return &ScanResult{
		Status:    v.Status,
		Message:   v.Message,
		RiskScore: v.RiskScore,
		Details: Details{
			ML:             nil,
			Domain:         trust,
			Network:        obs,
			RiskFactors:    factors,
			AnalysisTimeMs: time.Since(start).Milliseconds(),
		},
	}
}
