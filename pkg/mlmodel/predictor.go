package mlmodel

import (
	"math"

	"github.com/qrshield/urlscan/pkg/defaults"
	"github.com/qrshield/urlscan/pkg/features"
	"github.com/qrshield/urlscan/pkg/workerpool"
)

// MLDetails is C5's output. MLScore and XGBScore are always equal — the
// field pair exists only so the wire schema stays stable if a second,
// independently-weighted scorer is ever blended in. DampenedScore is left
// zero here; C7 fills it in once the domain-trust dampening factor and
// risk-factor severity boost are known.
type MLDetails struct {
	MLScore       float64        `json:"ml_score"`
	XGBScore      float64        `json:"xgb_score"`
	DampenedScore float64        `json:"dampened_score"`
	Explanation   []Contribution `json:"explanation"`
}

// Scorer is an optional second model scored alongside the primary stump
// ensemble and averaged in before the sigmoid output — the extension point
// for a parallel transformer-style scorer. None are registered by default;
// the primary ensemble alone is the canonical score.
type Scorer func(fv *features.FeatureVector) (score float64, ok bool)

// Option configures a Predictor.
type Option func(*Predictor)

// WithScorer registers an additional scorer whose output is averaged with
// the primary ensemble's margin before the final sigmoid.
func WithScorer(s Scorer) Option {
	return func(p *Predictor) { p.extra = append(p.extra, s) }
}

// WithExplanationTopK overrides how many SHAP contributions Predict
// returns, descending by |shap_value|.
func WithExplanationTopK(k int) Option {
	return func(p *Predictor) { p.topK = k }
}

// Predictor holds the one frozen ensemble plus an optional worker pool for
// fanning SHAP attribution out across stumps. It has no mutable state
// after construction and is safe for concurrent use by many scans at once.
type Predictor struct {
	ensemble ensemble
	pool     *workerpool.Pool
	extra    []Scorer
	topK     int
}

// NewPredictor builds a Predictor. pool may be nil to use workerpool's
// package default.
func NewPredictor(pool *workerpool.Pool, opts ...Option) *Predictor {
	if pool == nil {
		pool = workerpool.Default()
	}
	p := &Predictor{
		ensemble: defaultEnsemble,
		pool:     pool,
		topK:     defaults.ExplanationTopK,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Predict scores fv and returns its SHAP attribution. Deterministic for a
// given feature vector: the ensemble and explanation are both pure
// functions of fv, so the same input always produces the same output.
func (p *Predictor) Predict(fv *features.FeatureVector) *MLDetails {
	margin := p.ensemble.marginFor(fv)
	for _, s := range p.extra {
		if score, ok := s(fv); ok {
			margin = (margin + logit(score)) / 2
		}
	}
	score := sigmoid(margin)

	return &MLDetails{
		MLScore:     score,
		XGBScore:    score,
		Explanation: p.explainParallel(fv),
	}
}

// explainParallel fans each stump's SHAP contribution out across the
// worker pool and aggregates sequentially afterward — the dispatch model
// the ensemble's per-feature attribution calls for once the stump count
// grows beyond what's worth computing on a single goroutine.
func (p *Predictor) explainParallel(fv *features.FeatureVector) []Contribution {
	stumps := p.ensemble.stumps
	partial := make([]*Contribution, len(stumps))

	p.pool.ParallelFor(len(stumps), func(i int) {
		s := stumps[i]
		v, ok := value(fv, s.feature)
		if !ok {
			return
		}
		shap := s.margin(v) - s.baseline()
		direction := "safe"
		if shap > 0 {
			direction = "risk"
		}
		partial[i] = &Contribution{
			Feature:      s.feature,
			ShapValue:    shap,
			FeatureValue: v,
			Direction:    direction,
		}
	})

	totals := make(map[string]*Contribution, len(stumps))
	order := make([]string, 0, len(stumps))
	for _, c := range partial {
		if c == nil {
			continue
		}
		if existing, ok := totals[c.Feature]; ok {
			existing.ShapValue += c.ShapValue
			if existing.ShapValue > 0 {
				existing.Direction = "risk"
			} else {
				existing.Direction = "safe"
			}
			continue
		}
		cp := *c
		totals[c.Feature] = &cp
		order = append(order, c.Feature)
	}

	contributions := make([]Contribution, 0, len(order))
	for _, name := range order {
		contributions = append(contributions, *totals[name])
	}
	sortByAbsShapDesc(contributions)

	if p.topK > 0 && len(contributions) > p.topK {
		contributions = contributions[:p.topK]
	}
	return contributions
}

// logit inverts sigmoid, letting an external scorer's [0,1] probability be
// averaged with the primary ensemble's pre-sigmoid margin.
func logit(p float64) float64 {
	if p <= 0 {
		p = 1e-9
	}
	if p >= 1 {
		p = 1 - 1e-9
	}
	return -math.Log((1 / p) - 1)
}
