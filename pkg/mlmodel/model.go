// Package mlmodel is the ML predictor (C5): a frozen gradient-boosted stump
// ensemble scores a feature vector, and a closed-form SHAP attribution
// explains which features pushed the score up or down. The ensemble is
// built once at init time and is read-only afterward, so a single Predictor
// is safe to share across concurrent scans without locking.
package mlmodel

import (
	"math"

	"github.com/qrshield/urlscan/pkg/features"
)

// stump is a depth-1 decision tree: a single feature/threshold split. The
// ensemble is a sum of weighted stumps, which is exactly what a
// shallow-depth gradient boosting round converges to for a feature this
// discriminative — and it keeps per-feature SHAP attribution exact and
// cheap instead of needing the general recursive TreeSHAP walk.
type stump struct {
	feature    string
	threshold  float64
	leftValue  float64 // contribution when feature < threshold
	rightValue float64 // contribution when feature >= threshold
	weight     float64
	prior      float64 // P(feature >= threshold) over the training background
}

// margin returns this stump's weighted contribution to the pre-sigmoid
// margin for value v.
func (s stump) margin(v float64) float64 {
	if v >= s.threshold {
		return s.weight * s.rightValue
	}
	return s.weight * s.leftValue
}

// baseline returns this stump's expected contribution over the background
// distribution — the SHAP reference point margin(v) is compared against.
func (s stump) baseline() float64 {
	return s.weight * (s.prior*s.rightValue + (1-s.prior)*s.leftValue)
}

// ensemble is the frozen stump set plus a bias term. These weights are
// calibration constants, not something a request ever mutates.
type ensemble struct {
	bias   float64
	stumps []stump
}

// defaultEnsemble encodes the phishing heuristics the classifier was
// calibrated against: IP-literal hosts, high-abuse TLDs, punycode/homoglyph
// hosts, excess subdomains/entropy, and redirect-laundering params all push
// the margin up; a long, low-entropy, plain-ASCII host on a common TLD
// pulls it down.
var defaultEnsemble = ensemble{
	bias: -1.6,
	stumps: []stump{
		{feature: "is_ip_literal", threshold: 0.5, leftValue: -0.1, rightValue: 2.2, weight: 1.0, prior: 0.03},
		{feature: "is_punycode", threshold: 0.5, leftValue: -0.05, rightValue: 1.6, weight: 1.0, prior: 0.02},
		{feature: "is_homoglyph_candidate", threshold: 0.5, leftValue: -0.05, rightValue: 1.8, weight: 1.0, prior: 0.01},
		{feature: "tld_is_high_abuse", threshold: 0.5, leftValue: -0.1, rightValue: 1.3, weight: 1.0, prior: 0.06},
		{feature: "has_external_redirect_target", threshold: 0.5, leftValue: -0.05, rightValue: 1.4, weight: 1.0, prior: 0.04},
		{feature: "has_open_redirect_param", threshold: 0.5, leftValue: -0.02, rightValue: 0.6, weight: 1.0, prior: 0.08},
		{feature: "subdomain_count", threshold: 2.5, leftValue: -0.05, rightValue: 1.1, weight: 1.0, prior: 0.07},
		{feature: "host_entropy", threshold: 3.6, leftValue: -0.2, rightValue: 0.9, weight: 1.0, prior: 0.25},
		{feature: "url_length", threshold: 75, leftValue: -0.15, rightValue: 0.7, weight: 1.0, prior: 0.2},
		{feature: "percent_encoded_count", threshold: 2.5, leftValue: -0.05, rightValue: 0.8, weight: 1.0, prior: 0.05},
		{feature: "double_percent_encoded_count", threshold: 0.5, leftValue: -0.02, rightValue: 1.2, weight: 1.0, prior: 0.01},
		{feature: "base64_like_segment_count", threshold: 0.5, leftValue: -0.05, rightValue: 0.7, weight: 1.0, prior: 0.04},
		{feature: "token_login_in_path", threshold: 0.5, leftValue: -0.05, rightValue: 0.5, weight: 1.0, prior: 0.1},
		{feature: "token_secure_in_host", threshold: 0.5, leftValue: -0.02, rightValue: 0.6, weight: 1.0, prior: 0.03},
		{feature: "token_verify_in_path", threshold: 0.5, leftValue: -0.02, rightValue: 0.5, weight: 1.0, prior: 0.03},
		{feature: "nonstandard_port", threshold: 0.5, leftValue: -0.02, rightValue: 0.4, weight: 1.0, prior: 0.02},
		{feature: "at_count", threshold: 0.5, leftValue: -0.02, rightValue: 1.0, weight: 1.0, prior: 0.01},
		{feature: "consecutive_hyphen_run", threshold: 1.5, leftValue: -0.05, rightValue: 0.5, weight: 1.0, prior: 0.05},
		{feature: "tld_numeric", threshold: 0.5, leftValue: -0.02, rightValue: 0.9, weight: 1.0, prior: 0.01},
		{feature: "digit_ratio", threshold: 0.3, leftValue: -0.1, rightValue: 0.6, weight: 1.0, prior: 0.1},
	},
}

// marginFor returns the pre-sigmoid score for fv: bias plus every stump's
// contribution for its one feature.
func (e ensemble) marginFor(fv *features.FeatureVector) float64 {
	m := e.bias
	for _, s := range e.stumps {
		v, ok := value(fv, s.feature)
		if !ok {
			continue
		}
		m += s.margin(v)
	}
	return m
}

func value(fv *features.FeatureVector, name string) (float64, bool) {
	for i, n := range fv.Names {
		if n == name {
			return fv.Values[i], true
		}
	}
	return 0, false
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
