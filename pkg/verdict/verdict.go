// Package verdict is the final score-fusion stage (C7): it folds the
// domain-trust dampening factor and risk-factor severities into the ML
// score, then derives a status and human-readable message from fixed
// thresholds. Every computation here is pure arithmetic over its inputs —
// no I/O, no randomness, so the same (ml, trust, factors) triple always
// produces the same Verdict.
package verdict

import (
	"github.com/qrshield/urlscan/pkg/defaults"
	"github.com/qrshield/urlscan/pkg/domaintrust"
	"github.com/qrshield/urlscan/pkg/finding"
	"github.com/qrshield/urlscan/pkg/mlmodel"
	"github.com/qrshield/urlscan/pkg/riskfactors"
)

// Status values, in ascending order of concern.
const (
	StatusSafe       = "safe"
	StatusSuspicious = "suspicious"
	StatusDanger     = "danger"
)

// Verdict is C7's output — the fields ScanResult surfaces at its top
// level.
type Verdict struct {
	Status    string  `json:"status"`
	Message   string  `json:"message"`
	RiskScore float64 `json:"risk_score"`
}

// Fuse combines ml, trust, and factors into a Verdict. It also fills in
// ml.DampenedScore, since the dampening factor and severity boost aren't
// known until C6's factors are in hand — C5 can't compute this field
// itself.
func Fuse(ml *mlmodel.MLDetails, trust *domaintrust.Trust, factors []riskfactors.RiskFactor) *Verdict {
	boost := severityBoost(factors)
	dampened := ml.XGBScore*trust.DampeningFactor + boost
	if dampened > 1.0 {
		dampened = 1.0
	}
	ml.DampenedScore = dampened

	status := deriveStatus(dampened, trust.ReputationTier, factors)
	return &Verdict{
		Status:    status,
		Message:   deriveMessage(status, factors),
		RiskScore: dampened,
	}
}

// Timeout builds the reduced verdict emitted when the global request
// budget expires before C5 has produced a score to fuse.
func Timeout() *Verdict {
	return &Verdict{
		Status:    StatusSuspicious,
		Message:   "Analysis timed out",
		RiskScore: 0.5,
	}
}

func severityBoost(factors []riskfactors.RiskFactor) float64 {
	var critical, high, medium int
	for _, f := range factors {
		switch f.Severity {
		case finding.Critical:
			critical++
		case finding.High:
			high++
		case finding.Medium:
			medium++
		}
	}
	boost := float64(critical)*defaults.SeverityBoostCritical +
		float64(high)*defaults.SeverityBoostHigh +
		float64(medium)*defaults.SeverityBoostMedium
	if boost > defaults.SeverityBoostCap {
		boost = defaults.SeverityBoostCap
	}
	return boost
}

func deriveStatus(riskScore float64, tier domaintrust.Tier, factors []riskfactors.RiskFactor) string {
	anyCritical := false
	highCount := 0
	for _, f := range factors {
		if f.Severity == finding.Critical {
			anyCritical = true
		}
		if f.Severity == finding.High {
			highCount++
		}
	}
	untrusted := tier == domaintrust.Untrusted

	if riskScore >= defaults.DangerThreshold || anyCritical || (untrusted && highCount >= 1) {
		return StatusDanger
	}
	if riskScore >= defaults.SuspiciousThreshold || highCount >= 1 || untrusted {
		return StatusSuspicious
	}
	return StatusSafe
}

func deriveMessage(status string, factors []riskfactors.RiskFactor) string {
	if status == StatusSafe {
		return "No threats detected"
	}
	if len(factors) == 0 {
		return "Elevated risk score with no specific risk factors identified"
	}
	// factors is already sorted severity-descending, so the first entry is
	// the most significant thing to surface.
	return factors[0].Message
}
