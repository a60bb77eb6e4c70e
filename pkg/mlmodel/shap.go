package mlmodel

import "sort"

// Contribution is one feature's SHAP attribution toward the margin.
type Contribution struct {
	Feature      string  `json:"feature"`
	ShapValue    float64 `json:"shap_value"`
	FeatureValue float64 `json:"feature_value"`
	Direction    string  `json:"direction"`
}

// sortByAbsShapDesc orders contributions by |shap_value| descending,
// stable so ties keep the ensemble's stump-declaration order.
func sortByAbsShapDesc(contributions []Contribution) {
	sort.SliceStable(contributions, func(i, j int) bool {
		return absf(contributions[i].ShapValue) > absf(contributions[j].ShapValue)
	})
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
