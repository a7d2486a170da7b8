package core

import (
	"math"
)

// ScoreCombiner merges the rule score and the classifier score into a
// single risk score using a configurable weighted average
type ScoreCombiner struct {
	ruleWeight float64
	mlWeight   float64
}

// NewScoreCombiner creates a score combiner with the given weights.
// Non-positive weight sums fall back to equal weighting.
func NewScoreCombiner(ruleWeight, mlWeight float64) *ScoreCombiner {
	if ruleWeight < 0 {
		ruleWeight = 0
	}
	if mlWeight < 0 {
		mlWeight = 0
	}
	if ruleWeight+mlWeight <= 0 {
		ruleWeight, mlWeight = 0.5, 0.5
	}
	return &ScoreCombiner{
		ruleWeight: ruleWeight,
		mlWeight:   mlWeight,
	}
}

// Combine returns the combined score in [0,1] and its risk level.
// The result is a pure function of the two inputs so a stored combined
// score can always be recomputed and verified.
func (c *ScoreCombiner) Combine(ruleScore, mlScore float64) (float64, RiskLevel) {
	ruleScore = clamp01(ruleScore)
	mlScore = clamp01(mlScore)

	combined := (ruleScore*c.ruleWeight + mlScore*c.mlWeight) / (c.ruleWeight + c.mlWeight)
	combined = clamp01(combined)

	return combined, RiskLevelForScore(combined)
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0.0), 1.0)
}
