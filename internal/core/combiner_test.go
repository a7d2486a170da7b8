package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskLevelForScore(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected RiskLevel
	}{
		{name: "high at boundary", score: 0.8, expected: RiskHigh},
		{name: "high above boundary", score: 0.95, expected: RiskHigh},
		{name: "medium just below high", score: 0.79999, expected: RiskMedium},
		{name: "medium at boundary", score: 0.5, expected: RiskMedium},
		{name: "low just below medium", score: 0.49999, expected: RiskLow},
		{name: "low at boundary", score: 0.3, expected: RiskLow},
		{name: "minimal just below low", score: 0.29999, expected: RiskMinimal},
		{name: "minimal at zero", score: 0.0, expected: RiskMinimal},
		{name: "high at one", score: 1.0, expected: RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RiskLevelForScore(tt.score))
		})
	}
}

func TestScoreCombinerEqualWeights(t *testing.T) {
	combiner := NewScoreCombiner(0.5, 0.5)

	tests := []struct {
		name          string
		ruleScore     float64
		mlScore       float64
		expectedScore float64
		expectedLevel RiskLevel
	}{
		{name: "both zero", ruleScore: 0, mlScore: 0, expectedScore: 0, expectedLevel: RiskMinimal},
		{name: "both one", ruleScore: 1, mlScore: 1, expectedScore: 1, expectedLevel: RiskHigh},
		{name: "neutral classifier", ruleScore: 0.8, mlScore: 0.5, expectedScore: 0.65, expectedLevel: RiskMedium},
		{name: "strong agreement", ruleScore: 0.9, mlScore: 0.9, expectedScore: 0.9, expectedLevel: RiskHigh},
		{name: "split signals", ruleScore: 1.0, mlScore: 0.0, expectedScore: 0.5, expectedLevel: RiskMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, level := combiner.Combine(tt.ruleScore, tt.mlScore)
			assert.InDelta(t, tt.expectedScore, score, 1e-9)
			assert.Equal(t, tt.expectedLevel, level)
		})
	}
}

func TestScoreCombinerCustomWeights(t *testing.T) {
	combiner := NewScoreCombiner(0.7, 0.3)

	score, level := combiner.Combine(1.0, 0.0)
	assert.InDelta(t, 0.7, score, 1e-9)
	assert.Equal(t, RiskMedium, level)

	score, _ = combiner.Combine(0.0, 1.0)
	assert.InDelta(t, 0.3, score, 1e-9)
}

func TestScoreCombinerUnnormalizedWeights(t *testing.T) {
	// Weights need not sum to 1; the combiner normalizes by their sum
	combiner := NewScoreCombiner(2.0, 2.0)

	score, _ := combiner.Combine(0.8, 0.4)
	assert.InDelta(t, 0.6, score, 1e-9)
}

func TestScoreCombinerInvalidWeightsFallBack(t *testing.T) {
	tests := []struct {
		name       string
		ruleWeight float64
		mlWeight   float64
	}{
		{name: "both zero", ruleWeight: 0, mlWeight: 0},
		{name: "both negative", ruleWeight: -1, mlWeight: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combiner := NewScoreCombiner(tt.ruleWeight, tt.mlWeight)
			score, _ := combiner.Combine(0.8, 0.4)
			assert.InDelta(t, 0.6, score, 1e-9)
		})
	}
}

func TestScoreCombinerClampsInputs(t *testing.T) {
	combiner := NewScoreCombiner(0.5, 0.5)

	score, level := combiner.Combine(1.7, -0.3)
	assert.InDelta(t, 0.5, score, 1e-9)
	assert.Equal(t, RiskMedium, level)

	score, _ = combiner.Combine(2.0, 2.0)
	assert.Equal(t, 1.0, score)
}

func TestScoreCombinerIsRecomputable(t *testing.T) {
	combiner := NewScoreCombiner(0.6, 0.4)

	first, _ := combiner.Combine(0.73, 0.21)
	second, _ := combiner.Combine(0.73, 0.21)
	assert.Equal(t, first, second)
}
