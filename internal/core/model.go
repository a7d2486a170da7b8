package core

import (
	"time"
)

// EmailStatus is the lifecycle state of a quarantined email
type EmailStatus string

const (
	// StatusQuarantined is the initial state of every stored email
	StatusQuarantined EmailStatus = "quarantined"
	// StatusReleased is terminal and reachable only from quarantined
	StatusReleased EmailStatus = "released"
)

// RiskLevel is the categorical risk bucket derived from the combined score
type RiskLevel string

const (
	RiskHigh    RiskLevel = "HIGH"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskLow     RiskLevel = "LOW"
	RiskMinimal RiskLevel = "MINIMAL"
)

// RiskLevelForScore maps a combined score to its risk level.
// Boundaries are inclusive: 0.8 is HIGH, 0.5 is MEDIUM, 0.3 is LOW.
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= 0.8:
		return RiskHigh
	case score >= 0.5:
		return RiskMedium
	case score >= 0.3:
		return RiskLow
	default:
		return RiskMinimal
	}
}

// EmailRecord represents one distinct ingested email message
type EmailRecord struct {
	// ID is the store-assigned identifier, stable once created
	ID int64
	// SourceID is the capture-source identifier used for de-duplication
	SourceID string

	Sender    string
	Recipient string
	Subject   string
	Body      string
	Timestamp time.Time

	// MLScore is the classifier's phishing probability in [0,1]
	MLScore float64
	// RuleScore is the heuristic score, normalized to [0,1]
	RuleScore float64
	// CombinedScore is always derivable from MLScore and RuleScore
	// via the combiner's weighting
	CombinedScore float64
	// DetectionReasons lists the rule checks that fired, in check order
	DetectionReasons []string

	Status EmailStatus
}

// Text returns the message text used for classification
func (r *EmailRecord) Text() string {
	return r.Subject + " " + r.Body
}

// Prediction is the classifier's output for a single email
type Prediction struct {
	// Label is 1 for phishing, 0 for legitimate
	Label int
	// Score is the estimated probability of the phishing class
	Score float64
}

// LabeledRecord pairs a historical email with its ground-truth label
type LabeledRecord struct {
	Record EmailRecord
	// Label is 1 for phishing, 0 for legitimate
	Label int
}

// ClassMetrics holds holdout metrics for one label
type ClassMetrics struct {
	Precision float64
	Recall    float64
	Support   int
}

// TrainingReport summarizes a successful training run
type TrainingReport struct {
	Accuracy        float64
	TrainingSamples int
	TestSamples     int
	Classes         map[int]ClassMetrics
	TrainedAt       time.Time
}

// QuarantineStats holds the aggregate dashboard counters.
//
// TotalQuarantined counts only rows still in quarantined status, while
// AverageRiskScore spans all stored rows regardless of status.
type QuarantineStats struct {
	TotalQuarantined int
	HighRiskCount    int
	MediumRiskCount  int
	TodayCount       int
	// AverageRiskScore is on a 0-100 scale, rounded to one decimal
	AverageRiskScore float64
}

// ActivitySummary is a condensed row for the recent-activity feed
type ActivitySummary struct {
	Sender string
	// Subject is truncated to 50 characters
	Subject string
	// RiskScore is on a 0-100 scale, rounded to one decimal
	RiskScore float64
	Date      time.Time
	Status    EmailStatus
	RiskLevel RiskLevel
}
