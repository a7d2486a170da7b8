package core

import (
	"context"
)

// EmailSource defines the interface for a mail-capture backend
type EmailSource interface {
	// Fetch returns the current batch of captured messages as candidate
	// records, not yet de-duplicated, scored or stored
	Fetch(ctx context.Context) ([]EmailRecord, error)
}

// EmailIngestor defines the interface for the de-duplicating ingestion stage
type EmailIngestor interface {
	// Fetch returns candidate records not seen before in this process's
	// lifetime. Source failures are absorbed into an empty batch.
	Fetch(ctx context.Context) []EmailRecord
}

// RuleScorer defines the interface for the heuristic rule engine
type RuleScorer interface {
	// Score returns a rule score in [0,1] and the ordered list of
	// human-readable reasons for every check that fired
	Score(record *EmailRecord) (float64, []string)
}

// Classifier defines the interface for the trainable text classifier
type Classifier interface {
	// Predict returns the phishing label and probability for an email.
	// An untrained classifier returns (0, 0.5), never an error.
	Predict(record *EmailRecord) Prediction

	// Train fits a new model from labeled records and atomically replaces
	// the current one on success. A failed fit leaves the previous model
	// untouched.
	Train(records []LabeledRecord) (*TrainingReport, error)
}

// QuarantineRepository defines the interface for quarantine persistence.
// It is the only entry point the dashboard layer may call.
type QuarantineRepository interface {
	// Create inserts a new record in quarantined state and returns the
	// store-assigned id
	Create(ctx context.Context, record *EmailRecord) (int64, error)

	// Release transitions a record from quarantined to released and
	// reports whether a row was affected
	Release(ctx context.Context, id int64) (bool, error)

	// Delete permanently removes a record from any state and reports
	// whether a row was affected
	Delete(ctx context.Context, id int64) (bool, error)

	// GetByID returns the record, or nil when absent
	GetByID(ctx context.Context, id int64) (*EmailRecord, error)

	// ListByStatus returns up to limit records, newest first. An empty
	// status returns records in every state.
	ListByStatus(ctx context.Context, limit int, status EmailStatus) ([]EmailRecord, error)

	// Stats returns the aggregate dashboard counters
	Stats(ctx context.Context) (*QuarantineStats, error)

	// RecentActivity returns condensed summaries of the newest records
	RecentActivity(ctx context.Context, limit int) ([]ActivitySummary, error)
}
