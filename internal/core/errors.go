package core

import (
	"errors"
)

var (
	// ErrSourceUnavailable indicates the capture source could not be reached.
	// The ingestor absorbs it into an empty batch; it never aborts a cycle.
	ErrSourceUnavailable = errors.New("ingestion source unavailable")

	// ErrMalformedMessage indicates a single message could not be parsed.
	// The message is skipped; the rest of the batch is unaffected.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrInvalidTrainingData indicates the training set is empty or is
	// missing one of the two labels. A previously trained model is retained.
	ErrInvalidTrainingData = errors.New("invalid training data")

	// ErrModelArtifactCorrupt indicates a persisted model could not be
	// loaded. The classifier starts untrained instead of failing.
	ErrModelArtifactCorrupt = errors.New("model artifact corrupt")

	// ErrStorageFailure indicates a persistence I/O error. Unlike per-item
	// failures it is surfaced to the caller.
	ErrStorageFailure = errors.New("storage failure")

	// ErrUnknownIngestionMode indicates a configuration error. The source
	// is treated as permanently empty.
	ErrUnknownIngestionMode = errors.New("unknown ingestion mode")
)
