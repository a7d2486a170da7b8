package ingest

import (
	"context"
	"time"

	"github.com/mikey/phish-quarantine/internal/core"
	"github.com/mikey/phish-quarantine/internal/utils"
	"go.uber.org/zap"
)

// Ingestor wraps a capture source with de-duplication and field cleanup.
//
// The dedup set lives for the process lifetime only: a message already
// forwarded in this process is silently skipped, but a restart re-admits
// everything the source still holds (at-least-once re-ingestion). Callers
// that want durability can seed the set from storage before the first
// fetch.
//
// Ingestor is driven by a single poll loop and is not safe for concurrent
// Fetch calls.
type Ingestor struct {
	source      core.EmailSource
	text        *utils.TextProcessor
	maxBodySize int
	logger      *zap.Logger
	seen        map[string]struct{}
}

// New creates an ingestor over the given source. seenIDs optionally seeds
// the dedup set; nil starts empty.
func New(
	source core.EmailSource,
	text *utils.TextProcessor,
	maxBodySize int,
	logger *zap.Logger,
	seenIDs []string,
) *Ingestor {
	seen := make(map[string]struct{}, len(seenIDs))
	for _, id := range seenIDs {
		seen[id] = struct{}{}
	}

	return &Ingestor{
		source:      source,
		text:        text,
		maxBodySize: maxBodySize,
		logger:      logger,
		seen:        seen,
	}
}

// Fetch returns the not-yet-seen candidate records from the source.
// Source failures are absorbed: the error is logged and an empty batch is
// returned, leaving the retry to the next poll cycle.
func (i *Ingestor) Fetch(ctx context.Context) []core.EmailRecord {
	batch, err := i.source.Fetch(ctx)
	if err != nil {
		i.logger.Error("Failed to fetch from capture source", zap.Error(err))
		return nil
	}

	records := make([]core.EmailRecord, 0, len(batch))
	for _, record := range batch {
		if record.SourceID == "" {
			i.logger.Warn("Skipping message without source id",
				zap.String("sender", record.Sender))
			continue
		}
		if _, ok := i.seen[record.SourceID]; ok {
			continue
		}
		i.seen[record.SourceID] = struct{}{}

		i.normalize(&record)
		records = append(records, record)
	}

	return records
}

// normalize fills defaults and sanitizes text fields. Missing fields never
// fail ingestion; they become empty strings.
func (i *Ingestor) normalize(record *core.EmailRecord) {
	record.Subject = i.text.SanitizeUTF8(record.Subject)
	record.Body = i.text.ProcessText(record.Body, i.maxBodySize)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
}
