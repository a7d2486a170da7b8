package source

import (
	"context"

	"github.com/mikey/phish-quarantine/internal/core"
	"go.uber.org/zap"
)

// NullSource is the permanently empty source installed when the configured
// ingestion mode is unknown. The configuration error is reported once at
// construction; every Fetch then yields nothing instead of failing the
// poll loop.
type NullSource struct{}

// NewNullSource logs the unknown mode and returns an empty source
func NewNullSource(mode string, logger *zap.Logger) *NullSource {
	logger.Error("Unknown ingestion mode, no emails will be ingested",
		zap.String("mode", mode),
		zap.Error(core.ErrUnknownIngestionMode))
	return &NullSource{}
}

// Fetch always returns an empty batch
func (s *NullSource) Fetch(ctx context.Context) ([]core.EmailRecord, error) {
	return nil, nil
}
