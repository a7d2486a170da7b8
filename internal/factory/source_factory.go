package factory

import (
	"fmt"

	"github.com/mikey/phish-quarantine/internal/adapters/source"
	"github.com/mikey/phish-quarantine/internal/config"
	"github.com/mikey/phish-quarantine/internal/core"
	"go.uber.org/zap"
)

// SourceFactory creates capture sources based on configuration
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEmailSource creates a capture source based on the configured
// ingestion mode. An unknown mode yields a permanently empty source
// rather than an error, so misconfiguration is reported once without
// stopping the pipeline.
func (f *SourceFactory) CreateEmailSource() (core.EmailSource, error) {
	mode := f.cfg.GetString("ingest.mode")

	switch mode {
	case "mailhog":
		mailhogCfg := f.cfg.GetMailHog()
		timeout, err := f.cfg.GetDuration("ingest.mailhog.timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid mailhog timeout: %w", err)
		}
		return source.NewMailHogSource(
			mailhogCfg.Host,
			mailhogCfg.Port,
			mailhogCfg.Limit,
			timeout,
			f.logger,
		), nil
	case "smtp":
		smtpCfg := f.cfg.GetSMTPSource()
		return source.NewSMTPSource(
			smtpCfg.ListenAddress,
			smtpCfg.Domain,
			smtpCfg.BufferSize,
			f.logger,
		), nil
	default:
		return source.NewNullSource(mode, f.logger), nil
	}
}
