package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "mailhog", cfg.GetString("ingest.mode"))
	assert.Equal(t, 65536, cfg.GetInt("ingest.max_body_size"))
	assert.Equal(t, "sqlite", cfg.GetString("storage.type"))
	assert.Equal(t, "info", cfg.GetString("logging.level"))
	assert.Equal(t, 0.5, cfg.GetFloat64("scoring.quarantine_threshold"))

	interval, err := cfg.GetDuration("ingest.poll_interval")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, interval)
}

func TestTypedSections(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	ingest := cfg.GetIngest()
	assert.Equal(t, "mailhog", ingest.Mode)
	assert.Equal(t, 65536, ingest.MaxBodySize)

	mailhog := cfg.GetMailHog()
	assert.Equal(t, "localhost", mailhog.Host)
	assert.Equal(t, 8025, mailhog.Port)
	assert.Equal(t, 50, mailhog.Limit)

	smtpSource := cfg.GetSMTPSource()
	assert.Equal(t, "0.0.0.0:10025", smtpSource.ListenAddress)
	assert.Equal(t, 256, smtpSource.BufferSize)

	rules := cfg.GetRules()
	assert.Contains(t, rules.TrustedDomains, "paypal.com")
	assert.Contains(t, rules.TrustedDomains, "amazon.com")

	clf := cfg.GetClassifier()
	assert.Equal(t, "data/models/phishing_model.json", clf.ModelPath)
	assert.Equal(t, 5000, clf.MaxFeatures)
	assert.Equal(t, int64(42), clf.SplitSeed)

	scoring := cfg.GetScoring()
	assert.Equal(t, 0.5, scoring.RuleWeight)
	assert.Equal(t, 0.5, scoring.MLWeight)
	assert.Equal(t, 0.5, scoring.QuarantineThreshold)
	assert.Empty(t, scoring.WhitelistedDomains)
}

func TestOverrides(t *testing.T) {
	v := NewEmptyViper()
	v.Set("scoring.rule_weight", 0.7)
	v.Set("scoring.ml_weight", 0.3)
	v.Set("ingest.mode", "smtp")
	cfg := NewFromViper(v)

	scoring := cfg.GetScoring()
	assert.Equal(t, 0.7, scoring.RuleWeight)
	assert.Equal(t, 0.3, scoring.MLWeight)
	assert.Equal(t, "smtp", cfg.GetIngest().Mode)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("PHISH_QUARANTINE_LOGGING_LEVEL", "debug")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.GetString("logging.level"))
}

func TestInvalidDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("ingest.poll_interval", "not-a-duration")
	cfg := NewFromViper(v)

	_, err := cfg.GetDuration("ingest.poll_interval")
	assert.Error(t, err)
}
