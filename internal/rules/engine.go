package rules

import (
	"math"

	"github.com/mikey/phish-quarantine/internal/core"
	"go.uber.org/zap"
)

// checkResult is one triggered heuristic's contribution
type checkResult struct {
	Score  float64
	Reason string
}

// checkFunc analyzes a record and returns nil when the check does not fire.
// Checks are pure functions of the record and the engine configuration so
// scoring is deterministic and safe to re-run.
type checkFunc func(record *core.EmailRecord, trustedDomains []string) *checkResult

type check struct {
	name string
	fn   checkFunc
}

// Engine is the stateless heuristic phishing scorer.
//
// Each check contributes an additive score; the sum is capped at 1.0.
// A check that panics is isolated, logged and excluded from the score so
// one failing heuristic never suppresses the others.
type Engine struct {
	checks         []check
	trustedDomains []string
	logger         *zap.Logger
}

// NewEngine creates a rule engine with the standard set of checks.
// trustedDomains are the legitimate brand domains used for lookalike
// detection.
func NewEngine(trustedDomains []string, logger *zap.Logger) *Engine {
	return &Engine{
		checks: []check{
			{name: "lookalike_domain", fn: checkLookalikeDomain},
			{name: "urgency_language", fn: checkUrgencyLanguage},
			{name: "credential_bait", fn: checkCredentialBait},
			{name: "display_name_mismatch", fn: checkDisplayNameMismatch},
			{name: "suspicious_links", fn: checkSuspiciousLinks},
		},
		trustedDomains: normalizeDomains(trustedDomains),
		logger:         logger,
	}
}

// Score runs every check against the record and returns the normalized
// rule score in [0,1] plus the reasons for each check that fired, in
// check order.
func (e *Engine) Score(record *core.EmailRecord) (float64, []string) {
	total := 0.0
	reasons := make([]string, 0)

	for _, c := range e.checks {
		result := e.runCheck(c, record)
		if result == nil {
			continue
		}
		total += result.Score
		reasons = append(reasons, result.Reason)
	}

	return math.Min(total, 1.0), reasons
}

// runCheck executes one check, converting a panic into a skipped check
func (e *Engine) runCheck(c check, record *core.EmailRecord) (result *checkResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Rule check failed, excluding its contribution",
				zap.String("check", c.name),
				zap.Any("panic", r))
			result = nil
		}
	}()

	return c.fn(record, e.trustedDomains)
}
