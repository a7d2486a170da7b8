package core

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// PipelineService is the core detection-and-quarantine pipeline.
//
// A cycle fetches new messages from the ingestor, scores each with the rule
// engine and the text classifier in parallel, combines both signals and
// quarantines every record whose combined score reaches the threshold.
type PipelineService struct {
	ingestor           EmailIngestor
	rules              RuleScorer
	classifier         Classifier
	combiner           *ScoreCombiner
	store              QuarantineRepository
	logger             *zap.Logger
	threshold          float64
	whitelistedDomains []string
}

// NewPipelineService creates a new detection pipeline service
func NewPipelineService(
	ingestor EmailIngestor,
	rules RuleScorer,
	classifier Classifier,
	combiner *ScoreCombiner,
	store QuarantineRepository,
	logger *zap.Logger,
	threshold float64,
	whitelistedDomains []string,
) *PipelineService {
	return &PipelineService{
		ingestor:           ingestor,
		rules:              rules,
		classifier:         classifier,
		combiner:           combiner,
		store:              store,
		logger:             logger,
		threshold:          threshold,
		whitelistedDomains: whitelistedDomains,
	}
}

// CycleResult summarizes one scan cycle
type CycleResult struct {
	Fetched     int
	Quarantined int
	Errors      int
}

// RunCycle performs one full ingest-score-quarantine pass.
// Per-record failures are counted, logged and do not abort the cycle.
func (s *PipelineService) RunCycle(ctx context.Context) CycleResult {
	records := s.ingestor.Fetch(ctx)

	result := CycleResult{Fetched: len(records)}
	for i := range records {
		quarantined, err := s.ProcessRecord(ctx, &records[i])
		if err != nil {
			result.Errors++
			s.logger.Error("Failed to process email",
				zap.String("source_id", records[i].SourceID),
				zap.Error(err))
			continue
		}
		if quarantined {
			result.Quarantined++
		}
	}

	if result.Fetched > 0 {
		s.logger.Info("Scan cycle complete",
			zap.Int("fetched", result.Fetched),
			zap.Int("quarantined", result.Quarantined),
			zap.Int("errors", result.Errors))
	}

	return result
}

// ProcessRecord scores one candidate record and quarantines it when the
// combined score reaches the threshold. The record's scoring fields are
// filled in either way. Only storage failures are returned.
func (s *PipelineService) ProcessRecord(ctx context.Context, record *EmailRecord) (bool, error) {
	if s.isDomainWhitelisted(record.Sender) {
		s.logger.Info("Skipping whitelisted sender",
			zap.String("sender", record.Sender),
			zap.String("action", "whitelist_bypass"))
		return false, nil
	}

	// Rule engine and classifier are independent; run them concurrently
	// and join before combining.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		record.RuleScore, record.DetectionReasons = s.rules.Score(record)
	}()
	prediction := s.classifier.Predict(record)
	wg.Wait()

	record.MLScore = prediction.Score
	combined, level := s.combiner.Combine(record.RuleScore, record.MLScore)
	record.CombinedScore = combined

	if combined < s.threshold {
		s.logger.Debug("Email below quarantine threshold",
			zap.String("sender", record.Sender),
			zap.Float64("combined_score", combined))
		return false, nil
	}

	record.Status = StatusQuarantined
	id, err := s.store.Create(ctx, record)
	if err != nil {
		return false, err
	}
	record.ID = id

	s.logger.Info("Email quarantined",
		zap.Int64("id", id),
		zap.String("sender", record.Sender),
		zap.String("subject", record.Subject),
		zap.Float64("rule_score", record.RuleScore),
		zap.Float64("ml_score", record.MLScore),
		zap.Float64("combined_score", combined),
		zap.String("risk_level", string(level)),
		zap.Strings("reasons", record.DetectionReasons))

	return true, nil
}

// isDomainWhitelisted checks if the sender's domain is in the whitelist
func (s *PipelineService) isDomainWhitelisted(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}

	domain := strings.ToLower(parts[1])
	for _, whitelisted := range s.whitelistedDomains {
		if strings.EqualFold(domain, whitelisted) {
			return true
		}
	}

	return false
}
