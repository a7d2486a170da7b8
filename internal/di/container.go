package di

import (
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phish-quarantine/internal/classifier"
	"github.com/mikey/phish-quarantine/internal/config"
	"github.com/mikey/phish-quarantine/internal/core"
	"github.com/mikey/phish-quarantine/internal/factory"
	"github.com/mikey/phish-quarantine/internal/ingest"
	"github.com/mikey/phish-quarantine/internal/logging"
	"github.com/mikey/phish-quarantine/internal/rules"
	"github.com/mikey/phish-quarantine/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register capture source
	if err := container.Provide(func(f *factory.SourceFactory) (core.EmailSource, error) {
		return f.CreateEmailSource()
	}); err != nil {
		return nil, err
	}

	// Register quarantine repository
	if err := container.Provide(func(f *factory.StoreFactory) (core.QuarantineRepository, error) {
		return f.CreateQuarantineRepository()
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register rule engine
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.RuleScorer {
		return rules.NewEngine(cfg.GetRules().TrustedDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *classifier.Classifier {
		return classifier.New(cfg.GetClassifier(), logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(c *classifier.Classifier) core.Classifier {
		return c
	}); err != nil {
		return nil, err
	}

	// Register score combiner
	if err := container.Provide(func(cfg *config.Config) *core.ScoreCombiner {
		scoring := cfg.GetScoring()
		return core.NewScoreCombiner(scoring.RuleWeight, scoring.MLWeight)
	}); err != nil {
		return nil, err
	}

	// Register quarantine threshold
	if err := container.Provide(func(cfg *config.Config) float64 {
		return cfg.GetFloat64("scoring.quarantine_threshold")
	}); err != nil {
		return nil, err
	}

	// Register whitelisted domains
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) []string {
		whitelistedDomains := cfg.GetStringSlice("scoring.whitelisted_domains")
		if len(whitelistedDomains) > 0 {
			logger.Info("Loaded whitelisted domains", zap.Strings("domains", whitelistedDomains))
		}
		return whitelistedDomains
	}); err != nil {
		return nil, err
	}

	// Register ingestor
	if err := container.Provide(func(
		src core.EmailSource,
		tp *utils.TextProcessor,
		cfg *config.Config,
		logger *zap.Logger,
	) core.EmailIngestor {
		return ingest.New(src, tp, cfg.GetIngest().MaxBodySize, logger, nil)
	}); err != nil {
		return nil, err
	}

	// Register poll interval
	if err := container.Provide(func(cfg *config.Config) (time.Duration, error) {
		return cfg.GetDuration("ingest.poll_interval")
	}); err != nil {
		return nil, err
	}

	// Register pipeline service
	if err := container.Provide(core.NewPipelineService); err != nil {
		return nil, err
	}

	return container, nil
}
