package config

// IngestConfig represents the configuration for email ingestion
type IngestConfig struct {
	Mode        string
	MaxBodySize int
}

// MailHogConfig represents the configuration for the MailHog capture source
type MailHogConfig struct {
	Host    string
	Port    int
	Limit   int
	Timeout string
}

// SMTPSourceConfig represents the configuration for the SMTP listener source
type SMTPSourceConfig struct {
	ListenAddress string
	Domain        string
	BufferSize    int
}

// RulesConfig represents the configuration for the rule engine
type RulesConfig struct {
	TrustedDomains []string
}

// ClassifierConfig represents the configuration for the text classifier
type ClassifierConfig struct {
	ModelPath   string
	MaxFeatures int
	SplitSeed   int64
}

// ScoringConfig represents the configuration for score combination
type ScoringConfig struct {
	RuleWeight          float64
	MLWeight            float64
	QuarantineThreshold float64
	WhitelistedDomains  []string
}

// GetIngest returns the ingestion configuration
func (c *Config) GetIngest() IngestConfig {
	return IngestConfig{
		Mode:        c.GetString("ingest.mode"),
		MaxBodySize: c.GetInt("ingest.max_body_size"),
	}
}

// GetMailHog returns the MailHog source configuration
func (c *Config) GetMailHog() MailHogConfig {
	return MailHogConfig{
		Host:    c.GetString("ingest.mailhog.host"),
		Port:    c.GetInt("ingest.mailhog.port"),
		Limit:   c.GetInt("ingest.mailhog.limit"),
		Timeout: c.GetString("ingest.mailhog.timeout"),
	}
}

// GetSMTPSource returns the SMTP listener source configuration
func (c *Config) GetSMTPSource() SMTPSourceConfig {
	return SMTPSourceConfig{
		ListenAddress: c.GetString("ingest.smtp.listen_address"),
		Domain:        c.GetString("ingest.smtp.domain"),
		BufferSize:    c.GetInt("ingest.smtp.buffer_size"),
	}
}

// GetRules returns the rule engine configuration
func (c *Config) GetRules() RulesConfig {
	return RulesConfig{
		TrustedDomains: c.GetStringSlice("rules.trusted_domains"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		ModelPath:   c.GetString("classifier.model_path"),
		MaxFeatures: c.GetInt("classifier.max_features"),
		SplitSeed:   int64(c.GetInt("classifier.split_seed")),
	}
}

// GetScoring returns the score combination configuration
func (c *Config) GetScoring() ScoringConfig {
	return ScoringConfig{
		RuleWeight:          c.GetFloat64("scoring.rule_weight"),
		MLWeight:            c.GetFloat64("scoring.ml_weight"),
		QuarantineThreshold: c.GetFloat64("scoring.quarantine_threshold"),
		WhitelistedDomains:  c.GetStringSlice("scoring.whitelisted_domains"),
	}
}
