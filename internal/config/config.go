package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/phish-quarantine/")
	v.AddConfigPath("$HOME/.phish-quarantine")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("PHISH_QUARANTINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Ingestion defaults
	v.SetDefault("ingest.mode", "mailhog")
	v.SetDefault("ingest.poll_interval", "30s")
	v.SetDefault("ingest.max_body_size", 65536)

	// MailHog source defaults
	v.SetDefault("ingest.mailhog.host", "localhost")
	v.SetDefault("ingest.mailhog.port", 8025)
	v.SetDefault("ingest.mailhog.limit", 50)
	v.SetDefault("ingest.mailhog.timeout", "10s")

	// SMTP source defaults
	v.SetDefault("ingest.smtp.listen_address", "0.0.0.0:10025")
	v.SetDefault("ingest.smtp.domain", "localhost")
	v.SetDefault("ingest.smtp.buffer_size", 256)

	// Rule engine defaults
	v.SetDefault("rules.trusted_domains", []string{
		"paypal.com", "amazon.com", "microsoft.com", "google.com", "apple.com",
	})

	// Classifier defaults
	v.SetDefault("classifier.model_path", "data/models/phishing_model.json")
	v.SetDefault("classifier.max_features", 5000)
	v.SetDefault("classifier.split_seed", 42)

	// Scoring defaults
	v.SetDefault("scoring.rule_weight", 0.5)
	v.SetDefault("scoring.ml_weight", 0.5)
	v.SetDefault("scoring.quarantine_threshold", 0.5)
	v.SetDefault("scoring.whitelisted_domains", []string{})

	// Storage defaults
	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.sqlite_path", "data/quarantine.db")
	v.SetDefault("storage.mysql_dsn", "user:password@tcp(localhost:3306)/phish_quarantine")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
