package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/phish-quarantine/internal/adapters/store"
	"github.com/mikey/phish-quarantine/internal/config"
	"github.com/mikey/phish-quarantine/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates quarantine repositories based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateQuarantineRepository creates a quarantine repository based on the
// configuration
func (f *StoreFactory) CreateQuarantineRepository() (core.QuarantineRepository, error) {
	storeType := f.cfg.GetString("storage.type")

	switch storeType {
	case "sqlite":
		sqlitePath := f.cfg.GetString("storage.sqlite_path")
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(sqlitePath, f.logger)
	case "mysql":
		mysqlDSN := f.cfg.GetString("storage.mysql_dsn")
		return store.NewMySQLStore(mysqlDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storeType)
	}
}
