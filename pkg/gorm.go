package pkg

import (
	"fmt"

	"github.com/dadok-care/survey-engine/internal/config"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDatabase opens the registry database. sqlite backs the normal
// per-machine install; postgres is for shared lab/kiosk deployments where
// several machines must see one registry.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Warn
	}

	var dialector gorm.Dialector
	switch cfg.RegistryDriver {
	case "postgres":
		dialector = postgres.Open(cfg.RegistryDSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.RegistryDSN)
	default:
		return nil, fmt.Errorf("unsupported registry driver %q", cfg.RegistryDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	return db, nil
}
