package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/decentralizedkaggle/DKaggle/internal/config"
	"github.com/decentralizedkaggle/DKaggle/internal/database/models"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the configured database and migrates the schema.
func Init(cfg config.Storage) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "postgres":
		sqlDB, err := sql.Open("postgres", cfg.Database)
		if err != nil {
			return nil, err
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		if _, err := os.Stat(cfg.Database); os.IsNotExist(err) {
			zap.S().Infof("database file not found at '%s', creating directory for it.", cfg.Database)
			if err := os.MkdirAll(filepath.Dir(cfg.Database), 0755); err != nil {
				return nil, err
			}
		}
		dialector = sqlite.Open(cfg.Database)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if err := db.AutoMigrate(
		&models.Contest{},
		&models.Submission{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
