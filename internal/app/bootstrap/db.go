// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dalemusser/ghostwire/internal/domain/models"
)

// ConnectDB opens the SQLite database, creating the containing directory on
// first run. WAL mode keeps readers unblocked while the gateway writes
// messages.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if dir := filepath.Dir(appCfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return DBDeps{}, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := appCfg.DBPath + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return DBDeps{}, fmt.Errorf("open database: %w", err)
	}

	logger.Info("database connected", zap.String("path", appCfg.DBPath))
	return DBDeps{DB: db}, nil
}

// EnsureSchema migrates the schema to match the model definitions.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	err := deps.DB.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Message{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	logger.Info("schema migrated")
	return nil
}
