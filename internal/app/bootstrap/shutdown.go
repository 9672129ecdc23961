// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown cleanly tears down DB connections and other resources.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.DB != nil {
		sqlDB, err := deps.DB.DB()
		if err != nil {
			logger.Error("database handle unavailable during shutdown", zap.Error(err))
			return err
		}
		logger.Info("closing database")
		if err := sqlDB.Close(); err != nil {
			logger.Error("database close failed", zap.Error(err))
			return err
		}
	}
	return nil
}
