// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := os.MkdirAll(appCfg.AvatarDir, 0o755); err != nil {
		return fmt.Errorf("create avatar directory: %w", err)
	}
	logger.Info("starting ghostwire",
		zap.String("env", coreCfg.Env),
		zap.String("base_url", appCfg.BaseURL))
	return nil
}
