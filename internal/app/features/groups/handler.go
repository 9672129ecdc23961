// internal/app/features/groups/handler.go
package groups

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dalemusser/ghostwire/internal/app/system/auth"
)

// Handler owns the group management endpoints.
type Handler struct {
	DB           *gorm.DB
	Auth         *auth.Manager
	HistoryLimit int
	Log          *zap.Logger
}

// NewHandler constructs a Handler bound to the given database.
func NewHandler(db *gorm.DB, authMgr *auth.Manager, historyLimit int, logger *zap.Logger) *Handler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Handler{
		DB:           db,
		Auth:         authMgr,
		HistoryLimit: historyLimit,
		Log:          logger,
	}
}
