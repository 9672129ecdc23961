// internal/app/features/authapi/handler.go
package authapi

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dalemusser/ghostwire/internal/app/system/auth"
	"github.com/dalemusser/ghostwire/internal/app/system/ratelimit"
)

// Handler owns the account endpoints: registration, login, session info,
// profile updates, avatar upload, and user search.
type Handler struct {
	DB        *gorm.DB
	Auth      *auth.Manager
	Limiter   *ratelimit.Limiter
	AvatarDir string
	AvatarURL string
	Log       *zap.Logger
}

// NewHandler constructs a Handler bound to the given database and credential
// manager. avatarDir is where uploaded images land on disk; avatarURL is the
// public path prefix they are served from.
func NewHandler(db *gorm.DB, authMgr *auth.Manager, limiter *ratelimit.Limiter, avatarDir, avatarURL string, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		Auth:      authMgr,
		Limiter:   limiter,
		AvatarDir: avatarDir,
		AvatarURL: avatarURL,
		Log:       logger,
	}
}
