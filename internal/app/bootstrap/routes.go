// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dalemusser/ghostwire/internal/app/chat"
	authapifeature "github.com/dalemusser/ghostwire/internal/app/features/authapi"
	groupsfeature "github.com/dalemusser/ghostwire/internal/app/features/groups"
	healthfeature "github.com/dalemusser/ghostwire/internal/app/features/health"
	messagestore "github.com/dalemusser/ghostwire/internal/app/store/messages"
	userstore "github.com/dalemusser/ghostwire/internal/app/store/users"
	"github.com/dalemusser/ghostwire/internal/app/system/auth"
	"github.com/dalemusser/ghostwire/internal/app/system/ratelimit"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. It creates the credential manager, the
// websocket gateway with its connection registry, mounts the JSON API under
// /api, and serves the static client plus uploaded avatars.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	authMgr, err := auth.NewManager(appCfg.TokenSecret, appCfg.TokenTTL, secure, logger)
	if err != nil {
		logger.Error("credential manager init failed", zap.Error(err))
		return nil, err
	}

	// Sign-in attempts are throttled per client IP.
	loginLimiter := ratelimit.New(10, time.Minute)

	registry := chat.NewRegistry(logger)
	gateway := chat.NewGateway(authMgr, userstore.New(deps.DB), messagestore.New(deps.DB), registry, chat.Options{
		HistoryLimit:   appCfg.HistoryLimit,
		SendBuffer:     appCfg.WSSendBuffer,
		RateBurst:      appCfg.MessageRateBurst,
		RateInterval:   appCfg.MessageRateInterval,
		AllowedOrigins: appCfg.AllowedOrigins,
	}, logger)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.DB, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// JSON API
	authHandler := authapifeature.NewHandler(deps.DB, authMgr, loginLimiter, appCfg.AvatarDir, appCfg.AvatarURL, logger)
	r.Mount("/api/auth", authapifeature.Routes(authHandler))

	groupsHandler := groupsfeature.NewHandler(deps.DB, authMgr, appCfg.HistoryLimit, logger)
	r.Mount("/api/groups", groupsfeature.Routes(groupsHandler))

	// Websocket gateway. Authentication happens at the handshake (cookie,
	// bearer header, or first auth frame), not via router middleware.
	r.Handle("/ws", gateway)

	// Uploaded avatars and the static client, with pre-compressed file
	// support (gzip/brotli).
	r.Handle(appCfg.AvatarURL+"/*", fileserver.Handler(appCfg.AvatarURL, appCfg.AvatarDir))
	r.Handle("/*", fileserver.Handler("/", "public"))

	return r, nil
}
