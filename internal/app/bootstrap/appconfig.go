// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports, TLS,
// logging, CORS); AppConfig is everything specific to this application.
// The struct is passed to most lifecycle hooks, so any configuration needed
// during startup, request handling, or shutdown lives here.
type AppConfig struct {
	// SQLite database file path.
	DBPath string

	// Credential signing configuration.
	TokenSecret string        // HMAC key for signed credentials (must be strong in production)
	TokenTTL    time.Duration // credential validity window (default: 7 days)

	// Public base URL of the deployment, used in logs and client config.
	BaseURL string

	// Chat behavior.
	HistoryLimit        int           // messages pushed on group join
	AllowedOrigins      []string      // websocket origin allowlist (empty allows all)
	WSSendBuffer        int           // per-connection outbound frame buffer
	MessageRateBurst    int           // messages allowed per rate interval
	MessageRateInterval time.Duration // refill window for the message rate limit

	// Avatar storage.
	AvatarDir string // filesystem directory for uploaded avatars
	AvatarURL string // URL prefix the avatar dir is served from
}
