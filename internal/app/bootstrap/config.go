// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

const devTokenSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for GhostWire.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: db_path, token_secret, etc.
//   - Environment variables: GHOSTWIRE_DB_PATH, GHOSTWIRE_TOKEN_SECRET, etc.
//   - Command-line flags: --db_path, --token_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "db_path", Default: "./data/ghostwire.db", Desc: "SQLite database file path"},
	{Name: "token_secret", Default: devTokenSecret, Desc: "Credential signing key (must be strong in production)"},
	{Name: "token_ttl", Default: "168h", Desc: "Credential validity window (e.g., 168h, 24h)"},
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL of the deployment"},

	// Chat behavior
	{Name: "history_limit", Default: 50, Desc: "Messages pushed to a connection on group join"},
	{Name: "allowed_origins", Default: "", Desc: "Comma-separated websocket origin allowlist (blank allows all)"},
	{Name: "ws_send_buffer", Default: 256, Desc: "Per-connection outbound frame buffer size"},
	{Name: "message_rate_burst", Default: 10, Desc: "Messages a connection may send per rate interval"},
	{Name: "message_rate_interval", Default: "1s", Desc: "Refill window for the per-connection message rate limit"},

	// Avatar storage
	{Name: "avatar_dir", Default: "./uploads/avatars", Desc: "Filesystem directory for uploaded avatars"},
	{Name: "avatar_url_prefix", Default: "/uploads/avatars", Desc: "URL prefix the avatar directory is served from"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have access
// to configuration before any backends or handlers are built. WAFFLE's
// config.LoadWithAppConfig merges .env files, config files, GHOSTWIRE_*
// environment variables, and command-line flags, with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GHOSTWIRE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		DBPath:      appValues.String("db_path"),
		TokenSecret: appValues.String("token_secret"),
		TokenTTL:    appValues.Duration("token_ttl", 7*24*time.Hour),
		BaseURL:     appValues.String("base_url"),

		HistoryLimit:        appValues.Int("history_limit"),
		AllowedOrigins:      splitOrigins(appValues.String("allowed_origins")),
		WSSendBuffer:        appValues.Int("ws_send_buffer"),
		MessageRateBurst:    appValues.Int("message_rate_burst"),
		MessageRateInterval: appValues.Duration("message_rate_interval", time.Second),

		AvatarDir: appValues.String("avatar_dir"),
		AvatarURL: strings.TrimRight(appValues.String("avatar_url_prefix"), "/"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// GhostWire refuses to start in production with the development signing key,
// since every credential would be forgeable.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.TokenSecret == "" {
		return fmt.Errorf("token_secret must not be empty")
	}
	if coreCfg.Env == "prod" && appCfg.TokenSecret == devTokenSecret {
		return fmt.Errorf("token_secret is still the development default; set GHOSTWIRE_TOKEN_SECRET")
	}
	if appCfg.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if appCfg.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", appCfg.HistoryLimit)
	}
	if appCfg.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", appCfg.TokenTTL)
	}
	return nil
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
