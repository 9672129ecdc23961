// Package auth implements the credential verifier and request authentication
// middleware. Credentials are signed, expiring JWT claim bundles (subject id +
// username) verified against a server-held secret. The same token is accepted
// on HTTP requests (Authorization header or cookie) and at the websocket
// handshake.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenCookie is the cookie name carrying the credential for browser clients.
const TokenCookie = "token"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Identity is the authenticated user claim bundle injected into request
// context and bound to websocket connections.
type Identity struct {
	ID       string
	Username string
}

// Claims is the JWT payload for GhostWire credentials.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager issues and verifies credentials and provides HTTP middleware.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	log    *zap.Logger
}

// NewManager constructs a Manager. The secret must be non-empty; ttl is the
// credential validity window (7 days by default from config).
func NewManager(secret string, ttl time.Duration, secure bool, logger *zap.Logger) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is empty; provide >=32 random chars")
	}
	if len(secret) < 32 {
		logger.Warn("token secret is short; 32+ chars recommended",
			zap.Int("length", len(secret)))
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, secure: secure, log: logger}, nil
}

// Issue signs a credential for the given user.
func (m *Manager) Issue(userID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "ghostwire",
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.secret)
}

// Verify validates a credential and extracts the identity claim.
// It fails with ErrExpiredToken / ErrInvalidToken; no partially-verified
// identity is ever returned.
func (m *Manager) Verify(tokenString string) (*Identity, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{ID: claims.Subject, Username: claims.Username}, nil
}

// TTL returns the configured credential validity window.
func (m *Manager) TTL() time.Duration { return m.ttl }

// SetCookie writes the credential cookie on a login response.
func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the credential cookie on logout.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request context helpers & middleware                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the authenticated identity and a "found?" flag.
func CurrentUser(r *http.Request) (*Identity, bool) {
	id, ok := r.Context().Value(currentUserKey).(*Identity)
	return id, ok
}

// WithIdentity returns a request whose context carries the identity.
// Exposed for handler tests.
func WithIdentity(r *http.Request, id *Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, id))
}

// TokenFromRequest resolves the raw credential from the Authorization header
// (Bearer scheme) or, failing that, the token cookie. Returns "" when absent.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// LoadUser injects the identity into context when a valid credential is
// present. Requests without (or with invalid) credentials pass through
// un-authenticated; gating happens in RequireSignedIn.
func (m *Manager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := TokenFromRequest(r); tok != "" {
			if id, err := m.Verify(tok); err == nil {
				r = WithIdentity(r, id)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a verified identity in context
// (set by LoadUser). API callers get a plain 401 JSON body.
func (m *Manager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
