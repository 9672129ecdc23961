// internal/app/features/authapi/account.go
package authapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	userstore "github.com/dalemusser/ghostwire/internal/app/store/users"
	"github.com/dalemusser/ghostwire/internal/app/system/auth"
	"github.com/dalemusser/ghostwire/internal/app/system/httpjson"
	"github.com/dalemusser/ghostwire/internal/app/system/ratelimit"
	"github.com/dalemusser/ghostwire/internal/app/system/timeouts"
	"github.com/dalemusser/ghostwire/internal/domain/models"
)

const minPasswordLen = 6

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse carries the profile plus the bearer token. Browser clients
// rely on the cookie; the token field exists for clients that cannot.
type sessionResponse struct {
	User  models.Profile `json:"user"`
	Token string         `json:"token"`
}

// HandleRegister creates an account and signs the new user in.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.Limiter.Allow(ratelimit.ClientIP(r)) {
		httpjson.Error(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	var req registerRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Password) < minPasswordLen {
		httpjson.Error(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Log.Error("password hash failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not create account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := userstore.New(h.DB).Create(ctx, models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateEmail):
		httpjson.Error(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, models.ErrBadUsername), errors.Is(err, models.ErrBadEmail):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.Log.Error("user create failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not create account")
		return
	}

	h.issueSession(w, r, user, http.StatusCreated)
}

// HandleLogin verifies credentials and issues a session token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ClientIP(r)
	if !h.Limiter.Allow(ip) {
		httpjson.Error(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := userstore.New(h.DB).GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpjson.Error(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.Log.Error("login lookup failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not sign in")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		httpjson.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.Limiter.Reset(ip)
	h.issueSession(w, r, *user, http.StatusOK)
}

func (h *Handler) issueSession(w http.ResponseWriter, r *http.Request, user models.User, status int) {
	token, err := h.Auth.Issue(user.ID, user.Username)
	if err != nil {
		h.Log.Error("token issue failed", zap.String("user_id", user.ID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not sign in")
		return
	}
	h.Auth.SetCookie(w, token)
	h.Log.Info("session issued",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("ip", ratelimit.ClientIP(r)))
	httpjson.Write(w, status, sessionResponse{User: user.ToProfile(), Token: token})
}

// HandleLogout clears the session cookie. Tokens are stateless, so the
// holder's copy simply expires on its own.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Auth.ClearCookie(w)
	httpjson.Write(w, http.StatusOK, map[string]bool{"ok": true})
}

// ServeMe returns the signed-in user's profile.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := userstore.New(h.DB).GetByID(ctx, id.ID)
	if err != nil {
		httpjson.Error(w, http.StatusNotFound, "user not found")
		return
	}
	httpjson.Write(w, http.StatusOK, user.ToProfile())
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Color    *string `json:"color"`
}

// HandleUpdateProfile applies a partial update to the signed-in user's
// profile. Absent fields are left untouched.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)

	var req updateProfileRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == nil && req.Color == nil {
		httpjson.Error(w, http.StatusBadRequest, "nothing to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := userstore.New(h.DB).UpdateProfile(ctx, id.ID, userstore.ProfileUpdate{
		Username: req.Username,
		Color:    req.Color,
	})
	switch {
	case errors.Is(err, models.ErrBadUsername):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, userstore.ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		h.Log.Error("profile update failed", zap.String("user_id", id.ID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not update profile")
		return
	}
	httpjson.Write(w, http.StatusOK, user.ToProfile())
}

// ServeUserSearch finds users by username or email fragment. Used by the
// group creation flow to resolve members.
func (h *Handler) ServeUserSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(term) < 2 {
		httpjson.Error(w, http.StatusBadRequest, "query must be at least 2 characters")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	found, err := userstore.New(h.DB).Search(ctx, term, 20)
	if err != nil {
		h.Log.Error("user search failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "search failed")
		return
	}

	profiles := make([]models.Profile, 0, len(found))
	for i := range found {
		profiles = append(profiles, found[i].ToProfile())
	}
	httpjson.Write(w, http.StatusOK, profiles)
}
