// internal/app/features/groups/groups.go
package groups

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	groupstore "github.com/dalemusser/ghostwire/internal/app/store/groups"
	membershipstore "github.com/dalemusser/ghostwire/internal/app/store/memberships"
	messagestore "github.com/dalemusser/ghostwire/internal/app/store/messages"
	userstore "github.com/dalemusser/ghostwire/internal/app/store/users"
	"github.com/dalemusser/ghostwire/internal/app/system/auth"
	"github.com/dalemusser/ghostwire/internal/app/system/httpjson"
	"github.com/dalemusser/ghostwire/internal/app/system/timeouts"
	"github.com/dalemusser/ghostwire/internal/domain/models"
)

// maxHistoryPage caps how much history one REST call may return.
const maxHistoryPage = 500

type createGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

type groupResponse struct {
	models.Group
	Unresolved []string `json:"unresolved,omitempty"`
}

// HandleCreate creates a group with the caller as admin. The members list
// may mix user ids and email addresses; entries that resolve to no account
// are reported back, not treated as errors. The group row and all membership
// rows commit in one transaction.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)

	var req createGroupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	memberIDs, unresolved := h.resolveMembers(ctx, req.Members)

	group, err := groupstore.New(h.DB).Create(ctx, models.Group{
		Name:        req.Name,
		Description: req.Description,
		AdminID:     id.ID,
	}, memberIDs)
	switch {
	case errors.Is(err, models.ErrBadGroupName), errors.Is(err, models.ErrBadGroupDesc):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, groupstore.ErrGroupLimitReached):
		httpjson.Error(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		h.Log.Error("group create failed", zap.String("admin_id", id.ID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not create group")
		return
	}

	h.Log.Info("group created",
		zap.String("group_id", group.ID),
		zap.String("admin_id", id.ID),
		zap.Int("members", len(memberIDs)+1))
	httpjson.Write(w, http.StatusCreated, groupResponse{Group: group, Unresolved: unresolved})
}

// ServeMyGroups lists the groups the caller belongs to.
func (h *Handler) ServeMyGroups(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	found, err := groupstore.New(h.DB).FindUserGroups(ctx, id.ID)
	if err != nil {
		h.Log.Error("group list failed", zap.String("user_id", id.ID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not list groups")
		return
	}
	if found == nil {
		found = []models.Group{}
	}
	httpjson.Write(w, http.StatusOK, found)
}

type addMembersRequest struct {
	Members []string `json:"members"`
}

type addMembersResponse struct {
	Added      int      `json:"added"`
	Duplicates int      `json:"duplicates"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// HandleAddMembers adds users to an existing group. Only the group's admin
// may do this; members already in the group count as duplicates.
func (h *Handler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentUser(r)
	groupID := chi.URLParam(r, "groupID")

	var req addMembersRequest
	if err := httpjson.Decode(r, &req); err != nil || len(req.Members) == 0 {
		httpjson.Error(w, http.StatusBadRequest, "members list is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	group, err := groupstore.New(h.DB).GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			httpjson.Error(w, http.StatusNotFound, "group not found")
			return
		}
		h.Log.Error("group lookup failed", zap.String("group_id", groupID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not add members")
		return
	}
	if !group.IsAdmin(id.ID) {
		httpjson.Error(w, http.StatusForbidden, "only the group admin can add members")
		return
	}

	memberIDs, unresolved := h.resolveMembers(ctx, req.Members)
	res, err := membershipstore.New(h.DB).AddBatch(ctx, groupID, memberIDs)
	if err != nil {
		h.Log.Error("add members failed", zap.String("group_id", groupID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not add members")
		return
	}

	httpjson.Write(w, http.StatusOK, addMembersResponse{
		Added:      res.Added,
		Duplicates: res.Duplicates,
		Unresolved: unresolved,
	})
}

// ServeMessages returns the group's recent history, oldest first. This is
// the page-load side of history delivery; the websocket join pushes the
// same shape.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	limit := h.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpjson.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxHistoryPage {
		limit = maxHistoryPage
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := groupstore.New(h.DB).GetByID(ctx, groupID); err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			httpjson.Error(w, http.StatusNotFound, "group not found")
			return
		}
		h.Log.Error("group lookup failed", zap.String("group_id", groupID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not load messages")
		return
	}

	history, err := messagestore.New(h.DB).GroupHistory(ctx, groupID, limit)
	if err != nil {
		h.Log.Error("history load failed", zap.String("group_id", groupID), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "could not load messages")
		return
	}
	httpjson.Write(w, http.StatusOK, history)
}

// resolveMembers turns a mixed list of user ids and email addresses into
// user ids. Unknown entries are returned separately.
func (h *Handler) resolveMembers(ctx context.Context, entries []string) (ids []string, unresolved []string) {
	store := userstore.New(h.DB)
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		var (
			u   *models.User
			err error
		)
		if strings.Contains(entry, "@") {
			u, err = store.GetByEmail(ctx, entry)
		} else {
			u, err = store.GetByID(ctx, entry)
		}
		if err != nil {
			unresolved = append(unresolved, entry)
			continue
		}
		ids = append(ids, u.ID)
	}
	return ids, unresolved
}
