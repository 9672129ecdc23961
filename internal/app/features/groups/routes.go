// internal/app/features/groups/routes.go
package groups

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(h.Auth.LoadUser)
	r.Use(h.Auth.RequireSignedIn)
	r.Post("/", h.HandleCreate)
	r.Get("/", h.ServeMyGroups)
	r.Post("/{groupID}/add-members", h.HandleAddMembers)
	r.Get("/{groupID}/messages", h.ServeMessages)
	return r
}
