// internal/app/features/authapi/routes.go
package authapi

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(h.Auth.LoadUser)
		pr.Use(h.Auth.RequireSignedIn)
		pr.Get("/me", h.ServeMe)
		pr.Patch("/me", h.HandleUpdateProfile)
		pr.Post("/me/avatar", h.HandleAvatarUpload)
		pr.Get("/users", h.ServeUserSearch)
	})
	return r
}
