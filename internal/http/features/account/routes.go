package account

import (
	"github.com/go-chi/chi/v5"
	"github.com/tendant/anon-inbox/internal/http/middleware"
)

// RegisterRoutes registers sign-up and verification routes.
func (h *Handler) RegisterRoutes(r chi.Router, dashboardPath string) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Gate(middleware.PublicOnly, dashboardPath))
		r.Post("/api/sign-up", h.Register)
		r.Post("/api/verify-code", h.Verify)
	})
	r.Get("/api/check-username-unique", h.CheckUsername)
}
