package session

import (
	"github.com/go-chi/chi/v5"
	"github.com/tendant/anon-inbox/internal/http/middleware"
)

// RegisterRoutes registers session routes.
func (h *Handler) RegisterRoutes(r chi.Router, dashboardPath string) {
	r.With(middleware.Gate(middleware.PublicOnly, dashboardPath)).Post("/api/sign-in", h.SignIn)
	r.Post("/api/sign-out", h.SignOut)
	r.With(middleware.Gate(middleware.Protected, dashboardPath)).Get("/api/session", h.Session)
}
