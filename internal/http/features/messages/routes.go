package messages

import (
	"github.com/go-chi/chi/v5"
	"github.com/tendant/anon-inbox/internal/http/middleware"
)

// RegisterRoutes registers the acceptance toggle and message routes.
func (h *Handler) RegisterRoutes(r chi.Router, dashboardPath string) {
	r.Post("/api/send-message", h.Send)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Gate(middleware.Protected, dashboardPath))
		r.Use(middleware.RequireVerified())
		r.Post("/api/accept-messages", h.SetAcceptMessages)
		r.Get("/api/accept-messages", h.GetAcceptMessages)
		r.Get("/api/get-messages", h.List)
		r.Delete("/api/delete-message/{messageID}", h.Delete)
	})
}
