package messages

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/anon-inbox/internal/auth"
	"github.com/tendant/anon-inbox/internal/domain"
	"github.com/tendant/anon-inbox/internal/http/middleware"
	"github.com/tendant/anon-inbox/internal/httputil"
	"github.com/tendant/anon-inbox/internal/inbox"
	"github.com/tendant/anon-inbox/internal/validation"
)

// Handler handles the acceptance toggle and message endpoints.
type Handler struct {
	logger         *slog.Logger
	inboxService   *inbox.Service
	sessionService *auth.SessionService
	validate       *validation.Validator
	cookieConfig   httputil.CookieConfig
}

// NewHandler creates a new messages handler.
func NewHandler(
	logger *slog.Logger,
	inboxService *inbox.Service,
	sessionService *auth.SessionService,
	validate *validation.Validator,
	cookieConfig httputil.CookieConfig,
) *Handler {
	return &Handler{
		logger:         logger,
		inboxService:   inboxService,
		sessionService: sessionService,
		validate:       validate,
		cookieConfig:   cookieConfig,
	}
}

// AcceptMessagesRequest toggles message acceptance.
type AcceptMessagesRequest struct {
	AcceptMessages *bool `json:"acceptMessages" validate:"required"`
}

// MessageResponse is the public view of a message.
type MessageResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toResponse(messages []domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageResponse{ID: m.ID, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return out
}

// SetAcceptMessages updates the caller's acceptance flag.
// POST /api/accept-messages
//
// The session cookie is reissued so its cached flag matches the store.
func (h *Handler) SetAcceptMessages(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req AcceptMessagesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	account, err := h.inboxService.SetAccepting(r.Context(), principal.ID, *req.AcceptMessages)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	updated := account.Principal()
	if token, _, err := h.sessionService.Issue(updated); err != nil {
		h.logger.WarnContext(r.Context(), "session reissue failed", "account_id", account.ID, "error", err)
	} else {
		httputil.SetSessionCookie(w, token, h.sessionService.TTL(), h.cookieConfig)
	}

	httputil.Success(w, http.StatusOK, "Message acceptance status updated successfully", httputil.Payload{"user": updated})
}

// GetAcceptMessages returns the caller's acceptance flag.
// GET /api/accept-messages
func (h *Handler) GetAcceptMessages(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	accepting, err := h.inboxService.IsAccepting(r.Context(), principal.ID)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusOK, "Message acceptance status", httputil.Payload{"isAcceptingMessages": accepting})
}

// Send delivers an anonymous message.
// POST /api/send-message
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req inbox.SendInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}

	if _, err := h.inboxService.Send(r.Context(), req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusCreated, "Message sent successfully", nil)
}

// List returns the caller's messages, newest first.
// GET /api/get-messages
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	messages, err := h.inboxService.List(r.Context(), principal.ID)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusOK, "Messages fetched successfully", httputil.Payload{"messages": toResponse(messages)})
}

// Delete removes one of the caller's messages.
// DELETE /api/delete-message/{messageID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.inboxService.Delete(r.Context(), principal.ID, chi.URLParam(r, "messageID")); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusOK, "Message deleted", nil)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.logger, domain.ErrUnauthenticated)
	}
	return p, ok
}
