package session

import (
	"log/slog"
	"net/http"

	"github.com/tendant/anon-inbox/internal/auth"
	"github.com/tendant/anon-inbox/internal/domain"
	"github.com/tendant/anon-inbox/internal/http/middleware"
	"github.com/tendant/anon-inbox/internal/httputil"
)

// Handler handles session endpoints.
type Handler struct {
	logger          *slog.Logger
	passwordService *auth.PasswordService
	sessionService  *auth.SessionService
	cookieConfig    httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(
	logger *slog.Logger,
	passwordService *auth.PasswordService,
	sessionService *auth.SessionService,
	cookieConfig httputil.CookieConfig,
) *Handler {
	return &Handler{
		logger:          logger,
		passwordService: passwordService,
		sessionService:  sessionService,
		cookieConfig:    cookieConfig,
	}
}

// SignIn authenticates with email or username and password.
// POST /api/sign-in
//
// For web clients: Sets the HttpOnly session cookie.
// For mobile clients (X-Client-Type: mobile): Also returns the token in the body.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req auth.SignInInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}

	account, err := h.passwordService.Authenticate(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	principal := account.Principal()
	token, expires, err := h.sessionService.Issue(principal)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.SetSessionCookie(w, token, h.sessionService.TTL(), h.cookieConfig)

	payload := httputil.Payload{"user": principal}
	if httputil.IsMobileClient(r) {
		payload["token"] = token
		payload["expiresAt"] = expires
	}
	httputil.Success(w, http.StatusOK, "Signed in successfully", payload)
}

// SignOut clears the session cookie.
// POST /api/sign-out
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	httputil.ClearSessionCookie(w, h.cookieConfig)
	httputil.Success(w, http.StatusOK, "Signed out successfully", nil)
}

// Session returns the current principal.
// GET /api/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.logger, domain.ErrUnauthenticated)
		return
	}
	httputil.Success(w, http.StatusOK, "Session active", httputil.Payload{"user": principal})
}
