package account

import (
	"log/slog"
	"net/http"

	"github.com/tendant/anon-inbox/internal/auth"
	"github.com/tendant/anon-inbox/internal/httputil"
)

// Handler handles sign-up, verification and username checks.
type Handler struct {
	logger              *slog.Logger
	registrationService *auth.RegistrationService
	verificationService *auth.VerificationService
}

// NewHandler creates a new account handler.
func NewHandler(
	logger *slog.Logger,
	registrationService *auth.RegistrationService,
	verificationService *auth.VerificationService,
) *Handler {
	return &Handler{
		logger:              logger,
		registrationService: registrationService,
		verificationService: verificationService,
	}
}

// Register handles sign-up.
// POST /api/sign-up
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}

	if _, err := h.registrationService.Register(r.Context(), req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusCreated, "User registered successfully. Please verify your account.", nil)
}

// Verify checks a verification code.
// POST /api/verify-code
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}

	if _, err := h.verificationService.Verify(r.Context(), req); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	httputil.Success(w, http.StatusOK, "Account verified successfully", nil)
}

// CheckUsername reports whether a username is available.
// GET /api/check-username-unique?username=
func (h *Handler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	available, err := h.registrationService.CheckUsername(r.Context(), username)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	message := "Username is unique"
	if !available {
		message = "Username is already taken"
	}
	httputil.Success(w, http.StatusOK, message, httputil.Payload{"available": available})
}
