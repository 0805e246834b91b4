package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/anon-inbox/internal/auth"
	"github.com/tendant/anon-inbox/internal/config"
	"github.com/tendant/anon-inbox/internal/http/features/account"
	"github.com/tendant/anon-inbox/internal/http/features/messages"
	"github.com/tendant/anon-inbox/internal/http/features/session"
	"github.com/tendant/anon-inbox/internal/http/middleware"
	"github.com/tendant/anon-inbox/internal/httputil"
	"github.com/tendant/anon-inbox/internal/inbox"
	"github.com/tendant/anon-inbox/internal/validation"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger              *slog.Logger
	RegistrationService *auth.RegistrationService
	VerificationService *auth.VerificationService
	PasswordService     *auth.PasswordService
	SessionService      *auth.SessionService
	InboxService        *inbox.Service
	Validator           *validation.Validator
	Cookie              httputil.CookieConfig
	DashboardPath       string
	SecurityHeaders     config.SecurityHeadersConfig
	MaxRequestBodyBytes int64
	// Ready reports whether the store is reachable; nil means always ready.
	Ready func() bool
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodyBytes))
	r.Use(middleware.Auth(cfg.SessionService))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil && !cfg.Ready() {
			httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok", "store": "pending"})
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	account.NewHandler(
		cfg.Logger,
		cfg.RegistrationService,
		cfg.VerificationService,
	).RegisterRoutes(r, cfg.DashboardPath)

	session.NewHandler(
		cfg.Logger,
		cfg.PasswordService,
		cfg.SessionService,
		cfg.Cookie,
	).RegisterRoutes(r, cfg.DashboardPath)

	messages.NewHandler(
		cfg.Logger,
		cfg.InboxService,
		cfg.SessionService,
		cfg.Validator,
		cfg.Cookie,
	).RegisterRoutes(r, cfg.DashboardPath)

	return r
}
