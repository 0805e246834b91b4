// Package anoninbox embeds the anonymous inbox API in another service.
//
// Setup:
//
//  1. Apply the migrations (or set Migrate) when using Postgres
//  2. Create an Inbox instance and mount its router
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	box, err := anoninbox.New(ctx, anoninbox.Config{
//	    DB:            db,
//	    SessionSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//
//	http.ListenAndServe(":8080", box.Handler())
//
// With MongoDB (connected lazily on first request):
//
//	box, err := anoninbox.New(ctx, anoninbox.Config{
//	    MongoURI:      "mongodb://localhost:27017",
//	    SessionSecret: "your-secret-key-at-least-32-chars",
//	})
package anoninbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tendant/anon-inbox/internal/auth"
	"github.com/tendant/anon-inbox/internal/config"
	"github.com/tendant/anon-inbox/internal/domain"
	httpserver "github.com/tendant/anon-inbox/internal/http"
	"github.com/tendant/anon-inbox/internal/http/middleware"
	"github.com/tendant/anon-inbox/internal/httputil"
	"github.com/tendant/anon-inbox/internal/inbox"
	"github.com/tendant/anon-inbox/internal/notification"
	"github.com/tendant/anon-inbox/internal/repository"
	"github.com/tendant/anon-inbox/internal/validation"
	"go.mongodb.org/mongo-driver/mongo"
)

// Sender delivers verification codes.
type Sender = notification.Sender

// Principal is the signed-in caller.
type Principal = domain.Principal

// Config holds the configuration for an embedded inbox.
// Exactly one of DB, MongoURI or InMemory selects the store.
type Config struct {
	// DB is a Postgres connection.
	DB *sql.DB

	// Migrate applies the bundled migrations to DB before use.
	Migrate bool

	// MongoURI selects MongoDB. The connection opens on first use.
	MongoURI string

	// MongoDatabase is the MongoDB database name (default: "anon_inbox").
	MongoDatabase string

	// InMemory keeps everything in process memory.
	InMemory bool

	// SessionSecret signs session tokens (required, min 32 chars).
	SessionSecret string

	// SessionIssuer is the issuer claim in session tokens (default: "anon-inbox").
	SessionIssuer string

	// SessionTTL is the session lifetime (default: 30 days).
	SessionTTL time.Duration

	// CodeTTL is how long a verification code stays valid (default: 1 hour).
	CodeTTL time.Duration

	// Sender delivers verification codes (default: log them).
	Sender Sender

	// DashboardPath is where signed-in callers on sign-in pages are sent (default: "/dashboard").
	DashboardPath string

	// CookieSecure sets the Secure flag on the session cookie.
	CookieSecure bool

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// Inbox is an embeddable anonymous inbox instance.
type Inbox struct {
	config   Config
	store    repository.AccountStore
	mongo    *repository.Connector[*mongo.Collection]
	sessions *auth.SessionService
	handler  http.Handler
}

// New creates a new Inbox with the given configuration.
// For Postgres it returns an error if the schema is missing and Migrate is unset.
func New(ctx context.Context, cfg Config) (*Inbox, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	i := &Inbox{config: cfg}

	switch {
	case cfg.DB != nil:
		if cfg.Migrate {
			if err := repository.Migrate(ctx, cfg.DB); err != nil {
				return nil, fmt.Errorf("anoninbox: %w", err)
			}
		}
		if err := validateSchema(ctx, cfg.DB); err != nil {
			return nil, err
		}
		i.store = repository.NewPostgresAccountStore(cfg.DB)
	case cfg.MongoURI != "":
		i.mongo = repository.NewConnector(repository.OpenMongoCollection(repository.MongoConfig{
			URI:     cfg.MongoURI,
			DB:      cfg.MongoDatabase,
			Timeout: 10 * time.Second,
		}))
		i.store = repository.NewMongoAccountStore(i.mongo)
	default:
		i.store = repository.NewMemoryAccountStore()
	}

	v := validation.New()
	i.sessions = auth.NewSessionService(auth.SessionConfig{
		Secret: []byte(cfg.SessionSecret),
		Issuer: cfg.SessionIssuer,
		TTL:    cfg.SessionTTL,
	})

	cookie := httputil.DefaultCookieConfig()
	cookie.Secure = cfg.CookieSecure

	routerCfg := httpserver.RouterConfig{
		Logger:              cfg.Logger,
		RegistrationService: auth.NewRegistrationService(i.store, auth.NewCodeGenerator(cfg.CodeTTL), cfg.Sender, v, cfg.Logger),
		VerificationService: auth.NewVerificationService(i.store, v, cfg.Logger),
		PasswordService:     auth.NewPasswordService(i.store, v),
		SessionService:      i.sessions,
		InboxService:        inbox.NewService(i.store, v, cfg.Logger),
		Validator:           v,
		Cookie:              cookie,
		DashboardPath:       cfg.DashboardPath,
		SecurityHeaders:     config.SecurityHeadersConfig{Enabled: true, FrameOptions: "DENY", ContentTypeOptions: "nosniff"},
		MaxRequestBodyBytes: 1 << 20,
	}
	if i.mongo != nil {
		routerCfg.Ready = i.mongo.Ready
	}
	i.handler = httpserver.NewRouter(routerCfg)

	return i, nil
}

// Handler returns the inbox API with all routes registered under /api.
//
//	mux := http.NewServeMux()
//	mux.Handle("/", box.Handler())
func (i *Inbox) Handler() http.Handler {
	return i.handler
}

// AuthMiddleware returns middleware that resolves the session into a
// principal without rejecting anonymous callers.
// Use this to read the caller on your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(box.AuthMiddleware())
//	    r.Get("/me", handler)
//	})
func (i *Inbox) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(i.sessions)
}

// GetPrincipal extracts the signed-in caller from a request.
// Use after AuthMiddleware:
//
//	p, ok := anoninbox.GetPrincipal(r)
func GetPrincipal(r *http.Request) (Principal, bool) {
	return middleware.PrincipalFrom(r.Context())
}

// Close releases the MongoDB connection if one was opened.
// A caller-supplied DB is left open.
func (i *Inbox) Close() error {
	if i.mongo == nil {
		return nil
	}
	return i.mongo.Close(repository.CloseMongoCollection)
}

func validateConfig(cfg *Config) error {
	stores := 0
	if cfg.DB != nil {
		stores++
	}
	if cfg.MongoURI != "" {
		stores++
	}
	if cfg.InMemory {
		stores++
	}
	if stores != 1 {
		return errors.New("anoninbox: exactly one of DB, MongoURI or InMemory is required")
	}
	if cfg.SessionSecret == "" {
		return errors.New("anoninbox: SessionSecret is required")
	}
	if len(cfg.SessionSecret) < 32 {
		return errors.New("anoninbox: SessionSecret must be at least 32 characters")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.SessionIssuer == "" {
		cfg.SessionIssuer = "anon-inbox"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = auth.DefaultSessionTTL
	}
	if cfg.CodeTTL == 0 {
		cfg.CodeTTL = auth.DefaultCodeTTL
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "anon_inbox"
	}
	if cfg.DashboardPath == "" {
		cfg.DashboardPath = "/dashboard"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if cfg.Sender == nil {
		cfg.Sender = notification.NewLogSender(cfg.Logger)
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(ctx context.Context, db *sql.DB) error {
	requiredTables := []string{"accounts", "messages"}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRowContext(ctx, query, table).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("anoninbox: missing table '%s' - run migrations first or set Migrate", table)
		}
		if err != nil {
			return fmt.Errorf("anoninbox: failed to check schema: %w", err)
		}
	}

	return nil
}
