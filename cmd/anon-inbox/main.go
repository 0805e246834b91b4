package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/anon-inbox/internal/auth"
	"github.com/tendant/anon-inbox/internal/config"
	httpserver "github.com/tendant/anon-inbox/internal/http"
	"github.com/tendant/anon-inbox/internal/httputil"
	"github.com/tendant/anon-inbox/internal/inbox"
	"github.com/tendant/anon-inbox/internal/notification"
	"github.com/tendant/anon-inbox/internal/repository"
	"github.com/tendant/anon-inbox/internal/validation"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	store, ready, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	sender := newSender(cfg, logger)

	// Initialize services
	v := validation.New()
	sessionService := auth.NewSessionService(auth.SessionConfig{
		Secret: []byte(cfg.SessionSecret),
		Issuer: cfg.SessionIssuer,
		TTL:    cfg.SessionTTL,
	})
	registrationService := auth.NewRegistrationService(store, auth.NewCodeGenerator(cfg.VerifyCodeTTL), sender, v, logger)
	verificationService := auth.NewVerificationService(store, v, logger)
	passwordService := auth.NewPasswordService(store, v)
	inboxService := inbox.NewService(store, v, logger)

	cookie := httputil.DefaultCookieConfig()
	cookie.Secure = cfg.CookieSecure

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:              logger,
		RegistrationService: registrationService,
		VerificationService: verificationService,
		PasswordService:     passwordService,
		SessionService:      sessionService,
		InboxService:        inboxService,
		Validator:           v,
		Cookie:              cookie,
		DashboardPath:       cfg.DashboardPath,
		SecurityHeaders:     cfg.SecurityHeaders,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		Ready:               ready,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr, "store", cfg.StoreDriver, "email", cfg.EmailDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// openStore builds the account store for the configured driver. ready is nil
// for stores that are connected before the server starts.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.AccountStore, func() bool, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := repository.NewDB(ctx, repository.Config{
			DSN:             cfg.PostgresDSN(),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("connected to database")

		if cfg.DBAutoMigrate {
			if err := repository.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, nil, err
			}
			logger.Info("migrations applied")
		}
		return repository.NewPostgresAccountStore(db), nil, func() { db.Close() }, nil

	case config.StoreDriverMongo:
		conn := repository.NewConnector(repository.OpenMongoCollection(repository.MongoConfig{
			URI:     cfg.MongoURI,
			DB:      cfg.MongoDatabase,
			Timeout: 10 * time.Second,
		}))
		closeFn := func() {
			if err := conn.Close(repository.CloseMongoCollection); err != nil {
				logger.Error("mongo disconnect error", "error", err)
			}
		}
		return repository.NewMongoAccountStore(conn), conn.Ready, closeFn, nil

	default:
		logger.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryAccountStore(), nil, func() {}, nil
	}
}

func newSender(cfg *config.Config, logger *slog.Logger) notification.Sender {
	emailCfg := notification.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		AppName:  cfg.AppName,
	}

	switch cfg.EmailDriver {
	case config.EmailDriverSMTP:
		logger.Info("email service enabled", "driver", "smtp", "host", cfg.SMTPHost)
		return notification.NewSMTPSender(emailCfg)
	case config.EmailDriverAPI:
		logger.Info("email service enabled", "driver", "api")
		return notification.NewAPISender(cfg.EmailAPIURL, cfg.EmailAPIKey, emailCfg)
	default:
		logger.Warn("email delivery disabled; verification codes are logged")
		return notification.NewLogSender(logger)
	}
}
