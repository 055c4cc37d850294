package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go-token-auth/internal/cache"
	"go-token-auth/internal/config"
	"go-token-auth/internal/database"
	"go-token-auth/internal/handler"
	"go-token-auth/internal/metrics"
	"go-token-auth/internal/middleware"
	"go-token-auth/internal/repository"
	"go-token-auth/internal/router"
	"go-token-auth/internal/service"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBConnectRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	app := &App{cleanupFuncs: []func(){db.Close}}

	userRepo := repository.NewUserRepository(db.Pool)
	optionRepo := repository.NewOptionRepository(db.Pool)
	slog.Info("database ready")

	var slots service.SessionSlots = repository.NewTokenRepository(db.Pool)
	if cfg.SessionStore == config.SessionStoreRedis {
		client, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.cleanupFuncs = append(app.cleanupFuncs, func() { _ = client.Close() })
		slots = cache.NewSessionStore(client)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	directory := service.NewUserDirectory(userRepo, cfg.BcryptCost)
	secrets := service.NewSecretStore(optionRepo)
	sessions := service.NewSessionAuthenticator(secrets, slots, directory, service.SessionOptions{
		SingleSession:    cfg.SingleSession,
		VerifyUserExists: cfg.VerifyUserExists,
	}, m)
	authService := service.NewAuthService(secrets, service.NewCredentialVerifier(directory), sessions, directory, service.AuthOptions{
		Profile:           cfg.Profile(),
		MinPasswordLength: cfg.MinPasswordLength,
	}, m)

	// Create the signing key now so the first login does not pay for it.
	if _, err := secrets.Get(ctx); err != nil {
		slog.Warn("signing secret not ready, will retry on first request", "error", err)
	}

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(sessions), router.Handlers{
		Token:  handler.NewTokenHandler(authService, cfg.VerifyFailureMode),
		User:   handler.NewUserHandler(authService),
		Health: handler.NewHealthHandler(db),
	}, m)

	app.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	slog.Info("token auth configured",
		"prefix", cfg.APIPrefix,
		"claims_profile", cfg.ClaimsProfile,
		"single_session", cfg.SingleSession,
		"session_store", cfg.SessionStore,
		"verify_user_exists", cfg.VerifyUserExists,
		"verify_failure_mode", cfg.VerifyFailureMode,
	)

	return app, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
}
