package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgo/saga/onboarding/internal/config"
	"github.com/forgo/saga/onboarding/internal/database"
	"github.com/forgo/saga/onboarding/internal/handler"
	"github.com/forgo/saga/onboarding/internal/jobs"
	"github.com/forgo/saga/onboarding/internal/middleware"
	"github.com/forgo/saga/onboarding/internal/repository"
	"github.com/forgo/saga/onboarding/internal/service"
	"github.com/forgo/saga/onboarding/internal/wizard"
	"github.com/forgo/saga/onboarding/pkg/jwt"
)

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to apply schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize JWT service
	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Initialize services
	catalog := wizard.DefaultCatalog()
	profileService := service.NewProfileService(service.ProfileServiceConfig{
		Repo:    profileRepo,
		Catalog: catalog,
	})
	onboardingService := service.NewOnboardingService(service.OnboardingServiceConfig{
		Sessions:    sessionRepo,
		Submitter:   profileService,
		Catalog:     catalog,
		Logger:      logger,
		SessionTTL:  cfg.Onboarding.SessionTTL,
		IdleTimeout: cfg.Onboarding.IdleTimeout,
		Redirect:    cfg.Onboarding.Redirect,
	})

	// Request guards
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:   cfg.RateLimit.Rate,
		Window: cfg.RateLimit.Window,
		Burst:  cfg.RateLimit.Burst,
	})
	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{
		TTL: cfg.Onboarding.IdempotencyTTL,
	})

	// Rate limiting runs after auth so buckets are per user.
	authMiddleware := middleware.Auth(jwtService)
	authed := func(next http.Handler) http.Handler {
		return authMiddleware(middleware.RateLimit(rateLimiter)(next))
	}
	idempotent := middleware.Idempotency(idempotencyStore)

	// Start background jobs
	sweeper := jobs.NewSessionSweeper(jobs.SessionSweeperConfig{
		Sessions: onboardingService,
		Pruners:  []jobs.Pruner{rateLimiter, idempotencyStore},
		Interval: cfg.Onboarding.SweepInterval,
		Logger:   logger,
	})
	sweeper.Start()
	defer sweeper.Stop()

	// Create router and register routes
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", handler.Health(db))

	handler.NewOnboardingHandler(onboardingService).RegisterRoutes(mux, authed, idempotent)
	handler.NewProfileHandler(profileService).RegisterRoutes(mux, authed, idempotent)

	// Apply global middleware
	wrapped := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Compress,
	)

	// Create HTTP server. WriteTimeout stays zero so event streams stay open;
	// handlers bound their own work through the request context.
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           wrapped,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}
