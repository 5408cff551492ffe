package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/background"
	"github.com/openshelf/openshelf/internal/cache"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/database"
	"github.com/openshelf/openshelf/internal/events"
	"github.com/openshelf/openshelf/internal/gateway"
	"github.com/openshelf/openshelf/internal/handlers"
	middlewareCustom "github.com/openshelf/openshelf/internal/middleware"
	"github.com/openshelf/openshelf/internal/migrations"
	"github.com/openshelf/openshelf/internal/models"
	"github.com/openshelf/openshelf/internal/repositories"
	"github.com/openshelf/openshelf/internal/routes"
	"github.com/openshelf/openshelf/internal/services"
	pkgauth "github.com/openshelf/openshelf/pkg/auth"
	pkghttp "github.com/openshelf/openshelf/pkg/http"
	pkglogger "github.com/openshelf/openshelf/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := migrations.Up(migrateCtx, db.Pool); err != nil {
		migrateCancel()
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)
	inviteRepo := repositories.NewInviteTokenRepository(db)
	signupTokenRepo := repositories.NewSignupTokenRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	paymentConfigRepo := repositories.NewPaymentConfigRepository(db)
	planRepo := repositories.NewPricingPlanRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	// Initialize token managers. The signup token secret is separate
	// from the session secret so one compromise does not open both
	// surfaces.
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)
	signupSigner := auth.NewSignupTokenSigner(
		cfg.Payments.SignupTokenSecret,
		cfg.Payments.SignupTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)
	auditTrail := services.NewAuditTrail(auditRepo, logger)
	auditLogger.SetSink(auditTrail)

	// Optional Redis plan cache
	var planCache services.PlanCache
	var redisCache *cache.Cache
	if cfg.Redis.Addr != "" {
		cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err = cache.NewCache(cacheCtx, cfg.Redis, logger)
		cacheCancel()
		if err != nil {
			logger.Warn("redis unavailable, plan cache disabled", slog.Any("error", err))
		} else {
			planCache = redisCache
			defer redisCache.Close()
		}
	}

	// Optional AMQP publisher for receipt emails
	var publisher services.EventPublisher
	var amqpPublisher *events.Publisher
	if cfg.AMQP.URL != "" {
		amqpPublisher, err = events.NewPublisher(cfg.AMQP, logger)
		if err != nil {
			logger.Warn("amqp unavailable, payment events disabled", slog.Any("error", err))
		} else {
			publisher = amqpPublisher
			defer amqpPublisher.Close()
		}
	}

	// Payment gateway adapters. Credentials come from the payment
	// config registry at call time, so admin changes apply without a
	// restart.
	adapters := []gateway.Adapter{
		gateway.NewStripeAdapter(paymentConfigRepo, cfg.Payments.Environment, cfg.Payments.ProviderTimeout),
		gateway.NewPaypalAdapter(paymentConfigRepo, cfg.Payments.Environment, cfg.Payments.ProviderTimeout),
	}
	if cfg.Payments.MockEnabled {
		mockAdapter, err := gateway.NewMockAdapter(cfg.Payments.Environment, cfg.Server.BaseURL+"/mock-pay")
		if err != nil {
			logger.Error("failed to initialize mock gateway", slog.Any("error", err))
			os.Exit(1)
		}
		adapters = append(adapters, mockAdapter)
	}
	registry := gateway.NewRegistry(adapters...)

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.URLBase,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	userService := services.NewUserService(userRepo, logger)
	bookService := services.NewBookService(bookRepo, logger)
	planService := services.NewPlanService(planRepo, planCache, cfg.Redis.PlanTTL, logger)
	paymentConfigService := services.NewPaymentConfigService(paymentConfigRepo, logger, auditLogger)
	authService := services.NewAuthService(userRepo, revokeRepo, resetRepo, tokenManager, emailService, logger, auditLogger, cfg.Auth.ResetTokenExpiry)
	inviteService := services.NewInviteService(inviteRepo, userRepo, emailService, logger, auditLogger, cfg.Auth.InviteTokenExpiry)
	checkoutService := services.NewCheckoutService(
		registry, planRepo, paymentRepo, publisher, logger, auditLogger,
		cfg.Server.BaseURL+"/payment/confirm",
		cfg.Server.BaseURL+"/checkout/cancelled",
	)
	signupService := services.NewSignupService(
		signupSigner, signupTokenRepo, paymentRepo, userRepo, planRepo,
		tokenManager, publisher, logger, auditLogger,
	)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService, ipConfig),
		Users:         handlers.NewUserHandler(userService, inviteService),
		Plans:         handlers.NewPlanHandler(planService, paymentConfigService, cfg.Payments.Environment, cfg.Payments.MockEnabled),
		PaymentConfig: handlers.NewPaymentConfigHandler(paymentConfigService),
		Checkout:      handlers.NewCheckoutHandler(checkoutService, signupService),
		Signup:        handlers.NewSignupHandler(signupService),
		Webhooks:      handlers.NewWebhookHandler(checkoutService),
		Books:         handlers.NewBookHandler(bookService),
		AuditLogs:     handlers.NewAuditLogHandler(auditTrail),
	}

	// Bootstrap first admin user if configured
	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(bootstrapCtx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	bootstrapCancel()

	// Initialize cleanup manager
	auditRetention := 90 * 24 * time.Hour
	cleanupManager := background.NewCleanupManager(logger, cfg.Auth.CleanupInterval, map[string]background.ExpiringStore{
		"signup_tokens":  signupTokenRepo,
		"invite_tokens":  inviteRepo,
		"reset_tokens":   resetRepo,
		"revoked_tokens": revokeRepo,
		"audit_retention": background.ExpiringFunc(func(ctx context.Context) (int64, error) {
			return auditRepo.DeleteOlderThan(ctx, time.Now().Add(-auditRetention))
		}),
	})

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middlewareCustom.Metrics)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	revocations := revocationChecker{repo: revokeRepo}
	revocationCfg := auth.RevocationConfig{FailClosed: cfg.Auth.RevocationFailClosed}
	routes.RegisterRoutes(router, h, tokenManager, userRepo, revocations, revocationCfg, userService)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// revocationChecker adapts the revocation repository to the auth
// middleware interface.
type revocationChecker struct {
	repo *repositories.TokenRevocationRepository
}

func (c revocationChecker) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return c.repo.IsRevoked(ctx, jti)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	// Check if admin already exists
	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
