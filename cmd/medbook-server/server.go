package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/config"
	"github.com/medbook/medbook/internal/domain/appointment"
	"github.com/medbook/medbook/internal/domain/catalog"
	"github.com/medbook/medbook/internal/domain/feedback"
	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/domain/patient"
	"github.com/medbook/medbook/internal/domain/payment"
	"github.com/medbook/medbook/internal/domain/provider"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/db"
	"github.com/medbook/medbook/internal/platform/middleware"
	"github.com/medbook/medbook/internal/platform/notification"
	"github.com/medbook/medbook/internal/platform/reporting"
	"github.com/medbook/medbook/internal/platform/telemetry"
)

// newGateway selects the checkout provider named by PAYMENT_PROVIDER.
func newGateway(cfg *config.Config) (payment.Gateway, error) {
	switch cfg.PaymentProvider {
	case "sandbox":
		return payment.SandboxGateway{}, nil
	case "razorpay":
		return payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.PaymentCurrency), nil
	}
	return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
}

// newEmailSender delivers over SMTP when configured and logs otherwise.
func newEmailSender(cfg *config.Config, logger zerolog.Logger) notification.EmailSender {
	if cfg.SMTPEnabled() {
		return notification.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}
	return notification.NewLogSender(logger)
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	return rl
}

func runServer(migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if migrate {
		n, err := db.NewMigrator(pool, migrationSource(cfg.MigrationsDir)).Up(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Int("applied", n).Msg("migrations up to date")
	}

	// Session revocation: Redis when configured, in-process otherwise.
	var revocations auth.RevocationStore
	var healthChecks []db.Check
	if cfg.RedisURL != "" {
		client, err := auth.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		defer client.Close()
		store := auth.NewRedisRevocationStore(client)
		revocations = store
		healthChecks = append(healthChecks, db.Check{Name: "redis", Probe: store.Ping})
		logger.Info().Msg("using redis session revocation store")
	} else {
		store := auth.NewMemoryRevocationStore(time.Minute)
		defer store.Close()
		revocations = store
	}

	metrics := telemetry.New("medbook")
	notifier := notification.NewNotifier(newEmailSender(cfg, logger), notification.NewTemplateEngine(), metrics, logger)
	gateway, err := newGateway(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment gateway")
	}
	tx := db.NewTxManager(pool)
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.SessionTTL)

	// Domain services
	patientSvc := patient.NewService(patient.NewPatientRepoPG(pool), logger)
	identitySvc := identity.NewService(identity.NewUserRepoPG(pool), tx, auth.NewBcryptHasher(), tokens,
		revocations, patientSvc, metrics, logger)
	catalogSvc := catalog.NewService(catalog.NewSpecialtyRepoPG(pool), logger)
	providerSvc := provider.NewService(provider.NewDoctorRepoPG(pool), identitySvc, catalogSvc, tx,
		notifier, cfg.PublicBaseURL+auth.LoginPath, logger)
	appointmentSvc := appointment.NewService(appointment.NewAppointmentRepoPG(pool), providerSvc, patientSvc,
		notifier, metrics, cfg.PublicBaseURL, logger)
	reconciler := payment.NewReconciler(payment.NewPaymentRepoPG(pool), tx, gateway, notifier, metrics,
		cfg.PublicBaseURL, cfg.PaymentCurrency, logger)
	feedbackSvc := feedback.NewService(feedback.NewFeedbackRepoPG(pool), appointmentSvc, logger)

	seed(ctx, cfg, catalogSvc, identitySvc, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(metrics.Middleware())
	e.Use(auth.SessionMiddleware(auth.SessionConfig{
		Issuer:      tokens,
		Revocations: revocations,
		Logger:      logger,
	}))
	e.Use(middleware.Audit(logger, middleware.AuditMetrics(metrics)))

	// Role surfaces
	accountGroup := e.Group("/account", middleware.RateLimit(rateLimitConfig(cfg)))
	adminGroup := e.Group("/admin")
	doctorGroup := e.Group("/doctor")
	patientGroup := e.Group("/patient")

	identity.NewHandler(identitySvc, !cfg.IsDev()).RegisterRoutes(accountGroup)
	catalog.NewHandler(catalogSvc).RegisterRoutes(adminGroup)
	provider.NewHandler(providerSvc).RegisterRoutes(adminGroup, doctorGroup, patientGroup)
	patient.NewHandler(patientSvc).RegisterRoutes(adminGroup, patientGroup)
	appointment.NewHandler(appointmentSvc, patientSvc, providerSvc).RegisterRoutes(patientGroup, doctorGroup)
	payment.NewHandler(reconciler, patientSvc).RegisterRoutes(patientGroup)
	feedback.NewHandler(feedbackSvc, patientSvc).RegisterRoutes(patientGroup)
	reporting.NewHandler(reporting.NewStorePG(pool), logger).RegisterRoutes(adminGroup)

	// Operational endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, healthChecks...))
	e.GET("/metrics", metrics.Handler())

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
