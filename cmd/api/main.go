package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "thesis-eval/docs" // This is for Swagger
	"thesis-eval/internal/auth"
	"thesis-eval/internal/config"
	"thesis-eval/internal/database"
	"thesis-eval/internal/email"
	"thesis-eval/internal/events"
	"thesis-eval/internal/handlers"
	"thesis-eval/internal/logger"
	"thesis-eval/internal/middleware"
	"thesis-eval/internal/repository"
	"thesis-eval/internal/scheduler"
	"thesis-eval/internal/service"
	"thesis-eval/internal/vault"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Thesis Evaluation API
// @version 1.0
// @description Backend API for thesis defense rubrics, panelist scoring and student evaluation summaries

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		err := db.Close()
		if err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations(context.Background(), cfg.Database.MigrationsPath); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	tokenRepo := repository.NewTokenRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	rubricRepo := repository.NewRubricRepository(db.DB)
	groupRepo := repository.NewGroupRepository(db.DB)
	scheduleRepo := repository.NewScheduleRepository(db.DB)
	evaluationRepo := repository.NewEvaluationRepository(db.DB)
	studentEvaluationRepo := repository.NewStudentEvaluationRepository(db.DB)

	// Initialize answer sealing (if Vault is enabled)
	var sealer service.AnswerSealer
	var vaultClient *vault.Client
	if cfg.Vault.Enabled {
		slog.Info("Vault is enabled - sealing student answers")
		vaultClient, err = vault.NewClient(context.Background(), cfg.Vault)
		if err != nil {
			slog.Error("Failed to initialize Vault client", "error", err)
			os.Exit(1)
		}
		sealer = vault.NewAnswerSealer(vaultClient)
		slog.Info("Answer sealing initialized", "vault_addr", cfg.Vault.Address, "key", cfg.Vault.KeyName)
	} else {
		slog.Warn("Vault is disabled - student answers are stored unsealed")
	}

	// Initialize event publishing (if RabbitMQ is enabled)
	var publisher service.EventPublisher = events.Noop{}
	if cfg.Events.Enabled {
		amqpPublisher, err := events.NewPublisher(cfg.Events)
		if err != nil {
			slog.Error("Failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := amqpPublisher.Close(); err != nil {
				slog.Error("Failed to close RabbitMQ publisher", "error", err)
			}
		}()
		publisher = amqpPublisher
		slog.Info("Event publishing enabled", "exchange", cfg.Events.Exchange)
	}

	// Initialize services
	authService := auth.NewService(cfg.JWT)
	emailService := email.NewService(cfg.Email, cfg.App.Name)
	auditSvc := service.NewAuditService(auditRepo)
	authSvc := service.NewAuthService(userRepo, tokenRepo, authService, emailService, auditSvc, cfg.Email.ResetTokenTTL)
	rubricSvc := service.NewRubricService(rubricRepo, auditSvc)
	groupSvc := service.NewGroupService(groupRepo, auditSvc)
	scheduleSvc := service.NewScheduleService(scheduleRepo, groupRepo, rubricRepo, auditSvc)
	evaluationSvc := service.NewEvaluationService(evaluationRepo, scheduleRepo, groupRepo, rubricRepo, auditSvc, publisher)
	studentEvaluationSvc := service.NewStudentEvaluationService(studentEvaluationRepo, scheduleRepo, groupRepo, sealer, auditSvc, publisher)
	summarySvc := service.NewSummaryService(groupRepo, scheduleRepo, evaluationRepo, rubricRepo, userRepo)

	// Initialize scheduler
	schedulerService := scheduler.NewScheduler(tokenRepo, cfg.Scheduler)
	schedulerService.Start()
	defer schedulerService.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, userRepo, cfg.Session.CookieName)
	corsMw := middleware.NewCORS(cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer rateLimiter.Stop()
	proxies, err := middleware.NewTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		slog.Error("Invalid SERVER_TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, cfg.App.Version)
	if vaultClient != nil {
		healthHandler.WithCheck("vault", vaultClient)
	}

	routes := &handlers.Handlers{
		Auth:       handlers.NewAuthHandler(authSvc, cfg.Session),
		Evaluation: handlers.NewEvaluationHandler(rubricSvc, evaluationSvc, studentEvaluationSvc),
		Summary:    handlers.NewSummaryHandler(summarySvc),
		Groups:     handlers.NewGroupHandler(groupSvc),
		Schedules:  handlers.NewScheduleHandler(scheduleSvc),
		Audit:      handlers.NewAuditHandler(auditSvc),
		Health:     healthHandler,
	}

	// Setup router
	mux := http.NewServeMux()
	routes.Register(mux, authMw)

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := proxies.Handler(
		middleware.LoggingMiddleware(
			middleware.SecurityHeaders(
				corsMw(
					rateLimiter.Limit(mux),
				),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return
	}

	slog.Info("Server stopped")
}
