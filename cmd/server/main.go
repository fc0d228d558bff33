package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/Raihan-Sharif/finmate-sub005/internal/config"
	"github.com/Raihan-Sharif/finmate-sub005/internal/database"
	"github.com/Raihan-Sharif/finmate-sub005/internal/handlers"
	"github.com/Raihan-Sharif/finmate-sub005/internal/logging"
	"github.com/Raihan-Sharif/finmate-sub005/internal/middleware"
	"github.com/Raihan-Sharif/finmate-sub005/internal/notify"
	"github.com/Raihan-Sharif/finmate-sub005/internal/routes"
	"github.com/Raihan-Sharif/finmate-sub005/internal/scheduler"
	"github.com/Raihan-Sharif/finmate-sub005/internal/services"
	"github.com/Raihan-Sharif/finmate-sub005/internal/store"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Notification dispatcher: AMQP when configured, slog fallback otherwise
	var dispatcher notify.Dispatcher
	if cfg.AMQPURL != "" {
		amqpDispatcher, err := notify.NewAMQPDispatcher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("amqp connection failed", "error", err)
			os.Exit(1)
		}
		defer amqpDispatcher.Close()
		dispatcher = amqpDispatcher
		slog.Info("notification dispatcher connected", "exchange", cfg.AMQPExchange)
	} else {
		dispatcher = notify.LogDispatcher{}
		slog.Info("AMQP_URL not set, notifications go to the log")
	}

	// Scheduler: stores, jobs, engine, triggers
	auditStore := store.NewAuditStore(database.DB)
	templateStore := store.NewTemplateStore(database.DB)
	subscriptionStore := store.NewSubscriptionStore(database.DB)
	paymentStore := store.NewPaymentStore(database.DB)

	engine := scheduler.NewRunner(auditStore, cfg.MaxRunDuration)
	engine.Register(scheduler.NewObligationJob(templateStore, dispatcher, cfg.SchedulerWorkers))
	engine.Register(scheduler.NewSubscriptionReminderJob(
		subscriptionStore, dispatcher,
		time.Duration(cfg.ReminderWindowDays)*24*time.Hour,
	))

	cronTrigger := scheduler.NewCronTrigger(engine, []scheduler.JobSchedule{
		{JobName: scheduler.ObligationJobName, Spec: cfg.ObligationSpec, Active: cfg.SchedulerAutoStart},
		{JobName: scheduler.SubscriptionReminderJobName, Spec: cfg.ReminderSpec, Active: cfg.SchedulerAutoStart},
	}, cfg.RunTimeout)
	if cfg.SchedulerAutoStart {
		if err := cronTrigger.Start(); err != nil {
			slog.Error("cron trigger start failed", "error", err)
			os.Exit(1)
		}
	}
	manualTrigger := scheduler.NewManualTrigger(engine)

	// Services
	authService := services.NewAuthService(database.DB, cfg)
	obligationService := services.NewObligationService(database.DB)
	subscriptionService := services.NewSubscriptionService(database.DB, dispatcher)
	paymentService := services.NewPaymentService(database.DB, paymentStore, subscriptionService, dispatcher)
	cronLogService := services.NewCronLogService(database.DB, cronTrigger)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler()
	obligationHandler := handlers.NewObligationHandler(obligationService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	subscriptionHandler := handlers.NewSubscriptionAdminHandler(subscriptionService)
	cronHandler := handlers.NewCronHandler(cronLogService, manualTrigger)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB, authHandler, healthHandler, obligationHandler, paymentHandler, subscriptionHandler, cronHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	cronTrigger.Stop()
	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
