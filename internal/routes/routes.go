package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/Raihan-Sharif/finmate-sub005/internal/config"
	"github.com/Raihan-Sharif/finmate-sub005/internal/handlers"
	"github.com/Raihan-Sharif/finmate-sub005/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	obligationHandler *handlers.ObligationHandler,
	paymentHandler *handlers.PaymentHandler,
	subscriptionHandler *handlers.SubscriptionAdminHandler,
	cronHandler *handlers.CronHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Obligation templates — owner-scoped (JWT required)
	obligations := api.Group("/obligations", middleware.JWTProtected(cfg))
	obligations.Get("/preview", obligationHandler.Preview)
	obligations.Post("/", obligationHandler.Create)
	obligations.Get("/", obligationHandler.List)
	obligations.Get("/:id", obligationHandler.Get)
	obligations.Put("/:id", obligationHandler.Update)
	obligations.Post("/:id/pause", obligationHandler.Pause)
	obligations.Post("/:id/resume", obligationHandler.Resume)

	// Payments — users open and submit their own
	payments := api.Group("/payments", middleware.JWTProtected(cfg))
	payments.Post("/", paymentHandler.Create)
	payments.Get("/:id", paymentHandler.Get)
	payments.Post("/:id/submit", paymentHandler.Submit)

	// Admin surface (JWT admin or X-Admin-Token)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))

	admin.Post("/payments/:id/verify", paymentHandler.Verify)
	admin.Post("/payments/:id/approve", paymentHandler.Approve)
	admin.Post("/payments/:id/reject", paymentHandler.Reject)

	admin.Get("/subscriptions", subscriptionHandler.List)
	admin.Post("/subscriptions", subscriptionHandler.Create)
	admin.Post("/subscriptions/:id/action", subscriptionHandler.Action)
	admin.Get("/subscriptions/:id/history", subscriptionHandler.History)

	admin.Get("/cron/runs", cronHandler.RecentRuns)
	admin.Get("/cron/stats", cronHandler.Stats)
	admin.Get("/cron/jobs", cronHandler.JobStatus)
	admin.Post("/cron/trigger/:job", cronHandler.Trigger)
}
