// Package routes wires repositories, services, and handlers onto the fiber
// app.
package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"refpay/internal/config"
	"refpay/internal/handlers"
	"refpay/internal/locks"
	"refpay/internal/middleware"
	"refpay/internal/repositories"
	"refpay/internal/services/auth"
	"refpay/internal/services/directory"
	"refpay/internal/services/ledger"
	"refpay/internal/services/notification"
	"refpay/internal/services/payout"
	"refpay/internal/services/referral"
	"refpay/internal/services/settlement"
	"refpay/internal/services/sweeper"
	"refpay/internal/storage"
)

// SetupRoutes configures all application routes and returns the sweeper so
// main can run its interval loop.
func SetupRoutes(app *fiber.App, store *storage.TieredStore, cache repositories.CacheRepository) *sweeper.Service {
	// Repositories
	agentRepo := repositories.NewAgentRepository(store)
	visitRepo := repositories.NewVisitRepository(store)
	orderRepo := repositories.NewOrderRepository(store)
	commissionRepo := repositories.NewCommissionRepository(store)
	payoutRepo := repositories.NewPayoutRepository(store)
	settingsRepo := repositories.NewSettingsRepository(store)

	agentLocks := locks.NewKeyedMutex()

	// Services
	directoryService := directory.NewService(agentRepo, settingsRepo, cache)
	referralService := referral.NewService(directoryService, agentRepo, visitRepo, agentLocks)
	ledgerService := ledger.NewService(commissionRepo, agentRepo, directoryService, agentLocks)
	payoutService := payout.NewService(payoutRepo, commissionRepo, agentLocks)
	sweeperService := sweeper.NewService(ledgerService, config.GetIntEnv("CLEAR_WINDOW_DAYS", sweeper.DefaultClearWindowDays))
	notifier := notification.NewService()
	settlementService := settlement.NewService(config.GetEnv("STRIPE_SECRET_KEY", ""))

	jwtSecret := config.GetEnv("JWT_SECRET", "refpay")
	authService := auth.NewService(settingsRepo, jwtSecret)

	// Handlers
	visitHandler := handlers.NewVisitHandler(referralService, config.GetEnv("SHOP_URL", "/"))
	checkoutHandler := handlers.NewCheckoutHandler(orderRepo, referralService, ledgerService, settlementService, notifier)
	agentHandler := handlers.NewAgentHandler(directoryService, ledgerService, payoutService)
	payoutHandler := handlers.NewPayoutHandler(payoutService, notifier)
	adminHandler := handlers.NewAdminHandler(authService, sweeperService)
	healthHandler := handlers.NewHealthHandler(store)

	app.Get("/health", healthHandler.Check)

	// Public surface. Visit capture is rate limited per IP; referral links
	// get shared and scraped.
	visitLimiter := limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, try again later",
			})
		},
	})
	app.Get("/r/:code", visitLimiter, visitHandler.TrackLink)

	api := app.Group("/api")
	api.Post("/visit/:code", visitLimiter, visitHandler.CaptureVisit)
	api.Post("/checkout", checkoutHandler.Checkout)
	api.Post("/webhook/payment", checkoutHandler.PaymentWebhook)
	api.Get("/agents/:code/summary", agentHandler.Summary)
	api.Post("/payouts", payoutHandler.RequestPayout)

	api.Post("/admin/login", adminHandler.Login)

	// Admin surface
	admin := api.Group("/admin", middleware.AdminAuth(jwtSecret))
	admin.Post("/agents", agentHandler.CreateAgent)
	admin.Get("/agents/:id", agentHandler.Detail)
	admin.Put("/agents/:id/active", agentHandler.SetActive)
	admin.Put("/agents/:id/rate", agentHandler.SetRateOverride)
	admin.Put("/settings/commission-rate", agentHandler.SetGlobalRate)
	admin.Post("/payouts/:id/approve", payoutHandler.Approve)
	admin.Post("/payouts/:id/pay", payoutHandler.MarkPaid)
	admin.Post("/payouts/:id/reject", payoutHandler.Reject)
	admin.Post("/sweep", adminHandler.Sweep)

	return sweeperService
}
