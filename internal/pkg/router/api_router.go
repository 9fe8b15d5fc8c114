package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/SplitFund/app/controllers"
	"github.com/ManuelReschke/SplitFund/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Webhooks authenticate via their provider signature, not an API key.
	v1.Post("/webhooks/stripe", controllers.HandleStripeWebhook)

	// Read surface for authenticated callers.
	authed := v1.Group("", middleware.APIKeyAuthMiddleware())
	authed.Get("/payments/:id/splits", controllers.HandleGetPaymentSplits)
	authed.Get("/recipients", controllers.HandleListRecipients)
	authed.Get("/recipients/:id/earnings", controllers.HandleGetRecipientEarnings)
	authed.Get("/users/:id/subscriptions", controllers.HandleListUserSubscriptions)

	// Admin surface: recording payments, managing users and subscriptions.
	admin := authed.Group("", middleware.RequireAdminMiddleware())
	admin.Post("/payments", controllers.HandleRecordPayment)
	admin.Post("/payments/status", controllers.HandleReportPaymentStatus)
	admin.Get("/payments", controllers.HandleListPayments)
	admin.Post("/users", controllers.HandleEnsureUser)
	admin.Get("/users", controllers.HandleListUsers)
	admin.Put("/users/:id/recipient-status", controllers.HandleUpdateRecipientStatus)
	admin.Post("/users/:id/api-key", controllers.HandleIssueAPIKey)
	admin.Get("/stats/settlement", controllers.HandleSettlementStats)
	admin.Get("/subscriptions", controllers.HandleListSubscriptionsByStatus)
	admin.Post("/subscriptions", controllers.HandleUpsertSubscription)
	admin.Put("/subscriptions/:providerID", controllers.HandleUpdateSubscription)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
