package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ah-malik/SkyGloss-backend/internal/auth"
	"github.com/ah-malik/SkyGloss-backend/internal/httpx"
)

// SetupRoutes mounts the full API surface. Webhooks and the health check
// stay outside the auth chain; the gateway authenticates webhooks by
// signature instead.
func SetupRoutes(app *fiber.App, authMW *auth.Middleware, orders *OrderHandler, certifications *CertificationHandler) {
	api := app.Group("/api/v1")

	api.Get("/health", HealthCheck)

	orderRoutes := api.Group("/orders")
	orderRoutes.Post("/webhook", orders.HandleWebhook)

	orderRoutes.Use(authMW.Authenticate)
	orderRoutes.Post("/checkout-session", auth.RequireRoles(auth.RoleShop, auth.RoleDistributor), orders.CreateCheckoutSession)
	orderRoutes.Get("/my-orders", orders.GetMyOrders)
	orderRoutes.Get("/verify/:orderId", orders.VerifyPayment)
	orderRoutes.Get("/admin/all", auth.RequireRoles(auth.RoleAdmin), orders.GetAllOrders)
	orderRoutes.Post("/admin/:id/status", auth.RequireRoles(auth.RoleAdmin), orders.SetStatus)
	orderRoutes.Get("/:id", orders.GetOrderByID)

	certRoutes := api.Group("/certifications")
	certRoutes.Post("/webhook", certifications.HandleWebhook)

	certRoutes.Use(authMW.Authenticate)
	certRoutes.Post("/checkout-session", auth.RequireRoles(auth.RoleDistributor), certifications.CreateCheckoutSession)
	certRoutes.Get("/my-requests", certifications.GetMyRequests)
	certRoutes.Get("/verify/:certificationId", certifications.VerifyPayment)
	certRoutes.Get("/admin/all", auth.RequireRoles(auth.RoleAdmin), certifications.GetAllRequests)
	certRoutes.Patch("/admin/:id/status", auth.RequireRoles(auth.RoleAdmin), certifications.Review)

	app.Use("*", func(c *fiber.Ctx) error {
		return httpx.NotFoundResponse(c, "Route not found")
	})
}

func HealthCheck(c *fiber.Ctx) error {
	return httpx.SuccessResponse(c, "Checkout backend is healthy", map[string]interface{}{
		"service": "skygloss-backend",
		"status":  "healthy",
	})
}
