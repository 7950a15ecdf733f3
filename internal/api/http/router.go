package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-desk/internal/api/http/handlers"
	"github.com/spec-kit/order-desk/internal/auth"
	"github.com/spec-kit/order-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Orders         *handlers.OrdersHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	orders := api.Group("/orders", auth.RequireRole(domain.OpsRoleViewer, domain.OpsRoleAdmin))
	orders.Get("/", cfg.Orders.ListOrders)
	orders.Get("/:id", cfg.Orders.GetOrder)

	api.Get("/metrics", auth.RequireRole(domain.OpsRoleAdmin), cfg.Metrics.Metrics)
}
