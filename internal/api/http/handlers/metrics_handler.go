package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-desk/internal/observability"
)

// MetricsHandler exposes the in-memory counters.
type MetricsHandler struct {
	metrics *observability.Metrics
	pending func() int
}

// NewMetricsHandler constructs handler. pending reports scheduled channel deletions.
func NewMetricsHandler(metrics *observability.Metrics, pending func() int) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, pending: pending}
}

// Metrics GET /api/v1/metrics.
func (h *MetricsHandler) Metrics(c *fiber.Ctx) error {
	pending := 0
	if h.pending != nil {
		pending = h.pending()
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"counters":          h.metrics.Snapshot(),
		"pending_deletions": pending,
	}})
}
