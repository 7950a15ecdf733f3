package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-desk/internal/api/dto"
	"github.com/spec-kit/order-desk/internal/domain"
	"github.com/spec-kit/order-desk/internal/repository"
	apperrors "github.com/spec-kit/order-desk/pkg/util"
)

// OrderReader is the read side of the order service.
type OrderReader interface {
	GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error)
	History(ctx context.Context, id domain.OrderID) ([]domain.OrderHistory, error)
}

// OrdersHandler serves the read-only order endpoints.
type OrdersHandler struct {
	orders OrderReader
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orders OrderReader) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// ListOrders GET /api/v1/orders.
func (h *OrdersHandler) ListOrders(c *fiber.Ctx) error {
	filter, err := parseOrderQuery(c)
	if err != nil {
		return err
	}
	orders, err := h.orders.ListOrders(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.OrderSummary, 0, len(orders))
	for i := range orders {
		items = append(items, dto.NewOrderSummary(&orders[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetOrder GET /api/v1/orders/:id.
func (h *OrdersHandler) GetOrder(c *fiber.Ctx) error {
	id := domain.OrderID(strings.TrimSpace(c.Params("id")))
	if id == "" {
		return apperrors.NewValidationError("order id required", nil)
	}
	order, err := h.orders.GetOrder(c.UserContext(), id)
	if err != nil {
		return err
	}
	history, err := h.orders.History(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderDetail(order, history)})
}

func parseOrderQuery(c *fiber.Ctx) (repository.OrderFilter, error) {
	filter := repository.OrderFilter{}
	if stateStr := c.Query("state"); stateStr != "" {
		for _, part := range strings.Split(stateStr, ",") {
			state, ok := domain.ParseOrderState(part)
			if !ok {
				return filter, apperrors.NewValidationError("invalid state", map[string]any{"state": strings.TrimSpace(part)})
			}
			filter.States = append(filter.States, state)
		}
	}
	if requester := strings.TrimSpace(c.Query("requester_id")); requester != "" {
		filter.RequesterID = &requester
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if page < 1 {
		page = 1
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}
