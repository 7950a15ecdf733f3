package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/order-desk/internal/api/http/handlers"
	"github.com/spec-kit/order-desk/internal/auth"
	"github.com/spec-kit/order-desk/internal/domain"
	"github.com/spec-kit/order-desk/internal/observability"
	"github.com/spec-kit/order-desk/internal/repository"
	apperrors "github.com/spec-kit/order-desk/pkg/util"
)

type stubOrders struct {
	orders     []domain.Order
	lastFilter repository.OrderFilter
}

func (s *stubOrders) GetOrder(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return &s.orders[i], nil
		}
	}
	return nil, apperrors.NewNotFound("order", map[string]any{"order_id": id.String()})
}

func (s *stubOrders) ListOrders(_ context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	s.lastFilter = filter
	return s.orders, nil
}

func (s *stubOrders) History(context.Context, domain.OrderID) ([]domain.OrderHistory, error) {
	return []domain.OrderHistory{{ID: "h1", Event: "open", ToState: domain.OrderStateOpen}}, nil
}

type downDep struct{}

func (downDep) Ping(context.Context) error { return errors.New("connection refused") }

func newTestApp(t *testing.T, orders *stubOrders, deps map[string]handlers.Pinger) (*fiber.App, *auth.TokenManager) {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", 5)
	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("order-desk", "test", deps),
		Orders:         handlers.NewOrdersHandler(orders),
		Metrics:        handlers.NewMetricsHandler(metrics, func() int { return 2 }),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})
	return app, tokens
}

func bearer(t *testing.T, tokens *auth.TokenManager, role domain.OpsRole) string {
	t.Helper()
	token, _, err := tokens.GenerateToken("ops-1", role)
	require.NoError(t, err)
	return "Bearer " + token
}

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestHealthLive(t *testing.T) {
	app, _ := newTestApp(t, &stubOrders{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", decode(t, resp.Body)["status"])
}

func TestHealthReadyReportsDownDependency(t *testing.T) {
	app, _ := newTestApp(t, &stubOrders{}, map[string]handlers.Pinger{"redis": downDep{}})

	resp, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestOrdersRequireToken(t *testing.T) {
	app, _ := newTestApp(t, &stubOrders{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/orders", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.Equal(t, apperrors.CodeUnauthorized, body["error"].(map[string]any)["code"])
}

func TestListOrdersFiltersByState(t *testing.T) {
	orders := &stubOrders{orders: []domain.Order{{ID: "st-01", State: domain.OrderStateOpen, RequesterID: "D"}}}
	app, tokens := newTestApp(t, orders, nil)

	req := httptest.NewRequest("GET", "/api/v1/orders?state=open,doable&page=2&page_size=10", nil)
	req.Header.Set("Authorization", bearer(t, tokens, domain.OpsRoleViewer))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, []domain.OrderState{domain.OrderStateOpen, domain.OrderStateDoable}, orders.lastFilter.States)
	assert.Equal(t, 10, orders.lastFilter.Offset)
	data := decode(t, resp.Body)["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "st-01", data[0].(map[string]any)["id"])
}

func TestListOrdersRejectsUnknownState(t *testing.T) {
	app, tokens := newTestApp(t, &stubOrders{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/orders?state=archived", nil)
	req.Header.Set("Authorization", bearer(t, tokens, domain.OpsRoleViewer))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetOrderWithHistory(t *testing.T) {
	orders := &stubOrders{orders: []domain.Order{{ID: "st-01", State: domain.OrderStateCompleted}}}
	app, tokens := newTestApp(t, orders, nil)

	req := httptest.NewRequest("GET", "/api/v1/orders/st-01", nil)
	req.Header.Set("Authorization", bearer(t, tokens, domain.OpsRoleViewer))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	data := decode(t, resp.Body)["data"].(map[string]any)
	assert.Equal(t, true, data["terminal"])
	assert.Len(t, data["history"], 1)

	req = httptest.NewRequest("GET", "/api/v1/orders/st-99", nil)
	req.Header.Set("Authorization", bearer(t, tokens, domain.OpsRoleViewer))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMetricsRequireAdmin(t *testing.T) {
	app, tokens := newTestApp(t, &stubOrders{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/metrics", nil)
	req.Header.Set("Authorization", bearer(t, tokens, domain.OpsRoleViewer))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/metrics", nil)
	req.Header.Set("Authorization", bearer(t, tokens, domain.OpsRoleAdmin))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := decode(t, resp.Body)["data"].(map[string]any)
	assert.EqualValues(t, 2, data["pending_deletions"])
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	app, _ := newTestApp(t, &stubOrders{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
