package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/handler"
)

// RegisterRoutes registers the unversioned routes. db may be nil, in which
// case the health check does not probe a database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// Handlers bundles every versioned handler.
type Handlers struct {
	Customers *handler.CustomerHandler
	Products  *handler.ProductHandler
	Orders    *handler.OrderHandler
}

// RegisterV1 registers all /v1 routes. cache is applied to catalog and
// product reads only; order reads are per customer and always fresh.
func RegisterV1(e *echo.Echo, h Handlers, cache echo.MiddlewareFunc) {
	v1 := e.Group("/v1")
	RegisterCustomers(v1, h.Customers)
	RegisterCatalog(v1, h.Products, cache)
	RegisterOrders(v1, h.Orders)
}
