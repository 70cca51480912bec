package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/handler"
)

// RegisterOrders registers the order endpoints of a customer.
func RegisterOrders(g *echo.Group, h *handler.OrderHandler) {
	orders := g.Group("/customers/:id/orders")
	orders.POST("", h.Place)
	orders.GET("", h.History)
	orders.GET("/:order_id", h.Get)
	orders.PUT("/:order_id", h.Update)
	orders.DELETE("/:order_id", h.Delete)
	orders.GET("/:order_id/track", h.Track)
}
