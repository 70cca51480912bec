package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/handler"
)

// RegisterCustomers registers customer and account CRUD. An account is
// created on its own route and then addressed through its customer.
func RegisterCustomers(g *echo.Group, h *handler.CustomerHandler) {
	g.POST("/customers", h.Create)
	g.GET("/customers", h.List)
	g.GET("/customers/:id", h.Get)
	g.PUT("/customers/:id", h.Update)
	g.DELETE("/customers/:id", h.Delete)

	g.POST("/accounts", h.CreateAccount)
	g.GET("/customers/:id/account", h.GetAccount)
	g.PUT("/customers/:id/account", h.UpdateAccount)
	g.DELETE("/customers/:id/account", h.DeleteAccount)
}
