package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-orders/internal/handler"
)

// RegisterCatalog registers product CRUD, the stock catalog and the stock
// monitor. Reads go through cache.
func RegisterCatalog(g *echo.Group, h *handler.ProductHandler, cache echo.MiddlewareFunc) {
	// ---- Products ----
	g.POST("/products", h.Create)
	g.GET("/products", h.List, cache)
	g.GET("/products/:id", h.Get, cache)
	g.PUT("/products/:id", h.Update)
	g.POST("/products/:id/deactivate", h.Deactivate)

	// ---- Catalog ----
	g.GET("/catalog", h.Catalog, cache)
	g.PUT("/catalog/:product_id/stock", h.SetStock)

	// ---- Stock monitor ----
	// low-stock is not cached: callers poll it right after writes
	g.GET("/catalog/low-stock", h.LowStock)
	g.POST("/catalog/check-stock", h.CheckStock)
}
