package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-orders/internal/monitor"
    "github.com/iliyamo/storefront-orders/internal/service"
)

// ProductHandler serves products, the stock catalog and the stock monitor.
type ProductHandler struct {
    Products *service.ProductService
    Monitor  *monitor.Monitor
}

// NewProductHandler panics if a dependency is nil.
func NewProductHandler(products *service.ProductService, mon *monitor.Monitor) *ProductHandler {
    if products == nil || mon == nil {
        panic("nil dependency passed to NewProductHandler")
    }
    return &ProductHandler{Products: products, Monitor: mon}
}

// Create handles POST /v1/products. The product starts with zero stock.
func (h *ProductHandler) Create(c echo.Context) error {
    var in service.ProductInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid request body")
    }
    p, err := h.Products.Create(c.Request().Context(), in)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, p)
}

// List handles GET /v1/products[?active=true].
func (h *ProductHandler) List(c echo.Context) error {
    active, err := activeOnly(c)
    if err != nil {
        return badRequest(c, "active must be a boolean")
    }
    items, err := h.Products.List(c.Request().Context(), active)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/products/:id.
func (h *ProductHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid product id")
    }
    p, err := h.Products.Get(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}

// Update handles PUT /v1/products/:id.
func (h *ProductHandler) Update(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid product id")
    }
    var patch service.ProductPatch
    if err := c.Bind(&patch); err != nil {
        return badRequest(c, "invalid request body")
    }
    p, err := h.Products.Update(c.Request().Context(), id, patch)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}

// Deactivate handles POST /v1/products/:id/deactivate.
func (h *ProductHandler) Deactivate(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid product id")
    }
    if err := h.Products.Deactivate(c.Request().Context(), id); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Catalog handles GET /v1/catalog[?active=true].
func (h *ProductHandler) Catalog(c echo.Context) error {
    active, err := activeOnly(c)
    if err != nil {
        return badRequest(c, "active must be a boolean")
    }
    items, err := h.Products.Catalog(c.Request().Context(), active)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// SetStock handles PUT /v1/catalog/:product_id/stock with {"stock": n}.
func (h *ProductHandler) SetStock(c echo.Context) error {
    id, ok := pathID(c, "product_id")
    if !ok {
        return badRequest(c, "invalid product id")
    }
    var body struct {
        Stock *int64 `json:"stock"`
    }
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.Stock == nil {
        return badRequest(c, "stock is required")
    }
    e, err := h.Products.SetStock(c.Request().Context(), id, *body.Stock)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, e)
}

// LowStock handles GET /v1/catalog/low-stock[?threshold=n].
func (h *ProductHandler) LowStock(c echo.Context) error {
    threshold, err := h.threshold(c)
    if err != nil {
        return badRequest(c, "threshold must be an integer")
    }
    items, err := h.Monitor.ScanLowStock(c.Request().Context(), threshold)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"threshold": threshold, "items": items})
}

// CheckStock handles POST /v1/catalog/check-stock[?threshold=n]: it scans
// for low stock and restocks the eligible entries.
func (h *ProductHandler) CheckStock(c echo.Context) error {
    threshold, err := h.threshold(c)
    if err != nil {
        return badRequest(c, "threshold must be an integer")
    }
    report, err := h.Monitor.ScanAndRestock(c.Request().Context(), threshold)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, report)
}

// threshold returns ?threshold= or the configured default.
func (h *ProductHandler) threshold(c echo.Context) (int64, error) {
    v := c.QueryParam("threshold")
    if v == "" {
        return h.Monitor.Policy().Threshold, nil
    }
    return strconv.ParseInt(v, 10, 64)
}
