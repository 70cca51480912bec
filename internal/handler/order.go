package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-orders/internal/fulfillment"
)

// OrderHandler serves the order endpoints nested under /v1/customers/:id.
// The path customer is the acting customer; orders of other customers are
// reported as not found.
type OrderHandler struct {
    Orders *fulfillment.Service
}

// NewOrderHandler panics if orders is nil.
func NewOrderHandler(orders *fulfillment.Service) *OrderHandler {
    if orders == nil {
        panic("nil service passed to NewOrderHandler")
    }
    return &OrderHandler{Orders: orders}
}

// orderRequest is the body of place and update requests:
// {"lines": [{"product_id": 3, "quantity": 2}, {"product_name": "Pen", "quantity": 1}]}
type orderRequest struct {
    Lines []fulfillment.LineRequest `json:"lines"`
}

// Place handles POST /v1/customers/:id/orders.
func (h *OrderHandler) Place(c echo.Context) error {
    customerID, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid customer id")
    }
    var req orderRequest
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid request body")
    }
    o, err := h.Orders.PlaceOrder(c.Request().Context(), customerID, req.Lines)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, o)
}

// History handles GET /v1/customers/:id/orders, newest first.
func (h *OrderHandler) History(c echo.Context) error {
    customerID, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid customer id")
    }
    items, err := h.Orders.OrderHistory(c.Request().Context(), customerID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/customers/:id/orders/:order_id.
func (h *OrderHandler) Get(c echo.Context) error {
    customerID, orderID, ok := orderPath(c)
    if !ok {
        return badRequest(c, "invalid customer or order id")
    }
    o, err := h.Orders.GetOrder(c.Request().Context(), customerID, orderID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, o)
}

// Update handles PUT /v1/customers/:id/orders/:order_id. The lines replace
// the existing ones.
func (h *OrderHandler) Update(c echo.Context) error {
    customerID, orderID, ok := orderPath(c)
    if !ok {
        return badRequest(c, "invalid customer or order id")
    }
    var req orderRequest
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid request body")
    }
    o, err := h.Orders.UpdateOrder(c.Request().Context(), customerID, orderID, req.Lines)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, o)
}

// Delete handles DELETE /v1/customers/:id/orders/:order_id and returns the
// reserved stock.
func (h *OrderHandler) Delete(c echo.Context) error {
    customerID, orderID, ok := orderPath(c)
    if !ok {
        return badRequest(c, "invalid customer or order id")
    }
    if err := h.Orders.DeleteOrder(c.Request().Context(), customerID, orderID); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Track handles GET /v1/customers/:id/orders/:order_id/track.
func (h *OrderHandler) Track(c echo.Context) error {
    customerID, orderID, ok := orderPath(c)
    if !ok {
        return badRequest(c, "invalid customer or order id")
    }
    t, err := h.Orders.TrackOrder(c.Request().Context(), customerID, orderID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, t)
}

func orderPath(c echo.Context) (customerID, orderID uint64, ok bool) {
    customerID, ok1 := pathID(c, "id")
    orderID, ok2 := pathID(c, "order_id")
    return customerID, orderID, ok1 && ok2
}
