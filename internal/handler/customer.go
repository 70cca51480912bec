package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-orders/internal/service"
)

// CustomerHandler serves customer and account CRUD.
type CustomerHandler struct {
    Customers *service.CustomerService
    Accounts  *service.AccountService
}

// NewCustomerHandler panics if a service is nil.
func NewCustomerHandler(customers *service.CustomerService, accounts *service.AccountService) *CustomerHandler {
    if customers == nil || accounts == nil {
        panic("nil service passed to NewCustomerHandler")
    }
    return &CustomerHandler{Customers: customers, Accounts: accounts}
}

// Create handles POST /v1/customers.
func (h *CustomerHandler) Create(c echo.Context) error {
    var in service.CustomerInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid request body")
    }
    cust, err := h.Customers.Create(c.Request().Context(), in)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, cust)
}

// List handles GET /v1/customers.
func (h *CustomerHandler) List(c echo.Context) error {
    items, err := h.Customers.List(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/customers/:id.
func (h *CustomerHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid customer id")
    }
    cust, err := h.Customers.Get(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, cust)
}

// Update handles PUT /v1/customers/:id. Absent fields keep their value.
func (h *CustomerHandler) Update(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid customer id")
    }
    var p service.CustomerPatch
    if err := c.Bind(&p); err != nil {
        return badRequest(c, "invalid request body")
    }
    cust, err := h.Customers.Update(c.Request().Context(), id, p)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, cust)
}

// Delete handles DELETE /v1/customers/:id.
func (h *CustomerHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid customer id")
    }
    if err := h.Customers.Delete(c.Request().Context(), id); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// CreateAccount handles POST /v1/accounts.
func (h *CustomerHandler) CreateAccount(c echo.Context) error {
    var in service.AccountInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid request body")
    }
    a, err := h.Accounts.Create(c.Request().Context(), in)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, a)
}

// GetAccount handles GET /v1/customers/:id/account.
func (h *CustomerHandler) GetAccount(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid customer id")
    }
    a, err := h.Accounts.Get(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, a)
}

// UpdateAccount handles PUT /v1/customers/:id/account. The password is
// required; the username is optional.
func (h *CustomerHandler) UpdateAccount(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid customer id")
    }
    var in service.AccountUpdate
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid request body")
    }
    a, err := h.Accounts.Update(c.Request().Context(), id, in)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, a)
}

// DeleteAccount handles DELETE /v1/customers/:id/account.
func (h *CustomerHandler) DeleteAccount(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid customer id")
    }
    if err := h.Accounts.Delete(c.Request().Context(), id); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
