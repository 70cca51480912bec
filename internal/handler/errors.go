package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-orders/internal/apperror"
)

// ErrorKey is the echo.Context key under which respondError stores the
// failure for the request logger.
const ErrorKey = "handler_error"

var kindStatus = map[apperror.Kind]int{
    apperror.KindInvalidRequest:     http.StatusBadRequest,
    apperror.KindProductUnavailable: http.StatusUnprocessableEntity,
    apperror.KindInsufficientStock:  http.StatusConflict,
    apperror.KindNotFound:           http.StatusNotFound,
    apperror.KindConflict:           http.StatusConflict,
    apperror.KindPersistence:        http.StatusInternalServerError,
}

// respondError writes err as {"error", "kind"} with the status of its kind.
// Stock failures also carry the product id and requested quantity. The text
// of persistence failures is not exposed.
func respondError(c echo.Context, err error) error {
    c.Set(ErrorKey, err)
    kind := apperror.KindOf(err)
    status, ok := kindStatus[kind]
    if !ok {
        status = http.StatusInternalServerError
    }
    if status == http.StatusInternalServerError {
        return c.JSON(status, echo.Map{"error": "database error", "kind": kind})
    }
    body := echo.Map{"error": err.Error(), "kind": kind}
    var ae *apperror.Error
    if errors.As(err, &ae) && ae.ProductID != 0 {
        body["product_id"] = ae.ProductID
        if ae.Quantity != 0 {
            body["quantity"] = ae.Quantity
        }
    }
    return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
    return respondError(c, apperror.InvalidRequest("%s", msg))
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// activeOnly reads the optional ?active= filter.
func activeOnly(c echo.Context) (bool, error) {
    v := c.QueryParam("active")
    if v == "" {
        return false, nil
    }
    return strconv.ParseBool(v)
}
