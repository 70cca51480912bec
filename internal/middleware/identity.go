package middleware

import (
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
)

// customerKey identifies the customer a request acts for. The API has no
// sessions, so the customer is the :id path parameter of /v1/customers/:id/...
// routes; every other request shares the "anon" bucket.
func customerKey(c echo.Context) string {
    if !strings.HasPrefix(c.Path(), "/v1/customers/:id") {
        return "anon"
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return "anon"
    }
    return strconv.FormatUint(id, 10)
}
