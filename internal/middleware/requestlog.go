package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = echo.HeaderXRequestID

// RequestLogger assigns every request an id (reusing a valid incoming
// X-Request-ID) and logs one line per request when it completes. errKey is
// the context key where handlers leave the failure behind an error response.
func RequestLogger(log *zap.Logger, errKey string) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    log = log.Named("http")
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            id := c.Request().Header.Get(RequestIDHeader)
            if _, err := uuid.Parse(id); err != nil {
                id = uuid.NewString()
            }
            c.Response().Header().Set(RequestIDHeader, id)

            err := next(c)
            if err != nil {
                // let echo write the response so the status below is final
                c.Error(err)
            }

            status := c.Response().Status
            fields := []zap.Field{
                zap.String("request_id", id),
                zap.String("method", c.Request().Method),
                zap.String("route", c.Path()),
                zap.String("uri", c.Request().RequestURI),
                zap.Int("status", status),
                zap.Duration("latency", time.Since(start)),
                zap.String("remote_ip", c.RealIP()),
            }
            if err == nil {
                if v, ok := c.Get(errKey).(error); ok {
                    err = v
                }
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }
            lvl := zapcore.InfoLevel
            switch {
            case status >= 500:
                lvl = zapcore.ErrorLevel
            case status >= 400:
                lvl = zapcore.WarnLevel
            }
            log.Check(lvl, "request").Write(fields...)
            return nil
        }
    }
}
