package middleware

import (
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "go.uber.org/zap/zaptest/observer"

    "github.com/iliyamo/storefront-orders/internal/config"
)

// deadRedis points at a closed port so every command fails fast.
func deadRedis(t *testing.T) *redis.Client {
    t.Helper()
    rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
    t.Cleanup(func() { _ = rdb.Close() })
    return rdb
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
    return rec
}

func TestCustomerKey(t *testing.T) {
    e := echo.New()
    var got []string
    record := func(c echo.Context) error { got = append(got, customerKey(c)); return nil }
    e.GET("/v1/customers/:id/orders", record)
    e.GET("/v1/products/:id", record)

    serve(e, http.MethodGet, "/v1/customers/42/orders")
    serve(e, http.MethodGet, "/v1/customers/zero/orders")
    serve(e, http.MethodGet, "/v1/products/42")
    assert.Equal(t, []string{"42", "anon", "anon"}, got)
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    keys := map[string]string{}
    for _, strategy := range []string{"ip", "route", "customer", "customer_route", "ip_customer_route", "ip_route"} {
        cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}
        e.GET("/v1/customers/:id/orders", func(c echo.Context) error {
            keys[strategy] = buildRateKey(cfg, c)
            return nil
        })
        req := httptest.NewRequest(http.MethodGet, "/v1/customers/7/orders", nil)
        req.RemoteAddr = "10.0.0.1:5555"
        e.ServeHTTP(httptest.NewRecorder(), req)
    }
    assert.Equal(t, "rl:ip:10.0.0.1", keys["ip"])
    assert.Equal(t, "rl:route:GET /v1/customers/:id/orders", keys["route"])
    assert.Equal(t, "rl:customer:7", keys["customer"])
    assert.Equal(t, "rl:customer:7:route:GET /v1/customers/:id/orders", keys["customer_route"])
    assert.Equal(t, "rl:ip:10.0.0.1:customer:7:route:GET /v1/customers/:id/orders", keys["ip_customer_route"])
    assert.Equal(t, "rl:ip:10.0.0.1:route:GET /v1/customers/:id/orders", keys["ip_route"])
}

func TestCacheKeyIncludesPathParams(t *testing.T) {
    e := echo.New()
    cfg := config.CacheConfig{Prefix: "c", KeyStrategy: "route"}
    var keys []string
    e.GET("/v1/products/:id", func(c echo.Context) error {
        keys = append(keys, cacheKeyFrom(cfg, c))
        return nil
    })
    serve(e, http.MethodGet, "/v1/products/1")
    serve(e, http.MethodGet, "/v1/products/2")
    serve(e, http.MethodGet, "/v1/products/1")
    require.Len(t, keys, 3)
    assert.NotEqual(t, keys[0], keys[1])
    assert.Equal(t, keys[0], keys[2])
    assert.Regexp(t, `^c:[0-9a-f]{40}$`, keys[0])
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"items":[]}`))
    require.NoError(t, err)
    status, got, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", got.Get("Content-Type"))
    assert.Equal(t, `{"items":[]}`, string(body))

    _, _, _, ok = decodePayload(bs[:6])
    assert.False(t, ok)
}

func TestMiddlewaresDegradeWithoutRedis(t *testing.T) {
    cacheCfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "c", TTL: time.Second}
    rlCfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}

    for name, rdb := range map[string]*redis.Client{"nil client": nil, "unreachable": deadRedis(t)} {
        t.Run(name, func(t *testing.T) {
            e := echo.New()
            e.Use(NewTokenBucket(rlCfg, rdb, nil))
            e.Use(NewCachePurge(cacheCfg, rdb, nil))
            calls := 0
            e.GET("/v1/catalog", func(c echo.Context) error {
                calls++
                return c.JSON(http.StatusOK, echo.Map{"items": []int{}})
            }, NewRedisCache(cacheCfg, rdb, nil))
            e.POST("/v1/products", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })

            for i := 0; i < 3; i++ {
                rec := serve(e, http.MethodGet, "/v1/catalog")
                assert.Equal(t, http.StatusOK, rec.Code)
            }
            assert.Equal(t, 3, calls, "every request reaches the handler")
            assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/v1/products").Code)
        })
    }
}

func TestRequestLogger(t *testing.T) {
    core, logs := observer.New(zapcore.DebugLevel)
    e := echo.New()
    e.Use(RequestLogger(zap.New(core), "err"))
    e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
    e.GET("/fail", func(c echo.Context) error {
        c.Set("err", errors.New("boom"))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    })
    e.GET("/missing", func(c echo.Context) error { return echo.ErrNotFound })

    rec := serve(e, http.MethodGet, "/ok")
    assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

    req := httptest.NewRequest(http.MethodGet, "/ok", nil)
    const id = "0b4c9d6a-8f1e-4a53-9a61-1c7f2c3f5e10"
    req.Header.Set(RequestIDHeader, id)
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

    serve(e, http.MethodGet, "/fail")
    rec = serve(e, http.MethodGet, "/missing")
    assert.Equal(t, http.StatusNotFound, rec.Code)

    entries := logs.All()
    require.Len(t, entries, 4)
    assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
    assert.Equal(t, id, entries[1].ContextMap()["request_id"])
    assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
    assert.Equal(t, "boom", entries[2].ContextMap()["error"])
    assert.Equal(t, zapcore.WarnLevel, entries[3].Level)
    assert.Equal(t, int64(http.StatusNotFound), entries[3].ContextMap()["status"])
}
