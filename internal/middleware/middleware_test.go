package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	who, ok := CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{"anonymous": true})
	}
	return c.JSON(http.StatusOK, who)
}

func serve(t *testing.T, mw []echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/me", whoami, mw...)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, "alice", role, 5)
	require.NoError(t, err)
	return tok.Token
}

func TestJWTAuth(t *testing.T) {
	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, 7, model.RoleCustomer))
		rec := serve(t, []echo.MiddlewareFunc{JWTAuth(secret)}, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":7,"username":"alice","role":"CUSTOMER"}`, rec.Body.String())
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token(t, 3, model.RoleAdmin)})
		rec := serve(t, []echo.MiddlewareFunc{JWTAuth(secret)}, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"role":"ADMIN"`)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := serve(t, []echo.MiddlewareFunc{JWTAuth(secret)}, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
	})

	t.Run("bad signature", func(t *testing.T) {
		tok, err := utils.NewAccessToken("other", 7, "alice", model.RoleCustomer, 5)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		rec := serve(t, []echo.MiddlewareFunc{JWTAuth(secret)}, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
	})
}

func TestJWTOptional(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := serve(t, []echo.MiddlewareFunc{JWTOptional(secret)}, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"anonymous":true}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 7, model.RoleCustomer))
	rec = serve(t, []echo.MiddlewareFunc{JWTOptional(secret)}, req)
	assert.Contains(t, rec.Body.String(), `"id":7`)
}

func TestRequireRole(t *testing.T) {
	admin := []echo.MiddlewareFunc{JWTOptional(secret), RequireRole(model.RoleAdmin)}

	rec := serve(t, admin, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 7, model.RoleCustomer))
	rec = serve(t, admin, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 1, model.RoleAdmin))
	rec = serve(t, admin, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func newCtx(method, target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/products")
	return c
}

func TestBuildRateKey(t *testing.T) {
	c := newCtx(http.MethodGet, "/api/products?page=2")
	cfg := config.RateLimitConfig{Prefix: "rl"}

	cases := map[string]string{
		"ip":       "rl:ip:10.0.0.1",
		"user":     "rl:user:anon",
		"route":    "rl:route:GET /api/products",
		"ip_route": "rl:ip:10.0.0.1:route:GET /api/products",
		"":         "rl:ip:10.0.0.1:user:anon:route:GET /api/products",
	}
	for strategy, want := range cases {
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, buildRateKey(cfg, c), strategy)
	}

	SetIdentity(c, model.Identity{UserID: 42, Role: model.RoleCustomer})
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:42", buildRateKey(cfg, c))
}

func TestRetryAfterRoundsUp(t *testing.T) {
	assert.Equal(t, 0, retryAfter(0))
	assert.Equal(t, 1, retryAfter(1))
	assert.Equal(t, 2, retryAfter(1001))
	assert.Equal(t, int64(3), asInt64("3"))
	assert.Equal(t, int64(4), asInt64(int64(4)))
}

func TestCacheKeyIgnoresQueryWhenRouteOnly(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "catalog", KeyStrategy: "route_query"}
	a := cacheKeyFrom(cfg, newCtx(http.MethodGet, "/api/products?page=1"))
	b := cacheKeyFrom(cfg, newCtx(http.MethodGet, "/api/products?page=2"))
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^catalog:[0-9a-f]{40}$`, a)

	cfg.KeyStrategy = "route"
	a = cacheKeyFrom(cfg, newCtx(http.MethodGet, "/api/products?page=1"))
	b = cacheKeyFrom(cfg, newCtx(http.MethodGet, "/api/products?page=2"))
	assert.Equal(t, a, b)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
	_, _, _, ok = decodePayload(append([]byte{0, 0, 0, 200, 0, 0, 1, 0}, 'x'))
	assert.False(t, ok)
}

func TestCaptureWriterStopsAtLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated())
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.truncated())
	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestResponseCacheWithoutRedis(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
	assert.Equal(t, 5*time.Minute, rc.cfg.TTL)
	assert.NoError(t, rc.Purge(context.Background()))

	rec := serve(t, []echo.MiddlewareFunc{rc.Middleware()}, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	var nilCache *ResponseCache
	assert.NoError(t, nilCache.Purge(context.Background()))
}

func TestTokenBucketDisabled(t *testing.T) {
	rec := serve(t, []echo.MiddlewareFunc{NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)},
		httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}
