package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/utils"
)

const secret = "router-secret"

func noop(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newServer() *echo.Echo {
	e := echo.New()
	auth := handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil)
	products := &handler.ProductHandler{}
	reviews := &handler.ReviewHandler{}
	users := &handler.UserHandler{}
	notes := &handler.NotificationHandler{}

	RegisterRoutes(e, &handler.HealthHandler{})
	RegisterPublic(e, auth, products, reviews, secret, noop, noop)
	RegisterStore(e, Store{
		Auth:          auth,
		Cart:          &handler.CartHandler{},
		Orders:        &handler.OrderHandler{},
		Wishlist:      &handler.WishlistHandler{},
		Reviews:       reviews,
		Notifications: notes,
		Users:         users,
	}, secret, noop)
	RegisterAdmin(e, products, users, notes, secret, noop)
	return e
}

func call(e *echo.Echo, method, path, auth string) int {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouteGuards(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, 7, "alice", model.RoleCustomer, 5)
	require.NoError(t, err)
	customer := "Bearer " + tok.Token

	e := newServer()
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/healthz", ""))

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/cart"},
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/wishlist"},
		{http.MethodGet, "/api/notifications"},
		{http.MethodPost, "/api/reviews"},
		{http.MethodGet, "/api/users/7"},
		{http.MethodPost, "/api/products"},
		{http.MethodGet, "/api/users"},
	} {
		assert.Equal(t, http.StatusUnauthorized, call(e, r.method, r.path, ""), r.method+" "+r.path)
	}

	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/api/products"},
		{http.MethodPatch, "/api/products/1"},
		{http.MethodDelete, "/api/products/1"},
		{http.MethodGet, "/api/users"},
		{http.MethodPost, "/api/users"},
		{http.MethodDelete, "/api/users/3"},
		{http.MethodPost, "/api/notifications"},
	} {
		assert.Equal(t, http.StatusForbidden, call(e, r.method, r.path, customer), r.method+" "+r.path)
	}
}
