package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/storefront-api/internal/utils"
)

// SessionCookie is the HttpOnly cookie carrying the access token for
// browser clients.
const SessionCookie = "session"

// bearerToken extracts the raw access token from the Authorization header
// or, failing that, from the session cookie.
func bearerToken(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// JWTAuth returns an Echo middleware that validates the access token and
// stores the resulting model.Identity on the context.  Requests without a
// valid token are answered with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			who, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			SetIdentity(c, who)
			return next(c)
		}
	}
}

// JWTOptional is like JWTAuth but lets anonymous requests through.  An
// invalid token is treated as no token.
func JWTOptional(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearerToken(c); raw != "" {
				if who, err := utils.ParseAccessToken(secret, raw); err == nil {
					SetIdentity(c, who)
				}
			}
			return next(c)
		}
	}
}
