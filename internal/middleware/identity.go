package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/model"
)

// identityKey is the echo context key holding the caller's model.Identity.
const identityKey = "identity"

// SetIdentity stores the caller on the request context.
func SetIdentity(c echo.Context, who model.Identity) { c.Set(identityKey, who) }

// CurrentIdentity returns the caller put on the context by JWTAuth or
// JWTOptional.  ok is false for anonymous requests.
func CurrentIdentity(c echo.Context) (model.Identity, bool) {
	who, ok := c.Get(identityKey).(model.Identity)
	return who, ok && who.UserID != 0
}

// userID returns the caller's id as a key fragment, or "anon".
func userID(c echo.Context) string {
	if who, ok := CurrentIdentity(c); ok {
		return strconv.FormatUint(who.UserID, 10)
	}
	return "anon"
}
