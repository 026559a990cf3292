package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/service"
)

// dbTimeout bounds the storage work of one request.
const dbTimeout = 5 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// caller returns the authenticated identity or ErrUnauthenticated.
func caller(c echo.Context) (model.Identity, error) {
	who, ok := middleware.CurrentIdentity(c)
	if !ok {
		return who, service.ErrUnauthenticated
	}
	return who, nil
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, service.Invalid("invalid id")
	}
	return id, nil
}

// Purger drops cached catalog responses.
type Purger interface {
	Purge(ctx context.Context) error
}

// purge clears the catalog cache after a write.  Failures are logged only;
// the cache entries expire on their own.
func purge(c echo.Context, p Purger) {
	if p == nil {
		return
	}
	if err := p.Purge(c.Request().Context()); err != nil {
		c.Logger().Warnf("cache purge: %v", err)
	}
}
