package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/service"
)

// ReviewHandler serves product reviews.  A user holds at most one review
// per product; posting again replaces it.
type ReviewHandler struct {
	Reviews  *repository.ReviewRepo
	Products *repository.ProductRepo
}

func checkRating(r int) error {
	if r < model.MinRating || r > model.MaxRating {
		return service.Invalid("rating must be between %d and %d", model.MinRating, model.MaxRating)
	}
	return nil
}

// List handles GET /api/reviews.  With ?product_id it returns that
// product's reviews and rating summary; without it every review, which
// requires an admin.
func (h *ReviewHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	raw := strings.TrimSpace(c.QueryParam("product_id"))
	if raw == "" {
		who, ok := middleware.CurrentIdentity(c)
		if !ok {
			return fail(c, "review", service.ErrUnauthenticated)
		}
		if !who.IsAdmin() {
			return fail(c, "review", repository.ErrForbidden)
		}
		all, err := h.Reviews.ListAll(ctx)
		if err != nil {
			return fail(c, "review", err)
		}
		return c.JSON(http.StatusOK, echo.Map{"reviews": all, "total": len(all)})
	}

	productID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return badRequest(c, "invalid product_id")
	}
	reviews, err := h.Reviews.ListByProduct(ctx, productID)
	if err != nil {
		return fail(c, "review", err)
	}
	sum, err := h.Reviews.Summary(ctx, productID)
	if err != nil {
		return fail(c, "review", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reviews":        reviews,
		"total":          len(reviews),
		"average_rating": sum.Average,
		"total_reviews":  sum.Count,
	})
}

// Get handles GET /api/reviews/:id.
func (h *ReviewHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, "review", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return fail(c, "review", err)
	}
	return c.JSON(http.StatusOK, rv)
}

type reviewReq struct {
	ProductID uint64  `json:"product_id"`
	Rating    *int    `json:"rating"`
	Comment   *string `json:"comment"`
}

// Create handles POST /api/reviews.  An existing review of the same
// product by the caller is overwritten.
func (h *ReviewHandler) Create(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "review", err)
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ProductID == 0 || req.Rating == nil {
		return badRequest(c, "product_id and rating required")
	}
	if err := checkRating(*req.Rating); err != nil {
		return fail(c, "review", err)
	}
	comment := ""
	if req.Comment != nil {
		comment = strings.TrimSpace(*req.Comment)
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Products.GetByID(ctx, req.ProductID); err != nil {
		return fail(c, "product", err)
	}
	id, created, err := h.Reviews.Upsert(ctx, who.UserID, req.ProductID, *req.Rating, comment)
	if err != nil {
		return fail(c, "review", err)
	}
	if !created {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "review_id": id, "message": "review updated"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "review_id": id, "message": "review added"})
}

// owned loads a review the caller may change; other users' reviews look
// missing.
func (h *ReviewHandler) owned(c echo.Context) (model.Review, error) {
	who, err := caller(c)
	if err != nil {
		return model.Review{}, err
	}
	id, err := pathID(c)
	if err != nil {
		return model.Review{}, err
	}
	rv, err := h.Reviews.GetByID(c.Request().Context(), id)
	if err != nil {
		return rv, err
	}
	if !who.CanAccess(rv.UserID) {
		return model.Review{}, repository.ErrNotFound
	}
	return rv, nil
}

// Update handles PUT /api/reviews/:id.
func (h *ReviewHandler) Update(c echo.Context) error {
	rv, err := h.owned(c)
	if err != nil {
		return fail(c, "review", err)
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	patch := model.ReviewPatch{Rating: req.Rating, Comment: req.Comment}
	if patch.Empty() {
		return badRequest(c, "no fields to update")
	}
	if patch.Rating != nil {
		if err := checkRating(*patch.Rating); err != nil {
			return fail(c, "review", err)
		}
	}
	if patch.Comment != nil {
		trimmed := strings.TrimSpace(*patch.Comment)
		patch.Comment = &trimmed
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Reviews.Update(ctx, rv.ID, patch); err != nil {
		return fail(c, "review", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "review updated"})
}

// Delete handles DELETE /api/reviews/:id.
func (h *ReviewHandler) Delete(c echo.Context) error {
	rv, err := h.owned(c)
	if err != nil {
		return fail(c, "review", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Reviews.Delete(ctx, rv.ID); err != nil {
		return fail(c, "review", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "review deleted"})
}
