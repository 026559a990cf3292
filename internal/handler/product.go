package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/service"
)

// ProductHandler serves the catalog.  Writes purge the response cache.
type ProductHandler struct {
	Products *repository.ProductRepo
	Reviews  *repository.ReviewRepo
	Cache    Purger
}

// List handles GET /api/products.
//
// Query: search, category, brand, min_price, max_price, featured, sort,
// page, per_page.
func (h *ProductHandler) List(c echo.Context) error {
	f, err := productFilter(c)
	if err != nil {
		return fail(c, "product", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	page, err := h.Products.Search(ctx, f)
	if err != nil {
		return fail(c, "product", err)
	}
	return c.JSON(http.StatusOK, page)
}

func productFilter(c echo.Context) (model.ProductFilter, error) {
	f := model.ProductFilter{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		Brand:    strings.TrimSpace(c.QueryParam("brand")),
		Sort:     strings.ToLower(strings.TrimSpace(c.QueryParam("sort"))),
	}
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.PerPage, _ = strconv.Atoi(c.QueryParam("per_page"))
	f.Featured, _ = strconv.ParseBool(c.QueryParam("featured"))
	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice}} {
		raw := strings.TrimSpace(c.QueryParam(p.name))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return f, service.Invalid("%s must be a number", p.name)
		}
		*p.dst = &d
	}
	return f, nil
}

type productView struct {
	model.Product
	model.RatingSummary
}

// Get handles GET /api/products/:id.  The product comes with its rating
// summary.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, "product", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		return fail(c, "product", err)
	}
	out := productView{Product: p}
	if h.Reviews != nil {
		if out.RatingSummary, err = h.Reviews.Summary(ctx, id); err != nil {
			return fail(c, "product", err)
		}
	}
	return c.JSON(http.StatusOK, out)
}

type productReq struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       int              `json:"stock"`
	Category    string           `json:"category"`
	Brand       string           `json:"brand"`
	Tags        string           `json:"tags"`
	ImageURL    string           `json:"image_url"`
	Featured    bool             `json:"featured"`
}

// Create handles POST /api/products (admin).
func (h *ProductHandler) Create(c echo.Context) error {
	var req productReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p := model.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Stock:       req.Stock,
		Category:    strings.TrimSpace(req.Category),
		Brand:       strings.TrimSpace(req.Brand),
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
		Featured:    req.Featured,
	}
	if p.Name == "" || req.Price == nil {
		return badRequest(c, "name and price required")
	}
	p.Price = req.Price.Round(2)
	if err := checkProduct(&p.Name, &p.Price, &p.Stock); err != nil {
		return fail(c, "product", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Products.Create(ctx, &p); err != nil {
		return fail(c, "product", err)
	}
	purge(c, h.Cache)
	return c.JSON(http.StatusCreated, p)
}

// checkProduct validates the fields that have value rules.  nil means
// "not being set".
func checkProduct(name *string, price *decimal.Decimal, stock *int) error {
	if name != nil && strings.TrimSpace(*name) == "" {
		return service.Invalid("name must not be empty")
	}
	if price != nil && price.IsNegative() {
		return service.Invalid("price must not be negative")
	}
	if stock != nil && *stock < 0 {
		return service.Invalid("stock must not be negative")
	}
	return nil
}

// Update handles PUT/PATCH /api/products/:id (admin).  Only the fields
// present in the body change.
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, "product", err)
	}
	var patch model.ProductPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid body")
	}
	if patch.Empty() {
		return badRequest(c, "no fields to update")
	}
	if patch.Price != nil {
		rounded := patch.Price.Round(2)
		patch.Price = &rounded
	}
	if err := checkProduct(patch.Name, patch.Price, patch.Stock); err != nil {
		return fail(c, "product", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Products.Update(ctx, id, patch); err != nil {
		return fail(c, "product", err)
	}
	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		return fail(c, "product", err)
	}
	purge(c, h.Cache)
	return c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /api/products/:id (admin).  Products that appear
// on orders cannot be deleted.
func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, "product", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Products.Delete(ctx, id); err != nil {
		return fail(c, "product", err)
	}
	purge(c, h.Cache)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "product deleted"})
}
