package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// UserHandler manages accounts.  Listing, creating and deleting are
// admin operations; a user may read and update their own account.
type UserHandler struct {
	Users      *repository.UserRepo
	BcryptCost int
}

// List handles GET /api/users (admin).
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return fail(c, "user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users, "total": len(users)})
}

// self resolves :id and checks that the caller is that user or an admin.
func (h *UserHandler) self(c echo.Context) (model.Identity, uint64, error) {
	who, err := caller(c)
	if err != nil {
		return who, 0, err
	}
	id, err := pathID(c)
	if err != nil {
		return who, 0, err
	}
	if !who.CanAccess(id) {
		return who, 0, repository.ErrForbidden
	}
	return who, id, nil
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	_, id, err := h.self(c)
	if err != nil {
		return fail(c, "user", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return fail(c, "user", err)
	}
	return c.JSON(http.StatusOK, u)
}

type userReq struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"is_admin"`
}

// Create handles POST /api/users (admin).
func (h *UserHandler) Create(c echo.Context) error {
	var req userReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Username == nil || req.Email == nil || req.Password == nil ||
		strings.TrimSpace(*req.Username) == "" || strings.TrimSpace(*req.Email) == "" {
		return badRequest(c, "username, email and password required")
	}
	if err := utils.ValidatePassword(*req.Password); err != nil {
		return badRequest(c, err.Error())
	}
	hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
	if err != nil {
		return fail(c, "user", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	id, err := h.Users.Create(ctx, *req.Username, *req.Email, hash, req.IsAdmin != nil && *req.IsAdmin)
	if errors.Is(err, repository.ErrDuplicate) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already exists"})
	}
	if err != nil {
		return fail(c, "user", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "user_id": id})
}

// Update handles PUT /api/users/:id.  is_admin is only honoured for
// admins.
func (h *UserHandler) Update(c echo.Context) error {
	who, id, err := h.self(c)
	if err != nil {
		return fail(c, "user", err)
	}
	var req userReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	var patch model.UserPatch
	if req.Username != nil {
		v := strings.TrimSpace(*req.Username)
		if v == "" {
			return badRequest(c, "username must not be empty")
		}
		patch.Username = &v
	}
	if req.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*req.Email))
		if v == "" {
			return badRequest(c, "email must not be empty")
		}
		patch.Email = &v
	}
	if req.Password != nil {
		if err := utils.ValidatePassword(*req.Password); err != nil {
			return badRequest(c, err.Error())
		}
		hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
		if err != nil {
			return fail(c, "user", err)
		}
		patch.PasswordHash = &hash
	}
	if req.IsAdmin != nil && who.IsAdmin() {
		patch.IsAdmin = req.IsAdmin
	}
	if patch.Empty() {
		return badRequest(c, "no fields to update")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	err = h.Users.Update(ctx, id, patch)
	if errors.Is(err, repository.ErrDuplicate) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already exists"})
	}
	if err != nil {
		return fail(c, "user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "user updated"})
}

// Delete handles DELETE /api/users/:id (admin).  Admins cannot delete
// themselves.
func (h *UserHandler) Delete(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "user", err)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, "user", err)
	}
	if id == who.UserID {
		return badRequest(c, "cannot delete your own account")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, id); err != nil {
		return fail(c, "user", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "user deleted"})
}
