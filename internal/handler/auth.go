package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type authReq struct {
	Action       string `json:"action"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type authResp struct {
	Success bool      `json:"success"`
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Post dispatches POST /api/auth on the "action" field: login, register,
// logout or check.
func (h *AuthHandler) Post(c echo.Context) error {
	var req authReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "login":
		return h.login(c, req)
	case "register":
		return h.register(c, req)
	case "logout":
		return h.logout(c, req)
	case "check":
		return h.check(c)
	}
	return badRequest(c, "invalid action")
}

func (h *AuthHandler) login(c echo.Context, req authReq) error {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return badRequest(c, "username and password required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !utils.VerifyPassword(u.PasswordHash, req.Password)) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return fail(c, "user", err)
	}
	return h.issue(c, http.StatusOK, u)
}

func (h *AuthHandler) register(c echo.Context, req authReq) error {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || req.Password == "" {
		return badRequest(c, "username, email and password required")
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return badRequest(c, err.Error())
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, "user", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	id, err := h.Users.Create(ctx, username, email, hash, false)
	if errors.Is(err, repository.ErrDuplicate) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already exists"})
	}
	if err != nil {
		return fail(c, "user", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"user":    userPart{ID: id, Username: username},
	})
}

// logout clears the session cookie and revokes refresh tokens: the one in
// the body, or every token of the caller when a session is present.
func (h *AuthHandler) logout(c echo.Context, req authReq) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		if err := h.Tokens.Revoke(ctx, utils.HashRefreshRaw(raw)); err != nil {
			return fail(c, "token", err)
		}
	}
	if who, ok := middleware.CurrentIdentity(c); ok {
		if _, err := h.Tokens.RevokeUser(ctx, who.UserID); err != nil {
			return fail(c, "token", err)
		}
	}
	c.SetCookie(h.sessionCookie("", time.Unix(0, 0)))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logged out"})
}

func (h *AuthHandler) check(c echo.Context) error {
	who, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not logged in"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    userPart{ID: who.UserID, Username: who.Username, IsAdmin: who.IsAdmin()},
	})
}

// Refresh handles POST /api/auth/refresh: the presented refresh token is
// revoked and a new pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req authReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := dbCtx(c)
	defer cancel()

	userID, err := h.Tokens.Rotate(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if err != nil {
		return fail(c, "token", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return fail(c, "user", err)
	}
	return h.issue(c, http.StatusOK, u)
}

// issue signs an access token, stores a fresh refresh token and sets the
// session cookie.
func (h *AuthHandler) issue(c echo.Context, status int, u model.User) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Username, u.Role(), h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, "token", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return fail(c, "token", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Tokens.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return fail(c, "token", err)
	}
	c.SetCookie(h.sessionCookie(access.Token, access.Exp))
	return c.JSON(status, authResp{
		Success: true,
		User:    userPart{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

func (h *AuthHandler) sessionCookie(value string, exp time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		ck.MaxAge = -1
	}
	return ck
}

// Me handles GET /api/auth/me and returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "user", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, who.UserID)
	if err != nil {
		return fail(c, "user", err)
	}
	return c.JSON(http.StatusOK, u)
}
