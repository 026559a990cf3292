package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/service"
)

// NotificationHandler serves the in-app notifications of the caller and
// lets admins address new ones to any user.
type NotificationHandler struct {
	Notes *repository.NotificationRepo
	Users *repository.UserRepo
}

// List handles GET /api/notifications?unread_only=&limit=.
func (h *NotificationHandler) List(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "notification", err)
	}
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread_only"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := dbCtx(c)
	defer cancel()
	notes, err := h.Notes.ListByUser(ctx, who.UserID, unreadOnly, limit)
	if err != nil {
		return fail(c, "notification", err)
	}
	unread, err := h.Notes.UnreadCount(ctx, who.UserID)
	if err != nil {
		return fail(c, "notification", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"notifications": notes,
		"unread_count":  unread,
		"total":         len(notes),
	})
}

// Get handles GET /api/notifications/:id.
func (h *NotificationHandler) Get(c echo.Context) error {
	n, err := h.visible(c)
	if err != nil {
		return fail(c, "notification", err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) visible(c echo.Context) (model.Notification, error) {
	who, err := caller(c)
	if err != nil {
		return model.Notification{}, err
	}
	id, err := pathID(c)
	if err != nil {
		return model.Notification{}, err
	}
	n, err := h.Notes.GetByID(c.Request().Context(), id)
	if err != nil {
		return n, err
	}
	if !who.CanAccess(n.UserID) {
		return model.Notification{}, repository.ErrNotFound
	}
	return n, nil
}

// Create handles POST /api/notifications (admin).
func (h *NotificationHandler) Create(c echo.Context) error {
	var req struct {
		UserID  uint64 `json:"user_id"`
		Title   string `json:"title"`
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	n := model.Notification{
		UserID:  req.UserID,
		Title:   strings.TrimSpace(req.Title),
		Message: strings.TrimSpace(req.Message),
		Type:    strings.ToLower(strings.TrimSpace(req.Type)),
	}
	if n.UserID == 0 || n.Title == "" || n.Message == "" {
		return badRequest(c, "user_id, title and message required")
	}
	if n.Type == "" {
		n.Type = model.NotifyInfo
	}
	if !model.ValidNotificationType(n.Type) {
		return fail(c, "notification", service.Invalid("unknown notification type %q", n.Type))
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Users.GetByID(ctx, n.UserID); err != nil {
		return fail(c, "user", err)
	}
	if err := h.Notes.Create(ctx, &n); err != nil {
		return fail(c, "notification", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "notification_id": n.ID})
}

// MarkRead handles PUT /api/notifications/:id with {"read": bool}.  Only
// the recipient may change the flag.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "notification", err)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, "notification", err)
	}
	var req struct {
		Read *bool `json:"read"`
	}
	if err := c.Bind(&req); err != nil || req.Read == nil {
		return badRequest(c, "read status required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Notes.SetRead(ctx, id, who.UserID, *req.Read); err != nil {
		return fail(c, "notification", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "notification updated"})
}

// MarkAllRead handles PUT /api/notifications.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, "notification", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	n, err := h.Notes.MarkAllRead(ctx, who.UserID)
	if err != nil {
		return fail(c, "notification", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "updated": n})
}

// Delete handles DELETE /api/notifications/:id (recipient or admin).
func (h *NotificationHandler) Delete(c echo.Context) error {
	n, err := h.visible(c)
	if err != nil {
		return fail(c, "notification", err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Notes.Delete(ctx, n.ID); err != nil {
		return fail(c, "notification", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "notification deleted"})
}
