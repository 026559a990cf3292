package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/storefront-api/internal/model"
)

// Notification list limits.
const (
	DefaultNotificationLimit = 50
	MaxNotificationLimit     = 200
)

// NotificationRepo provides access to the notifications table.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo constructs a NotificationRepo with the provided DB handle.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// ListByUser returns the user's notifications, newest first.  limit is
// clamped to (0, MaxNotificationLimit]; zero or negative means the default.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}
	q := "SELECT id, user_id, title, message, type, is_read, created_at FROM notifications WHERE user_id = ?"
	if unreadOnly {
		q += " AND is_read = 0"
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount returns how many notifications the user has not read.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0", userID).Scan(&n)
	return n, err
}

// Create stores a notification for one user.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, title, message, type) VALUES (?, ?, ?, ?)",
		n.UserID, n.Title, n.Message, n.Type)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// CreateMany stores the same notification for each user in one statement.
func (r *NotificationRepo) CreateMany(ctx context.Context, userIDs []uint64, title, message, typ string) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]string, 0, len(userIDs))
	args := make([]any, 0, len(userIDs)*4)
	for _, id := range userIDs {
		rows = append(rows, "(?, ?, ?, ?)")
		args = append(args, id, title, message, typ)
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, title, message, type) VALUES "+strings.Join(rows, ", "), args...)
	return err
}

// GetByID fetches one notification.
func (r *NotificationRepo) GetByID(ctx context.Context, id uint64) (model.Notification, error) {
	var n model.Notification
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, message, type, is_read, created_at FROM notifications WHERE id = ?", id).
		Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return n, ErrNotFound
	}
	return n, err
}

// SetRead flags one of the user's notifications as read or unread.
func (r *NotificationRepo) SetRead(ctx context.Context, id, userID uint64, read bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?", read, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx,
			"SELECT 1 FROM notifications WHERE id = ? AND user_id = ?", id, userID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// MarkAllRead flags every notification of the user as read and returns how
// many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes a notification regardless of owner.
func (r *NotificationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
