package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/storefront-api/internal/model"
)

// assignment is one column = value pair of an UPDATE statement.
type assignment struct {
	column string
	value  any
}

// set appends an assignment when v is non-nil.  Column names always come
// from the fixed tables below, never from request input.
func set[T any](out []assignment, column string, v *T) []assignment {
	if v == nil {
		return out
	}
	return append(out, assignment{column: column, value: *v})
}

func productAssignments(p model.ProductPatch) []assignment {
	var a []assignment
	a = set(a, "name", p.Name)
	a = set(a, "description", p.Description)
	a = set(a, "price", p.Price)
	a = set(a, "stock", p.Stock)
	a = set(a, "category", p.Category)
	a = set(a, "brand", p.Brand)
	a = set(a, "tags", p.Tags)
	a = set(a, "image_url", p.ImageURL)
	a = set(a, "featured", p.Featured)
	return a
}

func userAssignments(p model.UserPatch) []assignment {
	var a []assignment
	a = set(a, "username", p.Username)
	a = set(a, "email", p.Email)
	a = set(a, "password_hash", p.PasswordHash)
	a = set(a, "is_admin", p.IsAdmin)
	return a
}

func reviewAssignments(p model.ReviewPatch) []assignment {
	var a []assignment
	a = set(a, "rating", p.Rating)
	a = set(a, "comment", p.Comment)
	return a
}

// execUpdate applies the assignments to the row with the given id.  It
// returns ErrNotFound when no row matched.
func execUpdate(ctx context.Context, db *sql.DB, table string, id uint64, sets []assignment) error {
	if len(sets) == 0 {
		return nil
	}
	cols := make([]string, 0, len(sets))
	args := make([]any, 0, len(sets)+1)
	for _, s := range sets {
		cols = append(cols, s.column+" = ?")
		args = append(args, s.value)
	}
	args = append(args, id)
	q := "UPDATE " + table + " SET " + strings.Join(cols, ", ") + " WHERE id = ?"
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	// MySQL reports zero affected rows when the values did not change, so
	// existence is confirmed separately.
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return err
		}
	}
	return nil
}
