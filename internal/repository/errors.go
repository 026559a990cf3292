// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row does not exist, or exists but is not
// visible to the caller.  Ownership filters deliberately collapse into
// this error so a foreign id looks exactly like a missing one.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// that their role does not allow.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot be performed
// because of the current state of the data.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert or update violates a unique
// key (username, email, wishlist entry).
var ErrDuplicate = errors.New("already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
