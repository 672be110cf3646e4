// Package repository holds the SQL data access for every entity.  The
// sentinel errors below let handlers tell failure scenarios apart without
// inspecting driver errors: ErrForbidden means the caller may not act on
// the resource, ErrConflict means the operation lost against concurrent
// state and could not be retried, and the pass/slot errors describe why a
// conditional transition did not apply.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource that belongs to someone else.  Handlers translate it to 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a transaction keeps failing on lock
// contention after all retries, or a unique constraint rejects the write.
// Handlers translate it to 409.
var ErrConflict = errors.New("conflict")

// ErrSlotUnavailable is returned when a slot is not in the state the
// requested transition expects (already held, booked or expired).
var ErrSlotUnavailable = errors.New("slot unavailable")

// Pass consumption failures.
var (
	ErrPassExhausted = errors.New("pass exhausted")
	ErrPassRevoked   = errors.New("pass revoked")
	ErrPassExpired   = errors.New("pass expired")
)

// ErrEmailExists is returned when an admin with the same email exists.
var ErrEmailExists = errors.New("email already exists")

// isDuplicate reports whether err is a unique-key violation on either
// MySQL (1062) or SQLite.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
