package storage

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateKey reports a storage-level uniqueness violation on
	// idempotency_key. Retrying the same write cannot succeed; callers
	// recover by re-reading the existing record.
	ErrDuplicateKey = errors.New("duplicate idempotency key")

	// ErrNotFound reports that no record matched the lookup.
	ErrNotFound = errors.New("expense not found")
)

// IsTransient reports whether err is a transient sqlite error that may
// resolve on retry. Under concurrent writers, WAL-mode sqlite surfaces
// SQLITE_BUSY and SQLITE_LOCKED; the driver embeds the code in the error
// text, so detection is text-based.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"database is locked",
		"database table is locked",
		"(5)", // SQLITE_BUSY code
		"(6)", // SQLITE_LOCKED code
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// isUniqueViolation reports whether err is the driver's UNIQUE constraint
// rejection.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
