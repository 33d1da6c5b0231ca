package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors surfaced by the store. Callers match with errors.Is.
var (
	// ErrNotFound is returned when an operation references an unknown unit id.
	ErrNotFound = errors.New("unit not found")
	// ErrStoreUnavailable is returned when the database cannot be opened or a
	// write cannot acquire the lock within the busy timeout. The store never
	// retries internally; retry policy belongs to the caller.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCorruptState is returned when persisted statistics are inconsistent
	// with stored units, or the database was created with a different
	// vectorizer configuration. The only recovery is an explicit rebuild.
	ErrCorruptState = errors.New("corrupt index state")
)

// wrapSQLite maps locking failures onto ErrStoreUnavailable so callers can
// distinguish contention from real failures.
func wrapSQLite(op string, err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		if se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
