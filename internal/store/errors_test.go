package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func TestWrapSQLite(t *testing.T) {
	if wrapSQLite("op", nil) != nil {
		t.Error("nil error must stay nil")
	}

	busy := wrapSQLite("write", sqlite3.Error{Code: sqlite3.ErrBusy})
	if !errors.Is(busy, ErrStoreUnavailable) {
		t.Errorf("busy not mapped: %v", busy)
	}
	locked := wrapSQLite("write", sqlite3.Error{Code: sqlite3.ErrLocked})
	if !errors.Is(locked, ErrStoreUnavailable) {
		t.Errorf("locked not mapped: %v", locked)
	}

	wrapped := wrapSQLite("write", fmt.Errorf("inner: %w", sqlite3.Error{Code: sqlite3.ErrBusy}))
	if !errors.Is(wrapped, ErrStoreUnavailable) {
		t.Errorf("wrapped busy not mapped: %v", wrapped)
	}

	plain := wrapSQLite("read", errors.New("disk gone"))
	if errors.Is(plain, ErrStoreUnavailable) {
		t.Errorf("unrelated error mapped: %v", plain)
	}
	if plain == nil {
		t.Error("unrelated error must still be returned")
	}
}
