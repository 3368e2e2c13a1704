package store

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a queried record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned by operations on a closed Store.
	ErrClosed = errors.New("store is closed")
)

// unusableCodes are SQLite result codes after which moving on to the next
// item against the same database cannot succeed.
var unusableCodes = map[sqlite3.ErrNo]bool{
	sqlite3.ErrCantOpen: true,
	sqlite3.ErrCorrupt:  true,
	sqlite3.ErrNotADB:   true,
	sqlite3.ErrIoErr:    true,
	sqlite3.ErrReadonly: true,
	sqlite3.ErrFull:     true,
	sqlite3.ErrPerm:     true,
	sqlite3.ErrAuth:     true,
	sqlite3.ErrNomem:    true,
}

// IsUnusable reports whether err indicates the store itself can no longer
// serve requests (corrupt file, I/O failure, closed handle), as opposed to a
// failure confined to one statement such as a constraint violation.
func IsUnusable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrClosed) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return unusableCodes[se.Code]
	}
	return false
}
