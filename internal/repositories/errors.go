package repositories

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)

// queryTimeout bounds every storage round-trip so a slow database surfaces
// as an infrastructure error instead of hanging the request.
const queryTimeout = 5 * time.Second
