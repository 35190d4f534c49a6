package invidious

import (
	"errors"
	"fmt"
)

// Sentinel errors for Invidious API operations.
var (
	ErrNotFound    = errors.New("invidious: not found")
	ErrRateLimited = errors.New("invidious: rate limited by server")
	ErrBadRequest  = errors.New("invidious: bad request")
	ErrServer      = errors.New("invidious: server error")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op    string // Operation: "search", "getVideo"
	Host  string
	Query string // If applicable
	Err   error
}

func (e *Error) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("invidious %s [%s] %q: %v", e.Op, e.Host, e.Query, e.Err)
	}
	return fmt.Sprintf("invidious %s [%s]: %v", e.Op, e.Host, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, host, query string, err error) error {
	return &Error{
		Op:    op,
		Host:  host,
		Query: query,
		Err:   err,
	}
}
