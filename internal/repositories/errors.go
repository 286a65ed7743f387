package repositories

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when a source has no entry for the requested key.
var ErrNotFound = errors.New("not found")

// IsNotFoundError reports whether err represents a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// UpstreamError is returned when the platform API answered but did not
// succeed: a non-2xx status, or a success-shaped body with success=false.
type UpstreamError struct {
	StatusCode int
	Message    string
}

// Is lets a 404 from the platform API satisfy errors.Is(err, ErrNotFound),
// so callers can tell a missing record apart from an outage.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error (status %d)", e.StatusCode)
}
