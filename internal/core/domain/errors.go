package domain

import (
	"errors"
	"fmt"
)

// ErrInsufficientPoints rejects a coordinate block with fewer than three usable vertices.
var ErrInsufficientPoints = errors.New("insufficient points")

// ErrNoGeometry marks a registry record whose polygon text holds no coordinate pairs.
var ErrNoGeometry = errors.New("no geometry")

// ErrRecordNotFound is returned when the registry has no usable record for a number.
var ErrRecordNotFound = errors.New("registry record not found")

// IsGeometryRejected reports whether err only means "drop this item".
func IsGeometryRejected(err error) bool {
	return errors.Is(err, ErrInsufficientPoints) || errors.Is(err, ErrNoGeometry)
}

// FormatError reports an archive or document that cannot be read as markup.
type FormatError struct {
	Source string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("format error in %q: %s", e.Source, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// ValidationError reports malformed user input, raised before any network activity.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NetworkError reports a failed remote call. It is recorded, not propagated
// past pagination or detail lookups.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: HTTP %d", e.Op, e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("%s %s: failed", e.Op, e.URL)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }
