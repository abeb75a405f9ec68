package yard

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for unknown sections, points and users.
var ErrNotFound = errors.New("not found")

// ErrMalformedMessage matches every *MalformedMessageError.
var ErrMalformedMessage = errors.New("malformed message")

// MalformedMessageError describes why an inbound message was rejected. The
// whole message is dropped; engine state is not touched.
type MalformedMessageError struct {
	Field  string
	Reason string
}

func (e *MalformedMessageError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed message: %s", e.Reason)
	}
	return fmt.Sprintf("malformed message: %s: %s", e.Field, e.Reason)
}

func (e *MalformedMessageError) Is(target error) bool {
	return target == ErrMalformedMessage
}

func malformed(field, format string, args ...interface{}) error {
	return &MalformedMessageError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
