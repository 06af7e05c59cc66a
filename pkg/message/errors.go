package message

import (
	"errors"
	"fmt"
)

var (
	ErrNoRecipients   = errors.New("at least one recipient is required")
	ErrInvalidAddress = errors.New("invalid email address")
	ErrUnknownFormat  = errors.New("unknown body format")
)

// ValidationError reports a message that was rejected at construction.
type ValidationError struct {
	Field string // to, cc, bcc, from or format
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v: %q", e.Field, e.Err, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Err }
