package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDevice means the command named a device that is not in
	// the registry.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrUnknownField means the device has no attribute for the field.
	ErrUnknownField = errors.New("unknown field")
)

// RejectedError reports a field value that failed normalization. It is
// soft: the controller drops the field and continues with the rest of
// the call.
type RejectedError struct {
	Field  string
	Raw    string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("field %s: value %q rejected: %s", e.Field, e.Raw, e.Reason)
}

// IsRejected reports whether err is a normalization rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
