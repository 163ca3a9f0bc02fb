package visual

import (
	"errors"
	"fmt"
)

// Error kinds shared by the visual model, the codec and the editor session.
// Match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrOutOfRange        = errors.New("out of range")
	ErrMalformedDocument = errors.New("malformed document")
	ErrDanglingReference = errors.New("dangling reference")
	ErrValidationFailed  = errors.New("validation failed")
)

// EditError is the error returned by edit operations, parsing and saving.
//
// Kind is one of the Err* sentinels above; Op names the operation that
// failed ("remove_phase", "parse", "save", ...).
type EditError struct {
	Kind error
	Op   string
	Msg  string
}

// Error implements the error interface.
func (e *EditError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

// Unwrap exposes Kind to errors.Is.
func (e *EditError) Unwrap() error {
	return e.Kind
}

// Errorf builds an *EditError of the given kind.
func Errorf(kind error, op, format string, args ...any) *EditError {
	return &EditError{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a not-found edit error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsOutOfRange reports whether err is an out-of-range edit error.
func IsOutOfRange(err error) bool { return errors.Is(err, ErrOutOfRange) }

// IsMalformed reports whether err is a malformed-document error.
func IsMalformed(err error) bool { return errors.Is(err, ErrMalformedDocument) }

// IsDangling reports whether err is a dangling-reference error.
func IsDangling(err error) bool { return errors.Is(err, ErrDanglingReference) }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidationFailed) }
