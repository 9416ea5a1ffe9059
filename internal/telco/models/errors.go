package models

import (
	"errors"
	"fmt"
)

// ErrorCode is a registry outcome code. The numeric values are part of the
// external contract and must not change.
type ErrorCode int

const (
	CodeNotAdmin          ErrorCode = 100
	CodeAlreadyRegistered ErrorCode = 101
	CodeNotFound          ErrorCode = 102
	CodeAlreadyVerified   ErrorCode = 103
)

func (c ErrorCode) String() string {
	switch c {
	case CodeNotAdmin:
		return "not_admin"
	case CodeAlreadyRegistered:
		return "already_registered"
	case CodeNotFound:
		return "not_found"
	case CodeAlreadyVerified:
		return "already_verified"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// Error is a rejected registry operation.
type Error struct {
	Code ErrorCode
}

func (e *Error) Error() string {
	return fmt.Sprintf("telco registry: %s (%d)", e.Code, int(e.Code))
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotAdmin          = &Error{Code: CodeNotAdmin}
	ErrAlreadyRegistered = &Error{Code: CodeAlreadyRegistered}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrAlreadyVerified   = &Error{Code: CodeAlreadyVerified}
)

// CodeOf extracts the registry code from err. ok is false for nil and for
// errors that are not registry outcomes (infrastructure failures).
func CodeOf(err error) (code ErrorCode, ok bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Code, true
	}
	return 0, false
}
