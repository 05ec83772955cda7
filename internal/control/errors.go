package control

import (
	"errors"
	"fmt"
)

// Error is a controller error carrying a machine-readable code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeLaunchFailure       = "LAUNCH_FAILURE"
	ErrCodeEscalationFailure   = "ESCALATION_FAILURE"
	ErrCodePlatformUnsupported = "PLATFORM_UNSUPPORTED"
	ErrCodePlatformAPIFailure  = "PLATFORM_API_FAILURE"
	ErrCodeInvalidParams       = "INVALID_PARAMS"
)

// NewError creates a new controller error.
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
