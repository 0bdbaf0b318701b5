package smt

import (
	"errors"
	"fmt"
)

// LogicError reports a user-visible logic or configuration failure: the input
// uses a feature that is disallowed or unsupported under the current options.
// Solving cannot proceed with this input under the current settings.
type LogicError struct {
	Msg string
}

func (e *LogicError) Error() string { return e.Msg }

// NewLogicError creates a LogicError with a formatted message.
func NewLogicError(format string, args ...interface{}) error {
	return &LogicError{Msg: fmt.Sprintf(format, args...)}
}

// IsLogicError reports whether err is a LogicError.
func IsLogicError(err error) bool {
	var le *LogicError
	return errors.As(err, &le)
}

// InternalError reports an invariant violation: a bug in the solver rather
// than a property of the input or the environment. Internal errors are never
// downgraded; callers must treat them as fatal.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

// NewInternalError creates an InternalError with a formatted message.
func NewInternalError(format string, args ...interface{}) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// IsInternalError reports whether err is an InternalError.
func IsInternalError(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}
