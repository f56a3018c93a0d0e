package services

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error is a failure with a stable code that callers can act on.
type Error struct {
	Code     Code
	Message  string
	Recovery []string
	Context  map[string]any
	Err      error
}

// New builds a coded error and fills its recovery hints from the code and context.
func New(code Code, message string, context map[string]any) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Recovery: RecoveryHints(code, context),
		Context:  context,
	}
}

// Newf is New with a formatted message and no context.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// WithRecovery replaces the recovery hints.
func (e *Error) WithRecovery(hints ...string) *Error {
	e.Recovery = hints
	return e
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the classification marker and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if marker := e.Code.Marker(); marker != nil {
		errs = append(errs, marker)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// MarshalJSON renders the error payload emitted by the CLI and the HTTP API.
func (e *Error) MarshalJSON() ([]byte, error) {
	recovery := e.Recovery
	if recovery == nil {
		recovery = []string{}
	}
	ctx := e.Context
	if ctx == nil {
		ctx = map[string]any{}
	}
	return json.Marshal(struct {
		Error    bool           `json:"error"`
		Code     Code           `json:"code"`
		Message  string         `json:"message"`
		Recovery []string       `json:"recovery"`
		Context  map[string]any `json:"context"`
	}{true, e.Code, e.Message, recovery, ctx})
}

// AsError returns the first coded error in err's chain.
func AsError(err error) (*Error, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}

// CodeOf returns the code of err, or "" when err is not coded.
func CodeOf(err error) Code {
	if coded, ok := AsError(err); ok {
		return coded.Code
	}
	return ""
}

// Unexpected converts an arbitrary error into the UNEXPECTED_ERROR payload.
func Unexpected(err error) *Error {
	if coded, ok := AsError(err); ok {
		return coded
	}
	return &Error{
		Code:     CodeUnexpected,
		Message:  err.Error(),
		Recovery: []string{},
		Context:  map[string]any{"type": fmt.Sprintf("%T", err)},
		Err:      err,
	}
}
