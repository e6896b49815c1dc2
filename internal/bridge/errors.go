package bridge

import (
	"errors"
	"strconv"
)

// Code is a stable, caller-visible error classification.
type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNoSession        Code = "NO_SESSION"
	CodeNoModel          Code = "NO_MODEL"
	CodeLoadFailed       Code = "LOAD_FAILED"
	CodeGenerationFailed Code = "GENERATION_FAILED"
	CodeStreamError      Code = "STREAM_ERROR"
	CodeUnsupported      Code = "UNSUPPORTED"
	CodeSessionBusy      Code = "SESSION_BUSY"
)

// Error is the structured error returned by every Bridge operation.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if inner := e.Err.Error(); inner != "" && inner != e.Message {
			return e.Message + ": " + inner
		}
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the Code carried by err, or "" when err is not a bridge error.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsInvalidArgument reports whether err indicates malformed or missing input.
func IsInvalidArgument(err error) bool { return CodeOf(err) == CodeInvalidArgument }

// IsNoSession reports whether err indicates an unknown session id.
func IsNoSession(err error) bool { return CodeOf(err) == CodeNoSession }

// IsUnsupported reports whether the capability is unsupported on this platform.
func IsUnsupported(err error) bool { return CodeOf(err) == CodeUnsupported }

// IsSessionBusy reports whether err indicates session backpressure.
func IsSessionBusy(err error) bool { return CodeOf(err) == CodeSessionBusy }

func errInvalidArgument(msg string) error {
	return &Error{Code: CodeInvalidArgument, Message: msg}
}

func errNoSession(id string) error {
	return &Error{Code: CodeNoSession, Message: "no session with id " + strconv.Quote(id) + "; create a session first"}
}

func errNoModel() error {
	return &Error{Code: CodeNoModel, Message: "no model configured"}
}

func errLoadFailed(err error) error {
	return &Error{Code: CodeLoadFailed, Message: "failed to create model session", Err: err}
}

func errGenerationFailed(err error) error {
	return &Error{Code: CodeGenerationFailed, Message: "generation failed", Err: err}
}

func errStream(err error) error {
	return &Error{Code: CodeStreamError, Message: "stream failed", Err: err}
}

func errUnsupported(err error) error {
	return &Error{Code: CodeUnsupported, Message: "model capability is not supported on this platform", Err: err}
}

func errSessionBusy(id string) error {
	return &Error{Code: CodeSessionBusy, Message: "session " + strconv.Quote(id) + " is busy"}
}

