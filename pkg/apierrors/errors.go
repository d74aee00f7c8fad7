// Package apierrors models the service's error taxonomy as a small set of
// tagged error kinds, each carrying its own HTTP status and renderable data,
// instead of deriving the HTTP response by walking an arbitrary error's
// fields.
package apierrors

import (
	"fmt"
	"net/http"
	"runtime"
)

// Kind identifies one of the service's error taxonomy entries.
type Kind string

const (
	KindBadRequest    Kind = "BAD_REQUEST"
	KindNotFound      Kind = "NOT_FOUND"
	KindRequestTimeout Kind = "REQUEST_TIMEOUT"
	KindPayloadTooLarge Kind = "PAYLOAD_TOO_LARGE"
	KindInternal      Kind = "INTERNAL_SERVER_ERROR"
)

var statusByKind = map[Kind]int{
	KindBadRequest:      http.StatusBadRequest,
	KindNotFound:        http.StatusNotFound,
	KindRequestTimeout:  http.StatusRequestTimeout,
	KindPayloadTooLarge: http.StatusRequestEntityTooLarge,
	KindInternal:        http.StatusInternalServerError,
}

// Error is the service's single error type: a tagged sum of kind, a
// machine-readable code, a human message, optional field-level validation
// errors, a wrapped cause, and whether this error was deliberately injected
// for fault-injection testing.
type Error struct {
	Kind            Kind
	Code            string
	Message         string
	ValidationErrs  []FieldError
	Cause           error
	IsInjectedError bool
	Stack           []uintptr

	// statusOverride is set for injected errors, whose status is drawn at
	// random from a fixed list that does not map one-to-one onto Kind.
	statusOverride int
}

func captureStack(skip int) []uintptr {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(skip+2, pcs)
	return pcs[:n]
}

// StackFrames formats the captured stack as "file:line func" strings,
// bounded to max entries.
func (e *Error) StackFrames(max int) []string {
	if len(e.Stack) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(e.Stack)
	var out []string
	for len(out) < max {
		f, more := frames.Next()
		out = append(out, fmt.Sprintf("%s:%d %s", f.File, f.Line, f.Function))
		if !more {
			break
		}
	}
	return out
}

// FieldError is one entry of a BadRequest's machine-readable errors array.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status code for this error's kind.
func (e *Error) Status() int {
	if e.statusOverride != 0 {
		return e.statusOverride
	}
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// BadRequest builds a 400 with a machine-readable code and optional field
// errors (malformed pubkey/userId/signature/body, unrecognized parameter).
func BadRequest(code, message string, fields ...FieldError) *Error {
	return &Error{Kind: KindBadRequest, Code: code, Message: message, ValidationErrs: fields}
}

// SignatureMismatch is the specific 400 used for ownership-proof failures.
func SignatureMismatch() *Error {
	return BadRequest("SIGNATURE_DOES_NOT_MATCH_PUBKEY", "SignatureDoesNotMatchPubkey")
}

// NotFound builds a 404 with a machine-readable code.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// RequestTimeout builds the 408 raised when the soft-timeout sweeper fires.
func RequestTimeout() *Error {
	return &Error{Kind: KindRequestTimeout, Code: "REQUEST_TIMEOUT", Message: "RequestTimeout"}
}

// PayloadTooLarge builds the 413 raised when the body exceeds the configured limit.
func PayloadTooLarge() *Error {
	return &Error{Kind: KindPayloadTooLarge, Code: "PAYLOAD_TOO_LARGE", Message: "PayloadTooLarge"}
}

// Internal wraps an unexpected error as a 500, preserving the cause chain
// for debug-mode rendering.
func Internal(cause error) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    "INTERNAL_SERVER_ERROR",
		Message: "InternalServerError",
		Cause:   cause,
		Stack:   captureStack(1),
	}
}

// Injected marks an error produced by the random-error-injection middleware.
// Its status is whatever the middleware drew from the fixed 17-entry list,
// which does not correspond one-to-one with a taxonomy Kind.
func Injected(status int, message string) *Error {
	return &Error{
		Kind:            KindInternal,
		Code:            "INJECTED_ERROR",
		Message:         message,
		IsInjectedError: true,
		statusOverride:  status,
	}
}

// As extracts an *Error from any error, wrapping unknown errors as Internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return Internal(err)
}
