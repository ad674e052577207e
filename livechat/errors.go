package livechat

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	// Protocol Errors (from server error responses)
	ErrorUnknown ErrorCode = iota
	ErrorUnsupportedVersion
	ErrorInvalidAppID
	ErrorUnauthorized
	ErrorBadRequest
	ErrorQueryFailed
	ErrorTxRejected
	ErrorRoomNotFound
	ErrorRateLimited
	ErrorInternalServer

	// Client-side Errors
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorSerialization
	ErrorInvalidOp
)

var codeNames = map[ErrorCode]string{
	ErrorUnknown:            "unknown",
	ErrorUnsupportedVersion: "unsupported_version",
	ErrorInvalidAppID:       "invalid_app_id",
	ErrorUnauthorized:       "unauthorized",
	ErrorBadRequest:         "bad_request",
	ErrorQueryFailed:        "query_failed",
	ErrorTxRejected:         "tx_rejected",
	ErrorRoomNotFound:       "room_not_found",
	ErrorRateLimited:        "rate_limited",
	ErrorInternalServer:     "internal_error",
	ErrorConnection:         "connection_error",
	ErrorDisconnected:       "disconnected",
	ErrorTimeout:            "timeout",
	ErrorInvalidConfig:      "invalid_config",
	ErrorNotConnected:       "not_connected",
	ErrorSerialization:      "serialization_error",
	ErrorInvalidOp:          "invalid_op",
}

// String returns the wire name of the code.
func (e ErrorCode) String() string {
	if name, ok := codeNames[e]; ok {
		return name
	}
	return fmt.Sprintf("unknown_code_%d", e)
}

// ParseErrorCode maps a wire error code to an ErrorCode. Client-side codes
// and unrecognised strings map to ErrorUnknown.
func ParseErrorCode(code string) ErrorCode {
	for c, name := range codeNames {
		if name == code && c.protocol() {
			return c
		}
	}
	return ErrorUnknown
}

func (e ErrorCode) protocol() bool {
	return e >= ErrorUnsupportedVersion && e <= ErrorInternalServer
}

// Error is a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with an Error.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// FromProtocolError converts a wire error to an Error.
func FromProtocolError(e *WireError) *Error {
	if e == nil {
		return nil
	}
	return &Error{
		Code:    ParseErrorCode(e.Code),
		Message: e.Msg,
	}
}

func codeOf(err error) (ErrorCode, bool) {
	if err == nil {
		return 0, false
	}
	var le *Error
	if !errors.As(err, &le) {
		return 0, false
	}
	return le.Code, true
}

// IsProtocolError checks if an error came from the server.
func IsProtocolError(err error) bool {
	code, ok := codeOf(err)
	return ok && code.protocol()
}

// IsConfigError reports whether err means the application is misconfigured
// (bad app id or invalid local config). Such errors are fatal to the session.
func IsConfigError(err error) bool {
	code, ok := codeOf(err)
	return ok && (code == ErrorInvalidAppID || code == ErrorInvalidConfig)
}

// IsAuthError reports whether err was raised by the identity provider.
func IsAuthError(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrorUnauthorized
}

// IsConnectionError checks if an error is a connection-related error.
func IsConnectionError(err error) bool {
	code, ok := codeOf(err)
	return ok && (code == ErrorConnection || code == ErrorDisconnected || code == ErrorTimeout || code == ErrorNotConnected)
}
