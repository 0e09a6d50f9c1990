package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Code tags the failure category a backend call resolved to.
type Code string

const (
	// CodeValidation covers 400 and 422: the backend rejected field values.
	CodeValidation Code = "VALIDATION"
	// CodeAuthentication covers 401: invalid or expired credentials.
	CodeAuthentication Code = "AUTHENTICATION"
	// CodeLocked covers 403: account locked or operation not permitted.
	CodeLocked Code = "ACCOUNT_LOCKED"
	// CodeConflict covers 409, e.g. a concurrent-session conflict.
	CodeConflict Code = "CONFLICT"
	// CodeNotFound covers 404.
	CodeNotFound Code = "NOT_FOUND"
	// CodeServer covers every 5xx.
	CodeServer Code = "SERVER"
	// CodeConnectivity means no HTTP response arrived at all.
	CodeConnectivity Code = "CONNECTIVITY"
)

// Error is the single failure shape every gateway call resolves to.
// StatusCode is 0 when no response was received.
type Error struct {
	Code       Code
	StatusCode int
	Message    string
	cause      error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("gateway: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap exposes the transport error behind a connectivity failure.
func (e *Error) Unwrap() error { return e.cause }

// AsError extracts a gateway error from an error chain.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsAuthentication reports whether err is a 401 from the backend.
// Callers treat this on an authenticated call as an expired session.
func IsAuthentication(err error) bool {
	ge, ok := AsError(err)
	return ok && ge.Code == CodeAuthentication
}

// IsConnectivity reports whether err means no response was received.
func IsConnectivity(err error) bool {
	ge, ok := AsError(err)
	return ok && ge.Code == CodeConnectivity
}

// IsSessionInvalid reports whether err should destroy a previously
// valid session: 401 (token expired) or 403 (account locked).
func IsSessionInvalid(err error) bool {
	ge, ok := AsError(err)
	return ok && (ge.Code == CodeAuthentication || ge.Code == CodeLocked)
}

func classify(status int) Code {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return CodeValidation
	case status == http.StatusUnauthorized:
		return CodeAuthentication
	case status == http.StatusForbidden:
		return CodeLocked
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusNotFound:
		return CodeNotFound
	case status >= 500:
		return CodeServer
	default:
		return CodeServer
	}
}

// newHTTPError builds the normalized error for a non-2xx response.
// The backend's users and packages routes report failures under
// "detail", the customers and contact routes under "message"; a few
// infrastructure responses use "error". Whichever is present wins,
// otherwise the message is derived from the status code.
func newHTTPError(status int, body []byte) *Error {
	msg := ""
	for _, field := range []string{"detail", "message", "error"} {
		if v := gjson.GetBytes(body, field); v.Type == gjson.String && v.Str != "" {
			msg = v.Str
			break
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d %s", status, http.StatusText(status))
	}
	return &Error{Code: classify(status), StatusCode: status, Message: msg}
}

func connectivityError(err error) *Error {
	return &Error{
		Code:    CodeConnectivity,
		Message: "could not reach the Communication LTD backend",
		cause:   err,
	}
}
