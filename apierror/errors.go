package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an API failure into the categories the rest of the
// application switches on.
type Kind string

const (
	// KindInvalidCredentials covers 401 responses: bad login credentials or
	// an access token the server no longer accepts.
	KindInvalidCredentials Kind = "invalid_credentials"

	// KindConflict covers 409 responses, e.g. registering a duplicate email.
	KindConflict Kind = "conflict"

	// KindValidationFailed covers 400 responses and client-side input
	// validation, carrying per-field messages.
	KindValidationFailed Kind = "validation_failed"

	// KindServerError covers 5xx responses and unparseable bodies.
	KindServerError Kind = "server_error"

	// KindNetworkError covers transport failures where no response was
	// received (DNS, timeout, connection refused).
	KindNetworkError Kind = "network_error"

	// KindSessionExpired marks a terminal renewal failure: the refresh token
	// was rejected and the stored credentials have been cleared.
	KindSessionExpired Kind = "session_expired"

	// KindRequestFailed covers every other non-2xx status (403, 404, ...).
	// The status code is preserved on the error.
	KindRequestFailed Kind = "request_failed"
)

const genericMessage = "something went wrong, please try again"

// Error is the tagged error surfaced by the API client layer. It replaces
// ad hoc status/body fields bolted onto generic errors with an explicit
// structure callers can inspect.
type Error struct {
	Kind       Kind
	StatusCode int               // zero when no response was received
	Message    string            // server-supplied when present, else a generic fallback
	Fields     map[string]string // field-level validation messages, may be nil
	Body       []byte            // raw response body, may be nil
	cause      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = genericMessage
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for field, fieldMsg := range e.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", field, fieldMsg))
		}
		sort.Strings(parts)
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(parts, "; "))
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return "", false
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// errorBody is the superset of error payload shapes the backend has shipped
// over time. Both "message" and "error" have been used for the human-readable
// message; "errors" carries field-level validation failures.
type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

// FromResponse builds an *Error from a non-2xx response.
func FromResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{
		StatusCode: statusCode,
		Body:       body,
	}

	switch {
	case statusCode == http.StatusUnauthorized:
		apiErr.Kind = KindInvalidCredentials
	case statusCode == http.StatusConflict:
		apiErr.Kind = KindConflict
	case statusCode == http.StatusBadRequest:
		apiErr.Kind = KindValidationFailed
	case statusCode >= 500:
		apiErr.Kind = KindServerError
	default:
		apiErr.Kind = KindRequestFailed
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		if apiErr.Kind == KindValidationFailed {
			apiErr.Kind = KindServerError
		}
		return apiErr
	}

	apiErr.Message = parsed.Message
	if apiErr.Message == "" {
		apiErr.Message = parsed.Error
	}

	if len(parsed.Errors) > 0 {
		apiErr.Fields = make(map[string]string, len(parsed.Errors))
		for field, msgs := range parsed.Errors {
			apiErr.Fields[field] = strings.Join(msgs, ", ")
		}
	}

	return apiErr
}

// Network wraps a transport failure where no response was received.
func Network(err error) *Error {
	return &Error{
		Kind:    KindNetworkError,
		Message: "could not reach the server",
		cause:   err,
	}
}

// Validation builds a client-side validation error from field messages.
func Validation(fields map[string]string) *Error {
	return &Error{
		Kind:    KindValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	}
}

// SessionExpired marks the terminal renewal failure that forces a logout.
func SessionExpired() *Error {
	return &Error{
		Kind:       KindSessionExpired,
		StatusCode: http.StatusUnauthorized,
		Message:    "session expired, please log in again",
	}
}
