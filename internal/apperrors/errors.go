package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Kind is the stable failure tag surfaced to clients. It is the only part of
// a failure client logic should branch on.
type Kind string

const (
	KindBadRequest   Kind = "BadRequest"
	KindUnauthorized Kind = "Unauthorized"
	KindNotFound     Kind = "NotFound"
	KindServerError  Kind = "ServerError"
)

var defaultMessages = map[Kind]string{
	KindBadRequest:   "Invalid request",
	KindUnauthorized: "Unauthorized user",
	KindNotFound:     "Resource not found",
	KindServerError:  "Internal server error",
}

// Error is a typed, user-visible failure.
type Error struct {
	Kind    Kind
	Message string
	// Status overrides the HTTP status derived from Kind when non-zero.
	Status int
	// Err is the internal cause. It is logged, never written to the response.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code written for this failure.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string) *Error {
	if message == "" {
		message = defaultMessages[kind]
	}
	return &Error{Kind: kind, Message: message}
}

// BadRequest reports a caller-triggered logical violation.
func BadRequest(message string) error {
	return newError(KindBadRequest, message)
}

// Unauthorized reports an authenticated caller lacking the required privilege.
func Unauthorized(message string) error {
	return newError(KindUnauthorized, message)
}

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated() error {
	e := newError(KindUnauthorized, "")
	e.Status = http.StatusUnauthorized
	return e
}

// NotFound reports a missing entity or relationship.
func NotFound(message string) error {
	return newError(KindNotFound, message)
}

// Internal wraps a persistence or infrastructure failure.
func Internal(err error) error {
	e := newError(KindServerError, "")
	e.Err = err
	return e
}

// As extracts the typed failure from err. Untyped errors become ServerError
// with err as the cause.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	e := newError(KindServerError, "")
	e.Err = err
	return e
}

// KindOf returns the failure tag of err.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}

// ErrorResponse represents the error envelope
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Type      Kind   `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// SuccessResponse represents the success envelope
type SuccessResponse struct {
	RequestID string      `json:"request_id"`
	Data      interface{} `json:"data"`
}

// Write converts err into the error envelope. ServerError causes are logged
// here and nowhere else.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	appErr := As(err)

	if appErr.Kind == KindServerError {
		log.Error().
			Err(appErr.Err).
			Str("request_id", GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		// Internal detail never leaves the server.
		appErr = newError(KindServerError, "")
	}

	WriteError(w, r, appErr.HTTPStatus(), appErr.Kind, appErr.Message)
}

// WriteError writes an error response in the standard envelope format
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, kind Kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: ErrorDetail{
			Type:      kind,
			Message:   message,
			RequestID: GetRequestID(r.Context()),
		},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return
	}
}

// WriteSuccess writes a success response in the standard envelope format
func WriteSuccess(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := SuccessResponse{
		RequestID: GetRequestID(r.Context()),
		Data:      data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return
	}
}

// WriteServiceUnavailable is a helper for 503 responses
func WriteServiceUnavailable(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusServiceUnavailable, KindServerError, message)
}

// WriteTooManyRequests is a helper for 429 responses
func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusTooManyRequests, KindBadRequest, message)
}
