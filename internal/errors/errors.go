package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type ErrorCode string

const (
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeBadRequest    ErrorCode = "BAD_REQUEST"
	CodeRateLimit     ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeUpstream      ErrorCode = "UPSTREAM_UNAVAILABLE"
	CodeMalformedData ErrorCode = "MALFORMED_DATA"
)

var statusByCode = map[ErrorCode]int{
	CodeValidation:    http.StatusBadRequest,
	CodeBadRequest:    http.StatusBadRequest,
	CodeNotFound:      http.StatusNotFound,
	CodeRateLimit:     http.StatusTooManyRequests,
	CodeUpstream:      http.StatusBadGateway,
	CodeMalformedData: http.StatusBadGateway,
}

// AppError is an error that knows its HTTP status. A dashboard pass that
// fails returns one, possibly wrapped.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return Wrap(nil, code, message)
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Cause:      err,
		Timestamp:  time.Now().UTC(),
	}
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

// Validation reports criteria that cannot be evaluated, such as an inverted
// range or an unknown column.
func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

func BadRequestWrap(err error, message string) *AppError {
	return Wrap(err, CodeBadRequest, message)
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

// Upstream reports a failed or timed out fetch from the data source.
func Upstream(message string) *AppError {
	return New(CodeUpstream, message)
}

func UpstreamWrap(err error, message string) *AppError {
	return Wrap(err, CodeUpstream, message)
}

// MalformedData reports a source payload that is missing fields or carries
// values that do not parse.
func MalformedData(message string) *AppError {
	return New(CodeMalformedData, message)
}

func MalformedDataWrap(err error, message string) *AppError {
	return Wrap(err, CodeMalformedData, message)
}

// HasCode reports whether err is, or wraps, an *AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

// WriteError writes err as a JSON error envelope. Errors that are not an
// *AppError are reported as internal errors without exposing their text.
// Client errors carry their cause in details.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = InternalWrap(err, "An unexpected error occurred")
	}

	body := *appErr
	body.RequestID = requestID
	if body.StatusCode < http.StatusInternalServerError && body.Cause != nil && body.Details == "" {
		body.Details = body.Cause.Error()
	}

	if encodeErr := writeJSON(w, body.StatusCode, ErrorResponse{Error: &body}); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	level := slog.LevelError
	if body.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.LogAttrs(context.Background(), level, "request failed",
		slog.String("error_code", string(body.Code)),
		slog.String("error_message", body.Message),
		slog.Int("status_code", body.StatusCode),
		slog.String("request_id", requestID),
		slog.Any("cause", body.Cause),
	)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, SuccessResponse{Data: data, Success: true})
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
