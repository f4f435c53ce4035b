package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type returned by the HTTP API.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates missing or malformed input.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeOCRFailed indicates the OCR collaborator failed or returned no text.
	ErrCodeOCRFailed ErrorCode = "OCR_FAILED"
	// ErrCodeOCRUnavailable indicates the tesseract binary cannot be run.
	ErrCodeOCRUnavailable ErrorCode = "OCR_UNAVAILABLE"
	// ErrCodeUnsupportedMediaType indicates an upload that is not an image.
	ErrCodeUnsupportedMediaType ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected server failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

var httpStatus = map[ErrorCode]int{
	ErrCodeInvalidArgument:      http.StatusBadRequest,
	ErrCodeOCRFailed:            http.StatusBadRequest,
	ErrCodeOCRUnavailable:       http.StatusInternalServerError,
	ErrCodeUnsupportedMediaType: http.StatusUnsupportedMediaType,
	ErrCodeRateLimitExceeded:    http.StatusTooManyRequests,
	ErrCodeTimeout:              http.StatusGatewayTimeout,
	ErrCodeInternal:             http.StatusInternalServerError,
}

// HTTPStatus maps a code to its response status. Unknown codes are 500.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := httpStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// APIError represents a structured error for API operations.
type APIError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Body is the JSON payload written for an APIError.
type Body struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

// Body returns the response payload. The message is what clients see; the cause is logged only.
func (e *APIError) Body() Body {
	return Body{Error: e.Message, Code: e.Code}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *APIError {
	return &APIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// OCRFailed creates an OCR failure error. The cause's message is what the client sees.
func OCRFailed(cause error) *APIError {
	return &APIError{Code: ErrCodeOCRFailed, Message: cause.Error(), Cause: cause}
}

// OCRUnavailable creates an error for a missing or broken tesseract install.
func OCRUnavailable(msg string, cause error) *APIError {
	return &APIError{Code: ErrCodeOCRUnavailable, Message: msg, Cause: cause}
}

// UnsupportedMediaType creates an unsupported upload error.
func UnsupportedMediaType(mimeType string) *APIError {
	return &APIError{Code: ErrCodeUnsupportedMediaType, Message: fmt.Sprintf("unsupported image type: %s", mimeType)}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Timeout creates a timeout error.
func Timeout(msg string, cause error) *APIError {
	return &APIError{Code: ErrCodeTimeout, Message: msg, Cause: cause}
}

// Internal creates an internal error.
func Internal(cause error) *APIError {
	return &APIError{Code: ErrCodeInternal, Message: "internal server error", Cause: cause}
}
