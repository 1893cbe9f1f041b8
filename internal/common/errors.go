package common

import "errors"

// Error codes shared across the gateway's HTTP surfaces.
const (
	CodeMissingCredentials  = "MISSING_CREDENTIALS"
	CodeMissingBaseURL      = "MISSING_BASE_URL"
	CodeTransportError      = "TRANSPORT_ERROR"
	CodeHTTPError           = "HTTP_ERROR"
	CodeDecodeError         = "DECODE_ERROR"
	CodeMissingItems        = "MISSING_ITEMS"
	CodeMissingToken        = "MISSING_TOKEN"
	CodeValidation          = "VALIDATION_ERROR"
	CodeMissingHeaders      = "MISSING_HEADERS"
	CodeInvalidSignature    = "INVALID_SIGNATURE"
	CodeSecretNotConfigured = "SECRET_NOT_CONFIGURED"
	CodeEmptyPayload        = "EMPTY_PAYLOAD"
	CodeOrderNotFound       = "ORDER_NOT_FOUND"
	CodeInternal            = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// AsAppError extracts an AppError from the chain, if any.
func AsAppError(err error) (*AppError, bool) {
	var target *AppError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
