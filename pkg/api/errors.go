package api

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeConfiguration     ErrorType = "configuration_error"
	ErrorTypeTransport         ErrorType = "transport_error"
	ErrorTypeParse             ErrorType = "parse_error"
	ErrorTypeMissingCredential ErrorType = "missing_credential"
	ErrorTypeInvalidRequest    ErrorType = "invalid_request"
)

// Sentinel causes wrapped by APIError values. Match them with errors.Is.
var (
	// ErrNoJSONObject reports model output that contains no brace-delimited object.
	ErrNoJSONObject = errors.New("no JSON object found in response")

	// ErrInvalidJSON reports a brace-delimited span that does not parse as JSON.
	ErrInvalidJSON = errors.New("model did not return valid JSON")

	// ErrMissingCredential reports an API key that is required but not configured.
	ErrMissingCredential = errors.New("missing credential")
)

// APIError is a failed capability invocation with type, param, status and message.
type APIError struct {
	Type       ErrorType `json:"type"`
	Param      string    `json:"param,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewConfigurationError wraps an aggregated configuration failure.
func NewConfigurationError(err error) *APIError {
	return &APIError{
		Type:    ErrorTypeConfiguration,
		Message: err.Error(),
		Err:     err,
	}
}

// NewTransportError creates an APIError for a non-success upstream status.
// The message should already identify the status code.
func NewTransportError(statusCode int, message string) *APIError {
	return &APIError{
		Type:       ErrorTypeTransport,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewConnectionError creates an APIError for a failure below HTTP
// (refused connection, DNS failure, dropped stream).
func NewConnectionError(message string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeTransport,
		Message: message,
		Err:     err,
	}
}

// NewParseError creates an APIError for output that could not be decoded.
// cause should be ErrNoJSONObject, ErrInvalidJSON or a decoder error.
func NewParseError(cause error) *APIError {
	return &APIError{
		Type:    ErrorTypeParse,
		Message: cause.Error(),
		Err:     cause,
	}
}

// NewMissingCredentialError creates an APIError for an absent API key.
func NewMissingCredentialError(key, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeMissingCredential,
		Param:   key,
		Message: message,
		Err:     ErrMissingCredential,
	}
}

// NewInvalidRequestError creates an APIError for invalid capability parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// IsType reports whether err is an APIError of the given type.
func IsType(err error, t ErrorType) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == t
}
