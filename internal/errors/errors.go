// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors.
type ErrorType string

const (
	// ErrorTypeConfig: a required provider credential is not configured.
	// Fatal to the single request, never to the process.
	ErrorTypeConfig ErrorType = "config_error"

	// ErrorTypeValidation: missing or malformed input, rejected before any
	// network call is made.
	ErrorTypeValidation ErrorType = "validation_error"

	// ErrorTypeParse: upstream returned text that is not in the expected
	// structured shape.
	ErrorTypeParse ErrorType = "parse_error"

	// ErrorTypeUpstream: the provider returned a failure status.
	ErrorTypeUpstream ErrorType = "upstream_error"

	// ErrorTypeCredentialsExhausted: every configured credential failed in
	// rotation.
	ErrorTypeCredentialsExhausted ErrorType = "all_credentials_exhausted"

	// ErrorTypeImageUnavailable: the availability poller gave up on a handle.
	ErrorTypeImageUnavailable ErrorType = "image_unavailable"

	// ErrorTypeInvalidArchive: import manifest missing or unparseable.
	ErrorTypeInvalidArchive ErrorType = "invalid_archive"
)

// AppError is the application error carrier.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError of the given type.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewConfigError reports a missing provider credential.
func NewConfigError(message string) *AppError {
	return NewAppError(ErrorTypeConfig, message, nil)
}

// NewValidationError reports rejected input.
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewParseError reports unparseable upstream text. rawText is truncated so
// diagnostics never carry an entire model response.
func NewParseError(message string, rawText string, originalError error) *AppError {
	const maxRaw = 500
	if len(rawText) > maxRaw {
		rawText = rawText[:maxRaw] + "..."
	}
	return NewAppError(ErrorTypeParse, fmt.Sprintf("%s (raw: %s)", message, rawText), originalError)
}

// NewUpstreamError wraps a provider failure status.
func NewUpstreamError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUpstream, message, originalError)
}

// NewCredentialsExhaustedError reports a fully failed rotation, carrying the
// last observed error.
func NewCredentialsExhaustedError(attempts int, lastError error) *AppError {
	return NewAppError(ErrorTypeCredentialsExhausted,
		fmt.Sprintf("all %d configured credentials failed", attempts), lastError)
}

// NewImageUnavailableError names the handle and the attempt count.
func NewImageUnavailableError(url string, attempts int) *AppError {
	return NewAppError(ErrorTypeImageUnavailable,
		fmt.Sprintf("image %s not fetchable after %d attempts", url, attempts), nil)
}

// NewInvalidArchiveError reports an unusable import archive.
func NewInvalidArchiveError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeInvalidArchive, message, originalError)
}

// IsType checks whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

func IsConfigError(err error) bool     { return IsType(err, ErrorTypeConfig) }
func IsValidationError(err error) bool { return IsType(err, ErrorTypeValidation) }
func IsParseError(err error) bool      { return IsType(err, ErrorTypeParse) }
func IsUpstreamError(err error) bool   { return IsType(err, ErrorTypeUpstream) }

func IsCredentialsExhausted(err error) bool { return IsType(err, ErrorTypeCredentialsExhausted) }
func IsImageUnavailable(err error) bool     { return IsType(err, ErrorTypeImageUnavailable) }
func IsInvalidArchive(err error) bool       { return IsType(err, ErrorTypeInvalidArchive) }

func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeConfig:
		return "CONFIG_ERROR"
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeParse:
		return "PARSE_ERROR"
	case ErrorTypeUpstream:
		return "UPSTREAM_ERROR"
	case ErrorTypeCredentialsExhausted:
		return "ALL_CREDENTIALS_EXHAUSTED"
	case ErrorTypeImageUnavailable:
		return "IMAGE_UNAVAILABLE"
	case ErrorTypeInvalidArchive:
		return "INVALID_ARCHIVE"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError wraps an existing error, preserving an AppError's type when the
// chain already carries one.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
