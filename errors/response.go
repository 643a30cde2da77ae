package errors

import (
	"context"
	stderrors "errors"
)

// ErrorResponse is the JSON structure returned to clients following RFC 7807.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to clients.
type ErrorBody struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   e.Message,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying one of codes.
func HasCode(err error, codes ...ErrorCode) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if appErr.Code == c {
			return true
		}
	}
	return false
}

// IsConfigurationError matches configuration failures including unsupported
// providers and missing credentials.
func IsConfigurationError(err error) bool {
	return HasCode(err, ErrCodeConfiguration, ErrCodeUnsupportedProvider, ErrCodeMissingCredential)
}

// IsSessionCreationError matches duplicate ids and failed session bring-up.
func IsSessionCreationError(err error) bool {
	return HasCode(err, ErrCodeSessionCreation, ErrCodeDuplicateSession)
}

// IsSessionRuntimeError matches failed turns.
func IsSessionRuntimeError(err error) bool {
	return HasCode(err, ErrCodeSessionRuntime)
}

// IsNotFound matches NOT_FOUND errors.
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

// IsRetryable reports whether err may succeed on retry. Deadline errors are
// retryable; cancellation is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Wrap converts any error into an *AppError. AppErrors pass through unchanged;
// anything else becomes INTERNAL_ERROR with err as the cause.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
