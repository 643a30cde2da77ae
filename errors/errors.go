package errors

import (
	"fmt"
	"net/http"
)

// AppError is the error type every package of the module returns across
// its API. Code is stable and machine-readable; Message is safe to show to
// a caller; Details and Cause are for logs and diagnostics.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets Cause and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets one detail and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// New creates an AppError whose Retryable flag follows the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Retryable: IsRetryableCode(code)}
}

// kv builds a details map from alternating keys and values.
func kv(pairs ...any) map[string]any {
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i].(string)] = pairs[i+1]
	}
	return m
}

func build(code ErrorCode, status int, message string, details map[string]any, cause error) *AppError {
	e := New(code, message, status)
	e.Details = details
	e.Cause = cause
	return e
}

// Configuration reports invalid or incomplete agent configuration.
func Configuration(message string) *AppError {
	return New(ErrCodeConfiguration, message, http.StatusBadRequest)
}

// UnsupportedProvider reports a provider name with no factory for capability.
func UnsupportedProvider(capability, provider string) *AppError {
	return build(ErrCodeUnsupportedProvider, http.StatusBadRequest,
		fmt.Sprintf("Provider %q is not supported for %s.", provider, capability),
		kv("capability", capability, "provider", provider), nil)
}

// MissingCredential reports that the credential a provider requires is absent.
func MissingCredential(capability, provider, ref string) *AppError {
	return build(ErrCodeMissingCredential, http.StatusBadRequest,
		fmt.Sprintf("Provider %q for %s requires credential %s.", provider, capability, ref),
		kv("capability", capability, "provider", provider, "credential_ref", ref), nil)
}

// SessionCreation reports that a session could not be brought up.
func SessionCreation(sessionID string, cause error) *AppError {
	return build(ErrCodeSessionCreation, http.StatusUnprocessableEntity,
		fmt.Sprintf("Session %s could not be created.", sessionID),
		kv("session_id", sessionID), cause)
}

// DuplicateSession reports a create request for an id that is still live.
func DuplicateSession(sessionID string) *AppError {
	return build(ErrCodeDuplicateSession, http.StatusConflict,
		fmt.Sprintf("Session %s already exists.", sessionID),
		kv("session_id", sessionID), nil)
}

// SessionRuntime wraps a failed capability call during a turn. When cause
// is an AppError its Retryable flag carries over.
func SessionRuntime(sessionID, stage string, cause error) *AppError {
	e := build(ErrCodeSessionRuntime, http.StatusBadGateway,
		fmt.Sprintf("Turn failed during %s.", stage),
		kv("session_id", sessionID, "stage", stage), cause)
	if inner, ok := AsAppError(cause); ok {
		e.Retryable = inner.Retryable
	}
	return e
}

// SessionNotActive reports a turn submitted to a session that is not Active.
func SessionNotActive(sessionID, state string) *AppError {
	return build(ErrCodeSessionNotActive, http.StatusConflict,
		fmt.Sprintf("Session %s is %s.", sessionID, state),
		kv("session_id", sessionID, "state", state), nil)
}

// PluginExecution wraps a plugin failure. It is logged, never returned from
// a turn.
func PluginExecution(plugin string, cause error) *AppError {
	return build(ErrCodePluginExecution, http.StatusInternalServerError,
		fmt.Sprintf("Plugin %s failed.", plugin), kv("plugin", plugin), cause)
}

// MetricsPublish wraps a snapshot publication failure.
func MetricsPublish(target string, cause error) *AppError {
	return build(ErrCodeMetricsPublish, http.StatusInternalServerError,
		fmt.Sprintf("Publishing metrics to %s failed.", target), kv("target", target), cause)
}

func Timeout(operation string) *AppError {
	return build(ErrCodeTimeout, http.StatusGatewayTimeout,
		"The request took too long. Please try again.", kv("operation", operation), nil)
}

// NotFound omits the id detail when id is empty.
func NotFound(resource, id string) *AppError {
	details := kv("resource", resource)
	if id != "" {
		details["id"] = id
	}
	return build(ErrCodeNotFound, http.StatusNotFound,
		fmt.Sprintf("The requested %s was not found.", resource), details, nil)
}

func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason, http.StatusBadRequest)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func Internal(cause error) *AppError {
	return build(ErrCodeInternal, http.StatusInternalServerError, "An unexpected error occurred.", nil, cause)
}

// ExternalServiceError reports a transport-level failure talking to a
// provider API.
func ExternalServiceError(service string, cause error) *AppError {
	return build(ErrCodeExternalService, http.StatusBadGateway,
		fmt.Sprintf("The %s service encountered an error. Please try again.", service),
		kv("service", service), cause)
}

// FromHTTPStatus classifies a non-2xx provider response: 401 and 403 are
// credential failures, 408, 429 and 5xx are retryable, anything else is a
// permanent rejection.
func FromHTTPStatus(service string, status int, body string) *AppError {
	details := kv("service", service, "status", status)
	if body != "" {
		details["body"] = body
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return build(ErrCodeProviderAuth, http.StatusBadGateway,
			fmt.Sprintf("The %s service rejected the credentials.", service), details, nil)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return build(ErrCodeExternalService, http.StatusBadGateway,
			fmt.Sprintf("The %s service is unavailable (status %d).", service, status), details, nil)
	}
	e := build(ErrCodeExternalService, http.StatusBadGateway,
		fmt.Sprintf("The %s service rejected the request (status %d).", service, status), details, nil)
	e.Retryable = false
	return e
}
