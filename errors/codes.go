package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors
const (
	// ErrCodeConfiguration indicates invalid or incomplete configuration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeUnsupportedProvider indicates a provider name that is not registered
	// for the requested capability.
	ErrCodeUnsupportedProvider ErrorCode = "UNSUPPORTED_PROVIDER"
	// ErrCodeMissingCredential indicates the credential a provider needs is absent.
	ErrCodeMissingCredential ErrorCode = "MISSING_CREDENTIAL"
)

// Session errors
const (
	// ErrCodeSessionCreation indicates a session could not be created.
	ErrCodeSessionCreation ErrorCode = "SESSION_CREATION_FAILED"
	// ErrCodeDuplicateSession indicates a live session already uses the id.
	ErrCodeDuplicateSession ErrorCode = "DUPLICATE_SESSION"
	// ErrCodeSessionRuntime indicates a capability call failed during a turn.
	ErrCodeSessionRuntime ErrorCode = "SESSION_RUNTIME_ERROR"
	// ErrCodeSessionNotActive indicates the session cannot accept turns.
	ErrCodeSessionNotActive ErrorCode = "SESSION_NOT_ACTIVE"
)

// Contained errors. These never cross the plugin pipeline or the metrics
// aggregator boundary.
const (
	ErrCodePluginExecution ErrorCode = "PLUGIN_EXECUTION_ERROR"
	ErrCodeMetricsPublish  ErrorCode = "METRICS_PUBLISH_ERROR"
)

// Generic errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeExternalService indicates an error from an external provider API.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeProviderAuth indicates the provider rejected our credentials.
	ErrCodeProviderAuth ErrorCode = "PROVIDER_AUTH_FAILED"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeUnauthorized indicates a missing or invalid access token.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeSessionRuntime:  true,
	ErrCodeMetricsPublish:  true,
	ErrCodeTimeout:         true,
	ErrCodeExternalService: true,
	ErrCodeInternal:        false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
