package kafka

import (
	"net/http"
	"strings"

	"github.com/voixagent/voixagent/errors"
)

var (
	connectionPatterns = []string{
		"connection refused", "connection reset", "broken pipe", "i/o timeout",
		"no route to host", "network is unreachable", "broker not available",
		"leader not available", "connection closed", "dial tcp",
	}
	transientPatterns = []string{
		"temporary", "request timed out", "not enough replicas",
	}
	permanentPatterns = []string{
		"message too large", "invalid topic", "unknown topic", "authorization failed",
	}
)

func matches(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsConnectionError reports whether err is a broker connection failure.
func IsConnectionError(err error) bool { return matches(err, connectionPatterns) }

// IsRetryableError reports whether a failed write may succeed when retried.
func IsRetryableError(err error) bool {
	if matches(err, permanentPatterns) {
		return false
	}
	return IsConnectionError(err) || matches(err, transientPatterns)
}

// FromKafka converts a write error to an AppError.
func FromKafka(err error, topic string) *errors.AppError {
	if err == nil {
		return nil
	}
	if IsRetryableError(err) {
		return errors.ExternalServiceError("kafka", err).WithDetail("topic", topic)
	}
	return &errors.AppError{
		Code: errors.ErrCodeExternalService, Message: "The event stream rejected the message.",
		HTTPStatus: http.StatusBadGateway, Retryable: false,
		Details: map[string]any{"service": "kafka", "topic": topic}, Cause: err,
	}
}
