// Package errors provides the structured error taxonomy of the voice agent.
//
// Every failure that crosses a package boundary is an *AppError carrying a
// machine-readable code, an HTTP status and a retryable flag. Configuration,
// session creation and session runtime errors are distinguished by code and
// matched with the Is*Error predicates. Plugin and metrics publication errors
// are always contained by their owners and only ever logged.
package errors
