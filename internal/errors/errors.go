package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Stable error codes used for metrics labels and HTTP status mapping.
const (
	CodeValidation   = "E100"
	CodeUnauthorized = "E110"
	CodeInvalidToken = "E120"
	CodeDatabase     = "E200"
	CodeExternalAPI  = "E300"
	CodeRateLimit    = "E500"
)

// AppError carries an internal message for logs and a separate UserMessage
// that is safe to put in an HTTP response body.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// NewValidationError reports incomplete or malformed client input. The
// message doubles as the user-facing error string.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewUnauthorizedError reports a missing or unresolvable session.
func NewUnauthorizedError() *AppError {
	return &AppError{
		Code:        CodeUnauthorized,
		Message:     "no authenticated session",
		UserMessage: "Unauthorized",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewInvalidTokenError covers not-found, already-used and expired bind
// tokens uniformly so callers cannot probe which of the three happened.
func NewInvalidTokenError() *AppError {
	return &AppError{
		Code:        CodeInvalidToken,
		Message:     "bind token is invalid, used or expired",
		UserMessage: "Invalid or expired bind_token",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// NewDatabaseError wraps a storage failure. Safe for the caller to retry the
// whole operation.
func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeDatabase,
		Message:     fmt.Sprintf("database error: %s", underlyingMsg),
		UserMessage: "Internal server error",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewExternalAPIError wraps a failure talking to an external collaborator
// such as the Telegram Bot API.
func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     fmt.Sprintf("external API error: %s", apiName),
		UserMessage: "Internal server error",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewRateLimitError reports that the client exceeded a request quota.
func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: "Too many requests",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}
