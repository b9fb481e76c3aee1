package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"os"

	"github.com/julianstephens/fleetboard/internal/logger"
)

var (
	// ErrScheduleLocked is returned when a trip mutation targets a locked day
	ErrScheduleLocked = stderrors.New("schedule is locked")
	// ErrNotAuthenticated is returned when no API token is configured
	ErrNotAuthenticated = stderrors.New("not logged in")
	// ErrUnreadableResponse marks a write the service accepted whose response
	// body could not be decoded or failed validation
	ErrUnreadableResponse = stderrors.New("write accepted, response unreadable")
)

// ValidationError is raised locally before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for a field
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RemoteError is a non-2xx answer from the Schedule Service.
type RemoteError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("remote %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("remote %d: %s", e.Status, msg)
}

// Retryable reports whether a read that failed this way may be attempted again
func (e *RemoteError) Retryable() bool {
	switch e.Status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsValidation reports whether err was raised by local validation
func IsValidation(err error) bool {
	var ve *ValidationError
	return stderrors.As(err, &ve)
}

// IsCommitted reports whether a failed write still changed the service's state
func IsCommitted(err error) bool {
	return stderrors.Is(err, ErrUnreadableResponse)
}

// IsNotFound reports whether the service answered 404
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether the service rejected the credentials
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized) || hasStatus(err, http.StatusForbidden) ||
		stderrors.Is(err, ErrNotAuthenticated)
}

func hasStatus(err error, status int) bool {
	var re *RemoteError
	return stderrors.As(err, &re) && re.Status == status
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	var re *RemoteError
	if stderrors.As(err, &re) && re.Message != "" {
		return fmt.Sprintf("Error: %s (HTTP %d)", re.Message, re.Status)
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}
