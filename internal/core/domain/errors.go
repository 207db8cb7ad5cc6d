// Package domain defines the core domain models for walletlink.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "WL-PROV-5030")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support. Two DomainErrors match when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Provider Errors (PROV)
// ============================================================================

var (
	// ErrProviderUnavailable indicates no wallet provider is injected or reachable.
	ErrProviderUnavailable = NewDomainError("WL-PROV-5030", "wallet provider unavailable")

	// ErrUserRejected indicates the user declined a provider prompt.
	ErrUserRejected = NewDomainError("WL-PROV-4001", "request rejected by user")

	// ErrSigningFailed indicates the provider could not sign a message.
	ErrSigningFailed = NewDomainError("WL-PROV-4002", "message signing failed")
)

// ============================================================================
// Connection Errors (CONN)
// ============================================================================

var (
	// ErrAlreadyConnecting indicates a connect operation is already in flight.
	ErrAlreadyConnecting = NewDomainError("WL-CONN-4090", "connect already in progress")

	// ErrTimeout indicates a provider call did not complete in time.
	ErrTimeout = NewDomainError("WL-CONN-4080", "operation timed out")

	// ErrDisconnected indicates an operation was aborted by a session teardown.
	ErrDisconnected = NewDomainError("WL-CONN-4100", "session torn down during operation")
)

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrAuthenticationFailed indicates the challenge/login round-trip failed.
	// The operation may be retried by calling Authenticate again.
	ErrAuthenticationFailed = NewDomainError("WL-AUTH-4010", "authentication failed")

	// ErrNotConnected indicates authentication was attempted without a live address.
	ErrNotConnected = NewDomainError("WL-AUTH-4011", "wallet not connected")

	// ErrAlreadyAuthenticating indicates an authentication flow is already in flight.
	ErrAlreadyAuthenticating = NewDomainError("WL-AUTH-4090", "authentication already in progress")
)

// ============================================================================
// System Errors (SYS / STOR / ARG)
// ============================================================================

var (
	// ErrStorage indicates a session store failure.
	ErrStorage = NewDomainError("WL-STOR-5001", "session store error")

	// ErrBackend indicates an unexpected backend response.
	ErrBackend = NewDomainError("WL-SYS-5020", "backend request failed")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("WL-ARG-1001", "invalid argument")
)
