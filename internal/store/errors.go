package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

// Configuration errors, recorded by builder calls.
const (
	ErrCodeInvalidIdentifier   ErrorCode = "INVALID_IDENTIFIER"
	ErrCodeInvalidHook         ErrorCode = "INVALID_HOOK"
	ErrCodeInvalidDependency   ErrorCode = "INVALID_DEPENDENCY"
	ErrCodeDuplicateDependency ErrorCode = "DUPLICATE_DEPENDENCY"
	ErrCodeSealed              ErrorCode = "STORE_SEALED"
)

// Validation errors, returned by action constructors.
const (
	ErrCodeInvalidPayload  ErrorCode = "INVALID_PAYLOAD"
	ErrCodeMissingID       ErrorCode = "MISSING_ID"
	ErrCodeInvalidSelector ErrorCode = "INVALID_SELECTOR"
)

// Error is a store configuration or validation error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Store is the identifier of the store that produced the error.
	Store string

	// Dependency names the dependency edge involved, if any.
	Dependency string
}

func (e *Error) Error() string {
	if e.Dependency != "" {
		return fmt.Sprintf("%s: %s (store=%s, dependency=%s)", e.Code, e.Message, e.Store, e.Dependency)
	}
	if e.Store != "" {
		return fmt.Sprintf("%s: %s (store=%s)", e.Code, e.Message, e.Store)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigurationError reports whether err is a store configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case ErrCodeInvalidIdentifier, ErrCodeInvalidHook, ErrCodeInvalidDependency,
		ErrCodeDuplicateDependency, ErrCodeSealed:
		return true
	}
	return false
}

// IsValidationError reports whether err is an action validation error.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case ErrCodeInvalidPayload, ErrCodeMissingID, ErrCodeInvalidSelector:
		return true
	}
	return false
}

// HasCode reports whether err is a store Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}
