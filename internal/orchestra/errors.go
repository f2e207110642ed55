package orchestra

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes orchestra errors.
type ErrorCode string

// Configuration and collaborator errors, returned by New and AddReducer.
const (
	ErrCodeNoStores            ErrorCode = "NO_STORES"
	ErrCodeDuplicateIdentifier ErrorCode = "DUPLICATE_IDENTIFIER"
	ErrCodeIdentifierTaken     ErrorCode = "IDENTIFIER_TAKEN"
	ErrCodeInvalidIdentifier   ErrorCode = "INVALID_IDENTIFIER"
	ErrCodeInvalidReducer      ErrorCode = "INVALID_REDUCER"
	ErrCodeInvalidStore        ErrorCode = "INVALID_STORE"
	ErrCodeInvalidDispatcher   ErrorCode = "INVALID_DISPATCHER"
	ErrCodeGraphResolved       ErrorCode = "GRAPH_RESOLVED"
)

// Resolution errors, returned by Reduce and Validate.
const (
	ErrCodeUnresolvedDependency ErrorCode = "UNRESOLVED_DEPENDENCY"
	ErrCodeCircularDependency   ErrorCode = "CIRCULAR_DEPENDENCY"
)

// Error is an orchestra configuration, collaborator or resolution error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Identifier names the offending store, external or dependency.
	Identifier string

	// Path is the resolution path that led to the error, for resolution
	// errors. A circular path starts and ends with Identifier.
	Path []string

	// Err is the underlying cause, such as a store configuration error.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " (path=%s)", strings.Join(e.Path, " → "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func codeOf(err error) (ErrorCode, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code, true
	}
	return "", false
}

// IsResolutionError reports whether err is an unresolved or circular
// dependency error. Uses errors.As to handle wrapped errors.
func IsResolutionError(err error) bool {
	code, ok := codeOf(err)
	return ok && (code == ErrCodeUnresolvedDependency || code == ErrCodeCircularDependency)
}

// IsCircularDependency reports whether err is a circular dependency error.
func IsCircularDependency(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeCircularDependency
}

// IsUnresolvedDependency reports whether err is an unresolved dependency
// error.
func IsUnresolvedDependency(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeUnresolvedDependency
}

// IsConfigurationError reports whether err was returned while building an
// Orchestra or registering an external reducer.
func IsConfigurationError(err error) bool {
	code, ok := codeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ErrCodeNoStores, ErrCodeDuplicateIdentifier, ErrCodeIdentifierTaken,
		ErrCodeInvalidIdentifier, ErrCodeInvalidReducer, ErrCodeInvalidStore,
		ErrCodeGraphResolved:
		return true
	}
	return false
}

func circularError(identifier string, path []string) *Error {
	return &Error{
		Code:       ErrCodeCircularDependency,
		Message:    fmt.Sprintf("failed to resolve circular dependency for identifier %q", identifier),
		Identifier: identifier,
		Path:       path,
	}
}

func unresolvedError(identifier string, path []string) *Error {
	return &Error{
		Code:       ErrCodeUnresolvedDependency,
		Message:    fmt.Sprintf("failed to resolve dependency for identifier %q", identifier),
		Identifier: identifier,
		Path:       path,
	}
}
