package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for the caller. Values match the callable
// protocol status strings.
type ErrorKind string

const (
	KindUnauthenticated    ErrorKind = "UNAUTHENTICATED"
	KindPermissionDenied   ErrorKind = "PERMISSION_DENIED"
	KindInvalidArgument    ErrorKind = "INVALID_ARGUMENT"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindFailedPrecondition ErrorKind = "FAILED_PRECONDITION"
	KindInternal           ErrorKind = "INTERNAL"
)

// ServiceError is a classified failure whose Message is safe to show to the caller
type ServiceError struct {
	Kind    ErrorKind `json:"status"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewUnauthenticatedError is returned when the caller carries no identity
func NewUnauthenticatedError(message string) *ServiceError {
	return &ServiceError{Kind: KindUnauthenticated, Message: message}
}

// NewPermissionDeniedError is returned when the caller lacks the required role
func NewPermissionDeniedError(message string) *ServiceError {
	return &ServiceError{Kind: KindPermissionDenied, Message: message}
}

// NewInvalidArgumentError is returned for missing or malformed fields
func NewInvalidArgumentError(message string) *ServiceError {
	return &ServiceError{Kind: KindInvalidArgument, Message: message}
}

// NewNotFoundError is returned when a referenced document is absent
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: message}
}

// NewFailedPreconditionError is returned when a dependency is not configured or busy
func NewFailedPreconditionError(message string) *ServiceError {
	return &ServiceError{Kind: KindFailedPrecondition, Message: message}
}

// NewInternalError wraps a downstream failure, keeping its message for diagnostics
func NewInternalError(message string, err error) *ServiceError {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &ServiceError{Kind: KindInternal, Message: message, Err: err}
}

// IsServiceError checks if an error is a ServiceError
func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// KindOf returns the kind of err; unclassified errors are Internal
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Kind
	}
	return KindInternal
}
