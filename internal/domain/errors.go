package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeDimensionMismatch = "DIMENSION_MISMATCH"
	ErrCodePersistence       = "PERSISTENCE_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeInvalidOperation  = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrEmptyEmbedding       = NewDomainError(ErrCodeValidation, "embedding cannot be empty")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidJobStatus     = NewDomainError(ErrCodeValidation, "invalid embedding job status")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "vector document not found")
	ErrRecipeNotFound   = NewDomainError(ErrCodeNotFound, "recipe not found")
	ErrVersionNotFound  = NewDomainError(ErrCodeNotFound, "recipe version not found")
	ErrProjectNotFound  = NewDomainError(ErrCodeNotFound, "project not found")
)

// NewDimensionMismatchError reports a query or stored vector whose length
// disagrees with the store's fixed dimension. It is a caller bug, fatal to
// the call, and never retried.
func NewDimensionMismatchError(want, got int) *DomainError {
	return NewDomainError(ErrCodeDimensionMismatch,
		fmt.Sprintf("embedding has %d dimensions, store expects %d", got, want))
}

// NewPersistenceError wraps a storage-layer failure (connectivity,
// transaction failure, constraint violation). The store surfaces it without
// retrying; callers own the retry/backoff policy.
func NewPersistenceError(op string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodePersistence, op+" failed", err)
}

// IsDimensionMismatch reports whether err is a dimension mismatch error.
func IsDimensionMismatch(err error) bool {
	domainErr, ok := err.(*DomainError)
	return ok && domainErr.Code == ErrCodeDimensionMismatch
}

// IsPersistence reports whether err is a persistence error.
func IsPersistence(err error) bool {
	domainErr, ok := err.(*DomainError)
	return ok && domainErr.Code == ErrCodePersistence
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	domainErr, ok := err.(*DomainError)
	return ok && domainErr.Code == ErrCodeNotFound
}
