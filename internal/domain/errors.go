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

// Is reports whether target is a DomainError with the same code and message,
// so wrapped variants still match their sentinel with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
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

// Wrap returns a copy of e carrying cause, matching e under errors.Is.
func (e *DomainError) Wrap(cause error) *DomainError {
	return NewDomainErrorWithCause(e.Code, e.Message, cause)
}

// Common domain error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeEmptyCorpus          = "EMPTY_CORPUS"
	ErrCodeEmbeddingProvider    = "EMBEDDING_PROVIDER"
	ErrCodeRetrievalUnavailable = "RETRIEVAL_UNAVAILABLE"
	ErrCodeDimensionMismatch    = "DIMENSION_MISMATCH"
)

// Validation errors
var (
	ErrInvalidQuery       = NewDomainError(ErrCodeValidation, "query text is empty")
	ErrInvalidChunkConfig = NewDomainError(ErrCodeValidation, "invalid chunk configuration")
)

// Corpus errors
var (
	ErrEmptyCorpus = NewDomainError(ErrCodeEmptyCorpus, "corpus has no indexable content")
)

// Retrieval errors
var (
	ErrEmbeddingProvider    = NewDomainError(ErrCodeEmbeddingProvider, "embedding provider request failed")
	ErrRetrievalUnavailable = NewDomainError(ErrCodeRetrievalUnavailable, "vector retrieval unavailable")
	ErrDimensionMismatch    = NewDomainError(ErrCodeDimensionMismatch, "embedding dimensions do not match index")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
