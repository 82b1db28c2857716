package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeValidation, "bad input")
	assert.Equal(t, "[VALIDATION_ERROR] bad input", err.Error())

	wrapped := NewDomainErrorWithCause(ErrCodeEmbeddingProvider, "provider failed", errors.New("timeout"))
	assert.Equal(t, "[EMBEDDING_PROVIDER] provider failed: timeout", wrapped.Error())
}

func TestDomainError_WrapMatchesSentinel(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrRetrievalUnavailable.Wrap(cause)

	assert.True(t, errors.Is(err, ErrRetrievalUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrEmptyCorpus))
}

func TestDomainError_NestedWrap(t *testing.T) {
	inner := ErrDimensionMismatch.Wrap(errors.New("3 != 2"))
	outer := fmt.Errorf("query: %w", ErrRetrievalUnavailable.Wrap(inner))

	assert.True(t, errors.Is(outer, ErrRetrievalUnavailable))
	assert.True(t, errors.Is(outer, ErrDimensionMismatch))

	var domainErr *DomainError
	assert.True(t, errors.As(outer, &domainErr))
	assert.Equal(t, ErrCodeRetrievalUnavailable, domainErr.Code)
}

func TestDomainError_SameCodeDifferentMessage(t *testing.T) {
	assert.False(t, errors.Is(ErrInvalidQuery, ErrInvalidChunkConfig))
}
