package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDimensionMismatchError(t *testing.T) {
	err := NewDimensionMismatchError(1536, 768)

	assert.True(t, IsDimensionMismatch(err))
	assert.Contains(t, err.Error(), "768")
	assert.Contains(t, err.Error(), "1536")
	assert.False(t, IsPersistence(err))
}

func TestPersistenceError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPersistenceError("upsert", cause)

	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upsert failed")
}

func TestIsHelpers_NonDomainError(t *testing.T) {
	plain := errors.New("boom")
	assert.False(t, IsPersistence(plain))
	assert.False(t, IsDimensionMismatch(plain))
}
