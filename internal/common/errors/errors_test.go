package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidTransitionCarriesValidNext(t *testing.T) {
	err := NewInvalidTransitionError("draft", "submitted", []string{"pending_payment", "withdrawn"})

	assert.Equal(t, ErrCodeInvalidTransition, CodeOf(err))
	assert.False(t, err.Retryable)
	assert.Equal(t, []string{"pending_payment", "withdrawn"}, ValidNextFrom(err))
}

func TestCodeOfWrappedError(t *testing.T) {
	err := fmt.Errorf("request failed: %w", NewConflictError("app-1", "under_review"))

	assert.Equal(t, ErrCodeConflict, CodeOf(err))
	assert.True(t, IsCode(err, ErrCodeConflict))
	assert.False(t, IsCode(err, ErrCodeNotFound))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain")))
	assert.Nil(t, ValidNextFrom(fmt.Errorf("plain")))
}

func TestConflictIsRetryable(t *testing.T) {
	assert.True(t, NewConflictError("app-1", "draft").Retryable)
	assert.False(t, NewForbiddenError("user-1", "applicant", "approved").Retryable)
	assert.False(t, NewNotFoundError("application", "app-404").Retryable)
}
