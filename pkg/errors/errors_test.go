package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsCodeAndStatus(t *testing.T) {
	err := Clone(ErrNotFound, "student not found")
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Equal(t, "student not found", err.Error())
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("connection refused")
	err := FromError(cause)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.ErrorIs(t, err, cause)
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("enroll: %w", Clone(ErrAlreadyEnrolled, ""))
	assert.True(t, Is(wrapped, ErrAlreadyEnrolled))
	assert.False(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(nil, ErrNotFound))
}
