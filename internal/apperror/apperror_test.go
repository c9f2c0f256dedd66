package apperror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorRetryable(t *testing.T) {
	e := New(CategoryService, CodeServiceMaxTasksReached, "too many tasks")
	assert.True(t, e.IsRetryable())
	assert.False(t, e.IsClientError())
}

func TestErrorClientError(t *testing.T) {
	e := New(CategoryTask, CodeTaskNotFound, "no such task")
	assert.True(t, e.IsClientError())
	assert.False(t, e.IsRetryable())
}

func TestErrorNeitherRetryableNorClient(t *testing.T) {
	e := New(CategoryComputation, CodeNodeCopy, "copy failed")
	assert.False(t, e.IsRetryable())
	assert.False(t, e.IsClientError())
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(CategoryCore, CodeIO, "read failed", cause)
	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "boom")
}

func TestAs(t *testing.T) {
	e := New(CategoryStock, CodeStockNoMoreSolutions, "exhausted")
	wrapped := errors.New("wrap: " + e.Error())
	_, ok := As(wrapped)
	assert.False(t, ok)

	found, ok := As(e)
	assert.True(t, ok)
	assert.Equal(t, CodeStockNoMoreSolutions, found.Code)
}
