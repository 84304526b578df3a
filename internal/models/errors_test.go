package models

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapDependency(t *testing.T) {
	t.Run("deadline maps to timeout", func(t *testing.T) {
		err := WrapDependency("embedder", context.DeadlineExceeded)
		assert.ErrorIs(t, err, ErrDependencyTimeout)
		assert.Contains(t, err.Error(), "embedder")
	})

	t.Run("other failures map to unavailable", func(t *testing.T) {
		err := WrapDependency("store", errors.New("connection refused"))
		assert.ErrorIs(t, err, ErrDependencyUnavailable)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("cancellation passes through", func(t *testing.T) {
		err := WrapDependency("any", context.Canceled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrDependencyUnavailable)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, WrapDependency("any", nil))
	})
}
