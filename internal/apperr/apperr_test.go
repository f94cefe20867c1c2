package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := Conflict("product %q already exists", "Pizza")

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))

	wrapped := fmt.Errorf("create product: %w", err)
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestKindOfUntagged(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestMessageHidesInternalCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "load order")

	assert.Equal(t, "internal error", Message(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "order 7 not found", Message(NotFound("order %d not found", 7)))
}

func TestInternalNil(t *testing.T) {
	assert.NoError(t, Internal(nil, "noop"))
	assert.NoError(t, Passthrough(nil, "noop"))
}

func TestPassthrough(t *testing.T) {
	tagged := Validation("quantity must be positive")
	assert.Same(t, tagged, Passthrough(tagged, "ignored"))

	err := Passthrough(errors.New("io"), "read")
	assert.Equal(t, KindInternal, KindOf(err))
}
