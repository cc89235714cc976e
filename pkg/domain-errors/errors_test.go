package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches the outermost code", func(t *testing.T) {
		err := New(CodeNotFound, "actor not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches a wrapped coded cause", func(t *testing.T) {
		inner := Validation("actor.invalid_status", "bad")
		err := Wrap(inner, CodeInternal, "save failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeValidation))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("context: %w", New(CodeConflict, "taken"))
		assert.True(t, Is(err, CodeConflict))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestKeyOf(t *testing.T) {
	err := Wrap(Validation("message_delegation.overlap", "overlapping periods"), CodeInternal, "outer")
	assert.Equal(t, "message_delegation.overlap", KeyOf(err))
	assert.Empty(t, KeyOf(errors.New("plain")))
}

func TestErrorString(t *testing.T) {
	cause := errors.New("unique violation")
	err := Wrap(cause, CodeConflict, "reserve grid area").WithKey("actor.grid_area_reserved_by_other_actor")
	assert.Equal(t, "actor.grid_area_reserved_by_other_actor: reserve grid area: unique violation", err.Error())
	require.ErrorIs(t, err, cause)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(CodeInvariantViolation, "actor has no id")))
	assert.False(t, IsFatal(Validation("k", "m")))
}
