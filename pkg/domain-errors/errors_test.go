package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errKind = errors.New("kind")

func TestHasCode(t *testing.T) {
	t.Run("direct code", func(t *testing.T) {
		err := New(CodeMapping, "no mapping")
		assert.True(t, HasCode(err, CodeMapping))
		assert.False(t, HasCode(err, CodeBackend))
	})

	t.Run("wrapped by fmt", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeInvalidValue, "bad value"))
		assert.True(t, HasCode(err, CodeInvalidValue))
	})

	t.Run("nested coded errors", func(t *testing.T) {
		inner := New(CodeValidation, "inner")
		outer := Wrap(inner, CodeUnexpected, "outer")
		assert.True(t, HasCode(outer, CodeValidation))
		assert.True(t, HasCode(outer, CodeUnexpected))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.False(t, HasCode(errKind, CodeValidation))
		assert.False(t, HasCode(nil, CodeValidation))
	})
}

func TestWrapPreservesKind(t *testing.T) {
	err := Wrap(errKind, CodeValidation, "subjects list cannot be empty").WithField(FieldSubjects)

	assert.ErrorIs(t, err, errKind)
	assert.Equal(t, CodeValidation, CodeOf(err))
	assert.Equal(t, FieldSubjects, FieldOf(err))
	assert.Equal(t, "subjects list cannot be empty", err.Error())
}

func TestCodeOfFallsBackToUnexpected(t *testing.T) {
	assert.Equal(t, CodeUnexpected, CodeOf(errKind))
	assert.Equal(t, FieldGeneral, FieldOf(errKind))
}

func TestErrorMessageFallsBackToUnderlying(t *testing.T) {
	err := Wrap(errKind, CodeBackend, "")
	assert.Equal(t, "BACKEND_ERROR: kind", err.Error())
}
