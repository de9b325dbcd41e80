package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speechact/pkg/domain"
	dErrors "speechact/pkg/domain-errors"
)

func TestNewCanonicalFact_Subjects(t *testing.T) {
	t.Run("rejects empty subjects", func(t *testing.T) {
		_, err := NewCanonicalFact(nil, domain.DimensionSleepState, "ASLEEP", 0.9)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptySubjects)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, dErrors.FieldSubjects, dErrors.FieldOf(err))
	})

	t.Run("rejects whitespace-only subject", func(t *testing.T) {
		_, err := NewCanonicalFact([]string{"Gabriel", "   "}, domain.DimensionSleepState, "ASLEEP", 0.9)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBlankSubject)
	})

	t.Run("trims subjects idempotently", func(t *testing.T) {
		first, err := NewCanonicalFact([]string{" X "}, domain.DimensionSleepState, "ASLEEP", 0.9)
		require.NoError(t, err)
		assert.Equal(t, []string{"X"}, first.Subjects())

		second, err := NewCanonicalFact(first.Subjects(), domain.DimensionSleepState, "ASLEEP", 0.9)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("subjects accessor returns a copy", func(t *testing.T) {
		f, err := NewCanonicalFact([]string{"Léa", "Gabriel"}, domain.DimensionChildMood, "HAPPY", 1)
		require.NoError(t, err)
		subjects := f.Subjects()
		subjects[0] = "changed"
		assert.Equal(t, "Léa", f.PrimarySubject())
	})
}

func TestNewCanonicalFact_ConfidenceBoundary(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		wantErr    bool
	}{
		{"exactly zero", 0.0, false},
		{"exactly one", 1.0, false},
		{"midpoint", 0.5, false},
		{"above one", 1.01, true},
		{"below zero", -0.01, true},
		{"NaN", math.NaN(), true},
		{"positive infinity", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCanonicalFact([]string{"Gabriel"}, domain.DimensionMealMainConsumption, "ALL", tt.confidence)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrConfidenceOutOfRange)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestNewCanonicalFact_ValidityGate checks every dimension against every value
// known to the registry: construction succeeds iff the value is in the
// dimension's own allowed set.
func TestNewCanonicalFact_ValidityGate(t *testing.T) {
	var universe []string
	seen := map[string]bool{}
	for _, d := range domain.Dimensions() {
		for _, v := range domain.AllowedValues(d) {
			if !seen[v] {
				seen[v] = true
				universe = append(universe, v)
			}
		}
	}
	universe = append(universe, "", "all", "INVALID")

	for _, d := range domain.Dimensions() {
		allowed := map[string]bool{}
		for _, v := range domain.AllowedValues(d) {
			allowed[v] = true
		}
		for _, v := range universe {
			_, err := NewCanonicalFact([]string{"Gabriel"}, d, v, 0.8)
			if allowed[v] {
				assert.NoError(t, err, "%s=%s", d, v)
				continue
			}
			require.Error(t, err, "%s=%s", d, v)
			var ive *InvalidValueError
			require.ErrorAs(t, err, &ive)
			assert.Equal(t, v, ive.Value)
			assert.Equal(t, d, ive.Dimension)
			assert.Equal(t, domain.AllowedValues(d), ive.Allowed)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidValue))
		}
	}
}

func TestNewCanonicalFact_StoresFieldsVerbatim(t *testing.T) {
	f, err := NewCanonicalFact([]string{"Gabriel"}, domain.DimensionMealMainConsumption, "ALL", 0.92)
	require.NoError(t, err)

	assert.Equal(t, domain.DimensionMealMainConsumption, f.Dimension())
	assert.Equal(t, "ALL", f.Value())
	assert.Equal(t, 0.92, f.Confidence())
}

func TestValidateBatch(t *testing.T) {
	valid, err := NewCanonicalFact([]string{"Gabriel"}, domain.DimensionSleepState, "ASLEEP", 0.9)
	require.NoError(t, err)

	t.Run("empty batch is valid", func(t *testing.T) {
		assert.True(t, ValidateBatch(nil))
		assert.True(t, ValidateBatch([]CanonicalFact{}))
	})

	t.Run("constructed facts are valid", func(t *testing.T) {
		assert.True(t, ValidateBatch([]CanonicalFact{valid, valid}))
	})

	t.Run("zero value fact is invalid", func(t *testing.T) {
		assert.False(t, ValidateBatch([]CanonicalFact{valid, {}}))
	})
}
