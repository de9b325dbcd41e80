package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type dimension string

func TestDedupe(t *testing.T) {
	tests := []struct {
		name     string
		input    []dimension
		expected []dimension
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "single element",
			input:    []dimension{"SLEEP_STATE"},
			expected: []dimension{"SLEEP_STATE"},
		},
		{
			name:     "removes duplicates preserving first occurrence",
			input:    []dimension{"CHILD_MOOD", "SLEEP_STATE", "CHILD_MOOD", "MEAL_TYPE", "SLEEP_STATE"},
			expected: []dimension{"CHILD_MOOD", "SLEEP_STATE", "MEAL_TYPE"},
		},
		{
			name:     "keeps case-distinct values",
			input:    []dimension{"a", "A"},
			expected: []dimension{"a", "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Dedupe(tt.input))
		})
	}
}

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims whitespace",
			input:    []string{"  foo  ", "bar  ", "  baz"},
			expected: []string{"foo", "bar", "baz"},
		},
		{
			name:     "removes empty strings",
			input:    []string{"foo", "", "  ", "bar"},
			expected: []string{"foo", "bar"},
		},
		{
			name:     "combined: trim, dedupe, remove empty",
			input:    []string{"  foo ", "bar", "foo", "", "  ", "bar"},
			expected: []string{"foo", "bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
