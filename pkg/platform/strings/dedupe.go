// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// Dedupe removes repeated values from a slice. Order of first occurrence is
// preserved.
//
// Example:
//
//	Dedupe([]string{"SLEEP_STATE", "CHILD_MOOD", "SLEEP_STATE"})
//	// Returns: []string{"SLEEP_STATE", "CHILD_MOOD"}
func Dedupe[T ~string](values []T) []T {
	if len(values) == 0 {
		return values
	}

	seen := make(map[T]struct{}, len(values))
	result := make([]T, 0, len(values))

	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}

	return result
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  broker-1:9092 ", "broker-2:9092", "broker-1:9092", ""})
//	// Returns: []string{"broker-1:9092", "broker-2:9092"}
func DedupeAndTrim(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return Dedupe(trimmed)
}
