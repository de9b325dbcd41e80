package models

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"speechact/pkg/domain"
	dErrors "speechact/pkg/domain-errors"
)

// Canonical fact construction failures. Constructors return them wrapped in a
// coded *domainerrors.Error.
var (
	ErrEmptySubjects         = errors.New("subjects list cannot be empty")
	ErrBlankSubject          = errors.New("subject names cannot be empty strings")
	ErrConfidenceOutOfRange  = errors.New("confidence must be between 0.0 and 1.0")
	ErrInvalidValueDimension = errors.New("invalid value for dimension")
)

// InvalidValueError reports a value outside its dimension's allowed set. It
// carries the full allowed set for caller-facing diagnostics.
type InvalidValueError struct {
	Value     string
	Dimension domain.Dimension
	Allowed   []string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("Invalid value '%s' for dimension '%s'. Valid values are: %s",
		e.Value, e.Dimension, strings.Join(e.Allowed, ", "))
}

func (e *InvalidValueError) Unwrap() error {
	return ErrInvalidValueDimension
}

// CanonicalFact is one validated dimension/value assertion about one or more
// children. Fields are unexported so a constructed fact cannot be mutated.
type CanonicalFact struct {
	subjects   []string
	dimension  domain.Dimension
	value      string
	confidence float64
}

// NewCanonicalFact validates and constructs a fact. Subjects are trimmed; all
// other fields are stored verbatim.
//
// Errors (all CodeValidation except the last):
//   - ErrEmptySubjects when subjects is empty
//   - ErrBlankSubject when a subject is empty after trimming
//   - ErrConfidenceOutOfRange when confidence is outside [0,1] or NaN
//   - *InvalidValueError (CodeInvalidValue) when value is not allowed for dimension
func NewCanonicalFact(subjects []string, dimension domain.Dimension, value string, confidence float64) (CanonicalFact, error) {
	if len(subjects) == 0 {
		return CanonicalFact{}, dErrors.Wrap(ErrEmptySubjects, dErrors.CodeValidation, ErrEmptySubjects.Error()).
			WithField(dErrors.FieldSubjects)
	}
	trimmed := make([]string, len(subjects))
	for i, s := range subjects {
		t := strings.TrimSpace(s)
		if t == "" {
			return CanonicalFact{}, dErrors.Wrap(ErrBlankSubject, dErrors.CodeValidation, ErrBlankSubject.Error()).
				WithField(dErrors.FieldSubjects)
		}
		trimmed[i] = t
	}
	if !inUnitInterval(confidence) {
		return CanonicalFact{}, dErrors.Wrap(ErrConfidenceOutOfRange, dErrors.CodeValidation,
			fmt.Sprintf("confidence must be between 0.0 and 1.0, got %v", confidence)).
			WithField(dErrors.FieldCanonicalFact)
	}
	if !domain.IsAllowedValue(dimension, value) {
		ive := &InvalidValueError{Value: value, Dimension: dimension, Allowed: domain.AllowedValues(dimension)}
		return CanonicalFact{}, dErrors.Wrap(ive, dErrors.CodeInvalidValue, ive.Error()).
			WithField(dErrors.FieldValue)
	}
	return CanonicalFact{
		subjects:   trimmed,
		dimension:  dimension,
		value:      value,
		confidence: confidence,
	}, nil
}

// Subjects returns a copy of the trimmed subject names.
func (f CanonicalFact) Subjects() []string {
	return slices.Clone(f.subjects)
}

// PrimarySubject returns the first subject, used for identity resolution.
func (f CanonicalFact) PrimarySubject() string {
	if len(f.subjects) == 0 {
		return ""
	}
	return f.subjects[0]
}

func (f CanonicalFact) Dimension() domain.Dimension { return f.dimension }
func (f CanonicalFact) Value() string               { return f.value }
func (f CanonicalFact) Confidence() float64         { return f.confidence }

// ValidateBatch reports whether every fact has a dimension, a value, and a
// confidence in [0,1]. An empty batch is valid.
func ValidateBatch(facts []CanonicalFact) bool {
	for _, f := range facts {
		if f.dimension == "" || f.value == "" || !inUnitInterval(f.confidence) {
			return false
		}
	}
	return true
}

func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0.0 && v <= 1.0
}
