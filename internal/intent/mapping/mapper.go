package mapping

import (
	"errors"
	"fmt"
	"strings"

	"speechact/internal/intent/models"
	"speechact/pkg/domain"
	dErrors "speechact/pkg/domain-errors"
	pstrings "speechact/pkg/platform/strings"
)

// ErrEmptyFactBatch is returned when Map receives no facts.
var ErrEmptyFactBatch = errors.New("cannot map empty facts list")

// ErrNoMappingFound is the kind behind every *NoMappingError.
var ErrNoMappingFound = errors.New("no mapping found")

// NoMappingError lists the distinct dimensions of a batch no rule accepted.
type NoMappingError struct {
	Dimensions []domain.Dimension
}

func (e *NoMappingError) Error() string {
	names := make([]string, len(e.Dimensions))
	for i, d := range e.Dimensions {
		names[i] = string(d)
	}
	return fmt.Sprintf("No mapping found for dimensions: %s", strings.Join(names, ", "))
}

func (e *NoMappingError) Unwrap() error {
	return ErrNoMappingFound
}

// Mapper turns canonical facts into a mapping result. Same input always
// produces the same output.
type Mapper struct {
	rules []Rule
}

// NewMapper returns a mapper with the production rule order. The order is a
// contract: if two rules ever accept the same dimension, the earlier one wins.
func NewMapper() *Mapper {
	return &Mapper{
		rules: []Rule{
			MapMealFacts,
			MapSleepFacts,
			MapDiaperFacts,
			MapActivityFacts,
			MapHealthFacts,
			MapBehaviorFacts,
			MapMedicationFacts,
		},
	}
}

// NewMapperWithRules returns a mapper over a caller-supplied rule list.
func NewMapperWithRules(rules ...Rule) *Mapper {
	return &Mapper{rules: append([]Rule(nil), rules...)}
}

// Map evaluates rules in order and returns the first non-nil result.
//
// Errors (CodeMapping):
//   - ErrEmptyFactBatch when facts is empty
//   - *NoMappingError when every rule returns nil
func (m *Mapper) Map(facts []models.CanonicalFact) (*models.MappingResult, error) {
	if len(facts) == 0 {
		return nil, dErrors.Wrap(ErrEmptyFactBatch, dErrors.CodeMapping, ErrEmptyFactBatch.Error()).
			WithField(dErrors.FieldMapping)
	}

	for _, rule := range m.rules {
		if result := rule(facts); result != nil {
			return result, nil
		}
	}

	dims := make([]domain.Dimension, len(facts))
	for i, f := range facts {
		dims[i] = f.Dimension()
	}
	nm := &NoMappingError{Dimensions: pstrings.Dedupe(dims)}
	return nil, dErrors.Wrap(nm, dErrors.CodeMapping, nm.Error()).WithField(dErrors.FieldMapping)
}

// ValidateFacts reports whether the batch is structurally valid.
func (m *Mapper) ValidateFacts(facts []models.CanonicalFact) bool {
	return models.ValidateBatch(facts)
}
