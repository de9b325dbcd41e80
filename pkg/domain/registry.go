package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	dErrors "speechact/pkg/domain-errors"
)

// Domain is a real-world category of nursery events.
type Domain string

// Supported domains.
const (
	DomainMeal       Domain = "MEAL"
	DomainSleep      Domain = "SLEEP"
	DomainDiaper     Domain = "DIAPER"
	DomainActivity   Domain = "ACTIVITY"
	DomainHealth     Domain = "HEALTH"
	DomainBehavior   Domain = "BEHAVIOR"
	DomainMedication Domain = "MEDICATION"
)

// String returns the string representation of the domain.
func (d Domain) String() string {
	return string(d)
}

// Dimension is one measurable aspect of a domain.
// Invariant: every Dimension in the registry belongs to exactly one Domain.
//
// Usage: construct via ParseDimension at trust boundaries; direct casting
// bypasses validation.
type Dimension string

// Supported dimensions.
const (
	DimensionMealMainConsumption      Dimension = "MEAL_MAIN_CONSUMPTION"
	DimensionMealDessertConsumption   Dimension = "MEAL_DESSERT_CONSUMPTION"
	DimensionMealVegetableConsumption Dimension = "MEAL_VEGETABLE_CONSUMPTION"
	DimensionMealType                 Dimension = "MEAL_TYPE"
	DimensionSleepState               Dimension = "SLEEP_STATE"
	DimensionDiaperChangeType         Dimension = "DIAPER_CHANGE_TYPE"
	DimensionActivityType             Dimension = "ACTIVITY_TYPE"
	DimensionChildMood                Dimension = "CHILD_MOOD"
	DimensionHealthStatus             Dimension = "HEALTH_STATUS"
	DimensionMedicationType           Dimension = "MEDICATION_TYPE"
)

// String returns the string representation of the dimension.
func (d Dimension) String() string {
	return string(d)
}

// IntentionType labels the kind of event recorded for a domain.
type IntentionType string

// Supported intention types, one per domain.
const (
	IntentionMealConsumption          IntentionType = "MEAL_CONSUMPTION"
	IntentionSleepLog                 IntentionType = "SLEEP_LOG"
	IntentionDiaperChange             IntentionType = "DIAPER_CHANGE"
	IntentionActivityLog              IntentionType = "ACTIVITY_LOG"
	IntentionHealthObservation        IntentionType = "HEALTH_OBSERVATION"
	IntentionBehaviorLog              IntentionType = "BEHAVIOR_LOG"
	IntentionMedicationAdministration IntentionType = "MEDICATION_ADMINISTRATION"
)

// String returns the string representation of the intention type.
func (t IntentionType) String() string {
	return string(t)
}

// ErrUnknownDimension is returned when a dimension tag has no registry entry.
var ErrUnknownDimension = errors.New("unknown dimension")

type dimensionEntry struct {
	domain      Domain
	values      []string
	description string
}

var consumptionValues = []string{"NOTHING", "QUARTER", "HALF", "THREE_QUARTERS", "ALL"}

// dimensionOrder is the registry order used for schema advertisement.
var dimensionOrder = []Dimension{
	DimensionMealMainConsumption,
	DimensionMealDessertConsumption,
	DimensionMealVegetableConsumption,
	DimensionMealType,
	DimensionSleepState,
	DimensionDiaperChangeType,
	DimensionActivityType,
	DimensionChildMood,
	DimensionHealthStatus,
	DimensionMedicationType,
}

// registry is the single source of truth for dimensions. Read-only after init.
var registry = map[Dimension]dimensionEntry{
	DimensionMealMainConsumption: {
		domain:      DomainMeal,
		values:      consumptionValues,
		description: "How much of the main dish the child ate",
	},
	DimensionMealDessertConsumption: {
		domain:      DomainMeal,
		values:      consumptionValues,
		description: "How much dessert the child ate",
	},
	DimensionMealVegetableConsumption: {
		domain:      DomainMeal,
		values:      consumptionValues,
		description: "How much vegetables the child ate",
	},
	DimensionMealType: {
		domain:      DomainMeal,
		values:      []string{"BREAKFAST", "LUNCH", "SNACK", "DINNER"},
		description: "Type of meal (breakfast, lunch, snack, dinner)",
	},
	DimensionSleepState: {
		domain:      DomainSleep,
		values:      []string{"ASLEEP", "WOKE_UP", "RESTING", "REFUSED_SLEEP"},
		description: "Sleep-related state change",
	},
	DimensionDiaperChangeType: {
		domain:      DomainDiaper,
		values:      []string{"WET", "DIRTY", "BOTH", "DRY"},
		description: "Type of diaper change needed",
	},
	DimensionActivityType: {
		domain:      DomainActivity,
		values:      []string{"OUTDOOR_PLAY", "INDOOR_PLAY", "CRAFT", "READING", "MUSIC", "MOTOR_SKILLS", "FREE_PLAY"},
		description: "Type of activity the child participated in",
	},
	DimensionChildMood: {
		domain:      DomainBehavior,
		values:      []string{"HAPPY", "CALM", "TIRED", "UPSET", "EXCITED", "CRANKY"},
		description: "Current mood or emotional state of the child",
	},
	DimensionHealthStatus: {
		domain:      DomainHealth,
		values:      []string{"HEALTHY", "FEVER", "COUGH", "RUNNY_NOSE", "RASH", "VOMITING", "DIARRHEA"},
		description: "Health observation or symptom",
	},
	DimensionMedicationType: {
		domain:      DomainMedication,
		values:      []string{"PAIN_RELIEVER", "ANTIBIOTIC", "ALLERGY", "VITAMIN", "OTHER"},
		description: "Type of medication administered",
	},
}

var intentionTypes = map[Domain]IntentionType{
	DomainMeal:       IntentionMealConsumption,
	DomainSleep:      IntentionSleepLog,
	DomainDiaper:     IntentionDiaperChange,
	DomainActivity:   IntentionActivityLog,
	DomainHealth:     IntentionHealthObservation,
	DomainBehavior:   IntentionBehaviorLog,
	DomainMedication: IntentionMedicationAdministration,
}

// ParseDimension constructs a Dimension from external input.
//
// Errors: returns CodeInvalidDimension, naming every valid dimension, when the
// value is not registered.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if _, ok := registry[d]; !ok {
		names := make([]string, len(dimensionOrder))
		for i, dim := range dimensionOrder {
			names[i] = string(dim)
		}
		return "", dErrors.Wrap(ErrUnknownDimension, dErrors.CodeInvalidDimension,
			fmt.Sprintf("Invalid dimension: %s. Must be one of: %s", s, strings.Join(names, ", "))).
			WithField(dErrors.FieldDimension)
	}
	return d, nil
}

// IsValid reports whether the dimension is registered.
func (d Dimension) IsValid() bool {
	_, ok := registry[d]
	return ok
}

// DomainOf returns the domain owning d.
func DomainOf(d Dimension) (Domain, error) {
	entry, ok := registry[d]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDimension, d)
	}
	return entry.domain, nil
}

// AllowedValues returns a copy of the ordered allowed value set for d, or nil
// when d is not registered.
func AllowedValues(d Dimension) []string {
	entry, ok := registry[d]
	if !ok {
		return nil
	}
	return slices.Clone(entry.values)
}

// IsAllowedValue reports whether value belongs to d's allowed set.
func IsAllowedValue(d Dimension, value string) bool {
	entry, ok := registry[d]
	if !ok {
		return false
	}
	return slices.Contains(entry.values, value)
}

// Description returns the human-readable description of d.
func Description(d Dimension) string {
	return registry[d].description
}

// IntentionTypeOf returns the intention type recorded for a domain.
func IntentionTypeOf(d Domain) IntentionType {
	return intentionTypes[d]
}

// Dimensions returns every registered dimension in registry order.
func Dimensions() []Dimension {
	return slices.Clone(dimensionOrder)
}

// DimensionSchema describes one dimension for schema advertisement.
type DimensionSchema struct {
	Dimension   Dimension
	Domain      Domain
	Description string
	ValidValues []string
}

// Schema returns a snapshot of the whole registry in registry order.
func Schema() []DimensionSchema {
	out := make([]DimensionSchema, 0, len(dimensionOrder))
	for _, d := range dimensionOrder {
		entry := registry[d]
		out = append(out, DimensionSchema{
			Dimension:   d,
			Domain:      entry.domain,
			Description: entry.description,
			ValidValues: slices.Clone(entry.values),
		})
	}
	return out
}
