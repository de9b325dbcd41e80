package mapping

import (
	"speechact/internal/intent/models"
	"speechact/pkg/domain"
)

// Rule inspects a fact batch and returns a mapping result for its domain, or
// nil when no fact in the batch belongs to that domain.
// Rules are pure: no I/O, no clock, no shared state.
type Rule func(facts []models.CanonicalFact) *models.MappingResult

// mealAttributeKeys names the attribute written for each meal dimension.
var mealAttributeKeys = map[domain.Dimension]string{
	domain.DimensionMealMainConsumption:      "main",
	domain.DimensionMealDessertConsumption:   "dessert",
	domain.DimensionMealVegetableConsumption: "vegetable",
	domain.DimensionMealType:                 "mealType",
}

// MapMealFacts aggregates every meal fact in the batch into one event.
// Confidence is the unweighted arithmetic mean over the matched facts; when a
// meal dimension repeats, the later fact's value overwrites the attribute but
// both confidences count.
func MapMealFacts(facts []models.CanonicalFact) *models.MappingResult {
	attributes := map[string]string{}
	total := 0.0
	matched := 0

	for _, f := range facts {
		key, ok := mealAttributeKeys[f.Dimension()]
		if !ok {
			continue
		}
		attributes[key] = f.Value()
		total += f.Confidence()
		matched++
	}

	if matched == 0 {
		return nil
	}

	return &models.MappingResult{
		Domain:     domain.DomainMeal,
		Type:       domain.IntentionMealConsumption,
		Attributes: attributes,
		Confidence: total / float64(matched),
	}
}

// MapSleepFacts maps the first SLEEP_STATE fact.
func MapSleepFacts(facts []models.CanonicalFact) *models.MappingResult {
	return mapFirst(facts, domain.DimensionSleepState, domain.DomainSleep, domain.IntentionSleepLog, "state")
}

// MapDiaperFacts maps the first DIAPER_CHANGE_TYPE fact.
func MapDiaperFacts(facts []models.CanonicalFact) *models.MappingResult {
	return mapFirst(facts, domain.DimensionDiaperChangeType, domain.DomainDiaper, domain.IntentionDiaperChange, "changeType")
}

// MapActivityFacts maps the first ACTIVITY_TYPE fact.
func MapActivityFacts(facts []models.CanonicalFact) *models.MappingResult {
	return mapFirst(facts, domain.DimensionActivityType, domain.DomainActivity, domain.IntentionActivityLog, "activityType")
}

// MapHealthFacts maps the first HEALTH_STATUS fact.
func MapHealthFacts(facts []models.CanonicalFact) *models.MappingResult {
	return mapFirst(facts, domain.DimensionHealthStatus, domain.DomainHealth, domain.IntentionHealthObservation, "status")
}

// MapBehaviorFacts maps the first CHILD_MOOD fact.
func MapBehaviorFacts(facts []models.CanonicalFact) *models.MappingResult {
	return mapFirst(facts, domain.DimensionChildMood, domain.DomainBehavior, domain.IntentionBehaviorLog, "mood")
}

// MapMedicationFacts maps the first MEDICATION_TYPE fact.
func MapMedicationFacts(facts []models.CanonicalFact) *models.MappingResult {
	return mapFirst(facts, domain.DimensionMedicationType, domain.DomainMedication, domain.IntentionMedicationAdministration, "medicationType")
}

// mapFirst implements the single-dimension domains: the first fact in batch
// order wins and later facts for the same dimension are ignored.
func mapFirst(facts []models.CanonicalFact, dim domain.Dimension, d domain.Domain, t domain.IntentionType, key string) *models.MappingResult {
	for _, f := range facts {
		if f.Dimension() != dim {
			continue
		}
		return &models.MappingResult{
			Domain:     d,
			Type:       t,
			Attributes: map[string]string{key: f.Value()},
			Confidence: f.Confidence(),
		}
	}
	return nil
}
