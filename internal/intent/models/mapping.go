package models

import (
	"maps"
	"time"

	"speechact/pkg/domain"
)

// MappingResult is the output of exactly one mapping rule for a fact batch.
type MappingResult struct {
	Domain     domain.Domain
	Type       domain.IntentionType
	Attributes map[string]string
	Confidence float64
}

// Source identifies this system in contract metadata.
const Source = "speechact-intent-gateway"

// ContractMetadata carries provenance for an ActionContract.
type ContractMetadata struct {
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
}

// ActionContract is the backend-ready record for one mapped fact batch.
type ActionContract struct {
	ChildID    domain.ChildID    `json:"child_id"`
	Action     string            `json:"action"`
	Properties map[string]string `json:"properties"`
	Metadata   ContractMetadata  `json:"metadata"`
}

// Clone returns a deep copy so stores never alias caller maps.
func (c ActionContract) Clone() ActionContract {
	c.Properties = maps.Clone(c.Properties)
	return c
}
