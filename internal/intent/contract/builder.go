package contract

import (
	"maps"
	"strings"
	"time"

	"speechact/internal/intent/models"
	"speechact/pkg/domain"
)

// Clock returns the current time.
type Clock func() time.Time

// Builder assembles backend-ready action contracts from mapping results.
type Builder struct {
	clock Clock
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the clock used for metadata timestamps.
func WithClock(clock Clock) Option {
	return func(b *Builder) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// NewBuilder constructs a Builder using time.Now unless overridden.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// ActionFor returns the backend action name for a domain.
func ActionFor(d domain.Domain) string {
	return "record_" + strings.ToLower(string(d))
}

// Build combines a mapping result with a resolved child id. Inputs are
// validated upstream; the only non-deterministic field is the timestamp.
func (b *Builder) Build(result *models.MappingResult, childID domain.ChildID) models.ActionContract {
	return models.ActionContract{
		ChildID:    childID,
		Action:     ActionFor(result.Domain),
		Properties: maps.Clone(result.Attributes),
		Metadata: models.ContractMetadata{
			Timestamp:  b.clock().UTC(),
			Confidence: result.Confidence,
			Source:     models.Source,
		},
	}
}
