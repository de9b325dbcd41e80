package handler

import (
	"fmt"
	"strings"

	"speechact/internal/intent/models"
	"speechact/pkg/domain"
	dErrors "speechact/pkg/domain-errors"
)

// MaxBatchFacts bounds a single batch request.
const MaxBatchFacts = 50

// FactRequest is one fact as sent by the extraction layer. Taxonomy checks
// happen in the pipeline so callers get structured errors for them.
type FactRequest struct {
	Subjects   []string `json:"subjects"`
	Dimension  string   `json:"dimension"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (r *FactRequest) Validate() error {
	return nil
}

func (r *FactRequest) toRaw() models.RawFact {
	return models.RawFact{
		Subjects:   r.Subjects,
		Dimension:  r.Dimension,
		Value:      r.Value,
		Confidence: r.Confidence,
	}
}

// BatchRequest carries several facts about the same event.
type BatchRequest struct {
	Facts []FactRequest `json:"facts"`
}

func (r *BatchRequest) Validate() error {
	if len(r.Facts) > MaxBatchFacts {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("at most %d facts per batch", MaxBatchFacts))
	}
	return nil
}

func (r *BatchRequest) toRaw() []models.RawFact {
	raws := make([]models.RawFact, len(r.Facts))
	for i := range r.Facts {
		raws[i] = r.Facts[i].toRaw()
	}
	return raws
}

// PendingActionRequest names a pending intent to confirm or reject.
type PendingActionRequest struct {
	PendingID string `json:"pending_id"`

	id domain.PendingID
}

func (r *PendingActionRequest) Validate() error {
	r.PendingID = strings.TrimSpace(r.PendingID)
	id, err := domain.ParsePendingID(r.PendingID)
	if err != nil {
		return err
	}
	r.id = id
	return nil
}
