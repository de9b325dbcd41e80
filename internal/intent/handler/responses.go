package handler

import (
	"time"

	"speechact/internal/intent/models"
	"speechact/pkg/domain"
	audit "speechact/pkg/platform/audit"
)

// DimensionInfo advertises one dimension to schema clients.
type DimensionInfo struct {
	ValidValues []string `json:"valid_values"`
	Domain      string   `json:"domain"`
	Description string   `json:"description"`
}

// DimensionsResponse is the body of GET /v1/dimensions.
type DimensionsResponse struct {
	Dimensions map[string]DimensionInfo `json:"dimensions"`
}

func toDimensionsResponse(schema []domain.DimensionSchema) DimensionsResponse {
	out := make(map[string]DimensionInfo, len(schema))
	for _, d := range schema {
		out[string(d.Dimension)] = DimensionInfo{
			ValidValues: d.ValidValues,
			Domain:      string(d.Domain),
			Description: d.Description,
		}
	}
	return DimensionsResponse{Dimensions: out}
}

// PreviewResponse is returned when a contract is held for confirmation.
type PreviewResponse struct {
	Success   bool                  `json:"success"`
	Stage     string                `json:"stage"`
	PendingID string                `json:"pending_id"`
	ExpiresAt time.Time             `json:"expires_at"`
	Preview   models.Preview        `json:"preview"`
	Contract  models.ActionContract `json:"intent_contract"`
}

// PendingSummary is one entry of the pending list.
type PendingSummary struct {
	PendingID     string    `json:"pending_id"`
	Subject       string    `json:"subject"`
	Domain        string    `json:"domain"`
	IntentionType string    `json:"intention_type"`
	Description   string    `json:"description"`
	Warnings      []string  `json:"warnings"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// PendingListResponse is the body of GET /v1/intents/pending.
type PendingListResponse struct {
	Count   int              `json:"count"`
	Pending []PendingSummary `json:"pending"`
}

func toPendingSummary(p *models.PendingIntent) PendingSummary {
	return PendingSummary{
		PendingID:     p.ID.String(),
		Subject:       p.Subject,
		Domain:        string(p.Domain),
		IntentionType: string(p.Type),
		Description:   p.Preview.Description,
		Warnings:      p.Preview.Warnings,
		CreatedAt:     p.CreatedAt,
		ExpiresAt:     p.ExpiresAt,
	}
}

// RejectResponse confirms a pending intent was discarded.
type RejectResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Rejected PendingSummary `json:"rejected"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	BackendAvailable bool   `json:"backend_available"`
	BackendURL       string `json:"backend_url"`
}

// AuditEventResponse is one audit trail entry.
type AuditEventResponse struct {
	Category   string    `json:"category"`
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	Decision   string    `json:"decision,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	ChildID    int64     `json:"child_id,omitempty"`
	Domain     string    `json:"domain,omitempty"`
	IntentType string    `json:"intention_type,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	PendingID  string    `json:"pending_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Facility   string    `json:"facility,omitempty"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

// AuditListResponse is the body of GET /admin/audit.
type AuditListResponse struct {
	Count  int                  `json:"count"`
	Events []AuditEventResponse `json:"events"`
}

func toAuditListResponse(events []audit.Event) AuditListResponse {
	out := make([]AuditEventResponse, len(events))
	for i, e := range events {
		out[i] = AuditEventResponse{
			Category:   string(e.Category),
			Timestamp:  e.Timestamp,
			Action:     e.Action,
			Decision:   e.Decision,
			Reason:     e.Reason,
			Subject:    e.Subject,
			ChildID:    e.ChildID,
			Domain:     e.Domain,
			IntentType: e.IntentType,
			Confidence: e.Confidence,
			PendingID:  e.PendingID,
			RequestID:  e.RequestID,
			ActorID:    e.ActorID,
			Facility:   e.Facility,
			IP:         e.IP,
			UserAgent:  e.UserAgent,
		}
	}
	return AuditListResponse{Count: len(out), Events: out}
}
