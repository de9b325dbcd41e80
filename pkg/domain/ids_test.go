package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "speechact/pkg/domain-errors"
)

func TestNewChildID(t *testing.T) {
	id, err := NewChildID(123)
	require.NoError(t, err)
	assert.Equal(t, int64(123), id.Int64())

	id, err = NewChildID(0)
	require.NoError(t, err)
	assert.Equal(t, ChildID(0), id)

	_, err = NewChildID(-1)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeChildNotFound))
}

// TestParsePendingID_TrustBoundary validates parsing rules for ids coming back
// from callers on confirm/reject.
func TestParsePendingID_TrustBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Legacy pending format", "pending-1700000000-abc123", true},
		{"Valid UUID", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePendingID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPendingID_RoundTrip(t *testing.T) {
	id := NewPendingID()
	assert.False(t, id.IsNil())

	parsed, err := ParsePendingID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestPendingID_JSON(t *testing.T) {
	id := NewPendingID()

	raw, err := json.Marshal(struct {
		ID PendingID `json:"id"`
	}{id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(raw))

	var decoded struct {
		ID PendingID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, id, decoded.ID)

	err = json.Unmarshal([]byte(`{"id":"not-a-uuid"}`), &decoded)
	assert.Error(t, err)
}
