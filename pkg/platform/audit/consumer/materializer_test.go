package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "leaseguard/pkg/domain"
)

type fakeComplianceStore struct {
	records map[uuid.UUID]ComplianceRecord
	err     error
}

func (f *fakeComplianceStore) AppendCompliance(_ context.Context, eventID uuid.UUID, record ComplianceRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records[eventID] = record
	return nil
}

type fakeOpsStore struct {
	records map[uuid.UUID]OpsRecord
}

func (f *fakeOpsStore) AppendOps(_ context.Context, eventID uuid.UUID, record OpsRecord) error {
	f.records[eventID] = record
	return nil
}

func newTestMaterializer() (*Materializer, *fakeComplianceStore, *fakeOpsStore) {
	compliance := &fakeComplianceStore{records: make(map[uuid.UUID]ComplianceRecord)}
	ops := &fakeOpsStore{records: make(map[uuid.UUID]OpsRecord)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMaterializer(compliance, ops, logger), compliance, ops
}

func payloadBytes(t *testing.T, payload map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return b
}

func TestMaterializer_RoutesComplianceEvents(t *testing.T) {
	m, compliance, ops := newTestMaterializer()
	eventID := uuid.New()
	appID := uuid.New()
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	msg := &Message{
		Key: []byte(appID.String()),
		Value: payloadBytes(t, map[string]any{
			"ID":            eventID.String(),
			"Category":      "compliance",
			"Timestamp":     ts.Format(time.RFC3339Nano),
			"ApplicationID": appID.String(),
			"ActorID":       uuid.New().String(),
			"ActorRole":     "reviewer",
			"Action":        "manual_decision",
			"Decision":      "approved",
			"Reason":        "income verified by phone",
			"RequestID":     "req-42",
		}),
	}

	require.NoError(t, m.Handle(context.Background(), msg))

	record, ok := compliance.records[eventID]
	require.True(t, ok)
	assert.Equal(t, id.ApplicationID(appID), record.ApplicationID)
	assert.Equal(t, "manual_decision", record.Action)
	assert.Equal(t, "approved", record.Decision)
	assert.Equal(t, "reviewer", record.ActorRole)
	assert.True(t, record.Timestamp.Equal(ts))
	assert.Empty(t, ops.records)
}

func TestMaterializer_RoutesOpsEvents(t *testing.T) {
	m, compliance, ops := newTestMaterializer()
	eventID := uuid.New()
	appID := uuid.New()

	msg := &Message{
		Key: []byte(appID.String()),
		Value: payloadBytes(t, map[string]any{
			"ID":            eventID.String(),
			"Category":      "operations",
			"ApplicationID": appID.String(),
			"Action":        "review_scored",
			"RequestID":     "req-7",
		}),
	}

	require.NoError(t, m.Handle(context.Background(), msg))

	record, ok := ops.records[eventID]
	require.True(t, ok)
	assert.Equal(t, "review_scored", record.Action)
	assert.False(t, record.Timestamp.IsZero())
	assert.Empty(t, compliance.records)
}

func TestMaterializer_MalformedMessagesAreCommitted(t *testing.T) {
	m, compliance, ops := newTestMaterializer()

	cases := map[string]*Message{
		"invalid json": {Value: []byte("not json")},
		"bad event id": {Value: payloadBytes(t, map[string]any{
			"ID":            "not-a-uuid",
			"Category":      "compliance",
			"ApplicationID": uuid.New().String(),
			"Action":        "manual_decision",
		})},
		"bad application id": {Value: payloadBytes(t, map[string]any{
			"ID":            uuid.New().String(),
			"Category":      "compliance",
			"ApplicationID": "nope",
			"Action":        "manual_decision",
		})},
	}

	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, m.Handle(context.Background(), msg))
		})
	}
	assert.Empty(t, compliance.records)
	assert.Empty(t, ops.records)
}

func TestMaterializer_StoreFailurePropagatesForRedelivery(t *testing.T) {
	m, compliance, _ := newTestMaterializer()
	compliance.err = errors.New("connection refused")

	msg := &Message{
		Value: payloadBytes(t, map[string]any{
			"ID":            uuid.New().String(),
			"Category":      "compliance",
			"ApplicationID": uuid.New().String(),
			"Action":        "workflow_decision",
		}),
	}

	err := m.Handle(context.Background(), msg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "store compliance event")
}
