package scorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaseguard/internal/platform/config"
	"leaseguard/internal/review"
)

func newTestRemoteScorer(t *testing.T, handler http.HandlerFunc) *RemoteScorer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewRemoteScorer(config.ScorerConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})
	require.NotNil(t, s)
	return s
}

func messagesReply(t *testing.T, text string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	})
	require.NoError(t, err)
	return payload
}

func TestRemoteScorer_ParsesWellFormedReply(t *testing.T) {
	reply := `{"fraud_score": 0.62, "summary": "two documents look duplicated",
		"signals": [{"code": "duplicate_documents", "severity": "medium", "description": "d", "recommendation": "r"}],
		"document_classifications": [{"filename": "paystub.pdf", "kind": "paystub", "confidence": 0.9}],
		"recommended_action": "manual_review", "confidence_level": 0.8}`

	var gotAPIKey, gotVersion atomic.Value
	s := newTestRemoteScorer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey.Store(r.Header.Get("x-api-key"))
		gotVersion.Store(r.Header.Get("anthropic-version"))
		w.Write(messagesReply(t, reply))
	})

	result, err := s.Score(context.Background(), testApplicant(), nil)
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotAPIKey.Load())
	assert.Equal(t, anthropicVersion, gotVersion.Load())

	assert.InDelta(t, 0.62, result.FraudScore, 1e-9)
	assert.Equal(t, review.ActionManualReview, result.RecommendedAction)
	assert.True(t, result.AIGenerated)
	require.Len(t, result.Signals, 1)
	assert.Equal(t, review.SeverityMedium, result.Signals[0].Severity)
	require.Len(t, result.Classifications, 1)
	assert.Equal(t, review.KindPaystub, result.Classifications[0].Kind)
}

func TestRemoteScorer_StripsMarkdownFences(t *testing.T) {
	reply := "```json\n{\"fraud_score\": 0.2, \"summary\": \"ok\", \"recommended_action\": \"approve\", \"confidence_level\": 0.9}\n```"

	s := newTestRemoteScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(messagesReply(t, reply))
	})

	result, err := s.Score(context.Background(), testApplicant(), nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, result.FraudScore, 1e-9)
	assert.Equal(t, review.ActionApprove, result.RecommendedAction)
	assert.True(t, result.AIGenerated)
}

func TestRemoteScorer_ClampsOutOfRangeValues(t *testing.T) {
	reply := `{"fraud_score": 3.5, "summary": "s", "recommended_action": "escalate", "confidence_level": -1}`

	s := newTestRemoteScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(messagesReply(t, reply))
	})

	result, err := s.Score(context.Background(), testApplicant(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.FraudScore)
	assert.Equal(t, 0.0, result.ConfidenceLevel)
	// Unknown actions are not trusted; they default to manual review.
	assert.Equal(t, review.ActionManualReview, result.RecommendedAction)
}

func TestRemoteScorer_UnparseablePayloadDefaultsToManualReview(t *testing.T) {
	s := newTestRemoteScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(messagesReply(t, "I think this application looks fine overall."))
	})

	result, err := s.Score(context.Background(), testApplicant(), nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, result.FraudScore, 1e-9)
	assert.Equal(t, review.ActionManualReview, result.RecommendedAction)
	assert.False(t, result.AIGenerated)
	require.Len(t, result.Signals, 1)
	assert.Equal(t, review.SignalParseError, result.Signals[0].Code)
}

func TestRemoteScorer_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	s := newTestRemoteScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write(messagesReply(t, `{"fraud_score": 0.1, "summary": "s", "recommended_action": "approve", "confidence_level": 0.9}`))
	})

	result, err := s.Score(context.Background(), testApplicant(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, review.ActionApprove, result.RecommendedAction)
}

func TestRemoteScorer_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	s := newTestRemoteScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	})

	_, err := s.Score(context.Background(), testApplicant(), nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemoteScorer_CancelledContext(t *testing.T) {
	s := newTestRemoteScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Score(ctx, testApplicant(), nil)
	require.Error(t, err)
}

func TestNewRemoteScorer_NilWithoutAPIKey(t *testing.T) {
	assert.Nil(t, NewRemoteScorer(config.ScorerConfig{BaseURL: "http://localhost", Model: "m"}))
}
