package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	appmodels "leaseguard/internal/application/models"
	"leaseguard/internal/platform/config"
	"leaseguard/internal/review"
)

const (
	anthropicVersion = "2023-06-01"
	maxRetries       = 3
	initialDelay     = 500 * time.Millisecond
)

const systemPrompt = `You are a rental application fraud screener. Given applicant
contact details and document metadata (filename, declared MIME type, declared
size in bytes), respond with ONLY a JSON object of this shape:
{"fraud_score": 0.0-1.0, "summary": "...", "notes": "...",
 "signals": [{"code": "...", "severity": "low|medium|high", "description": "...", "recommendation": "..."}],
 "document_classifications": [{"filename": "...", "kind": "id|paystub|employment|bank_statement|reference|unknown", "confidence": 0.0-1.0}],
 "recommended_action": "approve|flag|manual_review", "confidence_level": 0.0-1.0}`

// RemoteScorer sends document metadata to a text-completion service and
// normalizes the structured reply.
//
// Error contract: transport failures (after retries) return an error so the
// orchestrator can substitute the local fallback. A reply that arrives but
// cannot be parsed never errors; it yields a defaulted, well-formed result
// recommending manual review with a synthetic parse-error signal.
type RemoteScorer struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewRemoteScorer builds a scorer from config. Returns nil when no API key is
// configured; callers treat a nil scorer as "local fallback only".
func NewRemoteScorer(cfg config.ScorerConfig) *RemoteScorer {
	if cfg.APIKey == "" {
		return nil
	}
	return &RemoteScorer{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func buildUserPrompt(applicant Applicant, documents []appmodels.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Applicant: name=%q email=%q phone=%q\n", applicant.Name, applicant.Email, applicant.Phone)
	b.WriteString("Documents:\n")
	for _, doc := range documents {
		fmt.Fprintf(&b, "- filename=%q mime=%q size=%d\n", doc.Filename, doc.MimeType, doc.SizeBytes)
	}
	return b.String()
}

// Score calls the remote service and normalizes its reply.
func (s *RemoteScorer) Score(ctx context.Context, applicant Applicant, documents []appmodels.Document) (review.ScoreResult, error) {
	req := messagesRequest{
		Model:     s.model,
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages: []message{
			{Role: "user", Content: buildUserPrompt(applicant, documents)},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return review.ScoreResult{}, fmt.Errorf("marshal scorer request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt))) * initialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return review.ScoreResult{}, ctx.Err()
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
		if err != nil {
			return review.ScoreResult{}, fmt.Errorf("create scorer request: %w", err)
		}
		httpReq.Header.Set("x-api-key", s.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("scorer request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read scorer response: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("scoring service error (%d): %s", resp.StatusCode, string(respBody))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return review.ScoreResult{}, lastErr
		}

		var apiResp messagesResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return parseFailureResult(fmt.Sprintf("response envelope was not valid JSON: %v", err)), nil
		}
		if len(apiResp.Content) == 0 {
			return parseFailureResult("response contained no content blocks"), nil
		}

		return parseScorePayload(apiResp.Content[0].Text), nil
	}

	return review.ScoreResult{}, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

// parseScorePayload extracts the JSON payload from the model reply, handling
// markdown code fences, and normalizes it into range.
func parseScorePayload(text string) review.ScoreResult {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	var result review.ScoreResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return parseFailureResult(fmt.Sprintf("payload was not valid JSON: %v", err))
	}

	result.Normalize()
	result.AIGenerated = true
	return result
}

// parseFailureResult is the defaulted-but-valid payload returned when the
// service replied but the reply could not be understood.
func parseFailureResult(detail string) review.ScoreResult {
	return review.ScoreResult{
		FraudScore: 0.5,
		Summary:    "Automated scoring reply could not be parsed; manual review required",
		Notes:      detail,
		Signals: []review.Signal{{
			Code:           review.SignalParseError,
			Severity:       review.SeverityMedium,
			Description:    "The scoring service reply did not match the expected schema",
			Recommendation: "Review the application manually",
		}},
		RecommendedAction: review.ActionManualReview,
		ConfidenceLevel:   0,
		AIGenerated:       false,
	}
}
