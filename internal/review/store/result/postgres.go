package result

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"leaseguard/internal/review"
	id "leaseguard/pkg/domain"
	"leaseguard/pkg/platform/sentinel"
)

// PostgresStore persists review results. Rows are append-only; the result
// history accumulates and the latest row is the current assessment.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const resultColumns = `id, application_id, fraud_score, summary, notes, signals,
	classifications, recommended_action, confidence_level, ai_generated,
	scorer_path, created_at`

func (s *PostgresStore) Save(ctx context.Context, result review.Result) error {
	signals, err := json.Marshal(result.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	classifications, err := json.Marshal(result.Classifications)
	if err != nil {
		return fmt.Errorf("marshal classifications: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO review_results (
			id, application_id, fraud_score, summary, notes, signals,
			classifications, recommended_action, confidence_level,
			ai_generated, scorer_path, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		result.ID.String(),
		result.ApplicationID.String(),
		result.FraudScore,
		result.Summary,
		result.Notes,
		signals,
		classifications,
		string(result.RecommendedAction),
		result.ConfidenceLevel,
		result.AIGenerated,
		string(result.ScorerPath),
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review result: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, appID id.ApplicationID) (review.Result, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+resultColumns+`
		FROM review_results
		WHERE application_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		appID.String(),
	)

	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return review.Result{}, sentinel.ErrNotFound
	}
	if err != nil {
		return review.Result{}, fmt.Errorf("query latest review result: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]review.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+resultColumns+`
		FROM review_results
		WHERE application_id = $1
		ORDER BY created_at DESC`,
		appID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query review results: %w", err)
	}
	defer rows.Close()

	var results []review.Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (review.Result, error) {
	var (
		result          review.Result
		reviewID        string
		appID           string
		signals         []byte
		classifications []byte
		action          string
		path            string
	)

	err := row.Scan(
		&reviewID,
		&appID,
		&result.FraudScore,
		&result.Summary,
		&result.Notes,
		&signals,
		&classifications,
		&action,
		&result.ConfidenceLevel,
		&result.AIGenerated,
		&path,
		&result.CreatedAt,
	)
	if err != nil {
		return review.Result{}, err
	}

	result.ID, err = id.ParseReviewID(reviewID)
	if err != nil {
		return review.Result{}, err
	}
	result.ApplicationID, err = id.ParseApplicationID(appID)
	if err != nil {
		return review.Result{}, err
	}
	if err := json.Unmarshal(signals, &result.Signals); err != nil {
		return review.Result{}, fmt.Errorf("unmarshal signals: %w", err)
	}
	if err := json.Unmarshal(classifications, &result.Classifications); err != nil {
		return review.Result{}, fmt.Errorf("unmarshal classifications: %w", err)
	}
	result.RecommendedAction = review.RecommendedAction(action)
	result.ScorerPath = review.ScorerPath(path)
	return result, nil
}
