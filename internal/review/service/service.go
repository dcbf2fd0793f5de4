// Package service orchestrates the review pipeline: it walks one application
// from submitted through scoring to its policy-determined status, emitting an
// audit event at every step.
package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	appmodels "leaseguard/internal/application/models"
	"leaseguard/internal/review"
	"leaseguard/internal/review/metrics"
	"leaseguard/internal/review/scorer"
	id "leaseguard/pkg/domain"
	dErrors "leaseguard/pkg/domain-errors"
	"leaseguard/pkg/platform/audit"
	"leaseguard/pkg/platform/audit/publisher"
	"leaseguard/pkg/requestcontext"
)

type ApplicationStore interface {
	GetByID(ctx context.Context, appID id.ApplicationID) (*appmodels.Application, error)
	UpdateStatus(ctx context.Context, appID id.ApplicationID, status appmodels.Status, updatedAt time.Time) error
}

type DocumentStore interface {
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]appmodels.Document, error)
}

type ResultStore interface {
	Save(ctx context.Context, result review.Result) error
	Latest(ctx context.Context, appID id.ApplicationID) (review.Result, error)
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]review.Result, error)
}

// Service runs the orchestration sequence. One call per application, no
// retries: a scoring failure is recovered by the local fallback, any other
// failure propagates to the caller and leaves the application under_review
// (the acknowledged inconsistency window; no compensating rollback).
type Service struct {
	applications ApplicationStore
	documents    DocumentStore
	results      ResultStore
	remote       scorer.Scorer
	local        scorer.Scorer
	auditor      *publisher.Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewService wires the pipeline. remote may be nil, in which case every run
// takes the local path. metrics may be nil in tests.
func NewService(
	applications ApplicationStore,
	documents DocumentStore,
	results ResultStore,
	remote scorer.Scorer,
	local scorer.Scorer,
	auditor *publisher.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		applications: applications,
		documents:    documents,
		results:      results,
		remote:       remote,
		local:        local,
		auditor:      auditor,
		metrics:      m,
		logger:       logger,
	}
}

// Run executes the pipeline for one application and returns the persisted
// result plus the status the policy settled on.
func (s *Service) Run(ctx context.Context, appID id.ApplicationID) (review.Result, appmodels.Status, error) {
	start := time.Now()

	app, err := s.applications.GetByID(ctx, appID)
	if err != nil {
		return review.Result{}, "", err
	}

	// Step 1: move into under_review and record that the pipeline started.
	if err := app.CanAdvanceTo(appmodels.StatusUnderReview); err != nil {
		return review.Result{}, "", err
	}
	app.ApplyStatus(appmodels.StatusUnderReview, time.Now())
	if err := s.applications.UpdateStatus(ctx, appID, app.Status, app.UpdatedAt); err != nil {
		return review.Result{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to start review")
	}
	if err := s.emit(ctx, appID, audit.EventReviewStarted, "", "automated review pipeline started", nil); err != nil {
		return review.Result{}, "", err
	}

	// Step 2: load the document set.
	documents, err := s.documents.ListByApplication(ctx, appID)
	if err != nil {
		return review.Result{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load documents")
	}

	// Step 3: score, remote first, local on any remote failure.
	applicant := scorer.Applicant{
		Name:  app.ApplicantName,
		Email: app.ApplicantEmail,
		Phone: app.ApplicantPhone,
	}
	payload, path := s.score(ctx, applicant, documents)

	if err := s.emit(ctx, appID, audit.EventReviewScored, "", "document set scored", map[string]string{
		"scorer_path":        string(path),
		"fraud_score":        formatScore(payload.FraudScore),
		"recommended_action": string(payload.RecommendedAction),
	}); err != nil {
		return review.Result{}, "", err
	}

	// Step 4: persist the result. Append-only, one row per run.
	result := review.Result{
		ID:            id.ReviewID(uuid.New()),
		ApplicationID: appID,
		ScoreResult:   payload,
		ScorerPath:    path,
		CreatedAt:     time.Now(),
	}
	if err := s.results.Save(ctx, result); err != nil {
		return review.Result{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist review result")
	}

	// Step 5: apply the decision policy and record the workflow decision.
	next := review.NextStatus(payload.FraudScore, payload.RecommendedAction)
	app.ApplyStatus(next, time.Now())
	if err := s.applications.UpdateStatus(ctx, appID, next, app.UpdatedAt); err != nil {
		return review.Result{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply workflow decision")
	}

	err = s.emit(ctx, appID, audit.EventWorkflowDecision, next.String(),
		"status derived from fraud score by policy; AI-suggested and overridable by a human reviewer",
		map[string]string{
			"scorer_path":        string(path),
			"fraud_score":        formatScore(payload.FraudScore),
			"recommended_action": string(payload.RecommendedAction),
		})
	if err != nil {
		return review.Result{}, "", err
	}

	if s.metrics != nil {
		s.metrics.IncrementCompleted(string(path), next.String())
		s.metrics.ObservePipeline(start)
	}
	return result, next, nil
}

// score tries the remote scorer and falls back to the local one on any error.
// The local scorer never fails, so this never returns an invalid payload.
func (s *Service) score(ctx context.Context, applicant scorer.Applicant, documents []appmodels.Document) (review.ScoreResult, review.ScorerPath) {
	if s.remote != nil {
		start := time.Now()
		payload, err := s.remote.Score(ctx, applicant, documents)
		if s.metrics != nil {
			s.metrics.ObserveScore(string(review.PathRemote), start)
		}
		if err == nil {
			return payload, review.PathRemote
		}
		s.logger.Warn("remote scoring failed, using local fallback", "error", err)
		if s.metrics != nil {
			s.metrics.IncrementFallback()
		}
	}

	start := time.Now()
	payload, err := s.local.Score(ctx, applicant, documents)
	if s.metrics != nil {
		s.metrics.ObserveScore(string(review.PathLocal), start)
	}
	if err != nil {
		// The local scorer contract says this cannot happen. Keep the
		// pipeline alive with a conservative payload if it ever does.
		s.logger.Error("local scorer returned an error", "error", err)
		payload = review.ScoreResult{
			FraudScore:        0.5,
			Summary:           "local scoring failed; manual review required",
			RecommendedAction: review.ActionManualReview,
		}
	}
	return payload, review.PathLocal
}

// Latest returns the current assessment for an application.
func (s *Service) Latest(ctx context.Context, appID id.ApplicationID) (review.Result, error) {
	return s.results.Latest(ctx, appID)
}

// Results returns the full assessment history, newest first.
func (s *Service) Results(ctx context.Context, appID id.ApplicationID) ([]review.Result, error) {
	return s.results.ListByApplication(ctx, appID)
}

func (s *Service) emit(ctx context.Context, appID id.ApplicationID, action audit.AuditEvent, decision, reason string, metadata map[string]string) error {
	event := audit.Event{
		ApplicationID: appID,
		ActorID:       requestcontext.ActorID(ctx).String(),
		ActorRole:     requestcontext.Role(ctx).String(),
		Action:        string(action),
		Decision:      decision,
		Reason:        reason,
		Metadata:      metadata,
		RequestID:     requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}
