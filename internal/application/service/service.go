// Package service implements the intake operations: submitting applications,
// scoped reads, listing, and manual decisions. Authorization is enforced here
// from the request context, never in handlers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"leaseguard/internal/application/metrics"
	"leaseguard/internal/application/models"
	appstore "leaseguard/internal/application/store/application"
	"leaseguard/internal/review"
	id "leaseguard/pkg/domain"
	dErrors "leaseguard/pkg/domain-errors"
	audit "leaseguard/pkg/platform/audit"
	"leaseguard/pkg/platform/audit/publisher"
	"leaseguard/pkg/platform/sentinel"
	"leaseguard/pkg/requestcontext"
)

type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	UpdateStatus(ctx context.Context, appID id.ApplicationID, status models.Status, updatedAt time.Time) error
	List(ctx context.Context, filter appstore.ListFilter) ([]*models.Application, error)
}

type DocumentStore interface {
	CreateAll(ctx context.Context, documents []models.Document) error
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]models.Document, error)
}

// ReviewRunner is the pipeline boundary: the intake service triggers a run
// after submission and reads back result history for the detail view.
type ReviewRunner interface {
	Run(ctx context.Context, appID id.ApplicationID) (review.Result, models.Status, error)
	Latest(ctx context.Context, appID id.ApplicationID) (review.Result, error)
	Results(ctx context.Context, appID id.ApplicationID) ([]review.Result, error)
}

// DocumentInput is declared metadata for one uploaded file.
type DocumentInput struct {
	Filename  string
	MimeType  string
	SizeBytes int64
}

// CreateInput is a submission request.
type CreateInput struct {
	ApplicantName  string
	ApplicantEmail string
	ApplicantPhone string
	Documents      []DocumentInput
}

// Detail is the full view of one application.
type Detail struct {
	Application *models.Application
	Documents   []models.Document
	Results     []review.Result
	AuditTrail  []audit.Event
}

const maxDocumentsPerSubmission = 20

type Service struct {
	applications ApplicationStore
	documents    DocumentStore
	reviews      ReviewRunner
	auditor      *publisher.Publisher
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewService wires the intake service. metrics may be nil in tests.
func NewService(
	applications ApplicationStore,
	documents DocumentStore,
	reviews ReviewRunner,
	auditor *publisher.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		applications: applications,
		documents:    documents,
		reviews:      reviews,
		auditor:      auditor,
		metrics:      m,
		logger:       logger,
	}
}

// Create validates and persists a submission, records the intake audit event,
// then runs the review pipeline synchronously within the request. The
// returned application carries the status the pipeline settled on.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Application, error) {
	role := requestcontext.Role(ctx)
	if !role.CanCreateApplication() {
		return nil, dErrors.New(dErrors.CodeForbidden, "role cannot create applications")
	}
	if len(input.Documents) > maxDocumentsPerSubmission {
		return nil, dErrors.New(dErrors.CodeValidation,
			"a submission may include at most "+strconv.Itoa(maxDocumentsPerSubmission)+" documents")
	}

	now := time.Now()
	appID := id.ApplicationID(uuid.New())

	app, err := models.NewApplication(appID, requestcontext.ActorID(ctx),
		input.ApplicantName, input.ApplicantEmail, input.ApplicantPhone, now)
	if err != nil {
		return nil, err
	}

	documents := make([]models.Document, 0, len(input.Documents))
	for _, in := range input.Documents {
		doc, err := models.NewDocument(id.DocumentID(uuid.New()), appID, in.Filename, in.MimeType, in.SizeBytes, now)
		if err != nil {
			return nil, err
		}
		documents = append(documents, *doc)
	}

	if err := s.applications.Create(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist application")
	}
	if err := s.documents.CreateAll(ctx, documents); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist documents")
	}

	err = s.emit(ctx, appID, audit.EventApplicationSubmitted, "", "application received", map[string]string{
		"document_count": strconv.Itoa(len(documents)),
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementSubmitted()
	}

	// The pipeline owns its own audit events and status writes. Its failure
	// fails the request; the under_review status it may have set stands.
	_, status, err := s.reviews.Run(ctx, appID)
	if err != nil {
		return nil, err
	}
	app.Status = status
	return app, nil
}

// Get returns the full detail view. Applicants may only read their own
// applications; the mismatch is an explicit authorization failure, never a
// masked not-found.
func (s *Service) Get(ctx context.Context, appID id.ApplicationID) (*Detail, error) {
	app, err := s.applications.GetByID(ctx, appID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}

	role := requestcontext.Role(ctx)
	if !role.CanViewAny() && !app.OwnedBy(requestcontext.ActorID(ctx), requestcontext.ActorEmail(ctx)) {
		return nil, dErrors.New(dErrors.CodeForbidden, "applicants may only view their own applications")
	}

	detail := &Detail{Application: app}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		documents, err := s.documents.ListByApplication(gctx, appID)
		if err != nil {
			return err
		}
		detail.Documents = documents
		return nil
	})
	g.Go(func() error {
		results, err := s.reviews.Results(gctx, appID)
		if err != nil {
			return err
		}
		detail.Results = results
		return nil
	})
	g.Go(func() error {
		trail, err := s.auditor.List(gctx, appID)
		if err != nil {
			return err
		}
		detail.AuditTrail = trail
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application detail")
	}
	return detail, nil
}

// List returns a page of applications, reviewer and admin only.
func (s *Service) List(ctx context.Context, filter appstore.ListFilter) ([]*models.Application, error) {
	if !requestcontext.Role(ctx).CanListApplications() {
		return nil, dErrors.New(dErrors.CodeForbidden, "role cannot list applications")
	}
	apps, err := s.applications.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

// ManualDecision records a human override to approved or flagged. It is the
// sanctioned escape from any state, including a stuck under_review, and the
// audit event preserves whatever the pipeline last suggested.
func (s *Service) ManualDecision(ctx context.Context, appID id.ApplicationID, decision models.Status, reason string) (*models.Application, error) {
	if !requestcontext.Role(ctx).CanRecordDecision() {
		return nil, dErrors.New(dErrors.CodeForbidden, "role cannot record decisions")
	}

	app, err := s.applications.GetByID(ctx, appID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}

	if err := app.ApplyManualDecision(decision, time.Now()); err != nil {
		return nil, err
	}
	if err := s.applications.UpdateStatus(ctx, appID, app.Status, app.UpdatedAt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record decision")
	}

	metadata := map[string]string{}
	if latest, err := s.reviews.Latest(ctx, appID); err == nil {
		metadata["prior_recommended_action"] = string(latest.RecommendedAction)
		metadata["prior_fraud_score"] = strconv.FormatFloat(latest.FraudScore, 'f', 2, 64)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.Warn("could not load prior review result for decision audit", "error", err)
	}

	if reason == "" {
		reason = "manual decision recorded by reviewer"
	}
	if err := s.emit(ctx, appID, audit.EventManualDecision, app.Status.String(), reason, metadata); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementManualDecision(app.Status.String())
	}
	return app, nil
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
