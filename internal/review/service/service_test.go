package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	appmodels "leaseguard/internal/application/models"
	appstore "leaseguard/internal/application/store/application"
	docstore "leaseguard/internal/application/store/document"
	"leaseguard/internal/review"
	"leaseguard/internal/review/scorer"
	resultstore "leaseguard/internal/review/store/result"
	id "leaseguard/pkg/domain"
	dErrors "leaseguard/pkg/domain-errors"
	audit "leaseguard/pkg/platform/audit"
	"leaseguard/pkg/platform/audit/publisher"
	auditmemory "leaseguard/pkg/platform/audit/store/memory"
	"leaseguard/pkg/requestcontext"
)

// stubScorer returns a fixed payload or error, standing in for the remote path.
type stubScorer struct {
	result review.ScoreResult
	err    error
	calls  int
}

func (s *stubScorer) Score(_ context.Context, _ scorer.Applicant, _ []appmodels.Document) (review.ScoreResult, error) {
	s.calls++
	if s.err != nil {
		return review.ScoreResult{}, s.err
	}
	return s.result, nil
}

type ServiceSuite struct {
	suite.Suite

	applications *appstore.MemoryStore
	documents    *docstore.MemoryStore
	results      *resultstore.MemoryStore
	auditStore   *auditmemory.InMemoryStore
	auditor      *publisher.Publisher
	logger       *slog.Logger

	appID id.ApplicationID
	ctx   context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.applications = appstore.NewMemoryStore()
	s.documents = docstore.NewMemoryStore()
	s.results = resultstore.NewMemoryStore()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.auditor = publisher.NewPublisher(s.auditStore)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	now := time.Now()
	s.appID = id.ApplicationID(uuid.New())
	app, err := appmodels.NewApplication(
		s.appID, id.UserID(uuid.New()),
		"Jordan Reyes", "jordan@example.com", "+1-555-0100", now,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.applications.Create(context.Background(), app))

	docID := id.DocumentID(uuid.New())
	doc, err := appmodels.NewDocument(docID, s.appID, "passport.pdf", "application/pdf", 400_000, now)
	s.Require().NoError(err)
	s.Require().NoError(s.documents.CreateAll(context.Background(), []appmodels.Document{*doc}))

	s.ctx = requestcontext.WithRequestID(context.Background(), "req-1")
	s.ctx = requestcontext.WithActor(s.ctx, id.UserID(uuid.New()), "system@leaseguard.local", id.RoleAdmin)
}

func (s *ServiceSuite) newService(remote scorer.Scorer) *Service {
	return NewService(s.applications, s.documents, s.results, remote, scorer.NewLocalScorer(), s.auditor, nil, s.logger)
}

func (s *ServiceSuite) auditActions() []string {
	events, err := s.auditStore.ListByApplication(context.Background(), s.appID)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *ServiceSuite) TestRun_RemotePathApproves() {
	remote := &stubScorer{result: review.ScoreResult{
		FraudScore:        0.1,
		Summary:           "clean",
		RecommendedAction: review.ActionApprove,
		ConfidenceLevel:   0.9,
		AIGenerated:       true,
	}}

	result, status, err := s.newService(remote).Run(s.ctx, s.appID)
	s.Require().NoError(err)

	s.Equal(appmodels.StatusApproved, status)
	s.Equal(review.PathRemote, result.ScorerPath)
	s.Equal(1, remote.calls)

	app, err := s.applications.GetByID(context.Background(), s.appID)
	s.Require().NoError(err)
	s.Equal(appmodels.StatusApproved, app.Status)

	persisted, err := s.results.Latest(context.Background(), s.appID)
	s.Require().NoError(err)
	s.Equal(result.ID, persisted.ID)

	s.Equal([]string{
		string(audit.EventReviewStarted),
		string(audit.EventReviewScored),
		string(audit.EventWorkflowDecision),
	}, s.auditActions())
}

func (s *ServiceSuite) TestRun_HighScoreFlags() {
	remote := &stubScorer{result: review.ScoreResult{
		FraudScore:        0.85,
		RecommendedAction: review.ActionApprove,
	}}

	_, status, err := s.newService(remote).Run(s.ctx, s.appID)
	s.Require().NoError(err)
	s.Equal(appmodels.StatusFlagged, status)
}

func (s *ServiceSuite) TestRun_RemoteFailureFallsBackToLocal() {
	remote := &stubScorer{err: errors.New("connection refused")}

	result, status, err := s.newService(remote).Run(s.ctx, s.appID)
	s.Require().NoError(err)

	// The passport-only document set trips the local scorer's income and
	// employment signals: 0.45, manual review, so it holds for a human.
	s.Equal(review.PathLocal, result.ScorerPath)
	s.Equal(appmodels.StatusUnderReview, status)
	s.InDelta(0.45, result.FraudScore, 1e-9)
	s.False(result.AIGenerated)

	events, listErr := s.auditStore.ListByApplication(context.Background(), s.appID)
	s.Require().NoError(listErr)
	s.Require().Len(events, 3)
	s.Equal(string(review.PathLocal), events[1].Metadata["scorer_path"])
}

func (s *ServiceSuite) TestRun_NoRemoteScorerUsesLocal() {
	result, _, err := s.newService(nil).Run(s.ctx, s.appID)
	s.Require().NoError(err)
	s.Equal(review.PathLocal, result.ScorerPath)
}

func (s *ServiceSuite) TestRun_WorkflowDecisionCarriesOverrideNotice() {
	remote := &stubScorer{result: review.ScoreResult{
		FraudScore:        0.75,
		RecommendedAction: review.ActionFlag,
	}}

	_, _, err := s.newService(remote).Run(s.ctx, s.appID)
	s.Require().NoError(err)

	events, listErr := s.auditStore.ListByApplication(context.Background(), s.appID)
	s.Require().NoError(listErr)
	s.Require().Len(events, 3)

	decision := events[2]
	s.Equal(string(audit.EventWorkflowDecision), decision.Action)
	s.Equal(appmodels.StatusFlagged.String(), decision.Decision)
	s.Contains(decision.Reason, "AI-suggested")
	s.Contains(decision.Reason, "overridable")
	s.Equal("0.75", decision.Metadata["fraud_score"])
	s.Equal(string(review.ActionFlag), decision.Metadata["recommended_action"])
	s.Equal("req-1", decision.RequestID)
}

func (s *ServiceSuite) TestRun_TerminalStatusRejected() {
	s.Require().NoError(s.applications.UpdateStatus(context.Background(), s.appID, appmodels.StatusApproved, time.Now()))

	_, _, err := s.newService(nil).Run(s.ctx, s.appID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	// Step 1 never ran: no audit events, no status change.
	s.Empty(s.auditActions())
}

func (s *ServiceSuite) TestRun_UnknownApplication() {
	_, _, err := s.newService(nil).Run(s.ctx, id.ApplicationID(uuid.New()))
	s.Require().Error(err)
}

func (s *ServiceSuite) TestRun_SecondRunAppendsResult() {
	// under_review -> under_review is a legal policy outcome, so a manual
	// re-run accumulates results instead of replacing them.
	remote := &stubScorer{result: review.ScoreResult{
		FraudScore:        0.5,
		RecommendedAction: review.ActionManualReview,
	}}
	svc := s.newService(remote)

	_, status, err := svc.Run(s.ctx, s.appID)
	s.Require().NoError(err)
	s.Equal(appmodels.StatusUnderReview, status)

	_, _, err = svc.Run(s.ctx, s.appID)
	s.Require().NoError(err)

	results, err := svc.Results(context.Background(), s.appID)
	s.Require().NoError(err)
	s.Len(results, 2)
}
