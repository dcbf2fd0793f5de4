package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"leaseguard/internal/application/handler/mocks"
	"leaseguard/internal/application/models"
	appservice "leaseguard/internal/application/service"
	appstore "leaseguard/internal/application/store/application"
	"leaseguard/internal/review"
	id "leaseguard/pkg/domain"
	dErrors "leaseguard/pkg/domain-errors"
	audit "leaseguard/pkg/platform/audit"
	"leaseguard/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/application-mocks.go -package=mocks Service
type ApplicationHandlerSuite struct {
	suite.Suite
}

func TestApplicationHandlerSuite(t *testing.T) {
	suite.Run(t, new(ApplicationHandlerSuite))
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(mockService, logger, nil, nil), mockService
}

// actorContext simulates what RequireAuth injects for an authenticated call.
func actorContext(role id.Role) context.Context {
	ctx := requestcontext.WithRequestID(context.Background(), "req-test")
	return requestcontext.WithActor(ctx, id.UserID(uuid.New()), "actor@example.com", role)
}

// withURLParam attaches a chi route parameter for direct handler invocation.
func withURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

func sampleApplication(status models.Status) *models.Application {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &models.Application{
		ID:             id.ApplicationID(uuid.New()),
		ApplicantID:    id.UserID(uuid.New()),
		ApplicantName:  "Jordan Reyes",
		ApplicantEmail: "jordan@example.com",
		ApplicantPhone: "+1-555-0100",
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *ApplicationHandlerSuite) TestHandleCreate() {
	handler, mockService := newTestHandler(s.T())
	app := sampleApplication(models.StatusApproved)

	mockService.EXPECT().Create(gomock.Any(), appservice.CreateInput{
		ApplicantName:  "Jordan Reyes",
		ApplicantEmail: "jordan@example.com",
		ApplicantPhone: "+1-555-0100",
		Documents: []appservice.DocumentInput{
			{Filename: "id_card.png", MimeType: "image/png", SizeBytes: 250000},
		},
	}).Return(app, nil)

	body, err := json.Marshal(createRequest{
		ApplicantName:  "Jordan Reyes",
		ApplicantEmail: "jordan@example.com",
		ApplicantPhone: "+1-555-0100",
		Documents: []documentRequest{
			{Filename: "id_card.png", MimeType: "image/png", SizeBytes: 250000},
		},
	})
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPost, "/applications", bytes.NewReader(body))
	req = req.WithContext(actorContext(id.RoleApplicant))

	w := httptest.NewRecorder()
	handler.handleCreate(w, req)

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), app.ID.String(), resp["id"])
	assert.Equal(s.T(), "approved", resp["status"])
}

func (s *ApplicationHandlerSuite) TestHandleCreate_MalformedBody() {
	handler, _ := newTestHandler(s.T())

	req := httptest.NewRequest(http.MethodPost, "/applications", bytes.NewReader([]byte("{not json")))
	req = req.WithContext(actorContext(id.RoleApplicant))

	w := httptest.NewRecorder()
	handler.handleCreate(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *ApplicationHandlerSuite) TestHandleCreate_ForbiddenRole() {
	handler, mockService := newTestHandler(s.T())

	mockService.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeForbidden, "role cannot create applications"))

	body, err := json.Marshal(createRequest{ApplicantName: "x"})
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPost, "/applications", bytes.NewReader(body))
	req = req.WithContext(actorContext(id.RoleReviewer))

	w := httptest.NewRecorder()
	handler.handleCreate(w, req)

	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *ApplicationHandlerSuite) TestHandleGet() {
	handler, mockService := newTestHandler(s.T())
	app := sampleApplication(models.StatusUnderReview)

	detail := &appservice.Detail{
		Application: app,
		Documents: []models.Document{{
			ID:            id.DocumentID(uuid.New()),
			ApplicationID: app.ID,
			Filename:      "passport.pdf",
			MimeType:      "application/pdf",
			SizeBytes:     400000,
			CreatedAt:     app.CreatedAt,
		}},
		Results: []review.Result{{
			ID:            id.ReviewID(uuid.New()),
			ApplicationID: app.ID,
			ScoreResult: review.ScoreResult{
				FraudScore:        0.45,
				RecommendedAction: review.ActionManualReview,
			},
			ScorerPath: review.PathLocal,
			CreatedAt:  app.CreatedAt,
		}},
		AuditTrail: []audit.Event{{
			Timestamp:     app.CreatedAt,
			ApplicationID: app.ID,
			Action:        string(audit.EventApplicationSubmitted),
		}},
	}
	mockService.EXPECT().Get(gomock.Any(), app.ID).Return(detail, nil)

	ctx := withURLParam(actorContext(id.RoleReviewer), "id", app.ID.String())
	req := httptest.NewRequest(http.MethodGet, "/applications/"+app.ID.String(), nil).WithContext(ctx)

	w := httptest.NewRecorder()
	handler.handleGet(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp detailResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), app.ID, resp.Application.ID)
	require.Len(s.T(), resp.Results, 1)
	assert.Equal(s.T(), "local", resp.Results[0].ScorerPath)
	assert.InDelta(s.T(), 0.45, resp.Results[0].FraudScore, 1e-9)
	require.Len(s.T(), resp.AuditTrail, 1)
	assert.Equal(s.T(), "application_submitted", resp.AuditTrail[0].Action)
}

func (s *ApplicationHandlerSuite) TestHandleGet_InvalidID() {
	handler, _ := newTestHandler(s.T())

	ctx := withURLParam(actorContext(id.RoleReviewer), "id", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/applications/not-a-uuid", nil).WithContext(ctx)

	w := httptest.NewRecorder()
	handler.handleGet(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *ApplicationHandlerSuite) TestHandleGet_NotFound() {
	handler, mockService := newTestHandler(s.T())
	appID := id.ApplicationID(uuid.New())

	mockService.EXPECT().Get(gomock.Any(), appID).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "application not found"))

	ctx := withURLParam(actorContext(id.RoleReviewer), "id", appID.String())
	req := httptest.NewRequest(http.MethodGet, "/applications/"+appID.String(), nil).WithContext(ctx)

	w := httptest.NewRecorder()
	handler.handleGet(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *ApplicationHandlerSuite) TestHandleList_ParsesFilter() {
	handler, mockService := newTestHandler(s.T())
	app := sampleApplication(models.StatusFlagged)

	flagged := models.StatusFlagged
	mockService.EXPECT().List(gomock.Any(), appstore.ListFilter{
		Status: &flagged,
		Limit:  10,
		Offset: 20,
	}).Return([]*models.Application{app}, nil)

	req := httptest.NewRequest(http.MethodGet, "/applications?status=flagged&limit=10&offset=20", nil)
	req = req.WithContext(actorContext(id.RoleReviewer))

	w := httptest.NewRecorder()
	handler.handleList(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp listResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.T(), resp.Applications, 1)
	assert.Equal(s.T(), 10, resp.Limit)
	assert.Equal(s.T(), 20, resp.Offset)
}

func (s *ApplicationHandlerSuite) TestHandleList_InvalidStatus() {
	handler, _ := newTestHandler(s.T())

	req := httptest.NewRequest(http.MethodGet, "/applications?status=pending", nil)
	req = req.WithContext(actorContext(id.RoleReviewer))

	w := httptest.NewRecorder()
	handler.handleList(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *ApplicationHandlerSuite) TestHandleList_EmptyPageIsAnArray() {
	handler, mockService := newTestHandler(s.T())

	mockService.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/applications", nil)
	req = req.WithContext(actorContext(id.RoleAdmin))

	w := httptest.NewRecorder()
	handler.handleList(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"applications":[]`)
}

func (s *ApplicationHandlerSuite) TestHandleDecision() {
	handler, mockService := newTestHandler(s.T())
	app := sampleApplication(models.StatusFlagged)

	mockService.EXPECT().
		ManualDecision(gomock.Any(), app.ID, models.StatusFlagged, "duplicate identity").
		Return(app, nil)

	body, err := json.Marshal(decisionRequest{Decision: "flagged", Reason: "duplicate identity"})
	require.NoError(s.T(), err)

	ctx := withURLParam(actorContext(id.RoleReviewer), "id", app.ID.String())
	req := httptest.NewRequest(http.MethodPost, "/applications/"+app.ID.String()+"/decision", bytes.NewReader(body)).WithContext(ctx)

	w := httptest.NewRecorder()
	handler.handleDecision(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "flagged", resp["status"])
}

func (s *ApplicationHandlerSuite) TestHandleDecision_UnknownDecisionValue() {
	handler, _ := newTestHandler(s.T())
	appID := id.ApplicationID(uuid.New())

	body, err := json.Marshal(decisionRequest{Decision: "escalate"})
	require.NoError(s.T(), err)

	ctx := withURLParam(actorContext(id.RoleReviewer), "id", appID.String())
	req := httptest.NewRequest(http.MethodPost, "/applications/"+appID.String()+"/decision", bytes.NewReader(body)).WithContext(ctx)

	w := httptest.NewRecorder()
	handler.handleDecision(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *ApplicationHandlerSuite) TestHandleDecision_InvariantViolation() {
	handler, mockService := newTestHandler(s.T())
	appID := id.ApplicationID(uuid.New())

	mockService.EXPECT().
		ManualDecision(gomock.Any(), appID, models.StatusSubmitted, "").
		Return(nil, dErrors.New(dErrors.CodeInvalidInput, "manual decision must be approved or flagged"))

	body, err := json.Marshal(decisionRequest{Decision: "submitted"})
	require.NoError(s.T(), err)

	ctx := withURLParam(actorContext(id.RoleReviewer), "id", appID.String())
	req := httptest.NewRequest(http.MethodPost, "/applications/"+appID.String()+"/decision", bytes.NewReader(body)).WithContext(ctx)

	w := httptest.NewRecorder()
	handler.handleDecision(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}
