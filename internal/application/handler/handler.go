// Package handler exposes the intake HTTP surface. Handlers decode, delegate,
// and encode; authorization and orchestration live in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"leaseguard/internal/application/models"
	appservice "leaseguard/internal/application/service"
	appstore "leaseguard/internal/application/store/application"
	"leaseguard/internal/platform/metrics"
	"leaseguard/internal/platform/middleware"
	"leaseguard/internal/review"
	id "leaseguard/pkg/domain"
	dErrors "leaseguard/pkg/domain-errors"
	audit "leaseguard/pkg/platform/audit"
	"leaseguard/pkg/platform/httputil"
)

// Service defines the interface for intake operations.
type Service interface {
	Create(ctx context.Context, input appservice.CreateInput) (*models.Application, error)
	Get(ctx context.Context, appID id.ApplicationID) (*appservice.Detail, error)
	List(ctx context.Context, filter appstore.ListFilter) ([]*models.Application, error)
	ManualDecision(ctx context.Context, appID id.ApplicationID, decision models.Status, reason string) (*models.Application, error)
}

// Handler handles application endpoints.
type Handler struct {
	logger       *slog.Logger
	applications Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new application Handler.
func New(
	applications Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		applications: applications,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the application routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	appRouter := chi.NewRouter()
	appRouter.Use(middleware.Recovery(h.logger))
	appRouter.Use(middleware.RequestID)
	appRouter.Use(middleware.Logger(h.logger))
	appRouter.Use(middleware.Timeout(60 * time.Second))
	appRouter.Use(middleware.ContentTypeJSON)
	appRouter.Use(middleware.LatencyMiddleware(h.metrics))
	appRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	appRouter.Post("/applications", h.handleCreate)
	appRouter.Get("/applications", h.handleList)
	appRouter.Get("/applications/{id}", h.handleGet)
	appRouter.Post("/applications/{id}/decision", h.handleDecision)

	r.Mount("/", appRouter)
}

type documentRequest struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

type createRequest struct {
	ApplicantName  string            `json:"applicant_name"`
	ApplicantEmail string            `json:"applicant_email"`
	ApplicantPhone string            `json:"applicant_phone"`
	Documents      []documentRequest `json:"documents"`
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

type resultResponse struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	review.ScoreResult
	ScorerPath string    `json:"scorer_path"`
	CreatedAt  time.Time `json:"created_at"`
}

type auditEventResponse struct {
	Timestamp time.Time         `json:"timestamp"`
	ActorID   string            `json:"actor_id"`
	ActorRole string            `json:"actor_role"`
	Action    string            `json:"action"`
	Decision  string            `json:"decision,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type detailResponse struct {
	Application *models.Application  `json:"application"`
	Documents   []models.Document    `json:"documents"`
	Results     []resultResponse     `json:"review_results"`
	AuditTrail  []auditEventResponse `json:"audit_trail"`
}

type listResponse struct {
	Applications []*models.Application `json:"applications"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// handleCreate accepts a submission and runs the review pipeline before
// responding, so the returned status is already past intake.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create application request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	input := appservice.CreateInput{
		ApplicantName:  req.ApplicantName,
		ApplicantEmail: req.ApplicantEmail,
		ApplicantPhone: req.ApplicantPhone,
	}
	for _, doc := range req.Documents {
		input.Documents = append(input.Documents, appservice.DocumentInput{
			Filename:  doc.Filename,
			MimeType:  doc.MimeType,
			SizeBytes: doc.SizeBytes,
		})
	}

	app, err := h.applications.Create(ctx, input)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create application", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	detail, err := h.applications.Get(ctx, appID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load application", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	apps, err := h.applications.List(ctx, filter)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list applications", err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Applications: apps,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid decision request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	decision, err := models.ParseStatus(req.Decision)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "decision must be approved or flagged"))
		return
	}

	app, err := h.applications.ManualDecision(ctx, appID, decision, req.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to record decision", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, app)
}

// writeServiceError logs at a level matching the error class and translates
// it for the wire. Unexpected errors surface as a generic internal failure.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)

	if domainErr, ok := dErrors.Load(err); ok {
		if dErrors.ToHTTPStatus(domainErr.Code) < http.StatusInternalServerError {
			h.logger.WarnContext(ctx, msg,
				"request_id", requestID,
				"code", string(domainErr.Code),
				"error", err.Error(),
			)
			httputil.WriteError(w, err)
			return
		}
	}

	h.logger.ErrorContext(ctx, msg,
		"request_id", requestID,
		"error", err.Error(),
	)
	httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
}

func parseListFilter(r *http.Request) (appstore.ListFilter, error) {
	var filter appstore.ListFilter

	query := r.URL.Query()
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return filter, dErrors.New(dErrors.CodeInvalidInput, "offset must be a non-negative integer")
		}
		filter.Offset = offset
	}
	if v := query.Get("status"); v != "" {
		status, err := models.ParseStatus(v)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	filter.Clamp()
	return filter, nil
}

func toDetailResponse(detail *appservice.Detail) detailResponse {
	resp := detailResponse{
		Application: detail.Application,
		Documents:   detail.Documents,
		Results:     make([]resultResponse, 0, len(detail.Results)),
		AuditTrail:  make([]auditEventResponse, 0, len(detail.AuditTrail)),
	}
	if resp.Documents == nil {
		resp.Documents = []models.Document{}
	}
	for _, result := range detail.Results {
		resp.Results = append(resp.Results, resultResponse{
			ID:            result.ID.String(),
			ApplicationID: result.ApplicationID.String(),
			ScoreResult:   result.ScoreResult,
			ScorerPath:    string(result.ScorerPath),
			CreatedAt:     result.CreatedAt,
		})
	}
	for _, event := range detail.AuditTrail {
		resp.AuditTrail = append(resp.AuditTrail, toAuditEventResponse(event))
	}
	return resp
}

func toAuditEventResponse(event audit.Event) auditEventResponse {
	return auditEventResponse{
		Timestamp: event.Timestamp,
		ActorID:   event.ActorID,
		ActorRole: event.ActorRole,
		Action:    event.Action,
		Decision:  event.Decision,
		Reason:    event.Reason,
		Metadata:  event.Metadata,
		RequestID: event.RequestID,
	}
}
