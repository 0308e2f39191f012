package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	apperrors "github.com/Isaac25-lgtm/navcore-platform/internal/shared/errors"
	"github.com/Isaac25-lgtm/navcore-platform/internal/transport/httpapi/middleware"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

// PeriodService defines the period lifecycle operations
type PeriodService interface {
	OpenPeriod(ctx context.Context, scope nav.Scope, in nav.OpenPeriodInput) (*nav.AccountingPeriod, error)
	ListPeriods(ctx context.Context, scope nav.Scope) ([]*nav.AccountingPeriod, error)
	GetPeriod(ctx context.Context, scope nav.Scope, periodID uuid.UUID) (*nav.AccountingPeriod, error)
	PreviewPeriod(ctx context.Context, scope nav.Scope, periodID uuid.UUID) (*nav.PeriodPreview, error)
	Reconcile(ctx context.Context, scope nav.Scope, periodID uuid.UUID) (nav.ReconciliationResult, error)
	GetCloseChecklist(ctx context.Context, scope nav.Scope, periodID uuid.UUID) (*nav.CloseChecklist, error)
	SubmitForReview(ctx context.Context, scope nav.Scope, periodID uuid.UUID) (*nav.AccountingPeriod, error)
	ReturnToDraft(ctx context.Context, scope nav.Scope, periodID uuid.UUID) (*nav.AccountingPeriod, error)
	ClosePeriod(ctx context.Context, scope nav.Scope, periodID uuid.UUID) (*nav.NavSnapshot, error)
	GetSnapshot(ctx context.Context, scope nav.Scope, periodID uuid.UUID) (*nav.NavSnapshot, error)
}

// PeriodHandler handles accounting period requests
type PeriodHandler struct {
	svc    PeriodService
	logger *logger.Logger
}

// NewPeriodHandler creates a new period handler
func NewPeriodHandler(svc PeriodService, log *logger.Logger) *PeriodHandler {
	return &PeriodHandler{
		svc:    svc,
		logger: log.WithField("component", "period_handler"),
	}
}

// OpeningRequest is one investor's explicit opening balance
type OpeningRequest struct {
	InvestorID     uuid.UUID       `json:"investor_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// OpenPeriodRequest represents the period creation request
type OpenPeriodRequest struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"`
	OpeningNAV *decimal.Decimal `json:"opening_nav,omitempty"`
	Openings   []OpeningRequest `json:"openings,omitempty"`
}

// PeriodsListResponse represents the response for listing periods
type PeriodsListResponse struct {
	Periods []PeriodResponse `json:"periods"`
}

// scopeOrReject reads the request scope; the router always installs the Scope middleware
func scopeOrReject(w http.ResponseWriter, r *http.Request) (nav.Scope, bool) {
	scope, ok := middleware.GetScope(r.Context())
	if !ok {
		respondAppError(w, apperrors.BadRequest("missing request scope"))
	}
	return scope, ok
}

// OpenPeriod handles POST /periods
func (h *PeriodHandler) OpenPeriod(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOrReject(w, r)
	if !ok {
		return
	}

	var req OpenPeriodRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondAppError(w, appErr)
		return
	}

	in := nav.OpenPeriodInput{Year: req.Year, Month: req.Month, OpeningNAV: req.OpeningNAV}
	for _, o := range req.Openings {
		in.Openings = append(in.Openings, nav.OpeningInput{InvestorID: o.InvestorID, OpeningBalance: o.OpeningBalance})
	}

	period, err := h.svc.OpenPeriod(r.Context(), scope, in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, toPeriodResponse(period), http.StatusCreated)
}

// ListPeriods handles GET /periods, optionally filtered by ?status=
func (h *PeriodHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOrReject(w, r)
	if !ok {
		return
	}

	var status nav.PeriodStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := nav.ParsePeriodStatus(raw)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		status = parsed
	}

	periods, err := h.svc.ListPeriods(r.Context(), scope)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := PeriodsListResponse{Periods: make([]PeriodResponse, 0, len(periods))}
	for _, p := range periods {
		if status != "" && p.Status != status {
			continue
		}
		resp.Periods = append(resp.Periods, toPeriodResponse(p))
	}

	respondJSON(w, resp, http.StatusOK)
}

// periodRequest resolves the scope and {id} shared by every per-period route
func (h *PeriodHandler) periodRequest(w http.ResponseWriter, r *http.Request) (nav.Scope, uuid.UUID, bool) {
	scope, ok := scopeOrReject(w, r)
	if !ok {
		return scope, uuid.Nil, false
	}
	id, appErr := pathUUID(r, "id")
	if appErr != nil {
		respondAppError(w, appErr)
		return scope, uuid.Nil, false
	}
	return scope, id, true
}

// GetPeriod handles GET /periods/{id}
func (h *PeriodHandler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.periodRequest(w, r)
	if !ok {
		return
	}

	period, err := h.svc.GetPeriod(r.Context(), scope, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, toPeriodResponse(period), http.StatusOK)
}

// Preview handles GET /periods/{id}/preview
func (h *PeriodHandler) Preview(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.periodRequest(w, r)
	if !ok {
		return
	}

	preview, err := h.svc.PreviewPeriod(r.Context(), scope, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, toPreviewResponse(preview), http.StatusOK)
}

// Reconcile handles GET /periods/{id}/reconciliation
func (h *PeriodHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.periodRequest(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Reconcile(r.Context(), scope, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, toReconciliationResponse(result), http.StatusOK)
}

// Checklist handles GET /periods/{id}/checklist
func (h *PeriodHandler) Checklist(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.periodRequest(w, r)
	if !ok {
		return
	}

	checklist, err := h.svc.GetCloseChecklist(r.Context(), scope, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, toChecklistResponse(checklist), http.StatusOK)
}

// SubmitForReview handles POST /periods/{id}/submit
func (h *PeriodHandler) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.SubmitForReview)
}

// ReturnToDraft handles POST /periods/{id}/return
func (h *PeriodHandler) ReturnToDraft(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.ReturnToDraft)
}

func (h *PeriodHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, nav.Scope, uuid.UUID) (*nav.AccountingPeriod, error),
) {
	scope, id, ok := h.periodRequest(w, r)
	if !ok {
		return
	}

	period, err := fn(r.Context(), scope, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, toPeriodResponse(period), http.StatusOK)
}

// Close handles POST /periods/{id}/close
func (h *PeriodHandler) Close(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.periodRequest(w, r)
	if !ok {
		return
	}

	snap, err := h.svc.ClosePeriod(r.Context(), scope, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, toSnapshotResponse(snap), http.StatusCreated)
}

// Snapshot handles GET /periods/{id}/snapshot
func (h *PeriodHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.periodRequest(w, r)
	if !ok {
		return
	}

	snap, err := h.svc.GetSnapshot(r.Context(), scope, id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, toSnapshotResponse(snap), http.StatusOK)
}
