package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	apperrors "github.com/Isaac25-lgtm/navcore-platform/internal/shared/errors"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

// maxImportRows bounds a single import request
const maxImportRows = 5000

// LedgerService defines the ledger entry operations
type LedgerService interface {
	PostEntry(ctx context.Context, scope nav.Scope, periodID uuid.UUID, in nav.EntryInput) (*nav.LedgerEntry, error)
	UpdateEntry(ctx context.Context, scope nav.Scope, entryID uuid.UUID, in nav.EntryInput) (*nav.LedgerEntry, error)
	DeleteEntry(ctx context.Context, scope nav.Scope, entryID uuid.UUID) error
	ListEntries(ctx context.Context, scope nav.Scope, periodID uuid.UUID) ([]*nav.LedgerEntry, error)
	ImportEntries(ctx context.Context, scope nav.Scope, periodID uuid.UUID, inputs []nav.EntryInput, dryRun bool) (*nav.ImportResult, error)
}

// EntryHandler handles ledger entry requests
type EntryHandler struct {
	svc    LedgerService
	logger *logger.Logger
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(svc LedgerService, log *logger.Logger) *EntryHandler {
	return &EntryHandler{
		svc:    svc,
		logger: log.WithField("component", "entry_handler"),
	}
}

// EntryRequest represents a ledger entry to post, update or import
type EntryRequest struct {
	EntryType   string          `json:"entry_type"`
	Amount      decimal.Decimal `json:"amount"`
	InvestorID  *uuid.UUID      `json:"investor_id,omitempty"`
	TxDate      *time.Time      `json:"tx_date,omitempty"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Reference   string          `json:"reference,omitempty"`
}

func (req EntryRequest) toInput() (nav.EntryInput, error) {
	entryType, err := nav.ParseEntryType(req.EntryType)
	if err != nil {
		return nav.EntryInput{}, err
	}
	in := nav.EntryInput{
		EntryType:   entryType,
		Amount:      req.Amount,
		InvestorID:  req.InvestorID,
		Category:    req.Category,
		Description: req.Description,
		Reference:   req.Reference,
	}
	if req.TxDate != nil {
		in.TxDate = *req.TxDate
	}
	return in, nil
}

// ImportRequest represents a bulk entry import
type ImportRequest struct {
	Entries []EntryRequest `json:"entries"`
}

// EntriesListResponse represents the response for listing entries
type EntriesListResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// ImportResponse reports an import or its dry run
type ImportResponse struct {
	DryRun   bool             `json:"dry_run"`
	Accepted int              `json:"accepted"`
	Entries  []EntryResponse  `json:"entries"`
	Preview  *PreviewResponse `json:"preview,omitempty"`
}

// PostEntry handles POST /periods/{id}/entries
func (h *EntryHandler) PostEntry(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOrReject(w, r)
	if !ok {
		return
	}
	periodID, appErr := pathUUID(r, "id")
	if appErr != nil {
		respondAppError(w, appErr)
		return
	}

	var req EntryRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondAppError(w, appErr)
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	entry, err := h.svc.PostEntry(r.Context(), scope, periodID, in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, toEntryResponse(entry), http.StatusCreated)
}

// ListEntries handles GET /periods/{id}/entries
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOrReject(w, r)
	if !ok {
		return
	}
	periodID, appErr := pathUUID(r, "id")
	if appErr != nil {
		respondAppError(w, appErr)
		return
	}

	entries, err := h.svc.ListEntries(r.Context(), scope, periodID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, EntriesListResponse{Entries: toEntryResponses(entries)}, http.StatusOK)
}

// ImportEntries handles POST /periods/{id}/entries/import?dry_run=true
func (h *EntryHandler) ImportEntries(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOrReject(w, r)
	if !ok {
		return
	}
	periodID, appErr := pathUUID(r, "id")
	if appErr != nil {
		respondAppError(w, appErr)
		return
	}

	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondAppError(w, apperrors.BadRequest("invalid dry_run"))
			return
		}
		dryRun = parsed
	}

	var req ImportRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondAppError(w, appErr)
		return
	}
	if len(req.Entries) == 0 {
		respondAppError(w, apperrors.Validation("entries must not be empty").WithDetail("field", "entries"))
		return
	}
	if len(req.Entries) > maxImportRows {
		respondAppError(w, apperrors.Validation("too many entries in one import").WithDetail("field", "entries"))
		return
	}

	inputs := make([]nav.EntryInput, 0, len(req.Entries))
	for i, e := range req.Entries {
		in, err := e.toInput()
		if err != nil {
			respondError(w, r, h.logger, &nav.ValidationError{
				Field:   fmt.Sprintf("rows[%d].entry_type", i),
				Message: "unknown entry type " + e.EntryType,
			})
			return
		}
		inputs = append(inputs, in)
	}

	result, err := h.svc.ImportEntries(r.Context(), scope, periodID, inputs, dryRun)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	status := http.StatusCreated
	if result.DryRun {
		status = http.StatusOK
	}
	resp := ImportResponse{
		DryRun:   result.DryRun,
		Accepted: len(result.Entries),
		Entries:  toEntryResponses(result.Entries),
	}
	if result.Preview != nil {
		preview := toPreviewResponse(result.Preview)
		resp.Preview = &preview
	}
	respondJSON(w, resp, status)
}

// UpdateEntry handles PUT /entries/{id}
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOrReject(w, r)
	if !ok {
		return
	}
	entryID, appErr := pathUUID(r, "id")
	if appErr != nil {
		respondAppError(w, appErr)
		return
	}

	var req EntryRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		respondAppError(w, appErr)
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	entry, err := h.svc.UpdateEntry(r.Context(), scope, entryID, in)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, toEntryResponse(entry), http.StatusOK)
}

// DeleteEntry handles DELETE /entries/{id}
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOrReject(w, r)
	if !ok {
		return
	}
	entryID, appErr := pathUUID(r, "id")
	if appErr != nil {
		respondAppError(w, appErr)
		return
	}

	if err := h.svc.DeleteEntry(r.Context(), scope, entryID); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
