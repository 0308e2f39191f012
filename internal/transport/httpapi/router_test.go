package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Isaac25-lgtm/navcore-platform/internal/infra/memory"
	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	"github.com/Isaac25-lgtm/navcore-platform/internal/transport/httpapi/handler"
	"github.com/Isaac25-lgtm/navcore-platform/internal/transport/httpapi/middleware"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

type apiFixture struct {
	t      *testing.T
	router http.Handler
	store  *memory.Store
	scope  nav.Scope
}

func newAPIFixture(t *testing.T, deps map[string]handler.Pinger) *apiFixture {
	t.Helper()
	log := logger.Discard()
	store := memory.NewStore()
	svc := nav.NewService(store, log)

	return &apiFixture{
		t: t,
		router: NewRouter(Config{
			Logger:         log,
			AllowedOrigins: []string{"http://localhost:3000"},
			PeriodHandler:  handler.NewPeriodHandler(svc, log),
			EntryHandler:   handler.NewEntryHandler(svc, log),
			HealthHandler:  handler.NewHealthHandler("test", deps),
		}),
		store: store,
		scope: nav.Scope{TenantID: uuid.New(), ClubID: uuid.New(), ActorID: uuid.New()},
	}
}

func (f *apiFixture) investor(name string) uuid.UUID {
	id := uuid.New()
	require.NoError(f.t, f.store.CreateInvestor(context.Background(), &nav.Investor{ID: id, ClubID: f.scope.ClubID, Name: name, Active: true}))
	return id
}

func (f *apiFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderTenantID, f.scope.TenantID.String())
	req.Header.Set(middleware.HeaderClubID, f.scope.ClubID.String())
	req.Header.Set(middleware.HeaderActorID, f.scope.ActorID.String())

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAPI_PeriodLifecycle(t *testing.T) {
	f := newAPIFixture(t, nil)
	a := f.investor("A")
	b := f.investor("B")

	rec := f.do(http.MethodPost, "/api/v1/periods", map[string]any{
		"year":  2025,
		"month": 1,
		"openings": []map[string]any{
			{"investor_id": a, "opening_balance": "600"},
			{"investor_id": b, "opening_balance": 400},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	period := decode[handler.PeriodResponse](t, rec)
	assert.Equal(t, "draft", period.Status)
	assert.Equal(t, "1000.00", period.OpeningNAV)
	assert.Equal(t, "2025-01", period.Label)

	base := "/api/v1/periods/" + period.ID
	rec = f.do(http.MethodPost, base+"/entries", map[string]any{"entry_type": "income", "amount": "100"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(http.MethodPost, base+"/entries", map[string]any{"entry_type": "expense", "amount": 20})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, base+"/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode[handler.PreviewResponse](t, rec)
	assert.Equal(t, "1080.00", preview.ClosingNAV)
	assert.Equal(t, "1080.00", preview.InvestorTotal)
	assert.True(t, preview.Reconciliation.Reconciled)
	assert.Equal(t, "Reconciled", preview.Reconciliation.Stamp)
	require.Len(t, preview.Positions, 2)
	assert.Equal(t, "80.00", preview.Totals.NetResult)

	rec = f.do(http.MethodGet, base+"/checklist", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	checklist := decode[handler.ChecklistResponse](t, rec)
	assert.False(t, checklist.CanClose)
	assert.Equal(t, []string{"submitted_for_review"}, checklist.Failed)

	rec = f.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "review", decode[handler.PeriodResponse](t, rec).Status)

	rec = f.do(http.MethodPost, base+"/close", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := decode[handler.SnapshotResponse](t, rec)
	assert.Equal(t, "1080.00", snap.ClosingNAV)
	require.Len(t, snap.InvestorBalances, 2)

	rec = f.do(http.MethodGet, base+"/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, snap.ID, decode[handler.SnapshotResponse](t, rec).ID)

	rec = f.do(http.MethodPost, base+"/close", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "STATE_ERROR", decode[handler.ErrorResponse](t, rec).Code)

	rec = f.do(http.MethodPost, base+"/entries", map[string]any{"entry_type": "income", "amount": "1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/periods?status=closed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[handler.PeriodsListResponse](t, rec).Periods, 1)

	rec = f.do(http.MethodGet, "/api/v1/periods?status=draft", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[handler.PeriodsListResponse](t, rec).Periods)
}

func TestAPI_CloseBlockedByMismatch(t *testing.T) {
	f := newAPIFixture(t, nil)
	a := f.investor("A")

	rec := f.do(http.MethodPost, "/api/v1/periods", map[string]any{
		"year":     2025,
		"month":    2,
		"openings": []map[string]any{{"investor_id": a, "opening_balance": "100"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	period := decode[handler.PeriodResponse](t, rec)
	base := "/api/v1/periods/" + period.ID

	rec = f.do(http.MethodPost, base+"/entries", map[string]any{"entry_type": "income", "amount": "10"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// A contribution without an investor moves only the club NAV.
	require.NoError(t, f.store.CreateEntry(context.Background(), &nav.LedgerEntry{
		ID:        uuid.New(),
		TenantID:  f.scope.TenantID,
		ClubID:    f.scope.ClubID,
		PeriodID:  uuid.MustParse(period.ID),
		EntryType: nav.EntryContribution,
		Amount:    decimal.RequireFromString("5"),
	}))
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, base+"/submit", nil).Code)

	rec = f.do(http.MethodPost, base+"/close", nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	errResp := decode[handler.ErrorResponse](t, rec)
	assert.Equal(t, "RECONCILIATION_MISMATCH", errResp.Code)
	assert.Equal(t, "Mismatch UGX +5.00", errResp.Details["stamp"])
	assert.Equal(t, "5.00", errResp.Details["mismatch"])
	assert.NotEmpty(t, errResp.Details["reasons"])

	rec = f.do(http.MethodGet, base+"/reconciliation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[handler.ReconciliationResponse](t, rec).Reconciled)

	rec = f.do(http.MethodGet, base+"/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ErrorMapping(t *testing.T) {
	f := newAPIFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/v1/periods", map[string]any{"year": 2025, "month": 13, "opening_nav": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode[handler.ErrorResponse](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", errResp.Code)
	assert.Equal(t, "month", errResp.Field)

	rec = f.do(http.MethodGet, "/api/v1/periods/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/periods/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/periods", map[string]any{"year": 2025, "month": 1, "surprise": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decode[handler.ErrorResponse](t, rec).Code)

	rec = f.do(http.MethodGet, "/api/v1/periods?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_MissingScopeHeaders(t *testing.T) {
	f := newAPIFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/periods", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), middleware.HeaderTenantID)
}

func TestAPI_EntryEditAndImport(t *testing.T) {
	f := newAPIFixture(t, nil)
	a := f.investor("A")

	rec := f.do(http.MethodPost, "/api/v1/periods", map[string]any{
		"year":     2025,
		"month":    3,
		"openings": []map[string]any{{"investor_id": a, "opening_balance": "1000"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	base := "/api/v1/periods/" + decode[handler.PeriodResponse](t, rec).ID

	rows := map[string]any{"entries": []map[string]any{
		{"entry_type": "income", "amount": "50"},
		{"entry_type": "contribution", "amount": "200", "investor_id": a},
	}}

	rec = f.do(http.MethodPost, base+"/entries/import?dry_run=true", rows)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dry := decode[handler.ImportResponse](t, rec)
	assert.True(t, dry.DryRun)
	require.NotNil(t, dry.Preview)
	assert.Equal(t, "1250.00", dry.Preview.ClosingNAV)

	rec = f.do(http.MethodGet, base+"/entries", nil)
	assert.Empty(t, decode[handler.EntriesListResponse](t, rec).Entries)

	rec = f.do(http.MethodPost, base+"/entries/import", rows)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	imported := decode[handler.ImportResponse](t, rec)
	assert.Equal(t, 2, imported.Accepted)

	bad := map[string]any{"entries": []map[string]any{
		{"entry_type": "income", "amount": "5"},
		{"entry_type": "dividend", "amount": "5"},
	}}
	rec = f.do(http.MethodPost, base+"/entries/import", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rows[1].entry_type", decode[handler.ErrorResponse](t, rec).Field)

	entryID := imported.Entries[0].ID
	rec = f.do(http.MethodPut, "/api/v1/entries/"+entryID, map[string]any{"entry_type": "income", "amount": "75.555"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "75.56", decode[handler.EntryResponse](t, rec).Amount)

	rec = f.do(http.MethodDelete, "/api/v1/entries/"+entryID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, base+"/entries", nil)
	assert.Len(t, decode[handler.EntriesListResponse](t, rec).Entries, 1)

	rec = f.do(http.MethodPost, base+"/entries", map[string]any{"entry_type": "withdrawal", "amount": "5000", "investor_id": a})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "amount", decode[handler.ErrorResponse](t, rec).Field)
}

func TestAPI_Health(t *testing.T) {
	down := errors.New("connection refused")
	f := newAPIFixture(t, map[string]handler.Pinger{
		"database": handler.PingFunc(func(context.Context) error { return nil }),
		"redis":    handler.PingFunc(func(context.Context) error { return down }),
	})

	rec := f.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	health := decode[handler.HealthResponse](t, rec)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "healthy", health.Checks["database"])
	assert.Contains(t, health.Checks["redis"], "connection refused")
}
