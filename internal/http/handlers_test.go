package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coloc/internal/core"
	"coloc/internal/services"
	"coloc/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.NewWithDemoData()
	gate := services.NewReopenGate("sésame", "")
	srv := NewServer(":0", services.NewMonthService(store, nil, gate), services.NewMemberService(store), nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(w, req)
	return w
}

func TestListMonths(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/months", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var months []core.Month
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &months))
	require.Len(t, months, 1)
	assert.Equal(t, "Mars-2025", months[0].Key())
}

func TestGetMonthNotFound(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/months/Juin-2025", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateMonth(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/months", map[string]any{"month": "Avril", "year": 2025})
	require.Equal(t, http.StatusCreated, w.Code)

	// Duplicate creation conflicts.
	w = doJSON(t, srv, http.MethodPost, "/api/months", map[string]any{"month": "Avril", "year": 2025})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unknown month name is a bad request.
	w = doJSON(t, srv, http.MethodPost, "/api/months", map[string]any{"month": "Smarch", "year": 2025})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonthSummary(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/months/Mars-2025/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary core.MonthSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, int64(60000), summary.TotalContributions.Cents)
	assert.Equal(t, int64(25130), summary.TotalExpenses.Cents)
	assert.Equal(t, int64(34870), summary.GlobalBalance.Cents)
	assert.Len(t, summary.Balances, 3)
}

func TestAddTransaction(t *testing.T) {
	srv := newTestServer(t)

	tx := map[string]any{
		"type":         "depense",
		"member":       "Alice",
		"date":         "2025-03-20",
		"description":  "Boulangerie",
		"amount_cents": 1250,
	}
	w := doJSON(t, srv, http.MethodPost, "/api/months/Mars-2025/transactions", tx)
	require.Equal(t, http.StatusCreated, w.Code)

	var created core.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1250), created.Amount.Cents)

	// Invalid amount rejected.
	tx["amount_cents"] = 0
	w = doJSON(t, srv, http.MethodPost, "/api/months/Mars-2025/transactions", tx)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func closeDemoMonth(t *testing.T, srv *Server) {
	t.Helper()
	lines := []map[string]any{
		{"member": "Alice", "amount_cents": 8550},
		{"member": "Bob", "amount_cents": 12000},
		{"member": "Charlie", "amount_cents": 4580},
	}
	body := map[string]any{
		"lines": lines,
		"allocation": map[string]any{
			"savings_cents": 34870,
		},
	}
	w := doJSON(t, srv, http.MethodPost, "/api/months/Mars-2025/closure/confirm", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestClosureFlow(t *testing.T) {
	srv := newTestServer(t)

	// Prepare with a valid first pass yields a draft with a suggestion.
	prepare := map[string]any{"lines": []map[string]any{
		{"member": "Alice", "amount_cents": 8550},
		{"member": "Bob", "amount_cents": 12000},
		{"member": "Charlie", "amount_cents": 4580},
	}}
	w := doJSON(t, srv, http.MethodPost, "/api/months/Mars-2025/closure/prepare", prepare)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var draft services.ClosureDraft
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &draft))
	assert.Equal(t, int64(34870), draft.Summary.GlobalBalance.Cents)
	assert.Equal(t, int64(34870), draft.Suggestion.Total().Cents)

	// Short first pass reports the signed gap.
	short := map[string]any{"lines": []map[string]any{
		{"member": "Alice", "amount_cents": 8550},
	}}
	w = doJSON(t, srv, http.MethodPost, "/api/months/Mars-2025/closure/prepare", short)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var errResp struct {
		GapCents *int64 `json:"gap_cents"`
		Phase    string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	require.NotNil(t, errResp.GapCents)
	assert.Equal(t, int64(-16580), *errResp.GapCents)
	assert.Equal(t, "reimbursement", errResp.Phase)

	closeDemoMonth(t, srv)

	// The closed month refuses further writes.
	tx := map[string]any{
		"type": "depense", "member": "Alice", "date": "2025-03-25",
		"description": "Trop tard", "amount_cents": 100,
	}
	w = doJSON(t, srv, http.MethodPost, "/api/months/Mars-2025/transactions", tx)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReopenEndpoint(t *testing.T) {
	srv := newTestServer(t)
	closeDemoMonth(t, srv)

	w := doJSON(t, srv, http.MethodPost, "/api/months/Mars-2025/reopen", map[string]any{"passphrase": "faux"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/months/Mars-2025/reopen", map[string]any{"passphrase": "sésame"})
	require.Equal(t, http.StatusOK, w.Code)

	var month core.Month
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &month))
	assert.False(t, month.Closed)
	assert.Empty(t, month.Settlements)
}

func TestCreditsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	closeDemoMonth(t, srv)

	w := doJSON(t, srv, http.MethodGet, "/api/credits", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var credits []core.MemberCredit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &credits))
	require.Len(t, credits, 3)

	// Excluding the only closed month leaves nothing.
	w = doJSON(t, srv, http.MethodGet, "/api/credits?exclude=Mars-2025", nil)
	require.Equal(t, http.StatusOK, w.Code)
	credits = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &credits))
	assert.Empty(t, credits)
}

func TestMembersEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members []core.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	require.Len(t, members, 3)

	w = doJSON(t, srv, http.MethodPost, "/api/members", map[string]any{"name": "Dana"})
	require.Equal(t, http.StatusCreated, w.Code)
	var dana core.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dana))
	assert.NotEmpty(t, dana.ID)

	w = doJSON(t, srv, http.MethodPost, "/api/members", map[string]any{"name": "Dana"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/members/"+dana.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var settings core.ReimbursementSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, core.RuleEqual, settings.Rule)

	w = doJSON(t, srv, http.MethodPut, "/api/settings", map[string]any{
		"rule":                 "prioritized",
		"initial_budget_cents": 50000,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPut, "/api/settings", map[string]any{"rule": "bogus", "initial_budget_cents": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportWithoutExporter(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/months/Mars-2025/export", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
