package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pairlab/backend/internal/api/handlers"
	"github.com/wonny/pairlab/backend/internal/audit"
	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/pipeline"
	"github.com/wonny/pairlab/backend/internal/s0_data/collector"
	"github.com/wonny/pairlab/backend/internal/strategyconfig"
)

type fakeEvaluator struct {
	got pipeline.RangeRequest
	err error
}

func (f *fakeEvaluator) EvaluateRange(_ context.Context, req pipeline.RangeRequest) (*contracts.Evaluation, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &contracts.Evaluation{
		RunID:   uuid.NewString(),
		SymbolA: strings.ToUpper(req.SymbolA),
		SymbolB: strings.ToUpper(req.SymbolB),
		Params:  req.Params,
	}, nil
}

type fakeStore struct {
	evals     map[string]*contracts.Evaluation
	summaries []audit.EvaluationSummary
	listArgs  []interface{}
}

func (f *fakeStore) GetEvaluation(_ context.Context, runID string) (*contracts.Evaluation, error) {
	if e, ok := f.evals[runID]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", audit.ErrNotFound, runID)
}

func (f *fakeStore) ListEvaluations(_ context.Context, a, b string, limit int) ([]audit.EvaluationSummary, error) {
	f.listArgs = []interface{}{a, b, limit}
	return f.summaries, nil
}

type fakeCoverage struct{}

func (fakeCoverage) Coverage(_ context.Context, symbol string) (int, time.Time, time.Time, error) {
	if symbol != "SPY" {
		return 0, time.Time{}, time.Time{}, nil
	}
	return 3, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), nil
}

type fakeCollector struct{}

func (fakeCollector) Collect(_ context.Context, symbols []string, _, _ time.Time, _ collector.Config) ([]collector.FetchResult, error) {
	results := make([]collector.FetchResult, len(symbols))
	for i, s := range symbols {
		results[i] = collector.FetchResult{Symbol: s, PriceCount: 10}
		if s == "BAD" {
			results[i] = collector.FetchResult{Symbol: s, Error: fmt.Errorf("feed returned 404")}
		}
	}
	return results, nil
}

func newTestRouter(ev *fakeEvaluator, store *fakeStore) http.Handler {
	cfg := strategyconfig.Default()
	eh := handlers.NewEvaluationHandler(ev, store, nil, cfg, nil)
	dh := handlers.NewDataHandler(fakeCoverage{}, fakeCollector{}, 2, nil)
	return NewRouter(eh, dh, nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(&fakeEvaluator{}, &fakeStore{}), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(&fakeEvaluator{}, &fakeStore{})
	do(t, h, "GET", "/health", "")

	rec := do(t, h, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pairlab_http_requests_total")
}

func TestCreateEvaluation(t *testing.T) {
	ev := &fakeEvaluator{}
	h := newTestRouter(ev, &fakeStore{})

	rec := do(t, h, "POST", "/api/evaluations",
		`{"symbol_a":"spy","symbol_b":"ivv","from":"2023-01-02","to":"2024-01-02","params":{"window":30}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var eval contracts.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eval))
	assert.Equal(t, "SPY/IVV", eval.Pair())

	assert.Equal(t, 30, ev.got.Params.Window)
	assert.Equal(t, contracts.DefaultParams().EntryThreshold, ev.got.Params.EntryThreshold)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), ev.got.From)
	assert.Equal(t, "api", ev.got.Source)
}

func TestCreateEvaluation_DefaultRange(t *testing.T) {
	ev := &fakeEvaluator{}
	h := newTestRouter(ev, &fakeStore{})

	rec := do(t, h, "POST", "/api/evaluations", `{"symbol_a":"SPY","symbol_b":"IVV","to":"2024-01-02"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -strategyconfig.Default().Data.LookbackDays), ev.got.From)
}

func TestCreateEvaluation_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"unknown field", `{"symbol_a":"SPY","symbol_b":"IVV","colour":1}`, nil, http.StatusBadRequest},
		{"missing symbol", `{"symbol_a":"SPY"}`, nil, http.StatusBadRequest},
		{"bad date", `{"symbol_a":"SPY","symbol_b":"IVV","from":"01/02/2023"}`, nil, http.StatusBadRequest},
		{"inverted range", `{"symbol_a":"SPY","symbol_b":"IVV","from":"2024-02-01","to":"2024-01-01"}`, nil, http.StatusBadRequest},
		{"input error", `{"symbol_a":"SPY","symbol_b":"IVV"}`,
			fmt.Errorf("S0 failed: %w", contracts.NewInputError(contracts.StagePrices, "symbol", "unknown")), http.StatusBadRequest},
		{"state error", `{"symbol_a":"SPY","symbol_b":"IVV"}`,
			&contracts.StateError{Stage: contracts.StagePrices, Message: "no price source configured"}, http.StatusUnprocessableEntity},
		{"degenerate", `{"symbol_a":"SPY","symbol_b":"IVV"}`,
			fmt.Errorf("S5 failed: %w", contracts.ErrNumericalDegeneracy), http.StatusUnprocessableEntity},
		{"internal", `{"symbol_a":"SPY","symbol_b":"IVV"}`, fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&fakeEvaluator{err: tt.err}, &fakeStore{})
			rec := do(t, h, "POST", "/api/evaluations", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestGetEvaluation(t *testing.T) {
	id := uuid.NewString()
	store := &fakeStore{evals: map[string]*contracts.Evaluation{id: {RunID: id, SymbolA: "GLD", SymbolB: "GDX"}}}
	h := newTestRouter(&fakeEvaluator{}, store)

	rec := do(t, h, "GET", "/api/evaluations/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/evaluations/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/evaluations/not-a-uuid", "").Code)
}

func TestListAndReport(t *testing.T) {
	store := &fakeStore{summaries: []audit.EvaluationSummary{
		{RunID: "r2", SymbolA: "SPY", SymbolB: "IVV", IsCointegrated: true, SharpeRatio: 1.1},
		{RunID: "r1", SymbolA: "SPY", SymbolB: "IVV", IsCointegrated: false, SharpeRatio: 0.1},
	}}
	h := newTestRouter(&fakeEvaluator{}, store)

	rec := do(t, h, "GET", "/api/evaluations?a=spy&b=ivv&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list handlers.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "SPY/IVV", list.Pair)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, []interface{}{"SPY", "IVV", 5}, store.listArgs)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/evaluations?limit=0", "").Code)

	rec = do(t, h, "GET", "/api/evaluations/report?a=SPY&b=IVV", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report audit.PairReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Runs)
	assert.Equal(t, 0.5, report.CointegratedRate)
	assert.Equal(t, "r2", report.Best.RunID)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/evaluations/report?a=SPY", "").Code)
}

func TestDataEndpoints(t *testing.T) {
	h := newTestRouter(&fakeEvaluator{}, &fakeStore{})

	rec := do(t, h, "GET", "/api/prices/spy/coverage", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"symbol":"SPY","rows":3,"first":"2024-01-02","last":"2024-01-04"}`, rec.Body.String())

	rec = do(t, h, "POST", "/api/data/collect", `{"symbols":["SPY","BAD"],"from":"2024-01-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"partial"`)
	assert.Contains(t, rec.Body.String(), `"error":"feed returned 404"`)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/data/collect", `{"symbols":[]}`).Code)
}
