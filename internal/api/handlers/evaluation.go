package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/pairlab/backend/internal/audit"
	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/pipeline"
	"github.com/wonny/pairlab/backend/internal/strategyconfig"
	"github.com/wonny/pairlab/backend/pkg/logger"
	"github.com/wonny/pairlab/backend/pkg/redis"
)

// Evaluator runs one pair evaluation over stored prices
type Evaluator interface {
	EvaluateRange(ctx context.Context, req pipeline.RangeRequest) (*contracts.Evaluation, error)
}

// EvaluationReader reads stored evaluations
type EvaluationReader interface {
	GetEvaluation(ctx context.Context, runID string) (*contracts.Evaluation, error)
	ListEvaluations(ctx context.Context, symbolA, symbolB string, limit int) ([]audit.EvaluationSummary, error)
}

// EvaluationHandler handles evaluation API endpoints
// ⭐ SSOT: 평가 API 핸들러는 이 구조체에서만
type EvaluationHandler struct {
	evaluator Evaluator
	store     EvaluationReader
	cache     *redis.Cache // nil disables caching
	cacheTTL  time.Duration
	defaults  contracts.Params
	lookback  int // days loaded when the request has no "from"
	logger    *logger.Logger
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(evaluator Evaluator, store EvaluationReader, cache *redis.Cache, cfg *strategyconfig.Config, log *logger.Logger) *EvaluationHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &EvaluationHandler{
		evaluator: evaluator,
		store:     store,
		cache:     cache,
		cacheTTL:  redis.TTLDaily,
		defaults:  cfg.Params,
		lookback:  cfg.Data.LookbackDays,
		logger:    log,
	}
}

// WithCacheTTL overrides the TTL of cached evaluations
func (h *EvaluationHandler) WithCacheTTL(ttl time.Duration) *EvaluationHandler {
	if ttl > 0 {
		h.cacheTTL = ttl
	}
	return h
}

// EvaluateRequest represents an evaluation request
// Params only overrides the fields it sets.
type EvaluateRequest struct {
	SymbolA string                        `json:"symbol_a"`
	SymbolB string                        `json:"symbol_b"`
	From    string                        `json:"from"` // Optional: YYYY-MM-DD
	To      string                        `json:"to"`   // Optional: YYYY-MM-DD
	Params  *strategyconfig.ParamOverride `json:"params,omitempty"`
}

// ListResponse represents the evaluation list response
type ListResponse struct {
	Pair        string                    `json:"pair"`
	Count       int                       `json:"count"`
	Evaluations []audit.EvaluationSummary `json:"evaluations"`
}

// Create evaluates a pair over stored prices and persists the result
// POST /api/evaluations
func (h *EvaluationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EvaluateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.SymbolA) == "" || strings.TrimSpace(req.SymbolB) == "" {
		respondError(w, http.StatusBadRequest, "symbol_a and symbol_b are required")
		return
	}

	to := time.Now().UTC()
	if req.To != "" {
		parsed, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
			return
		}
		to = parsed
	}

	from := to.AddDate(0, 0, -h.lookback)
	if req.From != "" {
		parsed, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
			return
		}
		from = parsed
	}
	if from.After(to) {
		respondError(w, http.StatusBadRequest, "'from' must not be after 'to'")
		return
	}

	pair := strategyconfig.Pair{SymbolA: req.SymbolA, SymbolB: req.SymbolB, Params: req.Params}
	eval, err := h.evaluator.EvaluateRange(ctx, pipeline.RangeRequest{
		SymbolA: req.SymbolA,
		SymbolB: req.SymbolB,
		From:    from,
		To:      to,
		Params:  pair.Resolve(h.defaults),
		Source:  "api",
	})
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"pair":  pair.Name(),
			"error": err.Error(),
		}).Warn("Evaluation failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	if err := h.cache.Set(ctx, redis.EvaluationKey(eval.RunID), eval, h.cacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache evaluation")
	}
	// default-limit lists would show the new run only after TTLShort
	for _, key := range []string{
		redis.PairListKey(eval.SymbolA, eval.SymbolB, audit.DefaultListLimit),
		redis.PairListKey("", "", audit.DefaultListLimit),
	} {
		if err := h.cache.Delete(ctx, key); err != nil {
			h.logger.WithError(err).Warn("Failed to invalidate evaluation list")
		}
	}

	respondJSON(w, http.StatusCreated, eval)
}

// Get returns one stored evaluation
// GET /api/evaluations/{id}
func (h *EvaluationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := mux.Vars(r)["id"]

	if _, err := uuid.Parse(runID); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid evaluation id")
		return
	}

	var cached contracts.Evaluation
	if hit, err := h.cache.Get(ctx, redis.EvaluationKey(runID), &cached); err != nil {
		h.logger.WithError(err).Warn("Cache read failed")
	} else if hit {
		respondJSON(w, http.StatusOK, &cached)
		return
	}

	eval, err := h.store.GetEvaluation(ctx, runID)
	if err != nil {
		if !errors.Is(err, audit.ErrNotFound) {
			h.logger.WithError(err).Error("Failed to get evaluation")
		}
		respondError(w, statusFor(err), err.Error())
		return
	}

	if err := h.cache.Set(ctx, redis.EvaluationKey(runID), eval, h.cacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache evaluation")
	}

	respondJSON(w, http.StatusOK, eval)
}

// List returns the latest evaluation summaries, optionally for one pair
// GET /api/evaluations?a=SPY&b=IVV&limit=20
func (h *EvaluationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbolA, symbolB, limit, ok := parseListQuery(w, r)
	if !ok {
		return
	}

	key := redis.PairListKey(symbolA, symbolB, limit)
	var cached ListResponse
	if hit, err := h.cache.Get(ctx, key, &cached); err != nil {
		h.logger.WithError(err).Warn("Cache read failed")
	} else if hit {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	summaries, err := h.store.ListEvaluations(ctx, symbolA, symbolB, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list evaluations")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve evaluations")
		return
	}

	resp := ListResponse{
		Pair:        pairName(symbolA, symbolB),
		Count:       len(summaries),
		Evaluations: summaries,
	}
	if err := h.cache.Set(ctx, key, resp, redis.TTLShort); err != nil {
		h.logger.WithError(err).Warn("Failed to cache evaluation list")
	}

	respondJSON(w, http.StatusOK, resp)
}

// Report summarizes the stored runs of one pair
// GET /api/evaluations/report?a=SPY&b=IVV&limit=50
func (h *EvaluationHandler) Report(w http.ResponseWriter, r *http.Request) {
	symbolA, symbolB, limit, ok := parseListQuery(w, r)
	if !ok {
		return
	}
	if symbolA == "" || symbolB == "" {
		respondError(w, http.StatusBadRequest, "query parameters 'a' and 'b' are required")
		return
	}

	summaries, err := h.store.ListEvaluations(r.Context(), symbolA, symbolB, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list evaluations")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve evaluations")
		return
	}

	respondJSON(w, http.StatusOK, audit.Summarize(pairName(symbolA, symbolB), summaries))
}

// parseListQuery reads a, b and limit; it writes the error response itself
func parseListQuery(w http.ResponseWriter, r *http.Request) (string, string, int, bool) {
	q := r.URL.Query()
	symbolA := strings.ToUpper(strings.TrimSpace(q.Get("a")))
	symbolB := strings.ToUpper(strings.TrimSpace(q.Get("b")))

	limit := audit.DefaultListLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be an integer in [1, 500]")
			return "", "", 0, false
		}
		limit = n
	}
	return symbolA, symbolB, limit, true
}

func pairName(symbolA, symbolB string) string {
	if symbolA == "" && symbolB == "" {
		return ""
	}
	return symbolA + "/" + symbolB
}

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, audit.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrState), errors.Is(err, contracts.ErrNumericalDegeneracy):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
