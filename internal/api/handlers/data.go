package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/pairlab/backend/internal/s0_data/collector"
	"github.com/wonny/pairlab/backend/pkg/logger"
)

// CoverageReader reports how many closes are stored for a symbol
type CoverageReader interface {
	Coverage(ctx context.Context, symbol string) (int, time.Time, time.Time, error)
}

// PriceCollector downloads and stores closes for many symbols
type PriceCollector interface {
	Collect(ctx context.Context, symbols []string, from, to time.Time, cfg collector.Config) ([]collector.FetchResult, error)
}

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	prices    CoverageReader
	collector PriceCollector // nil when no feed is configured
	workers   int
	logger    *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(prices CoverageReader, col PriceCollector, workers int, log *logger.Logger) *DataHandler {
	if log == nil {
		log = logger.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &DataHandler{
		prices:    prices,
		collector: col,
		workers:   workers,
		logger:    log,
	}
}

// CoverageResponse represents the stored history of one symbol
type CoverageResponse struct {
	Symbol string `json:"symbol"`
	Rows   int    `json:"rows"`
	First  string `json:"first,omitempty"`
	Last   string `json:"last,omitempty"`
}

// GetCoverage returns the stored date range of a symbol
// GET /api/prices/{symbol}/coverage
func (h *DataHandler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	n, first, last, err := h.prices.Coverage(r.Context(), symbol)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get coverage")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve coverage")
		return
	}

	resp := CoverageResponse{Symbol: symbol, Rows: n}
	if n > 0 {
		resp.First = first.Format("2006-01-02")
		resp.Last = last.Format("2006-01-02")
	}
	respondJSON(w, http.StatusOK, resp)
}

// CollectRequest represents a data collection request
type CollectRequest struct {
	Symbols []string `json:"symbols"`
	From    string   `json:"from"` // Optional: date range start (YYYY-MM-DD)
	To      string   `json:"to"`   // Optional: date range end (YYYY-MM-DD)
}

// CollectResponse represents a data collection response
type CollectResponse struct {
	Status  string                  `json:"status"`
	Message string                  `json:"message"`
	Results []collector.FetchResult `json:"results,omitempty"`
}

// Collect downloads closes from the feed into the price store
// POST /api/data/collect
func (h *DataHandler) Collect(w http.ResponseWriter, r *http.Request) {
	if h.collector == nil {
		respondError(w, http.StatusServiceUnavailable, "Price feed is not configured")
		return
	}

	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Symbols) == 0 {
		respondError(w, http.StatusBadRequest, "symbols are required")
		return
	}

	var from, to time.Time
	var err error

	if req.To != "" {
		to, err = time.Parse("2006-01-02", req.To)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
			return
		}
	} else {
		to = time.Now().UTC()
	}

	if req.From != "" {
		from, err = time.Parse("2006-01-02", req.From)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
			return
		}
	} else {
		// Default: last 30 days
		from = to.AddDate(0, 0, -30)
	}

	h.logger.WithFields(map[string]interface{}{
		"symbols": len(req.Symbols),
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
	}).Info("Data collection triggered")

	results, err := h.collector.Collect(r.Context(), req.Symbols, from, to, collector.Config{Workers: h.workers})
	if err != nil {
		h.logger.WithError(err).Error("Failed to collect prices")
		respondError(w, statusFor(err), "Failed to collect prices")
		return
	}

	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
		}
	}

	status, message := "success", "Price data collected"
	if failed > 0 {
		status, message = "partial", "Some symbols failed"
	}
	respondJSON(w, http.StatusOK, CollectResponse{Status: status, Message: message, Results: results})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
