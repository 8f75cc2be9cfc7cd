package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

// ErrNotFound is returned when no evaluation has the requested run id
var ErrNotFound = errors.New("evaluation not found")

// DefaultListLimit caps ListEvaluations when the caller passes limit <= 0
const DefaultListLimit = 20

// EvaluationSummary is the indexed part of a stored evaluation
type EvaluationSummary struct {
	RunID          string    `json:"run_id"`
	SymbolA        string    `json:"symbol_a"`
	SymbolB        string    `json:"symbol_b"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	ConfigHash     string    `json:"config_hash"`
	IsCointegrated bool      `json:"is_cointegrated"`
	PValue         float64   `json:"p_value"`
	HedgeRatio     float64   `json:"hedge_ratio"`
	TotalReturn    float64   `json:"total_return"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	TotalTrades    int       `json:"total_trades"`
	CreatedAt      time.Time `json:"created_at"`
}

// Repository handles evaluation persistence
// ⭐ SSOT: 평가 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveEvaluation stores the full evaluation as JSONB next to its indexed summary
func (r *Repository) SaveEvaluation(ctx context.Context, e *contracts.Evaluation) error {
	if e.Cointegration == nil || e.Spread == nil || e.Metrics == nil {
		return &contracts.StateError{Stage: contracts.StagePerformance, Message: "evaluation is incomplete"}
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}

	query := `
		INSERT INTO audit.pair_evaluations (
			run_id, symbol_a, symbol_b, start_date, end_date, config_hash,
			is_cointegrated, p_value, hedge_ratio,
			total_return, sharpe_ratio, max_drawdown, total_trades,
			payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (run_id) DO UPDATE SET
			payload = EXCLUDED.payload
	`

	_, err = r.pool.Exec(ctx, query,
		e.RunID, e.SymbolA, e.SymbolB, e.StartDate, e.EndDate, e.ConfigHash,
		e.Cointegration.IsCointegrated, e.Cointegration.PValue, e.Spread.HedgeRatio,
		e.Metrics.TotalReturn, e.Metrics.SharpeRatio, e.Metrics.MaxDrawdown, e.Metrics.TotalTrades,
		payload, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}

	return nil
}

// GetEvaluation retrieves one evaluation by run id
func (r *Repository) GetEvaluation(ctx context.Context, runID string) (*contracts.Evaluation, error) {
	query := `SELECT payload FROM audit.pair_evaluations WHERE run_id = $1`

	var payload []byte
	err := r.pool.QueryRow(ctx, query, runID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	var e contracts.Evaluation
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
	}
	return &e, nil
}

// ListEvaluations returns the newest summaries first.
// Empty symbols list every pair.
func (r *Repository) ListEvaluations(ctx context.Context, symbolA, symbolB string, limit int) ([]EvaluationSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT run_id::text, symbol_a, symbol_b, start_date, end_date, config_hash,
		       is_cointegrated, p_value, hedge_ratio,
		       total_return, sharpe_ratio, max_drawdown, total_trades, created_at
		FROM audit.pair_evaluations
		WHERE ($1 = '' OR symbol_a = $1)
		  AND ($2 = '' OR symbol_b = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, strings.ToUpper(symbolA), strings.ToUpper(symbolB), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	summaries := make([]EvaluationSummary, 0)
	for rows.Next() {
		var s EvaluationSummary
		if err := rows.Scan(
			&s.RunID, &s.SymbolA, &s.SymbolB, &s.StartDate, &s.EndDate, &s.ConfigHash,
			&s.IsCointegrated, &s.PValue, &s.HedgeRatio,
			&s.TotalReturn, &s.SharpeRatio, &s.MaxDrawdown, &s.TotalTrades, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}
