package s0_data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

// PriceRepository stores daily closes in data.daily_prices
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// Fetch implements PriceSource
func (r *PriceRepository) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	query := `
		SELECT symbol, trade_date, close_price
		FROM data.daily_prices
		WHERE symbol = $1
		  AND ($2::date IS NULL OR trade_date >= $2)
		  AND ($3::date IS NULL OR trade_date <= $3)
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, strings.ToUpper(symbol), nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var bars []contracts.PriceBar
	for rows.Next() {
		var bar contracts.PriceBar
		if err := rows.Scan(&bar.Symbol, &bar.Date, &bar.Close); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prices: %w", err)
	}

	if len(bars) == 0 {
		return nil, contracts.NewInputError(contracts.StagePrices, "symbol", "no stored prices for %s", symbol)
	}
	return bars, nil
}

// SaveBatch upserts price rows in one round trip
func (r *PriceRepository) SaveBatch(ctx context.Context, source string, bars []contracts.PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO data.daily_prices (symbol, trade_date, close_price, source, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			close_price = EXCLUDED.close_price,
			source = EXCLUDED.source,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, bar := range bars {
		batch.Queue(query, strings.ToUpper(bar.Symbol), normalizeDate(bar.Date), bar.Close, source)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range bars {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("upsert %s %s: %w", bars[i].Symbol, bars[i].Date.Format("2006-01-02"), err)
		}
	}
	return len(bars), nil
}

// Coverage returns the number of stored rows and the date range of a symbol
func (r *PriceRepository) Coverage(ctx context.Context, symbol string) (int, time.Time, time.Time, error) {
	query := `
		SELECT COUNT(*), COALESCE(MIN(trade_date), '0001-01-01'), COALESCE(MAX(trade_date), '0001-01-01')
		FROM data.daily_prices
		WHERE symbol = $1
	`

	var n int
	var first, last time.Time
	if err := r.pool.QueryRow(ctx, query, strings.ToUpper(symbol)).Scan(&n, &first, &last); err != nil {
		return 0, time.Time{}, time.Time{}, fmt.Errorf("query coverage: %w", err)
	}
	return n, first, last, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := normalizeDate(t)
	return &d
}
