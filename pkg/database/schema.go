package database

import (
	"context"
	"fmt"
)

// Tables lists the tables EnsureSchema creates
var Tables = []string{"data.daily_prices", "audit.pair_evaluations"}

// schemaStatements creates the tables used by price ingestion and the evaluation store.
// Every statement is idempotent.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS data`,
	`CREATE SCHEMA IF NOT EXISTS audit`,
	`CREATE TABLE IF NOT EXISTS data.daily_prices (
		symbol      TEXT             NOT NULL,
		trade_date  DATE             NOT NULL,
		close_price DOUBLE PRECISION NOT NULL CHECK (close_price > 0),
		source      TEXT             NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS audit.pair_evaluations (
		run_id          UUID             PRIMARY KEY,
		symbol_a        TEXT             NOT NULL,
		symbol_b        TEXT             NOT NULL,
		start_date      DATE             NOT NULL,
		end_date        DATE             NOT NULL,
		config_hash     TEXT             NOT NULL DEFAULT '',
		is_cointegrated BOOLEAN          NOT NULL,
		p_value         DOUBLE PRECISION NOT NULL,
		hedge_ratio     DOUBLE PRECISION NOT NULL,
		total_return    DOUBLE PRECISION NOT NULL,
		sharpe_ratio    DOUBLE PRECISION NOT NULL,
		max_drawdown    DOUBLE PRECISION NOT NULL,
		total_trades    INTEGER          NOT NULL,
		payload         JSONB            NOT NULL,
		created_at      TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pair_evaluations_pair
		ON audit.pair_evaluations (symbol_a, symbol_b, created_at DESC)`,
}

// EnsureSchema creates the schemas, tables and indexes if they are missing
// ⭐ SSOT: DDL은 여기서만
func (db *DB) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
