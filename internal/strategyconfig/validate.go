package strategyconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/risk"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// cronParser matches the scheduler (seconds field first)
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Params ===
	if err := validateParams("params", cfg.Params); err != nil {
		return err
	}

	// === Data ===
	if cfg.Data.Source != SourcePostgres && cfg.Data.Source != SourceFeed {
		return ValidationError{"data.source", fmt.Sprintf("must be %s or %s", SourcePostgres, SourceFeed)}
	}
	if cfg.Data.LookbackDays <= 0 {
		return ValidationError{"data.lookback_days", "must be > 0"}
	}
	if err := validatePctRange(cfg.Data.Quality.MinCoverage, "data.quality.min_coverage"); err != nil {
		return err
	}
	if cfg.Data.Quality.MinObservations < 0 {
		return ValidationError{"data.quality.min_observations", "must be >= 0"}
	}

	// === Pairs ===
	seen := make(map[string]bool, len(cfg.Pairs))
	for i, p := range cfg.Pairs {
		field := fmt.Sprintf("pairs[%d]", i)
		if strings.TrimSpace(p.SymbolA) == "" || strings.TrimSpace(p.SymbolB) == "" {
			return ValidationError{field, "symbol_a and symbol_b are required"}
		}
		if strings.EqualFold(p.SymbolA, p.SymbolB) {
			return ValidationError{field, "symbol_a and symbol_b must differ"}
		}
		if seen[p.Name()] {
			return ValidationError{field, fmt.Sprintf("duplicate pair %s", p.Name())}
		}
		seen[p.Name()] = true

		if err := validateParams(field+".params", p.Resolve(cfg.Params)); err != nil {
			return err
		}
	}

	// === Schedule ===
	if cfg.Schedule.Enabled {
		if _, err := cronParser.Parse(cfg.Schedule.Cron); err != nil {
			return ValidationError{"schedule.cron", err.Error()}
		}
		if cfg.Schedule.Workers < 1 {
			return ValidationError{"schedule.workers", "must be >= 1"}
		}
		if len(cfg.Pairs) == 0 {
			return ValidationError{"pairs", "schedule enabled without watched pairs"}
		}
	}

	// === Risk ===
	if err := risk.ValidateConfig(cfg.Risk.Bootstrap); err != nil {
		return ValidationError{"risk.bootstrap", err.Error()}
	}
	l := cfg.Risk.Limits
	if l.MaxVaR < 0 || l.MaxCVaR < 0 || l.MaxDrawdown < 0 {
		return ValidationError{"risk.limits", "must be >= 0 (0 disables a limit)"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	p := cfg.Params
	if p.EntryThreshold < 1.5 {
		warnings = append(warnings, Warning{
			Code:    "LOW_ENTRY",
			Message: "entry_threshold < 1.5: 잦은 진입으로 거래비용 증가",
		})
	}
	if p.TransactionCostBps == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_COST",
			Message: "transaction_cost_bps = 0: 비용 없는 백테스트는 낙관적",
		})
	}
	if p.Window < 10 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_WINDOW",
			Message: "window < 10: z-score가 불안정할 수 있음",
		})
	}
	if cfg.Data.LookbackDays < 252 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_LOOKBACK",
			Message: "lookback_days < 252: 공적분 검정력이 낮음",
		})
	}

	return warnings
}

// === Helper Functions ===

// validateParams maps contracts input errors onto config field paths
func validateParams(prefix string, p contracts.Params) error {
	err := p.Validate()
	if err == nil {
		return nil
	}
	var ie *contracts.InputError
	if errors.As(err, &ie) {
		return ValidationError{prefix + "." + ie.Field, ie.Message}
	}
	return ValidationError{prefix, err.Error()}
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
