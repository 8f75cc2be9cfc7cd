package strategyconfig

import (
	"strings"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/risk"
	"github.com/wonny/pairlab/backend/internal/s0_data/quality"
)

// Config는 페어 트레이딩 평가 전략의 전체 설정
type Config struct {
	Meta     Meta             `yaml:"meta" json:"meta"`
	Params   contracts.Params `yaml:"params" json:"params"`
	Data     Data             `yaml:"data" json:"data"`
	Pairs    []Pair           `yaml:"pairs" json:"pairs"`
	Schedule Schedule         `yaml:"schedule" json:"schedule"`
	Risk     Risk             `yaml:"risk" json:"risk"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// Data S0: 가격 소스와 품질 기준
type Data struct {
	Source       string         `yaml:"source" json:"source"` // postgres | feed
	LookbackDays int            `yaml:"lookback_days" json:"lookback_days"`
	Quality      quality.Config `yaml:"quality" json:"quality"`
}

// Data sources
const (
	SourcePostgres = "postgres"
	SourceFeed     = "feed"
)

// Pair 감시 대상 페어 (params가 있으면 공통 params를 덮어씀)
type Pair struct {
	SymbolA string         `yaml:"symbol_a" json:"symbol_a"`
	SymbolB string         `yaml:"symbol_b" json:"symbol_b"`
	Params  *ParamOverride `yaml:"params,omitempty" json:"params,omitempty"`
}

// Name returns "A/B"
func (p Pair) Name() string {
	return strings.ToUpper(p.SymbolA) + "/" + strings.ToUpper(p.SymbolB)
}

// ParamOverride 페어별 파라미터 (nil = 공통값 사용)
type ParamOverride struct {
	SignificanceLevel  *float64 `yaml:"significance_level,omitempty" json:"significance_level,omitempty"`
	Window             *int     `yaml:"window,omitempty" json:"window,omitempty"`
	EntryThreshold     *float64 `yaml:"entry_threshold,omitempty" json:"entry_threshold,omitempty"`
	ExitThreshold      *float64 `yaml:"exit_threshold,omitempty" json:"exit_threshold,omitempty"`
	StopThreshold      *float64 `yaml:"stop_threshold,omitempty" json:"stop_threshold,omitempty"`
	InitialCapital     *float64 `yaml:"initial_capital,omitempty" json:"initial_capital,omitempty"`
	TransactionCostBps *float64 `yaml:"transaction_cost_bps,omitempty" json:"transaction_cost_bps,omitempty"`
}

// Resolve applies the pair override on top of base
func (p Pair) Resolve(base contracts.Params) contracts.Params {
	o := p.Params
	if o == nil {
		return base
	}
	if o.SignificanceLevel != nil {
		base.SignificanceLevel = *o.SignificanceLevel
	}
	if o.Window != nil {
		base.Window = *o.Window
	}
	if o.EntryThreshold != nil {
		base.EntryThreshold = *o.EntryThreshold
	}
	if o.ExitThreshold != nil {
		base.ExitThreshold = *o.ExitThreshold
	}
	if o.StopThreshold != nil {
		base.StopThreshold = *o.StopThreshold
	}
	if o.InitialCapital != nil {
		base.InitialCapital = *o.InitialCapital
	}
	if o.TransactionCostBps != nil {
		base.TransactionCostBps = *o.TransactionCostBps
	}
	return base
}

// Schedule 감시 페어 재평가 스케줄 (robfig/cron, 초 단위 포함)
type Schedule struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Cron    string `yaml:"cron" json:"cron"`
	Workers int    `yaml:"workers" json:"workers"`
}

// Risk 리스크 확장 설정
type Risk struct {
	Bootstrap risk.BootstrapConfig `yaml:"bootstrap" json:"bootstrap"`
	Limits    risk.RiskLimits      `yaml:"limits" json:"limits"`
}

// Default returns a valid configuration with the reference parameters and no watched pairs
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "pairs_default",
			Version:    "1",
			Timezone:   "UTC",
		},
		Params: contracts.DefaultParams(),
		Data: Data{
			Source:       SourcePostgres,
			LookbackDays: 756,
			Quality:      quality.DefaultConfig(),
		},
		Schedule: Schedule{
			Enabled: false,
			Cron:    "0 30 18 * * MON-FRI",
			Workers: 2,
		},
		Risk: Risk{
			Bootstrap: risk.DefaultBootstrapConfig(),
			Limits:    risk.DefaultRiskLimits(),
		},
	}
}
