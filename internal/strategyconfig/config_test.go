package strategyconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

func TestLoad(t *testing.T) {
	path := "../../config/strategy/pairs.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, "us_etf_pairs", cfg.Meta.StrategyID)
	assert.Equal(t, contracts.DefaultParams(), cfg.Params)
	require.Len(t, cfg.Pairs, 3)
	assert.Equal(t, "XLE/XOP", cfg.Pairs[1].Name())

	resolved := cfg.Pairs[1].Resolve(cfg.Params)
	assert.Equal(t, 30, resolved.Window)
	assert.Equal(t, 4.0, resolved.StopThreshold)
	assert.Equal(t, 2.0, resolved.EntryThreshold)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(cfg)
	assert.Equal(t, hash, hash2)
}

func TestParse_DefaultsFillMissingFields(t *testing.T) {
	cfg, err := Parse([]byte("meta:\n  strategy_id: tiny\nparams:\n  window: 30\n"))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Params.Window)
	assert.Equal(t, 2.0, cfg.Params.EntryThreshold)
	assert.Equal(t, SourcePostgres, cfg.Data.Source)
	assert.Equal(t, int64(42), cfg.Risk.Bootstrap.Seed)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("meta:\n  strategy_id: x\nparams:\n  windw: 30\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	window1 := 1

	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{"default is valid", func(c *Config) {}, ""},
		{"missing strategy id", func(c *Config) { c.Meta.StrategyID = "" }, "meta.strategy_id"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"entry below exit", func(c *Config) { c.Params.EntryThreshold = 0.4 }, "params.entry_threshold"},
		{"stop below entry", func(c *Config) { c.Params.StopThreshold = 1.5 }, "params.stop_threshold"},
		{"unknown source", func(c *Config) { c.Data.Source = "s3" }, "data.source"},
		{"coverage above one", func(c *Config) { c.Data.Quality.MinCoverage = 1.5 }, "data.quality.min_coverage"},
		{"same symbols", func(c *Config) { c.Pairs = []Pair{{SymbolA: "SPY", SymbolB: "spy"}} }, "pairs[0]"},
		{"duplicate pair", func(c *Config) {
			c.Pairs = []Pair{{SymbolA: "SPY", SymbolB: "IVV"}, {SymbolA: "spy", SymbolB: "ivv"}}
		}, "pairs[1]"},
		{"bad override", func(c *Config) {
			c.Pairs = []Pair{{SymbolA: "SPY", SymbolB: "IVV", Params: &ParamOverride{Window: &window1}}}
		}, "pairs[0].params.window"},
		{"bad cron", func(c *Config) {
			c.Pairs = []Pair{{SymbolA: "SPY", SymbolB: "IVV"}}
			c.Schedule.Enabled = true
			c.Schedule.Cron = "every day"
		}, "schedule.cron"},
		{"schedule without pairs", func(c *Config) { c.Schedule.Enabled = true }, "pairs"},
		{"zero seed", func(c *Config) { c.Risk.Bootstrap.Seed = 0 }, "risk.bootstrap"},
		{"negative limit", func(c *Config) { c.Risk.Limits.MaxVaR = -0.1 }, "risk.limits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var ve ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestWarn(t *testing.T) {
	cfg := Default()
	assert.Empty(t, Warn(cfg))

	cfg.Params.EntryThreshold = 1.0
	cfg.Params.TransactionCostBps = 0
	cfg.Params.Window = 5
	cfg.Data.LookbackDays = 100

	codes := map[string]bool{}
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}
	assert.Equal(t, map[string]bool{"LOW_ENTRY": true, "ZERO_COST": true, "SHORT_WINDOW": true, "SHORT_LOOKBACK": true}, codes)
}

func TestParamsHash(t *testing.T) {
	a := ParamsHash(contracts.DefaultParams())
	assert.Len(t, a, 64)
	assert.Equal(t, a, ParamsHash(contracts.DefaultParams()))

	p := contracts.DefaultParams()
	p.Window = 21
	assert.NotEqual(t, a, ParamsHash(p))
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
