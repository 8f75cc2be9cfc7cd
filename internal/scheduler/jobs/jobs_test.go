package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/pipeline"
	"github.com/wonny/pairlab/backend/internal/s0_data/collector"
	"github.com/wonny/pairlab/backend/internal/strategyconfig"
)

type fakeEvaluator struct {
	mu   sync.Mutex
	reqs []pipeline.RangeRequest
	fail map[string]bool
}

func (f *fakeEvaluator) EvaluateRange(_ context.Context, req pipeline.RangeRequest) (*contracts.Evaluation, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.fail[req.SymbolA] {
		return nil, contracts.NewInputError(contracts.StagePrices, "prices", "no stored closes for %s", req.SymbolA)
	}
	return &contracts.Evaluation{
		RunID:         "run-" + req.SymbolA,
		SymbolA:       req.SymbolA,
		SymbolB:       req.SymbolB,
		Cointegration: &contracts.CointegrationResult{IsCointegrated: req.SymbolA == "SPY"},
	}, nil
}

func testConfig() *strategyconfig.Config {
	window := 30
	cfg := strategyconfig.Default()
	cfg.Pairs = []strategyconfig.Pair{
		{SymbolA: "SPY", SymbolB: "IVV"},
		{SymbolA: "XLE", SymbolB: "XOP", Params: &strategyconfig.ParamOverride{Window: &window}},
		{SymbolA: "GLD", SymbolB: "spy"},
	}
	cfg.Schedule.Enabled = true
	cfg.Schedule.Workers = 2
	return cfg
}

func TestEvaluatePairsJob_Run(t *testing.T) {
	ev := &fakeEvaluator{fail: map[string]bool{"XLE": true}}
	job := NewEvaluatePairsJob(ev, testConfig(), nil)
	job.now = func() time.Time { return time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "evaluate_pairs", job.Name())
	assert.Equal(t, "0 30 18 * * MON-FRI", job.Schedule())

	require.Len(t, ev.reqs, 3)
	for _, req := range ev.reqs {
		assert.Equal(t, "scheduler", req.Source)
		assert.Equal(t, time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC).AddDate(0, 0, -756), req.From)
		if req.SymbolA == "XLE" {
			assert.Equal(t, 30, req.Params.Window)
		} else {
			assert.Equal(t, 20, req.Params.Window)
		}
	}

	outcomes := job.LastOutcomes()
	require.Len(t, outcomes, 3)
	assert.Equal(t, "SPY/IVV", outcomes[0].Pair)
	assert.True(t, outcomes[0].Cointegrated)
	assert.ErrorIs(t, outcomes[1].Err, contracts.ErrInput)
	assert.Equal(t, "run-GLD", outcomes[2].RunID)
}

func TestEvaluatePairsJob_AllFail(t *testing.T) {
	ev := &fakeEvaluator{fail: map[string]bool{"SPY": true, "XLE": true, "GLD": true}}
	err := NewEvaluatePairsJob(ev, testConfig(), nil).Run(context.Background())
	assert.ErrorIs(t, err, contracts.ErrInput)
}

func TestEvaluatePairsJob_NoPairs(t *testing.T) {
	assert.Error(t, NewEvaluatePairsJob(&fakeEvaluator{}, strategyconfig.Default(), nil).Run(context.Background()))
}

type fakeCollector struct {
	symbols []string
	failed  map[string]bool
}

func (f *fakeCollector) Collect(_ context.Context, symbols []string, _, _ time.Time, _ collector.Config) ([]collector.FetchResult, error) {
	f.symbols = symbols
	results := make([]collector.FetchResult, 0, len(symbols))
	for _, s := range symbols {
		r := collector.FetchResult{Symbol: s, PriceCount: 5}
		if f.failed[s] {
			r.Error = fmt.Errorf("timeout")
		}
		results = append(results, r)
	}
	return results, nil
}

func TestDataCollectionJob_Run(t *testing.T) {
	col := &fakeCollector{}
	job := NewDataCollectionJob(col, testConfig(), 0, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"GLD", "IVV", "SPY", "XLE", "XOP"}, col.symbols)

	col.failed = map[string]bool{"XOP": true}
	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "XOP")
}
