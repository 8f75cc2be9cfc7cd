package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/pairlab/backend/internal/backtest"
	"github.com/wonny/pairlab/backend/internal/cointegration"
	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/performance"
	"github.com/wonny/pairlab/backend/internal/risk"
	"github.com/wonny/pairlab/backend/internal/s0_data"
	"github.com/wonny/pairlab/backend/internal/s0_data/quality"
	"github.com/wonny/pairlab/backend/internal/signal"
	"github.com/wonny/pairlab/backend/internal/spread"
	"github.com/wonny/pairlab/backend/internal/strategyconfig"
	"github.com/wonny/pairlab/backend/pkg/logger"
	"github.com/wonny/pairlab/backend/pkg/metrics"
)

// EvaluationStore persists finished evaluations
type EvaluationStore interface {
	SaveEvaluation(ctx context.Context, e *contracts.Evaluation) error
}

// Orchestrator coordinates the pipeline stages of one pair evaluation
// ⭐ SSOT: 파이프라인 조율은 여기서만
//
//	S0 Prices → S1 Cointegration → S2 Spread → S3 Signals → S4 Backtest → S5 Performance (+risk)
//
// Each stage returns a new value; the orchestrator holds no per-run state.
type Orchestrator struct {
	tester *cointegration.Tester
	risk   *risk.Engine // nil skips the risk profile

	// S0 collaborators, only needed by EvaluateRange
	loader *s0_data.Loader
	gate   *quality.QualityGate

	store  EvaluationStore // nil skips persistence
	logger *logger.Logger

	now   func() time.Time
	newID func() string
}

// Request is one evaluation over an already aligned price table
type Request struct {
	Prices contracts.PriceSeries
	Params contracts.Params
	Source string // cli | api | scheduler (metrics label)
}

// RangeRequest is one evaluation whose prices are loaded by the orchestrator
type RangeRequest struct {
	SymbolA string
	SymbolB string
	From    time.Time
	To      time.Time
	Params  contracts.Params
	Source  string
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(riskEngine *risk.Engine, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		tester: cointegration.NewTester(),
		risk:   riskEngine,
		logger: log.WithField("module", "pipeline"),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// WithLoader enables EvaluateRange
func (o *Orchestrator) WithLoader(loader *s0_data.Loader, gate *quality.QualityGate) *Orchestrator {
	o.loader = loader
	o.gate = gate
	return o
}

// WithStore persists every successful evaluation
func (o *Orchestrator) WithStore(store EvaluationStore) *Orchestrator {
	o.store = store
	return o
}

// EvaluateRange loads and quality-checks the pair prices (S0) and then evaluates them
func (o *Orchestrator) EvaluateRange(ctx context.Context, req RangeRequest) (*contracts.Evaluation, error) {
	if o.loader == nil {
		return nil, &contracts.StateError{Stage: contracts.StagePrices, Message: "no price source configured"}
	}
	if err := req.Params.Validate(); err != nil {
		o.count(req.Source, err)
		return nil, err
	}

	start := time.Now()
	symbolA := strings.ToUpper(strings.TrimSpace(req.SymbolA))
	symbolB := strings.ToUpper(strings.TrimSpace(req.SymbolB))

	prices, report, err := o.loader.LoadPair(ctx, symbolA, symbolB, req.From, req.To)
	if err != nil {
		err = fmt.Errorf("S0 failed: %w", err)
		o.count(req.Source, err)
		return nil, err
	}

	var snapshot *contracts.DataQualitySnapshot
	if o.gate != nil {
		snapshot = o.gate.Check(prices, report)
		if err := o.gate.Enforce(snapshot); err != nil {
			err = fmt.Errorf("S0 failed: %w", err)
			o.count(req.Source, err)
			return nil, err
		}
	}
	s0 := stageResult(contracts.StagePrices, report.RowsA+report.RowsB, prices.Len(), start)

	eval, err := o.evaluate(ctx, Request{Prices: prices, Params: req.Params, Source: req.Source}, s0)
	if err != nil {
		return nil, err
	}
	eval.Quality = snapshot
	if err := o.persist(ctx, eval); err != nil {
		return nil, err
	}
	return eval, nil
}

// Evaluate runs S1..S5 on an aligned price table
func (o *Orchestrator) Evaluate(ctx context.Context, req Request) (*contracts.Evaluation, error) {
	if err := req.Params.Validate(); err != nil {
		o.count(req.Source, err)
		return nil, err
	}
	if req.Prices.Len() == 0 {
		err := contracts.NewInputError(contracts.StagePrices, "prices", "price table is empty")
		o.count(req.Source, err)
		return nil, err
	}

	s0 := contracts.StageResult{Stage: contracts.StagePrices, InputCount: req.Prices.Len(), OutputCount: req.Prices.Len()}
	eval, err := o.evaluate(ctx, req, s0)
	if err != nil {
		return nil, err
	}
	if err := o.persist(ctx, eval); err != nil {
		return nil, err
	}
	return eval, nil
}

// evaluate runs the analytical stages and counts the outcome
func (o *Orchestrator) evaluate(ctx context.Context, req Request, s0 contracts.StageResult) (*contracts.Evaluation, error) {
	eval, err := o.run(ctx, req, s0)
	o.count(req.Source, err)
	if err != nil {
		return nil, err
	}
	return eval, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, s0 contracts.StageResult) (*contracts.Evaluation, error) {
	startTime := time.Now()
	prices := req.Prices
	params := req.Params
	a, b := prices.A(), prices.B()
	n := prices.Len()

	eval := &contracts.Evaluation{
		RunID:      o.newID(),
		SymbolA:    prices.SymbolA(),
		SymbolB:    prices.SymbolB(),
		StartDate:  prices.Start(),
		EndDate:    prices.End(),
		Params:     params,
		ConfigHash: strategyconfig.ParamsHash(params),
		Stages:     []contracts.StageResult{s0},
		CreatedAt:  o.now().UTC(),
	}
	metrics.ObserveStage(string(s0.Stage), time.Duration(s0.DurationMs)*time.Millisecond)

	log := o.logger.WithRun(eval.RunID, eval.Pair())
	log.WithFields(map[string]interface{}{
		"rows":   n,
		"start":  eval.StartDate.Format("2006-01-02"),
		"end":    eval.EndDate.Format("2006-01-02"),
		"window": params.Window,
		"entry":  params.EntryThreshold,
		"exit":   params.ExitThreshold,
	}).Info("Starting pair evaluation")

	// S1: Cointegration (informational only)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := time.Now()
	coint, err := o.tester.Test(a, b, params.SignificanceLevel)
	if err != nil {
		return nil, fmt.Errorf("S1 failed: %w", err)
	}
	eval.Cointegration = coint
	eval.Stages = append(eval.Stages, o.finish(contracts.StageCointegration, n, 1, t))
	metrics.CointegratedTotal.WithLabelValues(fmt.Sprintf("%t", coint.IsCointegrated)).Inc()

	if !coint.IsCointegrated {
		log.WithFields(map[string]interface{}{
			"p_value":      coint.PValue,
			"significance": coint.SignificanceLevel,
		}).Warn("Pair is not cointegrated; continuing evaluation")
	}

	// S2: Spread
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t = time.Now()
	sp, err := spread.NewBuilder(params.Window).Fit(a, b)
	if err != nil {
		return nil, fmt.Errorf("S2 failed: %w", err)
	}
	eval.Spread = sp
	eval.Stages = append(eval.Stages, o.finish(contracts.StageSpread, n, len(sp.ZScore), t))

	// S3: Signals
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t = time.Now()
	gen := &signal.Generator{Entry: params.EntryThreshold, Exit: params.ExitThreshold, Stop: params.StopThreshold}
	signals, err := gen.Generate(prices.Dates(), sp.ZScore)
	if err != nil {
		return nil, fmt.Errorf("S3 failed: %w", err)
	}
	eval.Signals = signals
	eval.Stages = append(eval.Stages, o.finish(contracts.StageSignals, len(sp.ZScore), signals.TotalTrades(), t))

	// S4: Backtest
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t = time.Now()
	portfolio, err := backtest.NewEngine(params.InitialCapital, params.TransactionCostBps, o.logger).
		Run(prices, signals, sp.HedgeRatio)
	if err != nil {
		return nil, fmt.Errorf("S4 failed: %w", err)
	}
	eval.Portfolio = portfolio
	eval.Stages = append(eval.Stages, o.finish(contracts.StageBacktest, signals.Len(), len(portfolio.Rows), t))

	// S5: Performance (+ risk profile)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t = time.Now()
	m, err := performance.NewAnalyzer(o.logger).Summarize(portfolio, signals)
	if err != nil {
		return nil, fmt.Errorf("S5 failed: %w", err)
	}
	eval.Metrics = m

	if o.risk != nil {
		profile, err := o.risk.Profile(portfolio, m)
		if err != nil {
			return nil, fmt.Errorf("S5 risk failed: %w", err)
		}
		eval.Risk = profile
		if len(profile.Violations) > 0 {
			log.WithField("violations", profile.Violations).Warn("Risk limits exceeded")
		}
	}
	eval.Stages = append(eval.Stages, o.finish(contracts.StagePerformance, len(portfolio.Rows), 1, t))

	log.WithFields(map[string]interface{}{
		"cointegrated": coint.IsCointegrated,
		"p_value":      coint.PValue,
		"hedge_ratio":  sp.HedgeRatio,
		"total_return": m.TotalReturn,
		"sharpe":       m.SharpeRatio,
		"trades":       m.TotalTrades,
		"duration_ms":  time.Since(startTime).Milliseconds(),
	}).Info("Pair evaluation completed")

	return eval, nil
}

// persist saves the evaluation when a store is configured
func (o *Orchestrator) persist(ctx context.Context, eval *contracts.Evaluation) error {
	if o.store == nil {
		return nil
	}
	if err := o.store.SaveEvaluation(ctx, eval); err != nil {
		return fmt.Errorf("save evaluation %s: %w", eval.RunID, err)
	}
	return nil
}

// finish closes a stage timer and records it
func (o *Orchestrator) finish(stage contracts.Stage, in, out int, start time.Time) contracts.StageResult {
	r := stageResult(stage, in, out, start)
	metrics.ObserveStage(string(stage), time.Since(start))
	o.logger.WithStage(string(stage)).WithFields(map[string]interface{}{
		"input_count":  in,
		"output_count": out,
	}).Debug("Stage completed")
	return r
}

func stageResult(stage contracts.Stage, in, out int, start time.Time) contracts.StageResult {
	return contracts.StageResult{
		Stage:       stage,
		InputCount:  in,
		OutputCount: out,
		DurationMs:  time.Since(start).Milliseconds(),
	}
}

func (o *Orchestrator) count(source string, err error) {
	if source == "" {
		source = "unknown"
	}
	metrics.EvaluationsTotal.WithLabelValues(source, Outcome(err)).Inc()
}

// Outcome classifies a pipeline error for metrics and logs
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, contracts.ErrInput):
		return "input_error"
	case errors.Is(err, contracts.ErrState):
		return "state_error"
	case errors.Is(err, contracts.ErrNumericalDegeneracy):
		return "degenerate"
	default:
		return "error"
	}
}
