package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/pipeline"
	"github.com/wonny/pairlab/backend/internal/strategyconfig"
	"github.com/wonny/pairlab/backend/pkg/logger"
)

// Evaluator runs one pair evaluation over stored prices
type Evaluator interface {
	EvaluateRange(ctx context.Context, req pipeline.RangeRequest) (*contracts.Evaluation, error)
}

// PairOutcome is the result of one watched pair in a run
type PairOutcome struct {
	Pair         string
	RunID        string
	Cointegrated bool
	Err          error
}

// EvaluatePairsJob re-evaluates every watched pair over the lookback window
// ⭐ SSOT: 감시 페어 재평가 스케줄은 이 Job에서만
type EvaluatePairsJob struct {
	evaluator Evaluator
	config    *strategyconfig.Config
	logger    *logger.Logger
	now       func() time.Time

	mu   sync.Mutex
	last []PairOutcome
}

// NewEvaluatePairsJob creates a new pair evaluation job
func NewEvaluatePairsJob(evaluator Evaluator, cfg *strategyconfig.Config, log *logger.Logger) *EvaluatePairsJob {
	if log == nil {
		log = logger.NewNop()
	}
	return &EvaluatePairsJob{
		evaluator: evaluator,
		config:    cfg,
		logger:    log.WithField("job", "evaluate_pairs"),
		now:       time.Now,
	}
}

// Name returns the job name
func (j *EvaluatePairsJob) Name() string {
	return "evaluate_pairs"
}

// Schedule returns the cron schedule from the strategy file
func (j *EvaluatePairsJob) Schedule() string {
	return j.config.Schedule.Cron
}

// Run evaluates all watched pairs with a bounded worker pool.
// A failing pair does not stop the others; Run fails only when every pair failed.
func (j *EvaluatePairsJob) Run(ctx context.Context) error {
	pairs := j.config.Pairs
	if len(pairs) == 0 {
		return fmt.Errorf("no watched pairs configured")
	}

	to := j.now().UTC()
	from := to.AddDate(0, 0, -j.config.Data.LookbackDays)

	j.logger.WithFields(map[string]interface{}{
		"pairs":   len(pairs),
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"workers": j.config.Schedule.Workers,
	}).Info("Starting scheduled pair evaluation")

	outcomes := make([]PairOutcome, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, j.config.Schedule.Workers))

	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			outcomes[i] = j.evaluate(gctx, p, from, to)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}

	j.mu.Lock()
	j.last = outcomes
	j.mu.Unlock()

	j.logger.WithFields(map[string]interface{}{
		"success": len(outcomes) - failed,
		"failed":  failed,
	}).Info("Scheduled pair evaluation completed")

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed == len(outcomes) {
		return fmt.Errorf("all %d pair evaluations failed: %w", failed, outcomes[0].Err)
	}
	return nil
}

func (j *EvaluatePairsJob) evaluate(ctx context.Context, p strategyconfig.Pair, from, to time.Time) PairOutcome {
	out := PairOutcome{Pair: p.Name()}

	eval, err := j.evaluator.EvaluateRange(ctx, pipeline.RangeRequest{
		SymbolA: p.SymbolA,
		SymbolB: p.SymbolB,
		From:    from,
		To:      to,
		Params:  p.Resolve(j.config.Params),
		Source:  "scheduler",
	})
	if err != nil {
		j.logger.WithError(err).WithField("pair", out.Pair).Warn("Pair evaluation failed")
		out.Err = err
		return out
	}

	out.RunID = eval.RunID
	out.Cointegrated = eval.Cointegration != nil && eval.Cointegration.IsCointegrated
	return out
}

// LastOutcomes returns the per-pair results of the latest run
func (j *EvaluatePairsJob) LastOutcomes() []PairOutcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]PairOutcome, len(j.last))
	copy(out, j.last)
	return out
}
