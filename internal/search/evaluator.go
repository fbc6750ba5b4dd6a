package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jingdong00/FLAML/pkg/utils"
)

// ReportFunc lets an objective publish intermediate metric values while
// it runs. Reports are optimistic bounds: the final value of a reported
// metric will be no better than the report. The evaluator uses primary
// reports to cancel trials that can no longer win.
type ReportFunc func(metric string, value float64)

// ObjectiveFunc is the black-box being tuned. It must respect ctx
// cancellation and return every metric named by the objective order.
type ObjectiveFunc func(ctx context.Context, cfg Configuration, report ReportFunc) (MetricResult, error)

// ErrPruned is the cancellation cause set when the pruner cuts a trial
// short.
var ErrPruned = errors.New("trial pruned")

// EvaluationFailure wraps the last error of an evaluation that failed
// on every attempt. The trial is marked failed and the search continues.
type EvaluationFailure struct {
	Attempts int
	Err      error
}

func (e *EvaluationFailure) Error() string {
	return fmt.Sprintf("evaluation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *EvaluationFailure) Unwrap() error {
	return e.Err
}

// Pruner decides whether a running trial can still beat the incumbent.
// It only ever consults the primary objective: a reported primary value
// already worse than the best by more than the tolerance cannot recover.
type Pruner struct {
	mu      sync.Mutex
	primary Objective
	best    *float64
}

// NewPruner returns a pruner for the given primary objective.
func NewPruner(primary Objective) *Pruner {
	return &Pruner{primary: primary}
}

// UpdateBest records the incumbent's primary value.
func (p *Pruner) UpdateBest(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.best = &v
}

// ShouldPrune reports whether a reported value dooms the trial.
func (p *Pruner) ShouldPrune(metric string, value float64) bool {
	if metric != p.primary.Metric {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.best == nil {
		return false
	}
	if p.primary.Direction == Minimize {
		return value > *p.best+p.primary.Tolerance
	}
	return value < *p.best-p.primary.Tolerance
}

// Evaluator runs the objective for one configuration at a time and
// always produces a Trial, classifying failures rather than propagating
// them. Timeouts and pruner cuts yield pruned trials; errors, panics,
// and missing metrics yield failed trials.
type Evaluator struct {
	fn         ObjectiveFunc
	lexico     *LexicoSpec
	timeout    time.Duration
	maxRetries int
	backoff    utils.BackoffStrategy
	pruner     *Pruner
	log        *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithTimeout sets the per-attempt timeout. Zero means no timeout.
func WithTimeout(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) { e.timeout = d }
}

// WithRetries sets how many times a failed attempt is retried, and the
// delay strategy between attempts.
func WithRetries(maxRetries int, backoff utils.BackoffStrategy) EvaluatorOption {
	return func(e *Evaluator) {
		e.maxRetries = maxRetries
		e.backoff = backoff
	}
}

// WithPruner enables early cancellation of doomed trials.
func WithPruner(p *Pruner) EvaluatorOption {
	return func(e *Evaluator) { e.pruner = p }
}

// WithEvaluatorLogger sets the logger.
func WithEvaluatorLogger(log *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.log = log }
}

// NewEvaluator wraps an objective function.
func NewEvaluator(fn ObjectiveFunc, lexico *LexicoSpec, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		fn:      fn,
		lexico:  lexico,
		backoff: utils.NewConstantBackoff(100 * time.Millisecond),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pruner returns the evaluator's pruner, or nil when pruning is off.
func (e *Evaluator) Pruner() *Pruner {
	return e.pruner
}

// Evaluate runs the objective on one configuration. It never returns an
// error: every outcome is encoded in the returned Trial's status.
func (e *Evaluator) Evaluate(ctx context.Context, index int, cfg Configuration) *Trial {
	start := time.Now()
	trial := &Trial{Index: index, Config: cfg}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.backoff.NextDelay(attempt - 1)
			e.log.Debug("retrying evaluation", "trial", index, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				trial.Status = TrialPruned
				trial.Err = ctx.Err()
				trial.Elapsed = time.Since(start)
				return trial
			case <-time.After(delay):
			}
		}

		metrics, err := e.runOnce(ctx, cfg)
		if err == nil {
			if verr := e.lexico.Validate(metrics); verr != nil {
				trial.Status = TrialFailed
				trial.Err = verr
				trial.Elapsed = time.Since(start)
				return trial
			}
			trial.Status = TrialSuccess
			trial.Metrics = metrics
			trial.Elapsed = time.Since(start)
			return trial
		}

		if errors.Is(err, ErrPruned) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			trial.Status = TrialPruned
			trial.Err = err
			trial.Elapsed = time.Since(start)
			return trial
		}

		lastErr = err
	}

	trial.Status = TrialFailed
	trial.Err = &EvaluationFailure{Attempts: e.maxRetries + 1, Err: lastErr}
	trial.Elapsed = time.Since(start)
	return trial
}

// runOnce performs one attempt, recovering panics into errors.
func (e *Evaluator) runOnce(parent context.Context, cfg Configuration) (metrics MetricResult, err error) {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	runCtx := ctx
	if e.timeout > 0 {
		var tcancel context.CancelFunc
		runCtx, tcancel = context.WithTimeout(ctx, e.timeout)
		defer tcancel()
	}

	report := func(metric string, value float64) {
		if e.pruner != nil && e.pruner.ShouldPrune(metric, value) {
			cancel(ErrPruned)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			metrics = nil
			err = fmt.Errorf("objective panicked: %v", r)
		}
	}()

	metrics, err = e.fn(runCtx, cfg, report)

	// A context cut overrides whatever the objective returned.
	if cause := context.Cause(runCtx); cause != nil {
		if errors.Is(cause, ErrPruned) {
			return nil, ErrPruned
		}
		if errors.Is(cause, context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		return nil, cause
	}

	return metrics, err
}
