package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StopReason says why a search ended.
type StopReason string

const (
	// StopTrialBudget means the configured trial count was spent.
	StopTrialBudget StopReason = "trial-budget"
	// StopTimeBudget means the wall-clock budget ran out.
	StopTimeBudget StopReason = "time-budget"
	// StopTarget means the incumbent met every declared target.
	StopTarget StopReason = "target"
	// StopExhausted means a finite space ran out of new configurations.
	StopExhausted StopReason = "exhausted"
	// StopStalled means too many successes passed without a new best.
	StopStalled StopReason = "stalled"
	// StopCancelled means the caller cancelled the context.
	StopCancelled StopReason = "cancelled"
)

// NoViableTrialError means the search finished without a single
// successful trial, so there is no best configuration to report.
type NoViableTrialError struct {
	TrialsRun int
}

func (e *NoViableTrialError) Error() string {
	return fmt.Sprintf("no viable trial: all %d trial(s) failed or were pruned", e.TrialsRun)
}

// Budget bounds a search run. At least one of MaxTrials and MaxDuration
// must be set.
type Budget struct {
	MaxTrials   int
	MaxDuration time.Duration
	Parallelism int
	StallAfter  int
}

// SearchResult summarizes a finished search.
type SearchResult struct {
	// Best is the incumbent trial, nil when no trial succeeded.
	Best       *Trial
	TrialsRun  int
	Succeeded  int
	Failed     int
	Pruned     int
	StopReason StopReason
	// TargetsMet is true when targets were declared and the incumbent
	// meets all of them. It distinguishes "stopped with targets met"
	// from "budget ran out with targets still unmet".
	TargetsMet bool
	Elapsed    time.Duration
}

// Scheduler drives the sample-evaluate-compare loop under a budget,
// maintaining the best trial found so far. Best-state updates are
// serialized so the parallel runner can share the comparator safely.
type Scheduler struct {
	sampler   Sampler
	evaluator *Evaluator
	lexico    *LexicoSpec
	budget    Budget
	trialLog  *TrialLog
	observer  func(*Trial)
	log       *slog.Logger

	// samplerMu serializes sampler access between the proposal loop
	// and best-observation callbacks.
	samplerMu sync.Mutex

	mu        sync.Mutex
	best      *Trial
	sinceBest int
	counts    map[TrialStatus]int
	trialsRun int
	stopped   StopReason
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTrialLog records every trial into the given log.
func WithTrialLog(l *TrialLog) SchedulerOption {
	return func(s *Scheduler) { s.trialLog = l }
}

// WithTrialObserver invokes fn for every finished trial, after it is
// recorded. Calls are serialized with incumbent updates.
func WithTrialObserver(fn func(*Trial)) SchedulerOption {
	return func(s *Scheduler) { s.observer = fn }
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(log *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = log }
}

// NewScheduler wires a sampler, an evaluator, and an objective order
// under a budget.
func NewScheduler(sampler Sampler, evaluator *Evaluator, lexico *LexicoSpec, budget Budget, opts ...SchedulerOption) (*Scheduler, error) {
	if budget.MaxTrials <= 0 && budget.MaxDuration <= 0 {
		return nil, &InvalidSpecError{Field: "budget", Reason: "requires max trials or max duration"}
	}
	if budget.Parallelism < 0 || budget.StallAfter < 0 {
		return nil, &InvalidSpecError{Field: "budget", Reason: "parallelism and stall-after must be >= 0"}
	}

	s := &Scheduler{
		sampler:   sampler,
		evaluator: evaluator,
		lexico:    lexico,
		budget:    budget,
		trialLog:  NewTrialLog(),
		log:       slog.Default(),
		counts:    make(map[TrialStatus]int, 3),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Log returns the trial log.
func (s *Scheduler) Log() *TrialLog {
	return s.trialLog
}

// Best returns the current incumbent, or nil before the first success.
func (s *Scheduler) Best() *Trial {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.best
}

// Run executes the search until the budget is spent, a target is met,
// the space is exhausted, or the context is cancelled. A SearchResult
// is always returned; the error is a NoViableTrialError when every
// trial failed.
func (s *Scheduler) Run(ctx context.Context) (*SearchResult, error) {
	start := time.Now()

	runCtx := ctx
	if s.budget.MaxDuration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.budget.MaxDuration)
		defer cancel()
	}

	var reason StopReason
	if s.budget.Parallelism > 1 {
		reason = s.runParallel(runCtx)
	} else {
		reason = s.runSequential(runCtx)
	}

	// A deadline cut by our own time budget is not a caller cancel.
	if reason == StopCancelled && ctx.Err() == nil {
		reason = StopTimeBudget
	}

	return s.buildResult(reason, time.Since(start))
}

func (s *Scheduler) runSequential(ctx context.Context) StopReason {
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return StopCancelled
		}
		if s.budget.MaxTrials > 0 && index >= s.budget.MaxTrials {
			return StopTrialBudget
		}

		cfg, err := s.nextConfig()
		if err != nil {
			if errors.Is(err, ErrSpaceExhausted) {
				return StopExhausted
			}
			return StopCancelled
		}

		trial := s.evaluator.Evaluate(ctx, index, cfg)
		if stop, reason := s.admit(trial); stop {
			return reason
		}
	}
}

// nextConfig proposes the next candidate, serialized against
// best-observation callbacks.
func (s *Scheduler) nextConfig() (Configuration, error) {
	s.samplerMu.Lock()
	defer s.samplerMu.Unlock()
	return s.sampler.Next()
}

// admit records a finished trial, updates the incumbent, and reports
// whether the search should stop now (target met or stalled).
func (s *Scheduler) admit(trial *Trial) (bool, StopReason) {
	s.trialLog.Append(trial)
	if s.observer != nil {
		s.observer(trial)
	}

	s.mu.Lock()
	s.trialsRun++
	s.counts[trial.Status]++

	if trial.Status != TrialSuccess {
		s.mu.Unlock()
		if trial.Err != nil {
			s.log.Debug("trial did not succeed",
				"trial", trial.Index, "status", trial.Status, "error", trial.Err)
		}
		return false, ""
	}

	improved := false
	if s.best == nil {
		improved = true
	} else {
		pref, err := s.lexico.Prefer(trial.Metrics, s.best.Metrics)
		if err != nil {
			// Metrics were validated by the evaluator; treat a
			// comparison failure as no improvement.
			s.mu.Unlock()
			s.log.Warn("comparison failed", "trial", trial.Index, "error", err)
			return false, ""
		}
		// Ties keep the earlier-found incumbent.
		improved = pref == PreferFirst
	}

	if improved {
		s.best = trial
		s.sinceBest = 0
	} else {
		s.sinceBest++
	}
	best := s.best
	sinceBest := s.sinceBest
	s.mu.Unlock()

	if improved {
		s.trialLog.SetBest(trial.Index)
		if p := s.evaluator.Pruner(); p != nil {
			p.UpdateBest(trial.Metrics[s.lexico.Primary().Metric])
		}
		s.samplerMu.Lock()
		s.sampler.ObserveBest(trial.Config)
		s.samplerMu.Unlock()

		s.log.Info("new best trial",
			"trial", trial.Index, "metrics", trial.Metrics, "config", trial.Config)

		if s.lexico.HasTargets() && s.lexico.Satisfied(trial.Metrics) {
			return true, StopTarget
		}
	}

	if s.budget.StallAfter > 0 && sinceBest >= s.budget.StallAfter {
		s.log.Info("search stalled", "successes_since_best", sinceBest, "best_trial", best.Index)
		return true, StopStalled
	}

	return false, ""
}

func (s *Scheduler) buildResult(reason StopReason, elapsed time.Duration) (*SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &SearchResult{
		Best:       s.best,
		TrialsRun:  s.trialsRun,
		Succeeded:  s.counts[TrialSuccess],
		Failed:     s.counts[TrialFailed],
		Pruned:     s.counts[TrialPruned],
		StopReason: reason,
		Elapsed:    elapsed,
	}
	if s.best != nil && s.lexico.HasTargets() {
		result.TargetsMet = s.lexico.Satisfied(s.best.Metrics)
	}

	if s.best == nil {
		return result, &NoViableTrialError{TrialsRun: s.trialsRun}
	}
	return result, nil
}
