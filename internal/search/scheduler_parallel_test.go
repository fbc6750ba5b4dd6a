package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jingdong00/FLAML/pkg/utils"
)

func newParallelScheduler(t *testing.T, fn ObjectiveFunc, lexico *LexicoSpec, budget Budget, seed int64) *Scheduler {
	t.Helper()
	space, err := NewSearchSpace([]ParamSpec{
		{Name: "x", Kind: KindFloat, Low: 0, High: 100},
	})
	if err != nil {
		t.Fatalf("NewSearchSpace: %v", err)
	}
	sampler, err := NewRandomSampler(space, utils.NewRandSource(seed), nil)
	if err != nil {
		t.Fatalf("NewRandomSampler: %v", err)
	}
	sched, err := NewScheduler(sampler, NewEvaluator(fn, lexico), lexico, budget)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return sched
}

func TestParallelSchedulerRunsFullBudget(t *testing.T) {
	lexico := minimizeErrorRate(t)
	var evaluated atomic.Int64
	fn := func(ctx context.Context, cfg Configuration, report ReportFunc) (MetricResult, error) {
		evaluated.Add(1)
		return quadraticObjective(ctx, cfg, report)
	}
	sched := newParallelScheduler(t, fn, lexico, Budget{MaxTrials: 40, Parallelism: 4}, 21)

	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.StopReason != StopTrialBudget {
		t.Fatalf("expected trial-budget stop, got %s", result.StopReason)
	}
	if result.TrialsRun != 40 {
		t.Fatalf("expected 40 trials, got %d", result.TrialsRun)
	}
	if got := result.Succeeded + result.Failed + result.Pruned; got != result.TrialsRun {
		t.Fatalf("status counts %d do not add up to trials run %d", got, result.TrialsRun)
	}
	if evaluated.Load() != 40 {
		t.Fatalf("expected 40 evaluations, got %d", evaluated.Load())
	}

	// Serialized incumbent updates: the best beats every success.
	for _, trial := range sched.Log().Successes() {
		pref, err := lexico.Prefer(trial.Metrics, result.Best.Metrics)
		if err != nil {
			t.Fatalf("Prefer: %v", err)
		}
		if pref == PreferFirst {
			t.Fatalf("trial %d beats the reported best", trial.Index)
		}
	}
}

func TestParallelSchedulerStopsOnTarget(t *testing.T) {
	lexico := mustLexico(t, []Objective{
		{Metric: "error_rate", Direction: Minimize, Target: floatPtr(1.0)},
		{Metric: "flops", Direction: Minimize},
	})
	fn := func(ctx context.Context, cfg Configuration, report ReportFunc) (MetricResult, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
		return quadraticObjective(ctx, cfg, report)
	}
	sched := newParallelScheduler(t, fn, lexico, Budget{MaxTrials: 10000, Parallelism: 4}, 5)

	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.StopReason != StopTarget {
		t.Fatalf("expected target stop, got %s", result.StopReason)
	}
	if !result.TargetsMet {
		t.Fatalf("expected targets met")
	}
	if result.TrialsRun >= 10000 {
		t.Fatalf("expected early stop, ran %d trials", result.TrialsRun)
	}
}

func TestParallelSchedulerExhaustsFiniteSpace(t *testing.T) {
	lexico := mustLexico(t, []Objective{{Metric: "error_rate", Direction: Minimize}})

	space := finiteSpace(t)
	sampler, err := NewRandomSampler(space, utils.NewRandSource(3), nil)
	if err != nil {
		t.Fatalf("NewRandomSampler: %v", err)
	}
	fn := func(ctx context.Context, cfg Configuration, report ReportFunc) (MetricResult, error) {
		return MetricResult{"error_rate": float64(cfg["layers"].(int64))}, nil
	}
	sched, err := NewScheduler(sampler, NewEvaluator(fn, lexico), lexico,
		Budget{MaxTrials: 100, Parallelism: 3})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	result, err := sched.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.StopReason != StopExhausted {
		t.Fatalf("expected exhausted stop, got %s", result.StopReason)
	}
	if result.TrialsRun != 6 {
		t.Fatalf("expected 6 trials, got %d", result.TrialsRun)
	}
}

func TestParallelSchedulerNoViableTrial(t *testing.T) {
	lexico := minimizeErrorRate(t)
	fn := func(ctx context.Context, cfg Configuration, report ReportFunc) (MetricResult, error) {
		return nil, errors.New("broken objective")
	}
	sched := newParallelScheduler(t, fn, lexico, Budget{MaxTrials: 12, Parallelism: 4}, 1)

	result, err := sched.Run(context.Background())

	var noViable *NoViableTrialError
	if !errors.As(err, &noViable) {
		t.Fatalf("expected NoViableTrialError, got %v", err)
	}
	if result.Failed != 12 {
		t.Fatalf("expected 12 failed trials, got %d", result.Failed)
	}
}

func TestParallelSchedulerCancel(t *testing.T) {
	lexico := minimizeErrorRate(t)
	fn := func(ctx context.Context, cfg Configuration, report ReportFunc) (MetricResult, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
		return quadraticObjective(ctx, cfg, report)
	}
	sched := newParallelScheduler(t, fn, lexico, Budget{MaxTrials: 1000, Parallelism: 4}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result, _ := sched.Run(ctx)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancel did not stop the search promptly, took %v", elapsed)
	}
	if result.StopReason != StopCancelled {
		t.Fatalf("expected cancelled stop, got %s", result.StopReason)
	}
}
