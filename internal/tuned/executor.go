package tuned

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jingdong00/FLAML/internal/archive"
	"github.com/jingdong00/FLAML/internal/search"
	"github.com/jingdong00/FLAML/pkg/config"
	"github.com/jingdong00/FLAML/pkg/models"
	"github.com/jingdong00/FLAML/pkg/utils"
)

// Executor turns validated experiments into background search runs and
// tracks them in the store.
type Executor struct {
	store    *Store
	registry *Registry
	notifier *Notifier
	log      *slog.Logger
	wg       sync.WaitGroup
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithNotifier enables completion webhooks.
func WithNotifier(n *Notifier) ExecutorOption {
	return func(e *Executor) { e.notifier = n }
}

// WithExecutorLogger sets the logger.
func WithExecutorLogger(log *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.log = log }
}

// NewExecutor wires the store and objective registry.
func NewExecutor(store *Store, registry *Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:    store,
		registry: registry,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches a search for the experiment and returns its job ID.
// The context bounds the whole run: cancelling it stops every job this
// executor started.
func (e *Executor) Start(ctx context.Context, exp *config.Experiment) (string, error) {
	fn, err := e.registry.Get(exp.Evaluation.Objective)
	if err != nil {
		return "", err
	}

	space, err := search.SpaceFromConfig(&exp.Search)
	if err != nil {
		return "", err
	}
	lexico, err := search.LexicoFromConfig(exp.Objectives)
	if err != nil {
		return "", err
	}
	budget, err := search.BudgetFromConfig(&exp.Budget)
	if err != nil {
		return "", err
	}
	sampler, err := search.SamplerFromConfig(&exp.Search, space, utils.NewRandSource(exp.Search.RandomSeed))
	if err != nil {
		return "", err
	}

	jobID := utils.GenerateJobID()
	jobLog := e.log.With("job_id", jobID)

	evaluator := search.NewEvaluator(fn, lexico, e.evaluatorOptions(exp, lexico, jobLog)...)

	schedOpts := []search.SchedulerOption{search.WithSchedulerLogger(jobLog)}

	var arch *archive.Archive
	if exp.Archive != nil {
		arch, err = archive.Open(exp.Archive.Path)
		if err != nil {
			return "", fmt.Errorf("failed to open trial archive: %w", err)
		}
		schedOpts = append(schedOpts, search.WithTrialObserver(func(t *search.Trial) {
			if err := arch.RecordTrial(jobID, t); err != nil {
				jobLog.Warn("failed to archive trial", "trial", t.Index, "error", err)
			}
		}))
	}

	sched, err := search.NewScheduler(sampler, evaluator, lexico, budget, schedOpts...)
	if err != nil {
		if arch != nil {
			arch.Close()
		}
		return "", err
	}

	runCtx, cancel := context.WithCancel(ctx)
	rec := &SearchRecord{
		ID:         jobID,
		Experiment: exp,
		Scheduler:  sched,
		Lexico:     lexico,
		Cancel:     cancel,
	}
	e.store.Create(rec)

	e.wg.Add(1)
	go e.runSearch(runCtx, rec, arch)

	jobLog.Info("search started",
		"objective", exp.Evaluation.Objective,
		"max_trials", budget.MaxTrials,
		"parallelism", budget.Parallelism)
	return jobID, nil
}

func (e *Executor) evaluatorOptions(exp *config.Experiment, lexico *search.LexicoSpec, jobLog *slog.Logger) []search.EvaluatorOption {
	opts := []search.EvaluatorOption{search.WithEvaluatorLogger(jobLog)}

	// The timeout string was validated with the experiment.
	if timeout, err := exp.Evaluation.GetTimeout(); err == nil && timeout > 0 {
		opts = append(opts, search.WithTimeout(timeout))
	}
	if exp.Evaluation.MaxRetries > 0 {
		backoff := utils.BackoffFromConfig(exp.Evaluation.RetryBackoff, exp.Evaluation.RetryBaseMs, 0)
		opts = append(opts, search.WithRetries(exp.Evaluation.MaxRetries, backoff))
	}
	if exp.Evaluation.Pruning {
		opts = append(opts, search.WithPruner(search.NewPruner(lexico.Primary())))
	}
	return opts
}

func (e *Executor) runSearch(ctx context.Context, rec *SearchRecord, arch *archive.Archive) {
	defer e.wg.Done()
	defer rec.Cancel()
	if arch != nil {
		defer arch.Close()
	}

	if err := e.store.MarkRunning(rec.ID); err != nil {
		e.log.Error("failed to mark job running", "job_id", rec.ID, "error", err)
		return
	}

	result, runErr := rec.Scheduler.Run(ctx)
	if err := e.store.MarkFinished(rec.ID, result, runErr); err != nil {
		e.log.Error("failed to mark job finished", "job_id", rec.ID, "error", err)
		return
	}

	if runErr != nil {
		e.log.Warn("search finished without a viable trial", "job_id", rec.ID, "error", runErr)
	} else {
		e.log.Info("search finished",
			"job_id", rec.ID,
			"stop_reason", result.StopReason,
			"trials", result.TrialsRun,
			"targets_met", result.TargetsMet)
	}

	e.deliverCallback(rec)
}

func (e *Executor) deliverCallback(rec *SearchRecord) {
	if e.notifier == nil || rec.Experiment.Callback == nil {
		return
	}

	job, err := e.store.Snapshot(rec.ID)
	if err != nil {
		return
	}
	event := models.CompletionEvent{
		JobID:      job.ID,
		Status:     job.Status,
		Result:     job.Result,
		Error:      job.Error,
		FinishedMs: job.FinishedAtMs,
	}
	if err := e.notifier.Notify(context.Background(), rec.Experiment.Callback, event); err != nil {
		e.log.Warn("completion callback failed", "job_id", rec.ID, "error", err)
	}
}

// Stop cancels a running job.
func (e *Executor) Stop(jobID string) error {
	return e.store.RequestStop(jobID)
}

// Wait blocks until every started search has finished.
func (e *Executor) Wait() {
	e.wg.Wait()
}
