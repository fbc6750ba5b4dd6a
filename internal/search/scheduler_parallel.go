package search

import (
	"context"
	"errors"
	"sync"
)

type candidate struct {
	index int
	cfg   Configuration
}

// runParallel runs the loop with a fixed worker pool. The sampler is
// driven by a single feeder goroutine; finished trials are admitted one
// at a time, so incumbent updates stay serialized.
func (s *Scheduler) runParallel(ctx context.Context) StopReason {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once   sync.Once
		reason StopReason
	)
	// finish records the stop reason but lets in-flight trials drain;
	// abort additionally cancels them.
	finish := func(r StopReason) { once.Do(func() { reason = r }) }
	abort := func(r StopReason) {
		once.Do(func() { reason = r })
		cancel()
	}

	jobs := make(chan candidate)
	results := make(chan *Trial)

	go func() {
		defer close(jobs)
		for index := 0; ; index++ {
			if s.budget.MaxTrials > 0 && index >= s.budget.MaxTrials {
				finish(StopTrialBudget)
				return
			}
			cfg, err := s.nextConfig()
			if err != nil {
				if errors.Is(err, ErrSpaceExhausted) {
					finish(StopExhausted)
				} else {
					finish(StopCancelled)
				}
				return
			}
			select {
			case jobs <- candidate{index: index, cfg: cfg}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < s.budget.Parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				results <- s.evaluator.Evaluate(ctx, c.index, c.cfg)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for trial := range results {
		if stopNow, r := s.admit(trial); stopNow {
			abort(r)
		}
	}

	// Fallback: the context was cancelled from outside the loop.
	finish(StopCancelled)
	return reason
}
