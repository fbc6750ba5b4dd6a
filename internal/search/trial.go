// Package search implements lexicographic multi-objective configuration
// search: a sampled parameter space, a tolerance-aware preference
// comparator over ordered objectives, and budget-driven schedulers that
// track the best configuration found so far.
package search

import "time"

// Configuration is a full assignment of values to the parameters of a
// SearchSpace. Values are int64 for int parameters, float64 for float and
// logfloat parameters, and the chosen element for choice parameters.
type Configuration map[string]any

// MetricResult holds the metric values produced by evaluating one
// configuration, keyed by metric name.
type MetricResult map[string]float64

// TrialStatus classifies the outcome of a single evaluation.
type TrialStatus string

const (
	// TrialSuccess means the evaluation produced a usable MetricResult.
	TrialSuccess TrialStatus = "success"
	// TrialFailed means the evaluation returned an error, panicked, or
	// produced a result missing a required metric.
	TrialFailed TrialStatus = "failed"
	// TrialPruned means the evaluation was cut short, either by the
	// per-trial timeout or by the pruner deciding it could not win.
	TrialPruned TrialStatus = "pruned"
)

// Trial records one evaluated configuration. Trials are append-only: once
// recorded they are never mutated.
type Trial struct {
	Index   int
	Config  Configuration
	Metrics MetricResult
	Status  TrialStatus
	Err     error
	Elapsed time.Duration
}

// Clone returns a deep copy of the configuration. Samplers hand out
// clones so callers cannot alias stored trials.
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Clone returns a copy of the metric result.
func (m MetricResult) Clone() MetricResult {
	if m == nil {
		return nil
	}
	out := make(MetricResult, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
