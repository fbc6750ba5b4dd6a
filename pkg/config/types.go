package config

import "time"

// Experiment is the top-level declaration of a search job: the tunable
// space, the ordered objective list, the budget, and how candidate
// configurations get evaluated.
type Experiment struct {
	LogLevel   string      `yaml:"log_level,omitempty"`
	Search     Search      `yaml:"search"`
	Objectives []Objective `yaml:"objectives"`
	Budget     Budget      `yaml:"budget"`
	Evaluation Evaluation  `yaml:"evaluation"`
	Archive    *Archive    `yaml:"archive,omitempty"`
	Callback   *Callback   `yaml:"callback,omitempty"`
}

// Search declares the tunable parameter space and the sampling strategy.
type Search struct {
	Parameters []Parameter    `yaml:"parameters"`
	Seed       map[string]any `yaml:"seed,omitempty"`     // low-cost starting configuration, may be partial
	Strategy   string         `yaml:"strategy,omitempty"` // random (default) or guided
	RandomSeed int64          `yaml:"random_seed,omitempty"`
}

// Parameter declares one tunable parameter.
// Kind is one of: choice, int, float, logfloat.
type Parameter struct {
	Name    string  `yaml:"name"`
	Kind    string  `yaml:"kind"`
	Low     float64 `yaml:"low,omitempty"`
	High    float64 `yaml:"high,omitempty"`
	Choices []any   `yaml:"choices,omitempty"`
}

// Objective declares one entry of the lexicographic objective order,
// primary first. Tolerance is absolute slack before deferring to the next
// objective; Target, when set, is a value good enough to stop refining.
type Objective struct {
	Metric    string   `yaml:"metric"`
	Mode      string   `yaml:"mode"` // min or max
	Tolerance float64  `yaml:"tolerance,omitempty"`
	Target    *float64 `yaml:"target,omitempty"`
}

// Budget bounds the search loop.
type Budget struct {
	MaxTrials   int    `yaml:"max_trials,omitempty"`
	MaxDuration string `yaml:"max_duration,omitempty"` // e.g. "10m"
	Parallelism int    `yaml:"parallelism,omitempty"`
	StallAfter  int    `yaml:"stall_after,omitempty"` // stop after N successful trials without a new best
}

// Evaluation configures the objective evaluator adapter.
type Evaluation struct {
	Objective    string `yaml:"objective"`                // registered objective function name
	Timeout      string `yaml:"timeout,omitempty"`        // per-trial timeout, e.g. "60s"
	MaxRetries   int    `yaml:"max_retries,omitempty"`    // retries of failed evaluations
	RetryBackoff string `yaml:"retry_backoff,omitempty"`  // constant or exponential
	RetryBaseMs  int    `yaml:"retry_base_ms,omitempty"`  // base delay between retries
	Pruning      bool   `yaml:"pruning,omitempty"`        // cancel trials whose reported primary cannot win
}

// Archive configures the optional on-disk trial archive.
type Archive struct {
	Path string `yaml:"path"`
}

// Callback configures the optional completion webhook.
type Callback struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret,omitempty"`
}

// GetMaxDuration parses the budget duration string. Empty means unbounded.
func (b *Budget) GetMaxDuration() (time.Duration, error) {
	if b.MaxDuration == "" {
		return 0, nil
	}
	return time.ParseDuration(b.MaxDuration)
}

// GetTimeout parses the per-trial timeout string. Empty means no timeout.
func (e *Evaluation) GetTimeout() (time.Duration, error) {
	if e.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(e.Timeout)
}
