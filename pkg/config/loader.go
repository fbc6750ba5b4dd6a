package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var validParameterKinds = map[string]bool{
	"choice":   true,
	"int":      true,
	"float":    true,
	"logfloat": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LoadExperiment reads and validates an experiment file from disk.
func LoadExperiment(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment file: %w", err)
	}

	var exp Experiment
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("failed to parse experiment file: %w", err)
	}

	if err := validateExperiment(&exp); err != nil {
		return nil, fmt.Errorf("invalid experiment: %w", err)
	}

	return &exp, nil
}

func validateExperiment(exp *Experiment) error {
	if exp.LogLevel != "" && !validLogLevels[exp.LogLevel] {
		return fmt.Errorf("invalid log_level: %s", exp.LogLevel)
	}

	if err := validateSearch(&exp.Search); err != nil {
		return err
	}
	if err := validateObjectives(exp.Objectives); err != nil {
		return err
	}
	if err := validateBudget(&exp.Budget); err != nil {
		return err
	}
	if err := validateEvaluation(&exp.Evaluation); err != nil {
		return err
	}

	if exp.Archive != nil && exp.Archive.Path == "" {
		return fmt.Errorf("archive.path is required when archive is set")
	}
	if exp.Callback != nil && exp.Callback.URL == "" {
		return fmt.Errorf("callback.url is required when callback is set")
	}

	return nil
}

func validateSearch(s *Search) error {
	if len(s.Parameters) == 0 {
		return fmt.Errorf("search.parameters must not be empty")
	}

	switch s.Strategy {
	case "", "random", "guided":
	default:
		return fmt.Errorf("invalid search.strategy: %s (must be random or guided)", s.Strategy)
	}

	names := make(map[string]bool, len(s.Parameters))
	for i, p := range s.Parameters {
		if p.Name == "" {
			return fmt.Errorf("search.parameters[%d]: name is required", i)
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate parameter name: %s", p.Name)
		}
		names[p.Name] = true

		if !validParameterKinds[p.Kind] {
			return fmt.Errorf("parameter %s: invalid kind %q", p.Name, p.Kind)
		}

		switch p.Kind {
		case "choice":
			if len(p.Choices) == 0 {
				return fmt.Errorf("parameter %s: choices must not be empty", p.Name)
			}
		default:
			if p.Low >= p.High {
				return fmt.Errorf("parameter %s: low (%v) must be less than high (%v)", p.Name, p.Low, p.High)
			}
			if p.Kind == "logfloat" && p.Low <= 0 {
				return fmt.Errorf("parameter %s: logfloat requires low > 0, got %v", p.Name, p.Low)
			}
		}
	}

	for name := range s.Seed {
		if !names[name] {
			return fmt.Errorf("search.seed references unknown parameter: %s", name)
		}
	}

	return nil
}

func validateObjectives(objectives []Objective) error {
	if len(objectives) == 0 {
		return fmt.Errorf("objectives must not be empty")
	}

	metrics := make(map[string]bool, len(objectives))
	for i, o := range objectives {
		if o.Metric == "" {
			return fmt.Errorf("objectives[%d]: metric is required", i)
		}
		if metrics[o.Metric] {
			return fmt.Errorf("duplicate objective metric: %s", o.Metric)
		}
		metrics[o.Metric] = true

		if o.Mode != "min" && o.Mode != "max" {
			return fmt.Errorf("objective %s: mode must be min or max, got %q", o.Metric, o.Mode)
		}
		if o.Tolerance < 0 {
			return fmt.Errorf("objective %s: tolerance must be >= 0, got %v", o.Metric, o.Tolerance)
		}
	}

	return nil
}

func validateBudget(b *Budget) error {
	if b.MaxTrials < 0 {
		return fmt.Errorf("budget.max_trials must be >= 0, got %d", b.MaxTrials)
	}
	if b.Parallelism < 0 {
		return fmt.Errorf("budget.parallelism must be >= 0, got %d", b.Parallelism)
	}
	if b.StallAfter < 0 {
		return fmt.Errorf("budget.stall_after must be >= 0, got %d", b.StallAfter)
	}

	dur, err := b.GetMaxDuration()
	if err != nil {
		return fmt.Errorf("invalid budget.max_duration: %w", err)
	}
	if dur < 0 {
		return fmt.Errorf("budget.max_duration must be positive, got %s", b.MaxDuration)
	}

	if b.MaxTrials == 0 && dur == 0 {
		return fmt.Errorf("budget requires max_trials or max_duration")
	}

	return nil
}

func validateEvaluation(e *Evaluation) error {
	if e.Objective == "" {
		return fmt.Errorf("evaluation.objective is required")
	}

	timeout, err := e.GetTimeout()
	if err != nil {
		return fmt.Errorf("invalid evaluation.timeout: %w", err)
	}
	if timeout < 0 {
		return fmt.Errorf("evaluation.timeout must be positive, got %s", e.Timeout)
	}

	if e.MaxRetries < 0 {
		return fmt.Errorf("evaluation.max_retries must be >= 0, got %d", e.MaxRetries)
	}

	switch e.RetryBackoff {
	case "", "constant", "exponential":
	default:
		return fmt.Errorf("invalid evaluation.retry_backoff: %s (must be constant or exponential)", e.RetryBackoff)
	}

	return nil
}
