// Package tuned is the service layer of the tuning daemon: a registry
// of objective functions, an in-memory job store, an executor that runs
// searches in the background, an HTTP API, and completion webhooks.
package tuned

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jingdong00/FLAML/internal/search"
)

// Registry maps objective names to their implementations. Experiments
// reference objectives by name, so custom objectives must be registered
// before a search starts.
type Registry struct {
	mu  sync.RWMutex
	fns map[string]search.ObjectiveFunc
}

// NewRegistry returns a registry preloaded with the built-in synthetic
// objectives.
func NewRegistry() *Registry {
	r := &Registry{fns: make(map[string]search.ObjectiveFunc)}
	r.fns["synthetic-nn"] = syntheticNN
	r.fns["sphere"] = sphere
	return r
}

// Register adds an objective under the given name.
func (r *Registry) Register(name string, fn search.ObjectiveFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fns[name]; exists {
		return fmt.Errorf("objective %q already registered", name)
	}
	r.fns[name] = fn
	return nil
}

// Get looks up an objective by name.
func (r *Registry) Get(name string) (search.ObjectiveFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fns[name]
	if !ok {
		return nil, fmt.Errorf("unknown objective %q", name)
	}
	return fn, nil
}

// Names returns the registered objective names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// syntheticNN is a deterministic stand-in for neural-network training.
// It maps architecture parameters to an error rate, a compute cost, and
// a parameter count, so multi-objective experiments can run without a
// real training job. Recognized parameters (all optional): layers,
// width, learning_rate, dropout.
func syntheticNN(ctx context.Context, cfg search.Configuration, report search.ReportFunc) (search.MetricResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layers := intParam(cfg, "layers", 4)
	width := intParam(cfg, "width", 64)
	lr := floatParam(cfg, "learning_rate", 1e-3)
	dropout := floatParam(cfg, "dropout", 0.1)

	capacity := float64(layers * width)

	// Error falls with capacity and rises as the learning rate strays
	// from its sweet spot near 3e-3.
	lrPenalty := 0.05 * math.Abs(math.Log10(lr)+2.5)
	dropPenalty := 0.1 * math.Abs(dropout-0.2)
	errorRate := 0.02 + 0.5/math.Sqrt(capacity+1) + lrPenalty + dropPenalty

	report("error_rate", errorRate)

	return search.MetricResult{
		"error_rate": errorRate,
		"flops":      capacity * 2e6,
		"params":     capacity * 1e3,
	}, nil
}

// sphere sums the squares of every numeric parameter, minimized at the
// origin. The secondary cost metric counts parameters, so it exercises
// lexicographic orders without domain-specific inputs.
func sphere(ctx context.Context, cfg search.Configuration, report search.ReportFunc) (search.MetricResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loss := 0.0
	dims := 0
	for _, v := range cfg {
		switch n := v.(type) {
		case float64:
			loss += n * n
			dims++
		case int64:
			loss += float64(n) * float64(n)
			dims++
		}
	}

	report("loss", loss)

	return search.MetricResult{
		"loss": loss,
		"cost": float64(dims),
	}, nil
}

func intParam(cfg search.Configuration, name string, fallback int64) int64 {
	switch v := cfg[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return fallback
}

func floatParam(cfg search.Configuration, name string, fallback float64) float64 {
	switch v := cfg[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return fallback
}
