package search

import (
	"errors"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func mustLexico(t *testing.T, objectives []Objective) *LexicoSpec {
	t.Helper()
	l, err := NewLexicoSpec(objectives)
	if err != nil {
		t.Fatalf("NewLexicoSpec: %v", err)
	}
	return l
}

func TestNewLexicoSpecValidation(t *testing.T) {
	tests := []struct {
		name       string
		objectives []Objective
	}{
		{"empty", nil},
		{"missing metric", []Objective{{Direction: Minimize}}},
		{"bad direction", []Objective{{Metric: "error_rate", Direction: "minimize"}}},
		{"negative tolerance", []Objective{{Metric: "error_rate", Direction: Minimize, Tolerance: -0.1}}},
		{"duplicate metric", []Objective{
			{Metric: "error_rate", Direction: Minimize},
			{Metric: "error_rate", Direction: Maximize},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexicoSpec(tt.objectives)
			if err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
			var specErr *InvalidSpecError
			if !errors.As(err, &specErr) {
				t.Fatalf("expected InvalidSpecError, got %T", err)
			}
		})
	}
}

func TestPreferToleranceDefersToSecondary(t *testing.T) {
	// error_rate within tolerance, so the cheaper model wins on flops.
	l := mustLexico(t, []Objective{
		{Metric: "error_rate", Direction: Minimize, Tolerance: 0.02},
		{Metric: "flops", Direction: Minimize},
	})

	a := MetricResult{"error_rate": 0.10, "flops": 1e9}
	b := MetricResult{"error_rate": 0.11, "flops": 5e8}

	pref, err := l.Prefer(a, b)
	if err != nil {
		t.Fatalf("Prefer: %v", err)
	}
	if pref != PreferSecond {
		t.Fatalf("expected second result to win on flops, got %v", pref)
	}
}

func TestPreferZeroToleranceDecidesOnPrimary(t *testing.T) {
	l := mustLexico(t, []Objective{
		{Metric: "error_rate", Direction: Minimize},
		{Metric: "flops", Direction: Minimize},
	})

	a := MetricResult{"error_rate": 0.10, "flops": 1e9}
	b := MetricResult{"error_rate": 0.11, "flops": 5e8}

	pref, err := l.Prefer(a, b)
	if err != nil {
		t.Fatalf("Prefer: %v", err)
	}
	if pref != PreferFirst {
		t.Fatalf("expected first result to win on error_rate, got %v", pref)
	}
}

func TestPreferWorkedScenarios(t *testing.T) {
	l := mustLexico(t, []Objective{
		{Metric: "error_rate", Direction: Minimize, Tolerance: 0.02},
		{Metric: "flops", Direction: Minimize},
	})

	a := MetricResult{"error_rate": 0.10, "flops": 20}

	tests := []struct {
		name  string
		other MetricResult
		want  Preference
	}{
		// |0.10-0.09| = 0.01 <= 0.02, so flops decides: 20 < 25.
		{"within tolerance, flops decides", MetricResult{"error_rate": 0.09, "flops": 25}, PreferFirst},
		// |0.10-0.05| = 0.05 > 0.02, decided on error_rate alone.
		{"beyond tolerance, error_rate decides", MetricResult{"error_rate": 0.05, "flops": 30}, PreferSecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pref, err := l.Prefer(a, tt.other)
			if err != nil {
				t.Fatalf("Prefer: %v", err)
			}
			if pref != tt.want {
				t.Fatalf("Prefer(%v, %v) = %v, want %v", a, tt.other, pref, tt.want)
			}
		})
	}
}

func TestPreferToleranceMonotonicity(t *testing.T) {
	// Raising the primary tolerance may flip a decision from "decided
	// on error_rate" to "deferred to flops", never the reverse.
	a := MetricResult{"error_rate": 0.10, "flops": 20}
	b := MetricResult{"error_rate": 0.05, "flops": 30}

	deferred := false
	for _, tol := range []float64{0, 0.01, 0.03, 0.05, 0.08, 0.2} {
		l := mustLexico(t, []Objective{
			{Metric: "error_rate", Direction: Minimize, Tolerance: tol},
			{Metric: "flops", Direction: Minimize},
		})
		pref, err := l.Prefer(a, b)
		if err != nil {
			t.Fatalf("Prefer with tolerance %v: %v", tol, err)
		}
		switch pref {
		case PreferSecond: // b wins only when error_rate decides.
			if deferred {
				t.Fatalf("tolerance %v decided on error_rate after a smaller tolerance deferred", tol)
			}
		case PreferFirst: // a wins only once error_rate defers to flops.
			deferred = true
		default:
			t.Fatalf("unexpected preference %v at tolerance %v", pref, tol)
		}
	}
	if !deferred {
		t.Fatalf("expected large tolerances to defer to flops")
	}
}

func TestPreferMaximize(t *testing.T) {
	l := mustLexico(t, []Objective{
		{Metric: "accuracy", Direction: Maximize, Tolerance: 0.01},
		{Metric: "latency_ms", Direction: Minimize},
	})

	a := MetricResult{"accuracy": 0.95, "latency_ms": 20}
	b := MetricResult{"accuracy": 0.90, "latency_ms": 5}

	pref, err := l.Prefer(a, b)
	if err != nil {
		t.Fatalf("Prefer: %v", err)
	}
	if pref != PreferFirst {
		t.Fatalf("expected higher accuracy to win, got %v", pref)
	}

	// Within tolerance on accuracy, latency decides.
	c := MetricResult{"accuracy": 0.945, "latency_ms": 5}
	pref, err = l.Prefer(a, c)
	if err != nil {
		t.Fatalf("Prefer: %v", err)
	}
	if pref != PreferSecond {
		t.Fatalf("expected lower latency to win within accuracy tolerance, got %v", pref)
	}
}

func TestPreferAllWithinToleranceIsEqual(t *testing.T) {
	l := mustLexico(t, []Objective{
		{Metric: "error_rate", Direction: Minimize, Tolerance: 0.02},
		{Metric: "flops", Direction: Minimize, Tolerance: 1e8},
	})

	a := MetricResult{"error_rate": 0.10, "flops": 1.00e9}
	b := MetricResult{"error_rate": 0.11, "flops": 1.05e9}

	pref, err := l.Prefer(a, b)
	if err != nil {
		t.Fatalf("Prefer: %v", err)
	}
	if pref != PreferEqual {
		t.Fatalf("expected equality within tolerances, got %v", pref)
	}
}

func TestPreferAntisymmetric(t *testing.T) {
	l := mustLexico(t, []Objective{
		{Metric: "error_rate", Direction: Minimize, Tolerance: 0.02},
		{Metric: "flops", Direction: Minimize},
	})

	a := MetricResult{"error_rate": 0.10, "flops": 1e9}
	b := MetricResult{"error_rate": 0.11, "flops": 5e8}

	ab, err := l.Prefer(a, b)
	if err != nil {
		t.Fatalf("Prefer(a, b): %v", err)
	}
	ba, err := l.Prefer(b, a)
	if err != nil {
		t.Fatalf("Prefer(b, a): %v", err)
	}
	if ab != PreferSecond || ba != PreferFirst {
		t.Fatalf("expected swapped arguments to swap the winner, got %v and %v", ab, ba)
	}
}

func TestPreferMissingMetric(t *testing.T) {
	l := mustLexico(t, []Objective{
		{Metric: "error_rate", Direction: Minimize},
		{Metric: "flops", Direction: Minimize},
	})

	a := MetricResult{"error_rate": 0.10, "flops": 1e9}
	b := MetricResult{"error_rate": 0.11}

	_, err := l.Prefer(a, b)
	var missing *MissingMetricError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingMetricError, got %v", err)
	}
	if missing.Metric != "flops" {
		t.Fatalf("expected missing flops, got %s", missing.Metric)
	}
}

func TestSatisfied(t *testing.T) {
	l := mustLexico(t, []Objective{
		{Metric: "error_rate", Direction: Minimize, Target: floatPtr(0.05)},
		{Metric: "flops", Direction: Minimize},
		{Metric: "accuracy", Direction: Maximize, Target: floatPtr(0.9)},
	})

	if !l.HasTargets() {
		t.Fatalf("expected HasTargets")
	}

	tests := []struct {
		name string
		m    MetricResult
		want bool
	}{
		{"all met", MetricResult{"error_rate": 0.04, "flops": 1e9, "accuracy": 0.95}, true},
		{"exactly at target", MetricResult{"error_rate": 0.05, "flops": 1e9, "accuracy": 0.9}, true},
		{"min target unmet", MetricResult{"error_rate": 0.06, "flops": 1e9, "accuracy": 0.95}, false},
		{"max target unmet", MetricResult{"error_rate": 0.04, "flops": 1e9, "accuracy": 0.85}, false},
		{"targeted metric missing", MetricResult{"flops": 1e9, "accuracy": 0.95}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.Satisfied(tt.m); got != tt.want {
				t.Fatalf("Satisfied(%v) = %v, want %v", tt.m, got, tt.want)
			}
		})
	}
}

func TestHasTargetsFalseWithoutTargets(t *testing.T) {
	l := mustLexico(t, []Objective{{Metric: "error_rate", Direction: Minimize}})
	if l.HasTargets() {
		t.Fatalf("expected no targets")
	}
	// With no targets declared, Satisfied imposes no constraint.
	if !l.Satisfied(MetricResult{"error_rate": 0.5}) {
		t.Fatalf("expected trivially satisfied")
	}
}
