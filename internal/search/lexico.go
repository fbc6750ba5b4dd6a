package search

import "fmt"

// Direction says which way an objective improves.
type Direction string

const (
	// Minimize prefers smaller metric values.
	Minimize Direction = "min"
	// Maximize prefers larger metric values.
	Maximize Direction = "max"
)

// Objective is one entry of a lexicographic objective order.
// Tolerance is an absolute slack: two values within Tolerance of each
// other are treated as tied on this objective and the comparison moves
// to the next one. Target, when set, marks a value good enough that the
// scheduler may stop refining; the comparator itself never consults it.
type Objective struct {
	Metric    string
	Direction Direction
	Tolerance float64
	Target    *float64
}

// MissingMetricError reports an evaluation result that lacks a metric
// required by the objective order. The trial is marked failed and the
// search continues.
type MissingMetricError struct {
	Metric string
}

func (e *MissingMetricError) Error() string {
	return fmt.Sprintf("result is missing required metric %q", e.Metric)
}

// Preference is the outcome of comparing two metric results.
type Preference int

const (
	// PreferEqual means the results tie on every objective within
	// tolerance. Callers break the tie deterministically, keeping the
	// earlier-found result.
	PreferEqual Preference = iota
	// PreferFirst means the first result wins.
	PreferFirst
	// PreferSecond means the second result wins.
	PreferSecond
)

// LexicoSpec is a validated ordered objective list, primary first.
type LexicoSpec struct {
	objectives []Objective
}

// NewLexicoSpec validates the objective order.
func NewLexicoSpec(objectives []Objective) (*LexicoSpec, error) {
	if len(objectives) == 0 {
		return nil, &InvalidSpecError{Field: "objectives", Reason: "must not be empty"}
	}

	seen := make(map[string]bool, len(objectives))
	for _, o := range objectives {
		if o.Metric == "" {
			return nil, &InvalidSpecError{Field: "objective", Reason: "metric is required"}
		}
		if seen[o.Metric] {
			return nil, &InvalidSpecError{Field: o.Metric, Reason: "duplicate objective metric"}
		}
		seen[o.Metric] = true

		if o.Direction != Minimize && o.Direction != Maximize {
			return nil, &InvalidSpecError{Field: o.Metric, Reason: fmt.Sprintf("direction must be min or max, got %q", o.Direction)}
		}
		if o.Tolerance < 0 {
			return nil, &InvalidSpecError{Field: o.Metric, Reason: fmt.Sprintf("tolerance must be >= 0, got %v", o.Tolerance)}
		}
	}

	return &LexicoSpec{objectives: objectives}, nil
}

// Objectives returns the objective order, primary first.
func (l *LexicoSpec) Objectives() []Objective {
	return l.objectives
}

// Primary returns the first objective.
func (l *LexicoSpec) Primary() Objective {
	return l.objectives[0]
}

// Validate checks that a metric result carries every required metric.
func (l *LexicoSpec) Validate(m MetricResult) error {
	for _, o := range l.objectives {
		if _, ok := m[o.Metric]; !ok {
			return &MissingMetricError{Metric: o.Metric}
		}
	}
	return nil
}

// Prefer compares two metric results lexicographically. Objectives are
// consulted in order; a difference within an objective's tolerance
// defers the decision to the next objective. If every objective is
// within tolerance the results are equal.
func (l *LexicoSpec) Prefer(a, b MetricResult) (Preference, error) {
	if err := l.Validate(a); err != nil {
		return PreferEqual, err
	}
	if err := l.Validate(b); err != nil {
		return PreferEqual, err
	}

	for _, o := range l.objectives {
		va, vb := a[o.Metric], b[o.Metric]

		diff := va - vb
		if o.Direction == Maximize {
			diff = -diff
		}

		// diff < 0 now means a is better regardless of direction.
		if diff < -o.Tolerance {
			return PreferFirst, nil
		}
		if diff > o.Tolerance {
			return PreferSecond, nil
		}
	}

	return PreferEqual, nil
}

// HasTargets reports whether any objective declares a target.
func (l *LexicoSpec) HasTargets() bool {
	for _, o := range l.objectives {
		if o.Target != nil {
			return true
		}
	}
	return false
}

// Satisfied reports whether the result meets every declared target.
// Objectives without a target impose no constraint. A result missing a
// targeted metric does not satisfy it.
func (l *LexicoSpec) Satisfied(m MetricResult) bool {
	for _, o := range l.objectives {
		if o.Target == nil {
			continue
		}
		v, ok := m[o.Metric]
		if !ok {
			return false
		}
		if o.Direction == Minimize && v > *o.Target {
			return false
		}
		if o.Direction == Maximize && v < *o.Target {
			return false
		}
	}
	return true
}
