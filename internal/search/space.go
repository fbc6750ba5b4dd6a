package search

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jingdong00/FLAML/pkg/utils"
)

// ParamKind enumerates the supported parameter domains.
type ParamKind string

const (
	// KindChoice draws uniformly from an explicit finite set.
	KindChoice ParamKind = "choice"
	// KindInt draws uniformly from the inclusive integer range [Low, High].
	KindInt ParamKind = "int"
	// KindFloat draws uniformly from the continuous range [Low, High].
	KindFloat ParamKind = "float"
	// KindLogFloat draws log-uniformly from [Low, High], Low > 0.
	KindLogFloat ParamKind = "logfloat"
)

// ParamSpec declares one tunable parameter.
type ParamSpec struct {
	Name    string
	Kind    ParamKind
	Low     float64
	High    float64
	Choices []any
}

// InvalidSpecError reports a malformed parameter or objective
// declaration. It is fatal: nothing downstream runs on a bad spec.
type InvalidSpecError struct {
	Field  string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid spec: %s: %s", e.Field, e.Reason)
}

// SearchSpace is a validated, immutable set of parameter specs.
type SearchSpace struct {
	params []ParamSpec
	byName map[string]ParamSpec
}

// NewSearchSpace validates the given specs and returns a space over them.
func NewSearchSpace(params []ParamSpec) (*SearchSpace, error) {
	if len(params) == 0 {
		return nil, &InvalidSpecError{Field: "parameters", Reason: "must not be empty"}
	}

	byName := make(map[string]ParamSpec, len(params))
	for _, p := range params {
		if p.Name == "" {
			return nil, &InvalidSpecError{Field: "parameter", Reason: "name is required"}
		}
		if _, dup := byName[p.Name]; dup {
			return nil, &InvalidSpecError{Field: p.Name, Reason: "duplicate parameter name"}
		}

		switch p.Kind {
		case KindChoice:
			if len(p.Choices) == 0 {
				return nil, &InvalidSpecError{Field: p.Name, Reason: "choices must not be empty"}
			}
		case KindInt, KindFloat, KindLogFloat:
			if p.Low >= p.High {
				return nil, &InvalidSpecError{Field: p.Name, Reason: fmt.Sprintf("low (%v) must be less than high (%v)", p.Low, p.High)}
			}
			if p.Kind == KindLogFloat && p.Low <= 0 {
				return nil, &InvalidSpecError{Field: p.Name, Reason: fmt.Sprintf("logfloat requires low > 0, got %v", p.Low)}
			}
			if p.Kind == KindInt && (p.Low != math.Trunc(p.Low) || p.High != math.Trunc(p.High)) {
				return nil, &InvalidSpecError{Field: p.Name, Reason: fmt.Sprintf("int bounds must be whole numbers, got [%v, %v]", p.Low, p.High)}
			}
		default:
			return nil, &InvalidSpecError{Field: p.Name, Reason: fmt.Sprintf("unknown kind %q", p.Kind)}
		}

		byName[p.Name] = p
	}

	return &SearchSpace{params: params, byName: byName}, nil
}

// Params returns the parameter specs in declaration order.
func (s *SearchSpace) Params() []ParamSpec {
	return s.params
}

// Sample draws one full configuration from the space.
func (s *SearchSpace) Sample(rng *utils.RandSource) Configuration {
	cfg := make(Configuration, len(s.params))
	for _, p := range s.params {
		cfg[p.Name] = s.sampleParam(p, rng)
	}
	return cfg
}

func (s *SearchSpace) sampleParam(p ParamSpec, rng *utils.RandSource) any {
	switch p.Kind {
	case KindChoice:
		return p.Choices[rng.Intn(len(p.Choices))]
	case KindInt:
		return int64(rng.IntBetween(int(p.Low), int(p.High)))
	case KindFloat:
		return rng.UniformFloat64(p.Low, p.High)
	case KindLogFloat:
		return rng.LogUniformFloat64(p.Low, p.High)
	}
	// Unreachable: kinds are validated at construction.
	return nil
}

// Contains reports whether the configuration assigns an in-domain value
// to every parameter and mentions no unknown parameters.
func (s *SearchSpace) Contains(cfg Configuration) error {
	for name := range cfg {
		if _, ok := s.byName[name]; !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
	}
	for _, p := range s.params {
		v, ok := cfg[p.Name]
		if !ok {
			return fmt.Errorf("missing parameter %q", p.Name)
		}
		if err := s.checkValue(p, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *SearchSpace) checkValue(p ParamSpec, v any) error {
	switch p.Kind {
	case KindChoice:
		for _, c := range p.Choices {
			if c == v {
				return nil
			}
		}
		return fmt.Errorf("parameter %q: value %v is not a declared choice", p.Name, v)
	case KindInt:
		n, ok := toInt64(v)
		if !ok {
			return fmt.Errorf("parameter %q: expected integer, got %T", p.Name, v)
		}
		if n < int64(p.Low) || n > int64(p.High) {
			return fmt.Errorf("parameter %q: %d outside [%d, %d]", p.Name, n, int64(p.Low), int64(p.High))
		}
	case KindFloat, KindLogFloat:
		f, ok := toFloat64(v)
		if !ok {
			return fmt.Errorf("parameter %q: expected float, got %T", p.Name, v)
		}
		if f < p.Low || f > p.High {
			return fmt.Errorf("parameter %q: %v outside [%v, %v]", p.Name, f, p.Low, p.High)
		}
	}
	return nil
}

// Cardinality returns the number of distinct configurations, and whether
// that number is finite. A space is finite only when every parameter is
// a choice or an integer range.
func (s *SearchSpace) Cardinality() (uint64, bool) {
	total := uint64(1)
	for _, p := range s.params {
		var n uint64
		switch p.Kind {
		case KindChoice:
			n = uint64(len(p.Choices))
		case KindInt:
			n = uint64(int64(p.High) - int64(p.Low) + 1)
		default:
			return 0, false
		}
		if n != 0 && total > math.MaxUint64/n {
			return math.MaxUint64, true
		}
		total *= n
	}
	return total, true
}

// Fingerprint returns a canonical string identity for a configuration,
// used by samplers to avoid re-proposing duplicates in finite spaces.
func (s *SearchSpace) Fingerprint(cfg Configuration) string {
	names := make([]string, 0, len(cfg))
	for name := range cfg {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s=%v", name, cfg[name])
	}
	return b.String()
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	}
	return 0, false
}
