package search

import (
	"errors"
	"fmt"
	"math"

	"github.com/jingdong00/FLAML/pkg/utils"
)

// ErrSpaceExhausted is returned by a sampler once every distinct
// configuration of a finite space has been proposed.
var ErrSpaceExhausted = errors.New("search space exhausted")

// maxPerturbRejections bounds how many duplicate perturbations the
// guided sampler tolerates per proposal. With a small radius the
// incumbent's neighborhood can be fully proposed while distant
// configurations remain unseen; uniform draws reach every one.
const maxPerturbRejections = 32

// Sampler proposes candidate configurations. Implementations are not
// safe for concurrent use; schedulers serialize access.
type Sampler interface {
	// Next proposes a configuration the sampler has not proposed
	// before. In finite spaces it returns ErrSpaceExhausted once all
	// distinct configurations have been handed out.
	Next() (Configuration, error)
	// ObserveBest tells the sampler which configuration currently
	// leads, letting adaptive samplers focus near it.
	ObserveBest(cfg Configuration)
}

// dedupTracker remembers proposed configurations in finite spaces so a
// sampler never re-proposes one. Infinite spaces are not tracked.
type dedupTracker struct {
	space       *SearchSpace
	cardinality uint64
	finite      bool
	seen        map[string]bool
}

func newDedupTracker(space *SearchSpace) *dedupTracker {
	card, finite := space.Cardinality()
	t := &dedupTracker{space: space, cardinality: card, finite: finite}
	if finite {
		t.seen = make(map[string]bool)
	}
	return t
}

func (t *dedupTracker) exhausted() bool {
	return t.finite && uint64(len(t.seen)) >= t.cardinality
}

// admit records the configuration and reports whether it is new.
func (t *dedupTracker) admit(cfg Configuration) bool {
	if !t.finite {
		return true
	}
	fp := t.space.Fingerprint(cfg)
	if t.seen[fp] {
		return false
	}
	t.seen[fp] = true
	return true
}

// RandomSampler draws configurations uniformly (log-uniformly for
// logfloat parameters). An optional seed configuration, possibly
// partial, is merged into the first proposal so a known low-cost
// starting point is always evaluated first.
type RandomSampler struct {
	space *SearchSpace
	rng   *utils.RandSource
	dedup *dedupTracker
	seed  Configuration
}

// NewRandomSampler validates the optional seed against the space and
// returns a sampler. Seed values win over sampled values for the first
// proposal; unseeded parameters are sampled.
func NewRandomSampler(space *SearchSpace, rng *utils.RandSource, seed Configuration) (*RandomSampler, error) {
	if err := validateSeed(space, seed); err != nil {
		return nil, err
	}
	return &RandomSampler{
		space: space,
		rng:   rng,
		dedup: newDedupTracker(space),
		seed:  seed,
	}, nil
}

func validateSeed(space *SearchSpace, seed Configuration) error {
	for name, v := range seed {
		p, ok := space.byName[name]
		if !ok {
			return &InvalidSpecError{Field: name, Reason: "seed references unknown parameter"}
		}
		if err := space.checkValue(p, v); err != nil {
			return &InvalidSpecError{Field: name, Reason: fmt.Sprintf("seed value out of domain: %v", err)}
		}
	}
	return nil
}

// Next proposes the next configuration.
func (s *RandomSampler) Next() (Configuration, error) {
	if s.seed != nil {
		cfg := s.space.Sample(s.rng)
		for name, v := range s.seed {
			cfg[name] = v
		}
		s.seed = nil
		s.dedup.admit(cfg)
		return cfg, nil
	}

	for {
		if s.dedup.exhausted() {
			return nil, ErrSpaceExhausted
		}
		cfg := s.space.Sample(s.rng)
		if s.dedup.admit(cfg) {
			return cfg, nil
		}
	}
}

// ObserveBest is a no-op: uniform sampling ignores the incumbent.
func (s *RandomSampler) ObserveBest(cfg Configuration) {}

// GuidedSampler starts uniform, then resamples in a shrinking
// neighborhood around the best configuration seen so far. The radius is
// a fraction of each parameter's span; it decays on every proposal and
// resets when a new best is observed.
type GuidedSampler struct {
	space *SearchSpace
	rng   *utils.RandSource
	dedup *dedupTracker
	seed  Configuration

	best      Configuration
	radius    float64
	initial   float64
	decay     float64
	minRadius float64
}

// NewGuidedSampler returns a guided sampler with the same seed handling
// as NewRandomSampler.
func NewGuidedSampler(space *SearchSpace, rng *utils.RandSource, seed Configuration) (*GuidedSampler, error) {
	if err := validateSeed(space, seed); err != nil {
		return nil, err
	}
	return &GuidedSampler{
		space:     space,
		rng:       rng,
		dedup:     newDedupTracker(space),
		seed:      seed,
		radius:    1.0,
		initial:   1.0,
		decay:     0.98,
		minRadius: 0.05,
	}, nil
}

// Next proposes the next configuration.
func (s *GuidedSampler) Next() (Configuration, error) {
	if s.seed != nil {
		cfg := s.space.Sample(s.rng)
		for name, v := range s.seed {
			cfg[name] = v
		}
		s.seed = nil
		s.dedup.admit(cfg)
		return cfg, nil
	}

	rejections := 0
	for {
		if s.dedup.exhausted() {
			return nil, ErrSpaceExhausted
		}

		var cfg Configuration
		if s.best == nil || rejections >= maxPerturbRejections {
			cfg = s.space.Sample(s.rng)
		} else {
			cfg = s.perturb(s.best)
			s.radius = math.Max(s.radius*s.decay, s.minRadius)
		}

		if s.dedup.admit(cfg) {
			return cfg, nil
		}
		rejections++
	}
}

// ObserveBest records the new incumbent and widens the neighborhood
// back to its initial radius.
func (s *GuidedSampler) ObserveBest(cfg Configuration) {
	s.best = cfg.Clone()
	s.radius = s.initial
}

func (s *GuidedSampler) perturb(center Configuration) Configuration {
	cfg := make(Configuration, len(s.space.params))
	for _, p := range s.space.params {
		cfg[p.Name] = s.perturbParam(p, center[p.Name])
	}
	return cfg
}

func (s *GuidedSampler) perturbParam(p ParamSpec, current any) any {
	switch p.Kind {
	case KindChoice:
		// Keep the incumbent choice most of the time; re-roll with
		// probability proportional to the radius.
		if s.rng.Float64() < s.radius {
			return p.Choices[s.rng.Intn(len(p.Choices))]
		}
		return current

	case KindInt:
		center, ok := toInt64(current)
		if !ok {
			return int64(s.rng.IntBetween(int(p.Low), int(p.High)))
		}
		span := (p.High - p.Low) * s.radius
		v := math.Round(float64(center) + s.rng.NormFloat64(0, span/4))
		return int64(utils.ClampFloat64(v, p.Low, p.High))

	case KindFloat:
		center, ok := toFloat64(current)
		if !ok {
			return s.rng.UniformFloat64(p.Low, p.High)
		}
		span := (p.High - p.Low) * s.radius
		v := center + s.rng.NormFloat64(0, span/4)
		return utils.ClampFloat64(v, p.Low, p.High)

	case KindLogFloat:
		center, ok := toFloat64(current)
		if !ok || center <= 0 {
			return s.rng.LogUniformFloat64(p.Low, p.High)
		}
		// Perturb in log domain so small values stay explorable.
		logLow, logHigh := math.Log(p.Low), math.Log(p.High)
		span := (logHigh - logLow) * s.radius
		v := math.Log(center) + s.rng.NormFloat64(0, span/4)
		return math.Exp(utils.ClampFloat64(v, logLow, logHigh))
	}
	return current
}
