package search

import (
	"github.com/jingdong00/FLAML/pkg/config"
	"github.com/jingdong00/FLAML/pkg/utils"
)

// SpaceFromConfig builds a validated SearchSpace from an experiment's
// parameter declarations.
func SpaceFromConfig(s *config.Search) (*SearchSpace, error) {
	params := make([]ParamSpec, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		params = append(params, ParamSpec{
			Name:    p.Name,
			Kind:    ParamKind(p.Kind),
			Low:     p.Low,
			High:    p.High,
			Choices: p.Choices,
		})
	}
	return NewSearchSpace(params)
}

// LexicoFromConfig builds a validated objective order from an
// experiment's objective declarations.
func LexicoFromConfig(objectives []config.Objective) (*LexicoSpec, error) {
	objs := make([]Objective, 0, len(objectives))
	for _, o := range objectives {
		objs = append(objs, Objective{
			Metric:    o.Metric,
			Direction: Direction(o.Mode),
			Tolerance: o.Tolerance,
			Target:    o.Target,
		})
	}
	return NewLexicoSpec(objs)
}

// BudgetFromConfig builds a Budget from an experiment's budget section.
func BudgetFromConfig(b *config.Budget) (Budget, error) {
	dur, err := b.GetMaxDuration()
	if err != nil {
		return Budget{}, &InvalidSpecError{Field: "budget.max_duration", Reason: err.Error()}
	}
	return Budget{
		MaxTrials:   b.MaxTrials,
		MaxDuration: dur,
		Parallelism: b.Parallelism,
		StallAfter:  b.StallAfter,
	}, nil
}

// SamplerFromConfig builds the sampler named by the experiment's search
// strategy, seeded with its starting configuration.
func SamplerFromConfig(s *config.Search, space *SearchSpace, rng *utils.RandSource) (Sampler, error) {
	var seed Configuration
	if len(s.Seed) > 0 {
		seed = make(Configuration, len(s.Seed))
		for name, v := range s.Seed {
			// YAML integers arrive as int; int parameters use int64.
			if p, ok := space.byName[name]; ok && p.Kind == KindInt {
				if n, isInt := toInt64(v); isInt {
					seed[name] = n
					continue
				}
			}
			seed[name] = v
		}
	}

	if s.Strategy == "guided" {
		return NewGuidedSampler(space, rng, seed)
	}
	return NewRandomSampler(space, rng, seed)
}
