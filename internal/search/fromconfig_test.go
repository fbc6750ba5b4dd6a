package search

import (
	"testing"
	"time"

	"github.com/jingdong00/FLAML/pkg/config"
	"github.com/jingdong00/FLAML/pkg/utils"
)

func experimentFixture(t *testing.T) *config.Experiment {
	t.Helper()
	exp, err := config.ParseExperimentYAMLString(`
search:
  parameters:
    - name: layers
      kind: int
      low: 1
      high: 8
    - name: learning_rate
      kind: logfloat
      low: 0.0001
      high: 0.1
    - name: activation
      kind: choice
      choices: [relu, tanh]
  seed:
    layers: 2
objectives:
  - metric: error_rate
    mode: min
    tolerance: 0.02
    target: 0.05
  - metric: flops
    mode: min
budget:
  max_trials: 50
  max_duration: 2m
  parallelism: 4
  stall_after: 10
evaluation:
  objective: synthetic-nn
`)
	if err != nil {
		t.Fatalf("ParseExperimentYAMLString: %v", err)
	}
	return exp
}

func TestSpaceFromConfig(t *testing.T) {
	exp := experimentFixture(t)

	space, err := SpaceFromConfig(&exp.Search)
	if err != nil {
		t.Fatalf("SpaceFromConfig: %v", err)
	}

	params := space.Params()
	if len(params) != 3 {
		t.Fatalf("expected 3 parameters, got %d", len(params))
	}
	if params[1].Kind != KindLogFloat {
		t.Fatalf("expected logfloat, got %s", params[1].Kind)
	}

	cfg := space.Sample(utils.NewRandSource(1))
	if err := space.Contains(cfg); err != nil {
		t.Fatalf("sample out of domain: %v", err)
	}
}

func TestLexicoFromConfig(t *testing.T) {
	exp := experimentFixture(t)

	lexico, err := LexicoFromConfig(exp.Objectives)
	if err != nil {
		t.Fatalf("LexicoFromConfig: %v", err)
	}

	objs := lexico.Objectives()
	if len(objs) != 2 {
		t.Fatalf("expected 2 objectives, got %d", len(objs))
	}
	if objs[0].Metric != "error_rate" || objs[0].Direction != Minimize {
		t.Fatalf("unexpected primary: %+v", objs[0])
	}
	if objs[0].Target == nil || *objs[0].Target != 0.05 {
		t.Fatalf("expected target 0.05, got %+v", objs[0].Target)
	}
	if !lexico.HasTargets() {
		t.Fatalf("expected targets")
	}
}

func TestBudgetFromConfig(t *testing.T) {
	exp := experimentFixture(t)

	budget, err := BudgetFromConfig(&exp.Budget)
	if err != nil {
		t.Fatalf("BudgetFromConfig: %v", err)
	}
	if budget.MaxTrials != 50 || budget.Parallelism != 4 || budget.StallAfter != 10 {
		t.Fatalf("unexpected budget: %+v", budget)
	}
	if budget.MaxDuration != 2*time.Minute {
		t.Fatalf("expected 2m duration, got %v", budget.MaxDuration)
	}
}

func TestSamplerFromConfigSeedCoercion(t *testing.T) {
	exp := experimentFixture(t)

	space, err := SpaceFromConfig(&exp.Search)
	if err != nil {
		t.Fatalf("SpaceFromConfig: %v", err)
	}
	sampler, err := SamplerFromConfig(&exp.Search, space, utils.NewRandSource(1))
	if err != nil {
		t.Fatalf("SamplerFromConfig: %v", err)
	}

	// YAML ints become int64 so the seed passes domain checks.
	first, err := sampler.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first["layers"] != int64(2) {
		t.Fatalf("expected seeded layers=2, got %v (%T)", first["layers"], first["layers"])
	}
}

func TestSamplerFromConfigGuided(t *testing.T) {
	exp := experimentFixture(t)
	exp.Search.Strategy = "guided"

	space, err := SpaceFromConfig(&exp.Search)
	if err != nil {
		t.Fatalf("SpaceFromConfig: %v", err)
	}
	sampler, err := SamplerFromConfig(&exp.Search, space, utils.NewRandSource(1))
	if err != nil {
		t.Fatalf("SamplerFromConfig: %v", err)
	}
	if _, ok := sampler.(*GuidedSampler); !ok {
		t.Fatalf("expected GuidedSampler, got %T", sampler)
	}
}
