package search_test

import (
	"context"
	"testing"

	"github.com/chazu/epicycle/pkg/overlap"
	"github.com/chazu/epicycle/pkg/phase"
	"github.com/chazu/epicycle/pkg/search"
	"github.com/chazu/epicycle/pkg/train"
)

func TestEvaluateAssemblyFilter(t *testing.T) {
	tol := train.DefaultTolerances()
	// 24+72 = 96 divides by 6; 24+71 = 95 does not.
	if _, stage := search.Evaluate(search.Config{Sun: 24, Inner: 12, Outer: 18, Ring: 71, Planets: 6, Module: 2}, tol); stage != search.StageAssembly {
		t.Errorf("R=71 stage = %v, want assembly", stage)
	}
	if _, stage := search.Evaluate(search.Config{Sun: 24, Inner: 12, Outer: 18, Ring: 72, Planets: 6, Module: 2}, tol); stage == search.StageAssembly {
		t.Errorf("R=72 rejected by assembly filter")
	}
}

func TestEvaluateGeometryFilter(t *testing.T) {
	tol := train.DefaultTolerances()
	// Tiny planets nowhere near the ring: the placement triangle
	// cannot close.
	cfg := search.Config{Sun: 12, Inner: 6, Outer: 6, Ring: 102, Planets: 6, Module: 2}
	if _, stage := search.Evaluate(cfg, tol); stage != search.StageGeometry {
		t.Errorf("stage = %v, want geometry", stage)
	}
}

// Whatever verdict the pipeline reaches, it must agree with the
// overlap detector run independently on the same train: a passing
// candidate may not carry a collision the detector would flag.
func TestEvaluateConsistentWithDetectors(t *testing.T) {
	tol := train.DefaultTolerances()
	for _, tri := range []bool{false, true} {
		cfg := search.Config{Sun: 24, Inner: 12, Outer: 18, Ring: 72, Planets: 6, Module: 2, Triangular: tri}
		cand, stage := search.Evaluate(cfg, tol)
		if stage == search.StagePassed {
			rep := overlap.CheckAnalytic(cand.Train, tol)
			if rep.Overlap {
				t.Errorf("triangular=%v: passed but overlap detector flags %v", tri, rep.Flagged())
			}
			res, err := phase.Propagate(cand.Train)
			if err != nil {
				t.Fatalf("Propagate: %v", err)
			}
			for _, g := range cand.Train.Gears() {
				demands := res.DemandValues(g.ID)
				if len(demands) < 2 {
					continue
				}
				if a := phase.CheckAlignment(demands, g.Teeth, tol); !a.Aligned && !a.RegularlySpaced {
					t.Errorf("triangular=%v: passed with misaligned %s demands (variance %g)", tri, g.ID, a.Variance)
				}
			}
		} else if cand != nil {
			t.Errorf("triangular=%v: rejected at %v but returned a candidate", tri, stage)
		}
	}
}

func TestRunHonorsBudget(t *testing.T) {
	opts := search.DefaultOptions()
	opts.Bounds = search.Bounds{
		SunMin: 12, SunMax: 36,
		InnerMin: 6, InnerMax: 18,
		OuterMin: 6, OuterMax: 18,
		RingMin: 36, RingMax: 96,
		PlanetCounts: []int{3, 6},
		Module:       2,
		Step:         2,
	}
	opts.Budget = 50
	opts.Workers = 4

	res, err := search.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stats.Evaluated > 50 {
		t.Errorf("Evaluated = %d, budget was 50", res.Stats.Evaluated)
	}
	if res.Stats.Tested == 0 {
		t.Error("nothing tested")
	}
}

func TestRunStageAccounting(t *testing.T) {
	opts := search.DefaultOptions()
	opts.Bounds = search.Bounds{
		SunMin: 24, SunMax: 36,
		InnerMin: 12, InnerMax: 18,
		OuterMin: 12, OuterMax: 18,
		RingMin: 60, RingMax: 84,
		PlanetCounts: []int{6},
		Module:       2,
		Step:         6,
	}
	opts.Budget = 0 // unbounded: the whole space is small
	res, err := search.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var sum int64
	for _, n := range res.Stats.ByStage {
		sum += n
	}
	if sum != res.Stats.Tested {
		t.Errorf("stage counts sum to %d, tested %d", sum, res.Stats.Tested)
	}
	if int64(len(res.Best)) > res.Stats.ByStage[search.StagePassed] {
		t.Errorf("kept %d candidates but only %d passed", len(res.Best), res.Stats.ByStage[search.StagePassed])
	}
	for i := 1; i < len(res.Best); i++ {
		if res.Best[i].Less(res.Best[i-1]) {
			t.Errorf("candidates %d and %d out of order", i-1, i)
		}
	}
}

func TestRunDeterministicRanking(t *testing.T) {
	opts := search.DefaultOptions()
	opts.Bounds = search.Bounds{
		SunMin: 24, SunMax: 48,
		InnerMin: 12, InnerMax: 24,
		OuterMin: 12, OuterMax: 24,
		RingMin: 60, RingMax: 96,
		PlanetCounts: []int{3, 6},
		Module:       2,
		Step:         12,
	}
	opts.Budget = 0

	run := func(workers int) *search.Result {
		o := opts
		o.Workers = workers
		res, err := search.Run(context.Background(), o)
		if err != nil {
			t.Fatalf("Run(workers=%d): %v", workers, err)
		}
		return res
	}
	a, b := run(1), run(8)
	if a.Stats.Tested != b.Stats.Tested {
		t.Errorf("tested counts differ: %d vs %d", a.Stats.Tested, b.Stats.Tested)
	}
	if len(a.Best) != len(b.Best) {
		t.Fatalf("kept %d vs %d candidates", len(a.Best), len(b.Best))
	}
	for i := range a.Best {
		if a.Best[i].Config != b.Best[i].Config {
			t.Errorf("rank %d differs: %v vs %v", i, a.Best[i].Config, b.Best[i].Config)
		}
	}
}
