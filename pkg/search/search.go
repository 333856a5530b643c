// Package search sweeps tooth-count space for buildable double
// planetary gear trains. Cheap integer filters run first, then the
// full placement, phase and overlap pipeline on survivors; the best
// configurations are ranked by how cleanly their phases close.
package search

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/epicycle/pkg/train"
)

// Bounds delimits the enumerated tooth-count space.
type Bounds struct {
	SunMin, SunMax     int
	InnerMin, InnerMax int
	OuterMin, OuterMax int
	RingMin, RingMax   int
	PlanetCounts       []int
	Module             float64
	// Step thins the sun/inner/outer sweeps; 1 visits everything.
	Step int
}

// DefaultBounds covers the tooth ranges where printable double
// planetary trains have historically been found.
func DefaultBounds() Bounds {
	return Bounds{
		SunMin: 12, SunMax: 72,
		InnerMin: 6, InnerMax: 30,
		OuterMin: 6, OuterMax: 36,
		RingMin: 36, RingMax: 144,
		PlanetCounts: []int{3, 6},
		Module:       2,
		Step:         1,
	}
}

// Options configures a search run.
type Options struct {
	Bounds     Bounds
	Tolerances train.Tolerances
	// Budget caps the number of full evaluations (post integer
	// filters). The sweep stops once spent.
	Budget int
	// Workers is the number of goroutines sweeping (sun, inner,
	// outer) triples; 0 means GOMAXPROCS.
	Workers int
	// Keep is how many top-ranked candidates to retain.
	Keep   int
	Logger *slog.Logger
}

// DefaultOptions returns a bounded, parallel search with quiet logging.
func DefaultOptions() Options {
	return Options{
		Bounds:     DefaultBounds(),
		Tolerances: train.DefaultTolerances(),
		Budget:     200000,
		Keep:       10,
	}
}

// Stage identifies which filter rejected a configuration.
type Stage int

const (
	StageAssembly Stage = iota // (S+R) mod n
	StageGeometry              // triangle / law of cosines
	StagePlacement             // position solve, ring fit
	StagePhase                 // alignment at convergence gears
	StageOverlap               // analytic tooth clearance
	StagePassed
	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageAssembly:
		return "assembly"
	case StageGeometry:
		return "geometry"
	case StagePlacement:
		return "placement"
	case StagePhase:
		return "phase"
	case StageOverlap:
		return "overlap"
	case StagePassed:
		return "passed"
	}
	return "unknown"
}

// Stats counts configurations through each filter stage.
type Stats struct {
	Tested    int64
	Evaluated int64
	ByStage   [stageCount]int64
}

type counters struct {
	tested    atomic.Int64
	evaluated atomic.Int64
	byStage   [stageCount]atomic.Int64
}

func (c *counters) snapshot() Stats {
	s := Stats{
		Tested:    c.tested.Load(),
		Evaluated: c.evaluated.Load(),
	}
	for i := range c.byStage {
		s.ByStage[i] = c.byStage[i].Load()
	}
	return s
}

// Result is a completed search: stage accounting plus the ranked
// survivors.
type Result struct {
	Stats Stats
	Best  []*Candidate
}

// Run sweeps the bounded space. Independent (sun, inner, outer)
// triples are distributed over workers; results are merged and ranked
// at the end, so worker scheduling cannot change the outcome.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	b := opts.Bounds
	if b.Step <= 0 {
		b.Step = 1
	}

	type triple struct{ s, i, o int }
	feed := make(chan triple)

	var (
		cnt  counters
		mu   sync.Mutex
		kept []*Candidate
	)
	budget := int64(opts.Budget)

	g, gctx := errgroup.WithContext(ctx)
	// Spending the budget stops the sweep without being an error.
	sweep, stopSweep := context.WithCancel(gctx)
	defer stopSweep()

	g.Go(func() error {
		defer close(feed)
		for s := b.SunMin; s <= b.SunMax; s += b.Step {
			for i := b.InnerMin; i <= b.InnerMax; i += b.Step {
				for o := b.OuterMin; o <= b.OuterMax; o += b.Step {
					select {
					case feed <- triple{s, i, o}:
					case <-sweep.Done():
						return nil
					}
				}
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for t := range feed {
				for r := b.RingMin; r <= b.RingMax; r++ {
					for _, n := range b.PlanetCounts {
						for _, tri := range []bool{false, true} {
							cnt.tested.Add(1)
							cfg := Config{
								Sun: t.s, Inner: t.i, Outer: t.o,
								Ring: r, Planets: n,
								Module:     b.Module,
								Triangular: tri,
							}
							// Assembly is integer-only, checked
							// before spending budget.
							if (cfg.Sun+cfg.Ring)%cfg.Planets != 0 {
								cnt.byStage[StageAssembly].Add(1)
								continue
							}
							if ev := cnt.evaluated.Add(1); budget > 0 && ev > budget {
								log.Debug("evaluation budget spent", "budget", opts.Budget)
								stopSweep()
								return nil
							}
							cand, stage := Evaluate(cfg, opts.Tolerances)
							cnt.byStage[stage].Add(1)
							if stage != StagePassed {
								continue
							}
							log.Debug("candidate passed",
								"sun", cfg.Sun, "inner", cfg.Inner,
								"outer", cfg.Outer, "ring", cfg.Ring,
								"planets", cfg.Planets, "triangular", cfg.Triangular,
								"variance", cand.PhaseVariance,
								"ring_error", cand.RingError)
							mu.Lock()
							kept = insertRanked(kept, cand, opts.Keep)
							mu.Unlock()
						}
					}
				}
				select {
				case <-sweep.Done():
					return nil
				default:
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Stats: cnt.snapshot(), Best: kept}
	if res.Stats.Evaluated > int64(opts.Budget) && opts.Budget > 0 {
		res.Stats.Evaluated = int64(opts.Budget)
	}
	log.Info("search finished",
		"tested", res.Stats.Tested,
		"evaluated", res.Stats.Evaluated,
		"passed", res.Stats.ByStage[StagePassed])
	return res, nil
}

// insertRanked keeps the candidate list sorted and bounded.
func insertRanked(list []*Candidate, c *Candidate, keep int) []*Candidate {
	list = append(list, c)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Less(list[j])
	})
	if keep > 0 && len(list) > keep {
		list = list[:keep]
	}
	return list
}
