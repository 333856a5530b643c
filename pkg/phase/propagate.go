// Package phase computes tooth alignment for a gear train: it walks
// the mesh graph from a reference gear, derives the rotational phase
// each mesh demands of its partner, reconciles gears reached over
// multiple paths with a circular mean, and scores how well the
// competing demands agree.
package phase

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/chazu/epicycle/pkg/gear"
	"github.com/chazu/epicycle/pkg/train"
)

// Demand is one mesh path's requirement on a gear's phase.
type Demand struct {
	From  string
	Value float64 // degrees in [0, 360)
}

// Result holds the reconciled phases of a propagation pass.
type Result struct {
	Root   string
	Phases map[string]float64
	// Demands holds the raw per-path values for every gear, before
	// circular averaging. Gears with more than one entry are the
	// convergence points the alignment validator cares about.
	Demands map[string][]Demand
}

// DemandValues returns the raw demand angles for a gear.
func (r *Result) DemandValues(id string) []float64 {
	ds := r.Demands[id]
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.Value
	}
	return out
}

// Mod360 normalizes an angle in degrees into [0, 360).
func Mod360(deg float64) float64 {
	m := math.Mod(deg, 360)
	if m < 0 {
		m += 360
	}
	return m
}

// Transfer derives the phase one mesh demands of gear y, given gear
// x's phase. Angles grow counter-clockwise. The angular term follows
// the direction from x's center to y's center; an internal mesh flips
// its sign because ring teeth face inward and invert the coupling. The
// trailing half-tooth offset interleaves y's valleys with x's tips.
func Transfer(x, y *gear.Spec, phaseX float64) float64 {
	ratio := float64(x.Teeth) / float64(y.Teeth)
	d := y.Center.XY().Sub(x.Center.XY())
	ang := math.Atan2(d.Y, d.X) * 180 / math.Pi
	sign := 1.0
	if x.Internal != y.Internal {
		sign = -1
	}
	return Mod360(phaseX*ratio + sign*ang*ratio + y.HalfTooth())
}

// Propagate walks the mesh graph breadth-first from the reference gear
// (the external gear nearest the train axis, phase fixed at 0°) and
// assigns every reachable gear its reconciled phase. Every mesh edge
// whose far end is already phased contributes a demand, including
// edges between gears at the same depth, so no constraint escapes the
// alignment check. Demands at each depth are collected before
// averaging, so the result does not depend on neighbor iteration
// order.
func Propagate(tr *train.Train) (*Result, error) {
	gears := tr.Gears()
	if len(gears) == 0 {
		return nil, fmt.Errorf("train has no gears")
	}
	root := ""
	best := math.Inf(1)
	for _, g := range gears {
		if g.Internal {
			continue
		}
		if r := g.Center.XY().Norm(); r < best {
			root, best = g.ID, r
		}
	}
	if root == "" {
		return nil, fmt.Errorf("train has no external gear to use as reference")
	}

	graph := tr.Graph()
	depth := map[string]int{root: 0}
	frontier := []string{root}
	var levels [][]string
	for len(frontier) > 0 {
		levels = append(levels, frontier)
		var next []string
		for _, id := range frontier {
			for _, n := range graph.Neighbors(id) {
				if _, seen := depth[n]; !seen {
					depth[n] = depth[id] + 1
					next = append(next, n)
				}
			}
		}
		sort.Strings(next)
		frontier = next
	}

	res := &Result{
		Root:    root,
		Phases:  map[string]float64{root: 0},
		Demands: map[string][]Demand{root: {{From: "", Value: 0}}},
	}
	for d := 1; d < len(levels); d++ {
		// First assignment comes from the shallower neighbors that
		// discovered this level.
		for _, id := range levels[d] {
			y := tr.Gear(id)
			var demands []Demand
			for _, n := range graph.Neighbors(id) {
				if depth[n] >= d {
					continue
				}
				x := tr.Gear(n)
				demands = append(demands, Demand{From: n, Value: Transfer(x, y, res.Phases[n])})
			}
			res.Demands[id] = demands
			res.Phases[id] = CircularMeanDeg(demandValues(demands))
		}
		// Mesh edges inside the level also constrain both ends; these
		// demands are derived from the assignments above, so neither
		// end depends on iteration order.
		within := make(map[string][]Demand)
		for _, id := range levels[d] {
			y := tr.Gear(id)
			for _, n := range graph.Neighbors(id) {
				if depth[n] != d {
					continue
				}
				x := tr.Gear(n)
				within[id] = append(within[id], Demand{From: n, Value: Transfer(x, y, res.Phases[n])})
			}
		}
		for _, id := range levels[d] {
			if ds := within[id]; len(ds) > 0 {
				res.Demands[id] = append(res.Demands[id], ds...)
				res.Phases[id] = CircularMeanDeg(demandValues(res.Demands[id]))
			}
		}
	}
	return res, nil
}

func demandValues(ds []Demand) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.Value
	}
	return out
}

// CircularMeanDeg averages angles in degrees on the circle, so values
// straddling the 0°/360° wrap average correctly.
func CircularMeanDeg(deg []float64) float64 {
	rad := make([]float64, len(deg))
	for i, v := range deg {
		rad[i] = v * math.Pi / 180
	}
	return Mod360(stat.CircularMean(rad, nil) * 180 / math.Pi)
}
