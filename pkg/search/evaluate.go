package search

import (
	"fmt"
	"math"

	"github.com/chazu/epicycle/pkg/gear"
	"github.com/chazu/epicycle/pkg/layout"
	"github.com/chazu/epicycle/pkg/overlap"
	"github.com/chazu/epicycle/pkg/phase"
	"github.com/chazu/epicycle/pkg/train"
)

// Config is one candidate tooth-count tuple, fully determining a gear
// train before solving.
type Config struct {
	Sun, Inner, Outer, Ring int
	Planets                 int
	Module                  float64
	// Triangular selects the layout where each outer planet bridges
	// two adjacent inner planets; otherwise each outer planet hangs
	// off a single inner planet at the law-of-cosines offset angle.
	Triangular bool
}

func (c Config) String() string {
	shape := "direct"
	if c.Triangular {
		shape = "triangular"
	}
	return fmt.Sprintf("S%d/I%d/O%d/R%d n=%d m=%g %s", c.Sun, c.Inner, c.Outer, c.Ring, c.Planets, c.Module, shape)
}

// InnerOrbit is the inner planets' distance from the train axis.
func (c Config) InnerOrbit() float64 { return float64(c.Sun+c.Inner) * c.Module / 2 }

// MeshDistance is the inner-to-outer planet center separation.
func (c Config) MeshDistance() float64 { return float64(c.Inner+c.Outer) * c.Module / 2 }

// RingOrbit is the orbit the ring mesh requires of the outer planets.
func (c Config) RingOrbit() float64 { return float64(c.Ring-c.Outer) * c.Module / 2 }

// Candidate is a configuration that survived every filter, with the
// scores the ranking sorts on.
type Candidate struct {
	Config        Config
	Train         *train.Train
	PhaseVariance float64
	RingError     float64
	SunMargin     float64
	// RegularlySpaced carries the alignment validator's pattern
	// signal for callers that rank rather than gate.
	RegularlySpaced bool
	Warnings        []train.Finding
}

// Less orders candidates best-first: tightest phase agreement, then
// smallest ring fit error, then the roomiest clearance around the sun.
// Ties fall back to the tooth counts so the order is total and does
// not depend on evaluation order.
func (c *Candidate) Less(o *Candidate) bool {
	if c.PhaseVariance != o.PhaseVariance {
		return c.PhaseVariance < o.PhaseVariance
	}
	if c.RingError != o.RingError {
		return c.RingError < o.RingError
	}
	if c.SunMargin != o.SunMargin {
		return c.SunMargin > o.SunMargin
	}
	return c.Config.String() < o.Config.String()
}

// Evaluate runs a configuration through the full pipeline and reports
// either a scored candidate (stage == StagePassed) or the stage that
// rejected it. Infeasibility is a normal outcome; nothing here aborts
// a sweep.
func Evaluate(cfg Config, tol train.Tolerances) (*Candidate, Stage) {
	if cfg.Planets <= 0 || (cfg.Sun+cfg.Ring)%cfg.Planets != 0 {
		return nil, StageAssembly
	}
	feas := layout.MeshAngle(cfg.InnerOrbit(), cfg.RingOrbit(), cfg.MeshDistance(), tol)
	if !feas.Feasible {
		return nil, StageGeometry
	}
	cand := &Candidate{Config: cfg}
	for _, f := range feas.Findings {
		if f.Warning {
			cand.Warnings = append(cand.Warnings, f)
		}
	}

	tr, ringErr, findings := BuildTrain(cfg, feas.OffsetDeg, tol)
	for _, f := range findings {
		if !f.Warning {
			return nil, StagePlacement
		}
		cand.Warnings = append(cand.Warnings, f)
	}
	cand.RingError = ringErr

	res, err := phase.Propagate(tr)
	if err != nil {
		return nil, StagePlacement
	}
	variance := 0.0
	for _, g := range tr.Gears() {
		demands := res.DemandValues(g.ID)
		if len(demands) < 2 {
			continue
		}
		a := phase.CheckAlignment(demands, g.Teeth, tol)
		if !a.Aligned {
			if !a.RegularlySpaced {
				return nil, StagePhase
			}
			cand.RegularlySpaced = true
		}
		variance = math.Max(variance, a.Variance)
	}
	cand.PhaseVariance = variance
	cand.Train = tr.WithPhases(res.Phases)

	if rep := overlap.CheckAnalytic(cand.Train, tol); rep.Overlap {
		return nil, StageOverlap
	}
	clear := layout.CheckClearances(cand.Train, tol)
	for _, f := range clear.Findings {
		if !f.Warning {
			return nil, StageOverlap
		}
		cand.Warnings = append(cand.Warnings, f)
	}
	cand.SunMargin = clear.SunMargin
	return cand, StagePassed
}

// BuildTrain lays out a configuration: sun at the origin, inner
// planets equally spaced, outer planets either bridging adjacent
// inner pairs (triangular) or offset from their inner planet by
// offsetDeg, and the ring around everything. It returns the largest
// ring-orbit deviation seen and any placement findings.
//
// Besides the structural meshes, any gear pair that lands at its
// theoretical center distance gets a mesh edge too: some tooth sets
// put the inner planets exactly on the ring (R−I = S+I), and treating
// that as accidental proximity would misreport it as interference.
func BuildTrain(cfg Config, offsetDeg float64, tol train.Tolerances) (*train.Train, float64, []train.Finding) {
	var findings []train.Finding
	var specs []*gear.Spec
	declared := make(map[[2]string]bool)
	b := train.NewBuilder()
	addGear := func(s *gear.Spec) {
		specs = append(specs, s)
		b.Gear(s)
	}
	addMesh := func(g1, g2 string) {
		k := [2]string{g1, g2}
		if k[1] < k[0] {
			k[0], k[1] = k[1], k[0]
		}
		if !declared[k] {
			declared[k] = true
			b.Mesh(g1, g2)
		}
	}
	addGear(&gear.Spec{ID: "sun", Teeth: cfg.Sun, Module: cfg.Module})
	addGear(&gear.Spec{ID: "ring", Teeth: cfg.Ring, Module: cfg.Module, Internal: true})

	inner := layout.InnerRing(cfg.InnerOrbit(), cfg.Planets)
	for i, p := range inner {
		addGear(&gear.Spec{
			ID: fmt.Sprintf("inner%d", i+1), Teeth: cfg.Inner, Module: cfg.Module,
			Center: gear.Vec3{X: p.X, Y: p.Y},
		})
		addMesh("sun", fmt.Sprintf("inner%d", i+1))
	}

	ringErr := 0.0
	for i := 0; i < cfg.Planets; i++ {
		id := fmt.Sprintf("outer%d", i+1)
		if cfg.Triangular {
			next := (i + 1) % cfg.Planets
			t := layout.SolveTriangular(inner[i], inner[next], cfg.MeshDistance(), cfg.RingOrbit(), tol)
			findings = append(findings, t.Findings...)
			if !t.OK {
				continue
			}
			ringErr = math.Max(ringErr, t.RingError)
			addGear(&gear.Spec{ID: id, Teeth: cfg.Outer, Module: cfg.Module, Center: gear.Vec3{X: t.Center.X, Y: t.Center.Y}})
			addMesh(fmt.Sprintf("inner%d", i+1), id)
			addMesh(fmt.Sprintf("inner%d", next+1), id)
		} else {
			angle := float64(i) * 360 / float64(cfg.Planets)
			pos := layout.OuterDirect(cfg.RingOrbit(), angle, offsetDeg)[0]
			if err := math.Abs(pos.Distance(inner[i]) - cfg.MeshDistance()); err > tol.MeshDistance {
				findings = append(findings, train.Finding{
					Kind:     train.PlacementError,
					Gear1:    id,
					Message:  fmt.Sprintf("outer planet misses mesh distance by %.4fmm", err),
					Residual: err,
				})
				continue
			}
			addGear(&gear.Spec{ID: id, Teeth: cfg.Outer, Module: cfg.Module, Center: gear.Vec3{X: pos.X, Y: pos.Y}})
			addMesh(fmt.Sprintf("inner%d", i+1), id)
		}
		addMesh(id, "ring")
	}

	// Coincidental meshes: undeclared pairs already sitting at their
	// theoretical center distance.
	for i := 0; i < len(specs); i++ {
		for j := i + 1; j < len(specs); j++ {
			a, c := specs[i], specs[j]
			if a.Internal && c.Internal {
				continue
			}
			if math.Abs(gear.ActualCenterDistance(a, c)-gear.CenterDistance(a, c)) <= tol.CenterDistance {
				addMesh(a.ID, c.ID)
			}
		}
	}

	tr, err := b.Build()
	if err != nil {
		findings = append(findings, train.Finding{Kind: train.PlacementError, Message: err.Error()})
		return nil, ringErr, findings
	}
	return tr, ringErr, findings
}
