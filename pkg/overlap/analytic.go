package overlap

import (
	"fmt"
	"math"

	"github.com/chazu/epicycle/pkg/gear"
	"github.com/chazu/epicycle/pkg/train"
)

// MeshCheck is the analytic measurement of one declared mesh edge.
type MeshCheck struct {
	Gear1, Gear2   string
	MinTipDistance float64
	// CenterError is how far the solved centers sit from the
	// theoretical mesh distance. Large values are placement errors,
	// not phase errors, and are reported separately.
	CenterError float64
	Flagged     bool
}

// AnalyticReport summarizes the analytic detector over a whole train.
type AnalyticReport struct {
	PairsChecked int
	Checks       []MeshCheck
	Overlap      bool
	Findings     []train.Finding
}

// Flagged returns only the checks whose tips came too close.
func (r AnalyticReport) Flagged() []MeshCheck {
	var out []MeshCheck
	for _, c := range r.Checks {
		if c.Flagged {
			out = append(out, c)
		}
	}
	return out
}

// TipPoints samples one point per tooth tip, evenly spaced by the
// tooth period starting at the gear's phase, pulled in from the outer
// radius by clearance to emulate manufacturing tolerance.
func TipPoints(g *gear.Spec, clearance float64) []gear.Vec2 {
	r := g.OuterRadius() - clearance
	c := g.Center.XY()
	pts := make([]gear.Vec2, g.Teeth)
	for i := 0; i < g.Teeth; i++ {
		pts[i] = c.Add(gear.PointOnCircle(r, g.Phase+float64(i)*g.ToothAngle()))
	}
	return pts
}

// CheckAnalytic measures every declared mesh edge: tooth tips of
// correctly phased gears interleave, so a minimum tip-to-tip distance
// below tol.TipClearance means the phases collide. Center-distance
// deviations beyond tol.CenterDistance are placement errors and
// produce separate findings.
func CheckAnalytic(tr *train.Train, tol train.Tolerances) AnalyticReport {
	rep := AnalyticReport{}
	tips := make(map[string][]gear.Vec2)
	for _, g := range tr.Gears() {
		tips[g.ID] = TipPoints(g, tol.SampleClearance)
	}
	for _, e := range tr.Graph().Edges() {
		g1, g2 := tr.Gear(e[0]), tr.Gear(e[1])
		c := MeshCheck{Gear1: g1.ID, Gear2: g2.ID}
		c.MinTipDistance = minPointDistance(tips[g1.ID], tips[g2.ID])
		c.CenterError = math.Abs(gear.ActualCenterDistance(g1, g2) - gear.CenterDistance(g1, g2))
		c.Flagged = c.MinTipDistance < tol.TipClearance

		rep.PairsChecked++
		if c.Flagged {
			rep.Overlap = true
			rep.Findings = append(rep.Findings, train.Finding{
				Kind:     train.ToothOverlap,
				Gear1:    g1.ID,
				Gear2:    g2.ID,
				Message:  fmt.Sprintf("tooth tips %.3fmm apart, need %.3fmm", c.MinTipDistance, tol.TipClearance),
				Residual: c.MinTipDistance,
			})
		}
		if c.CenterError > tol.CenterDistance {
			rep.Findings = append(rep.Findings, train.Finding{
				Kind:     train.PlacementError,
				Gear1:    g1.ID,
				Gear2:    g2.ID,
				Message:  fmt.Sprintf("center distance off by %.3fmm", c.CenterError),
				Residual: c.CenterError,
			})
		}
		rep.Checks = append(rep.Checks, c)
	}
	return rep
}

func minPointDistance(a, b []gear.Vec2) float64 {
	min := math.Inf(1)
	for _, p := range a {
		for _, q := range b {
			if d := p.Distance(q); d < min {
				min = d
			}
		}
	}
	return min
}
