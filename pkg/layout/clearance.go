package layout

import (
	"fmt"

	"github.com/chazu/epicycle/pkg/gear"
	"github.com/chazu/epicycle/pkg/train"
)

// ExternalClearance returns the radial margin between the tip circles
// of two external gears. Negative means the tip circles interpenetrate.
func ExternalClearance(a, b *gear.Spec) float64 {
	return gear.ActualCenterDistance(a, b) - a.OuterRadius() - b.OuterRadius()
}

// InternalClearance returns the margin between g's tip circle and the
// inward-facing tip opening of a ring gear enclosing it.
func InternalClearance(g, ring *gear.Spec) float64 {
	return ring.OuterRadius() - (gear.ActualCenterDistance(g, ring) + g.OuterRadius())
}

// ClearanceReport summarizes free margins between gears that do not
// mesh. Meshing pairs interleave by design and are excluded; their
// spacing is the overlap detector's concern.
type ClearanceReport struct {
	PairsChecked int
	MinMargin    float64
	MinPair      [2]string
	// SunMargin is the smallest margin involving the reference gear
	// (the external gear nearest the train axis), used for ranking.
	SunMargin float64
	Findings  []train.Finding
}

// CheckClearances measures every non-meshing gear pair in the train.
// Margins below zero are reported as ToothOverlap findings.
func CheckClearances(tr *train.Train, tol train.Tolerances) ClearanceReport {
	rep := ClearanceReport{}
	gears := tr.Gears()
	graph := tr.Graph()
	sunID := referenceGear(gears)

	meshed := func(a, b string) bool {
		for _, n := range graph.Neighbors(a) {
			if n == b {
				return true
			}
		}
		return false
	}

	first := true
	sunFirst := true
	for i := 0; i < len(gears); i++ {
		for j := i + 1; j < len(gears); j++ {
			a, b := gears[i], gears[j]
			if meshed(a.ID, b.ID) {
				continue
			}
			var margin float64
			switch {
			case a.Internal == b.Internal && a.Internal:
				continue // two rings, nothing to measure
			case a.Internal:
				margin = InternalClearance(b, a)
			case b.Internal:
				margin = InternalClearance(a, b)
			default:
				margin = ExternalClearance(a, b)
			}
			rep.PairsChecked++
			if first || margin < rep.MinMargin {
				rep.MinMargin = margin
				rep.MinPair = [2]string{a.ID, b.ID}
				first = false
			}
			if a.ID == sunID || b.ID == sunID {
				if sunFirst || margin < rep.SunMargin {
					rep.SunMargin = margin
					sunFirst = false
				}
			}
			if margin < 0 {
				rep.Findings = append(rep.Findings, train.Finding{
					Kind:     train.ToothOverlap,
					Gear1:    a.ID,
					Gear2:    b.ID,
					Message:  fmt.Sprintf("non-meshing gears interfere by %.3fmm", -margin),
					Residual: -margin,
				})
			} else if margin < tol.TipClearance {
				rep.Findings = append(rep.Findings, train.Finding{
					Kind:     train.ToothOverlap,
					Gear1:    a.ID,
					Gear2:    b.ID,
					Message:  fmt.Sprintf("clearance %.3fmm below %.3fmm", margin, tol.TipClearance),
					Residual: margin,
					Warning:  true,
				})
			}
		}
	}
	return rep
}

// referenceGear picks the external gear closest to the train axis.
func referenceGear(gears []*gear.Spec) string {
	id := ""
	best := 0.0
	for _, g := range gears {
		if g.Internal {
			continue
		}
		r := g.Center.XY().Norm()
		if id == "" || r < best {
			id, best = g.ID, r
		}
	}
	return id
}
