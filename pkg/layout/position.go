package layout

import (
	"fmt"
	"math"

	"github.com/chazu/epicycle/pkg/gear"
	"github.com/chazu/epicycle/pkg/train"
)

// InnerRing places n planet centers at the given orbit radius, equally
// spaced starting from angle 0°. Angles grow counter-clockwise.
func InnerRing(orbit float64, n int) []gear.Vec2 {
	out := make([]gear.Vec2, n)
	for i := 0; i < n; i++ {
		out[i] = gear.PointOnCircle(orbit, float64(i)*360/float64(n))
	}
	return out
}

// OuterDirect returns the two mirror placements for a gear orbiting at
// outerOrbit whose mesh partner sits at angle innerAngleDeg; offsetDeg
// comes from MeshAngle.
func OuterDirect(outerOrbit, innerAngleDeg, offsetDeg float64) [2]gear.Vec2 {
	return [2]gear.Vec2{
		gear.PointOnCircle(outerOrbit, innerAngleDeg+offsetDeg),
		gear.PointOnCircle(outerOrbit, innerAngleDeg-offsetDeg),
	}
}

// Triangular is the solved position of one outer planet bridging two
// adjacent inner planets.
type Triangular struct {
	OK     bool
	Center gear.Vec2
	Orbit  float64 // distance from the train axis
	DistA  float64 // measured distance to innerA
	DistB  float64 // measured distance to innerB
	// RingError is how far Orbit deviates from the orbit the ring
	// mesh requires.
	RingError float64
	Findings  []train.Finding
}

// SolveTriangular places an outer planet that must simultaneously
// mesh with the two inner planets at innerA and innerB (both meshes
// at meshDist) while orbiting at ringOrbit for its ring mesh.
//
// Construction: take the midpoint of the two inner centers, offset
// perpendicular to their chord by h = sqrt(meshDist² − halfChord²),
// moving radially outward from the origin through the midpoint. When
// the midpoint sits on the origin the chord's own perpendicular
// bisector direction is used instead.
func SolveTriangular(innerA, innerB gear.Vec2, meshDist, ringOrbit float64, tol train.Tolerances) Triangular {
	t := Triangular{}
	mid := innerA.Add(innerB).Scale(0.5)
	halfChord := innerA.Distance(innerB) / 2
	if meshDist <= halfChord {
		t.Findings = append(t.Findings, train.Finding{
			Kind:     train.InfeasibleGeometry,
			Message:  fmt.Sprintf("mesh distance %.3fmm cannot bridge half-chord %.3fmm: planets too small to reach each other", meshDist, halfChord),
			Residual: halfChord - meshDist,
		})
		return t
	}
	h := math.Sqrt(meshDist*meshDist - halfChord*halfChord)

	dir := mid
	if mid.Norm() < tol.NearZero {
		// Midpoint on the axis: push along the chord's perpendicular
		// bisector instead.
		chord := innerB.Sub(innerA)
		dir = gear.Vec2{X: -chord.Y, Y: chord.X}
	}
	t.Center = mid.Add(dir.Unit().Scale(h))
	t.Orbit = t.Center.Norm()
	t.DistA = t.Center.Distance(innerA)
	t.DistB = t.Center.Distance(innerB)
	t.RingError = math.Abs(t.Orbit - ringOrbit)

	for _, m := range []struct {
		d     float64
		label string
	}{{t.DistA, "first"}, {t.DistB, "second"}} {
		if err := math.Abs(m.d - meshDist); err > tol.MeshDistance {
			t.Findings = append(t.Findings, train.Finding{
				Kind:     train.PlacementError,
				Message:  fmt.Sprintf("distance to %s inner planet is %.4fmm, want %.4fmm", m.label, m.d, meshDist),
				Residual: err,
			})
		}
	}
	if t.RingError > tol.RingFit {
		t.Findings = append(t.Findings, train.Finding{
			Kind:     train.RingFitError,
			Message:  fmt.Sprintf("outer orbit %.3fmm misses ring-required %.3fmm by %.3fmm", t.Orbit, ringOrbit, t.RingError),
			Residual: t.RingError,
		})
	}
	for _, f := range t.Findings {
		if !f.Warning {
			return t
		}
	}
	t.OK = true
	return t
}
