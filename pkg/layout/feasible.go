package layout

import (
	"fmt"
	"math"

	"github.com/chazu/epicycle/pkg/train"
)

// Feasibility is the outcome of the law-of-cosines placement check for
// a gear that must hold two mesh distances at once.
type Feasibility struct {
	Feasible bool
	CosTheta float64
	// OffsetDeg is the positive subtended angle at the train axis
	// between the two gears' radial directions. The mirror layout at
	// -OffsetDeg is equally valid; Solutions returns both.
	OffsetDeg float64
	Findings  []train.Finding
}

// Solutions returns both placement angles, the mirror pair +θ and −θ.
func (f Feasibility) Solutions() [2]float64 {
	return [2]float64{f.OffsetDeg, -f.OffsetDeg}
}

// MeshAngle decides whether a gear orbiting at orbitB can stay
// meshDist away from a gear orbiting at orbitA, and if so at what
// angular offset around the train axis. The three radii form a
// triangle with the origin; the check fails when the triangle cannot
// close or the law of cosines leaves the unit interval.
//
// Angles outside [tol.PlausibleAngleMin, tol.PlausibleAngleMax] are
// reported as warnings, not failures: such layouts are geometrically
// valid but put the bridging gear at a mechanically awkward position.
func MeshAngle(orbitA, orbitB, meshDist float64, tol train.Tolerances) Feasibility {
	f := Feasibility{}
	if orbitA <= 0 || orbitB <= 0 || meshDist <= 0 {
		f.Findings = append(f.Findings, train.Finding{
			Kind:    train.InfeasibleGeometry,
			Message: fmt.Sprintf("orbits and mesh distance must be positive: %.3f, %.3f, %.3f", orbitA, orbitB, meshDist),
		})
		return f
	}
	if meshDist > orbitA+orbitB || meshDist < math.Abs(orbitA-orbitB) {
		f.Findings = append(f.Findings, train.Finding{
			Kind:     train.InfeasibleGeometry,
			Message:  fmt.Sprintf("mesh distance %.3fmm outside triangle range [%.3f, %.3f]", meshDist, math.Abs(orbitA-orbitB), orbitA+orbitB),
			Residual: meshDist,
		})
		return f
	}
	f.CosTheta = (orbitA*orbitA + orbitB*orbitB - meshDist*meshDist) / (2 * orbitA * orbitB)
	if f.CosTheta > 1 || f.CosTheta < -1 {
		f.Findings = append(f.Findings, train.Finding{
			Kind:     train.InfeasibleGeometry,
			Message:  fmt.Sprintf("cos(offset) = %.6f outside [-1, 1]", f.CosTheta),
			Residual: f.CosTheta,
		})
		return f
	}
	f.Feasible = true
	f.OffsetDeg = math.Acos(f.CosTheta) * 180 / math.Pi
	if f.OffsetDeg < tol.PlausibleAngleMin || f.OffsetDeg > tol.PlausibleAngleMax {
		f.Findings = append(f.Findings, train.Finding{
			Kind:     train.InfeasibleGeometry,
			Message:  fmt.Sprintf("offset angle %.2f° outside plausible range [%.0f°, %.0f°]", f.OffsetDeg, tol.PlausibleAngleMin, tol.PlausibleAngleMax),
			Residual: f.OffsetDeg,
			Warning:  true,
		})
	}
	return f
}
