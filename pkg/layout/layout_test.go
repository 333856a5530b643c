package layout_test

import (
	"math"
	"testing"

	"github.com/chazu/epicycle/pkg/gear"
	"github.com/chazu/epicycle/pkg/layout"
	"github.com/chazu/epicycle/pkg/train"
)

func TestMeshAngleBothSolutions(t *testing.T) {
	// 24/12/18/72 teeth at module 2: inner planets orbit at 36mm, the
	// outer planet orbits at 54mm and must sit 30mm from its inner.
	tol := train.DefaultTolerances()
	f := layout.MeshAngle(36, 54, 30, tol)
	if !f.Feasible {
		t.Fatalf("not feasible: %v", f.Findings)
	}
	inner := gear.PointOnCircle(36, 0)
	for _, theta := range f.Solutions() {
		outer := gear.PointOnCircle(54, theta)
		if d := outer.Distance(inner); math.Abs(d-30) > 0.01 {
			t.Errorf("theta=%.3f: outer-inner distance = %.4fmm, want 30.00", theta, d)
		}
	}
	if f.Solutions()[0] != -f.Solutions()[1] {
		t.Error("solutions are not mirrors of each other")
	}
}

func TestMeshAngleInfeasible(t *testing.T) {
	tol := train.DefaultTolerances()
	tests := []struct {
		name    string
		a, b, c float64
	}{
		{"mesh too long", 10, 10, 25},
		{"mesh too short", 10, 50, 5},
		{"zero orbit", 0, 10, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := layout.MeshAngle(tt.a, tt.b, tt.c, tol)
			if f.Feasible {
				t.Fatal("expected infeasible")
			}
			if len(f.Findings) == 0 || f.Findings[0].Kind != train.InfeasibleGeometry {
				t.Errorf("findings = %v, want InfeasibleGeometry", f.Findings)
			}
		})
	}
}

func TestMeshAnglePlausibleWarning(t *testing.T) {
	tol := train.DefaultTolerances()
	// Nearly collinear triangle: tiny offset angle, feasible but flagged.
	f := layout.MeshAngle(50, 52, 2.5, tol)
	if !f.Feasible {
		t.Fatalf("should be feasible: %v", f.Findings)
	}
	if f.OffsetDeg >= tol.PlausibleAngleMin {
		t.Fatalf("offset %.2f not below plausible minimum, fixture broken", f.OffsetDeg)
	}
	var warned bool
	for _, fd := range f.Findings {
		if fd.Warning {
			warned = true
		} else {
			t.Errorf("unexpected hard finding: %v", fd)
		}
	}
	if !warned {
		t.Error("expected a plausible-angle warning")
	}
}

func TestInnerRing(t *testing.T) {
	pts := layout.InnerRing(36, 6)
	if len(pts) != 6 {
		t.Fatalf("got %d positions", len(pts))
	}
	for i, p := range pts {
		if math.Abs(p.Norm()-36) > 1e-9 {
			t.Errorf("planet %d orbit = %g", i, p.Norm())
		}
	}
	if pts[0].Distance(gear.Vec2{X: 36}) > 1e-9 {
		t.Errorf("first planet = %+v, want (36,0)", pts[0])
	}
	// Equal spacing: every adjacent chord has the same length.
	chord := pts[0].Distance(pts[1])
	for i := 1; i < 6; i++ {
		if d := pts[i].Distance(pts[(i+1)%6]); math.Abs(d-chord) > 1e-9 {
			t.Errorf("chord %d = %g, want %g", i, d, chord)
		}
	}
}

func TestSolveTriangularRoundTrip(t *testing.T) {
	// 36/18/12/72 teeth at module 2 with 6 planets: inner orbit 54mm,
	// inner-outer mesh 30mm, ring-required orbit 60mm. Historically the
	// best recorded fit for this tooth set misses the ring by ~0.16mm.
	tol := train.DefaultTolerances()
	innerA := gear.PointOnCircle(54, 0)
	innerB := gear.PointOnCircle(54, 60)
	got := layout.SolveTriangular(innerA, innerB, 30, 60, tol)
	if !got.OK {
		t.Fatalf("not OK: %v", got.Findings)
	}
	if math.Abs(got.DistA-30) > 0.01 || math.Abs(got.DistB-30) > 0.01 {
		t.Errorf("mesh distances %.4f, %.4f, want 30 within 0.01", got.DistA, got.DistB)
	}
	if got.RingError > 0.16 {
		t.Errorf("ring error = %.4fmm, want <= 0.16", got.RingError)
	}
}

func TestSolveTriangularTooSmall(t *testing.T) {
	tol := train.DefaultTolerances()
	innerA := gear.PointOnCircle(54, 0)
	innerB := gear.PointOnCircle(54, 60)
	// Half-chord is 27mm; a 20mm mesh distance cannot bridge it.
	got := layout.SolveTriangular(innerA, innerB, 20, 60, tol)
	if got.OK {
		t.Fatal("expected failure")
	}
	if got.Findings[0].Kind != train.InfeasibleGeometry {
		t.Errorf("finding = %v, want InfeasibleGeometry", got.Findings[0])
	}
}

func TestSolveTriangularOriginFallback(t *testing.T) {
	tol := train.DefaultTolerances()
	// Diametrically opposite inners put the midpoint on the axis; the
	// construction must fall back to the chord's perpendicular.
	innerA := gear.Vec2{X: 36}
	innerB := gear.Vec2{X: -36}
	got := layout.SolveTriangular(innerA, innerB, 40, math.Sqrt(40*40-36*36), tol)
	if !got.OK {
		t.Fatalf("not OK: %v", got.Findings)
	}
	if math.Abs(got.Center.X) > 1e-9 {
		t.Errorf("center.X = %g, want on the y axis", got.Center.X)
	}
	if math.Abs(got.DistA-40) > 0.01 {
		t.Errorf("DistA = %g, want 40", got.DistA)
	}
}

func TestCheckClearances(t *testing.T) {
	tol := train.DefaultTolerances()
	tr, err := train.NewBuilder().
		Gear(&gear.Spec{ID: "sun", Teeth: 24, Module: 2}).
		Gear(&gear.Spec{ID: "p1", Teeth: 12, Module: 2, Center: gear.Vec3{X: 36}}).
		Gear(&gear.Spec{ID: "p2", Teeth: 12, Module: 2, Center: gear.Vec3{X: -36}}).
		Mesh("sun", "p1").
		Mesh("sun", "p2").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rep := layout.CheckClearances(tr, tol)
	if rep.PairsChecked != 1 {
		t.Fatalf("PairsChecked = %d, want 1 (p1-p2 only)", rep.PairsChecked)
	}
	// p1 and p2 are 72mm apart with 14mm tip radii each: 44mm margin.
	if math.Abs(rep.MinMargin-44) > 1e-9 {
		t.Errorf("MinMargin = %g, want 44", rep.MinMargin)
	}
	if len(rep.Findings) != 0 {
		t.Errorf("unexpected findings: %v", rep.Findings)
	}
}

func TestCheckClearancesInterference(t *testing.T) {
	tol := train.DefaultTolerances()
	tr, err := train.NewBuilder().
		Gear(&gear.Spec{ID: "a", Teeth: 24, Module: 2}).
		Gear(&gear.Spec{ID: "b", Teeth: 24, Module: 2, Center: gear.Vec3{X: 40}}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rep := layout.CheckClearances(tr, tol)
	if len(rep.Findings) != 1 || rep.Findings[0].Kind != train.ToothOverlap || rep.Findings[0].Warning {
		t.Fatalf("findings = %v, want one hard ToothOverlap", rep.Findings)
	}
	// Tip radii 26mm each at 40mm spacing: 12mm interpenetration.
	if math.Abs(rep.Findings[0].Residual-12) > 1e-9 {
		t.Errorf("residual = %g, want 12", rep.Findings[0].Residual)
	}
}
