package gear

import (
	"fmt"
	"math"
)

// DefaultPressureAngle is the standard pressure angle in degrees.
const DefaultPressureAngle = 20.0

// Spec describes a single gear. A Spec is created once per sun, planet
// or ring instance and is immutable except for Center, assigned by the
// position solver, and Phase, assigned by the phase propagator.
type Spec struct {
	ID            string
	Teeth         int     // tooth count, positive
	Module        float64 // mm of pitch diameter per tooth
	PressureAngle float64 // degrees, 20 if zero
	Phase         float64 // degrees, rotational offset of tooth center from 0
	Center        Vec3
	Internal      bool // ring-style gear with inward-pointing teeth
}

// Validate reports the first structural problem with the spec, or nil.
func (s *Spec) Validate() error {
	if s.Teeth <= 0 {
		return fmt.Errorf("gear %q: teeth must be positive, got %d", s.ID, s.Teeth)
	}
	if s.Module <= 0 {
		return fmt.Errorf("gear %q: module must be positive, got %g", s.ID, s.Module)
	}
	return nil
}

// PitchRadius returns the nominal meshing radius: teeth * module / 2.
func (s *Spec) PitchRadius() float64 {
	return float64(s.Teeth) * s.Module / 2
}

// OuterRadius returns the addendum-circle radius. Internal gears have
// their teeth pointing inward, so the addendum shrinks the radius.
func (s *Spec) OuterRadius() float64 {
	if s.Internal {
		return s.PitchRadius() - s.Module
	}
	return s.PitchRadius() + s.Module
}

// RootRadius returns the dedendum-circle radius, 1.25 modules past the
// pitch circle. For internal gears the root sits outside the pitch
// circle.
func (s *Spec) RootRadius() float64 {
	if s.Internal {
		return s.PitchRadius() + 1.25*s.Module
	}
	return s.PitchRadius() - 1.25*s.Module
}

// ToothAngle returns the angular tooth period in degrees: the repeat
// unit of the tooth pattern, 360/teeth.
func (s *Spec) ToothAngle() float64 {
	return 360.0 / float64(s.Teeth)
}

// HalfTooth returns half the tooth period in degrees. Two meshing
// gears interleave valley-to-tip, which shows up as a half-tooth
// offset in phase propagation.
func (s *Spec) HalfTooth() float64 {
	return 180.0 / float64(s.Teeth)
}

// CenterDistance returns the theoretical center-to-center separation
// for a and b to mesh: the difference of pitch radii when exactly one
// of the pair is internal, their sum otherwise. Symmetric in its
// arguments.
func CenterDistance(a, b *Spec) float64 {
	ra, rb := a.PitchRadius(), b.PitchRadius()
	if a.Internal != b.Internal {
		return math.Abs(ra - rb)
	}
	return ra + rb
}

// ActualCenterDistance returns the in-plane distance between the two
// gears' solved centers.
func ActualCenterDistance(a, b *Spec) float64 {
	return a.Center.XY().Distance(b.Center.XY())
}
