package gear

import "math"

// Vec2 is a 2D point or vector in mm. All meshing geometry happens in
// the XY plane.
type Vec2 struct {
	X, Y float64
}

// Vec3 is a 3D position. Gear documents carry a z coordinate but the
// meshing solvers ignore it.
type Vec3 struct {
	X, Y, Z float64
}

// XY projects a Vec3 onto the meshing plane.
func (v Vec3) XY() Vec2 {
	return Vec2{X: v.X, Y: v.Y}
}

// Add returns v + w.
func (v Vec2) Add(w Vec2) Vec2 {
	return Vec2{X: v.X + w.X, Y: v.Y + w.Y}
}

// Sub returns v - w.
func (v Vec2) Sub(w Vec2) Vec2 {
	return Vec2{X: v.X - w.X, Y: v.Y - w.Y}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Norm returns the Euclidean length of v.
func (v Vec2) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Distance returns the Euclidean distance between v and w.
func (v Vec2) Distance(w Vec2) float64 {
	return math.Hypot(v.X-w.X, v.Y-w.Y)
}

// AngleDeg returns the angle of v from the positive X axis, in degrees,
// counter-clockwise positive.
func (v Vec2) AngleDeg() float64 {
	return math.Atan2(v.Y, v.X) * 180 / math.Pi
}

// Unit returns v normalized to length 1. The zero vector is returned
// unchanged.
func (v Vec2) Unit() Vec2 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// PointOnCircle returns the point at the given radius and angle
// (degrees, counter-clockwise from the positive X axis) around the
// origin.
func PointOnCircle(radius, angleDeg float64) Vec2 {
	rad := angleDeg * math.Pi / 180
	return Vec2{X: radius * math.Cos(rad), Y: radius * math.Sin(rad)}
}
