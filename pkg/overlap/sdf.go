package overlap

import (
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/epicycle/pkg/gear"
)

// PenetrationDepth measures how deeply outline b sinks into outline a,
// by evaluating the signed distance field of a's polygon at each of
// b's vertices. Zero means no vertex of b lies inside a. It quantifies
// the overlap the segment tests only classify.
func PenetrationDepth(a, b []gear.Vec2) (float64, error) {
	verts := make([]v2.Vec, len(a))
	for i, p := range a {
		verts[i] = v2.Vec{X: p.X, Y: p.Y}
	}
	field, err := sdf.Polygon2D(verts)
	if err != nil {
		return 0, err
	}
	depth := 0.0
	for _, p := range b {
		if d := field.Evaluate(v2.Vec{X: p.X, Y: p.Y}); d < 0 && -d > depth {
			depth = -d
		}
	}
	return depth, nil
}
