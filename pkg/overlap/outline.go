// Package overlap detects tooth interference in solved gear trains.
// Two independent implementations cross-check each other: an analytic
// one sampling tooth tips straight from gear parameters, and a
// geometric one consuming rendered tooth outlines, which is the ground
// truth for fabrication since it sees the same geometry that would be
// cut.
package overlap

import (
	"fmt"
	"strings"

	"github.com/chazu/epicycle/pkg/gear"
)

// Outline returns the closed trapezoidal-tooth polygon of a gear in
// world coordinates. Each tooth spans one angular period: root flanks
// at ±0.45 of the period, a tip flat at ±0.2. Internal gears need no
// special casing since their outer radius already sits inside the
// root radius.
func Outline(g *gear.Spec) []gear.Vec2 {
	period := g.ToothAngle()
	tip := g.OuterRadius()
	root := g.RootRadius()
	c := g.Center.XY()

	pts := make([]gear.Vec2, 0, 4*g.Teeth)
	for i := 0; i < g.Teeth; i++ {
		mid := g.Phase + float64(i)*period
		pts = append(pts,
			c.Add(gear.PointOnCircle(root, mid-0.45*period)),
			c.Add(gear.PointOnCircle(tip, mid-0.2*period)),
			c.Add(gear.PointOnCircle(tip, mid+0.2*period)),
			c.Add(gear.PointOnCircle(root, mid+0.45*period)),
		)
	}
	return pts
}

// PathData renders an outline as vector path commands: a move to the
// first point, lines through the rest, and a close. The output is
// what the geometric detector parses back.
func PathData(pts []gear.Vec2) string {
	if len(pts) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "M %.4f %.4f", pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		fmt.Fprintf(&b, " L %.4f %.4f", p.X, p.Y)
	}
	b.WriteString(" Z")
	return b.String()
}
