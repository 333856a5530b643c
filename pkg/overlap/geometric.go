package overlap

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/chazu/epicycle/pkg/gear"
	"github.com/chazu/epicycle/pkg/train"
)

// Segment is one straight piece of a gear outline.
type Segment struct {
	A, B gear.Vec2
}

// ParsePath decomposes vector path data (M, L, A, Z commands) into
// line segments. Arcs are flattened to a straight chord between their
// endpoints, which is conservative enough for tooth-scale geometry.
func ParsePath(d string) ([]Segment, error) {
	var (
		segs    []Segment
		cur     gear.Vec2
		first   gear.Vec2
		started bool
	)
	i := 0
	for i < len(d) {
		ch := d[i]
		if ch == ' ' || ch == ',' || ch == '\n' || ch == '\t' {
			i++
			continue
		}
		cmd := ch
		i++
		var args []float64
		for {
			for i < len(d) && (d[i] == ' ' || d[i] == ',' || d[i] == '\n' || d[i] == '\t') {
				i++
			}
			j := i
			for j < len(d) && (d[j] == '-' || d[j] == '+' || d[j] == '.' || d[j] == 'e' || d[j] == 'E' || (d[j] >= '0' && d[j] <= '9')) {
				j++
			}
			if j == i {
				break
			}
			v, err := strconv.ParseFloat(d[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad path number %q", train.ErrMalformedDocument, d[i:j])
			}
			args = append(args, v)
			i = j
		}
		switch cmd {
		case 'M':
			if len(args) < 2 {
				return nil, fmt.Errorf("%w: M needs 2 coordinates", train.ErrMalformedDocument)
			}
			cur = gear.Vec2{X: args[0], Y: args[1]}
			first = cur
			started = true
		case 'L':
			if len(args) < 2 {
				return nil, fmt.Errorf("%w: L needs 2 coordinates", train.ErrMalformedDocument)
			}
			next := gear.Vec2{X: args[0], Y: args[1]}
			if started {
				segs = append(segs, Segment{cur, next})
			}
			cur = next
		case 'A':
			// Arc: keep only the end point, chord approximation.
			if len(args) < 7 {
				return nil, fmt.Errorf("%w: A needs 7 parameters", train.ErrMalformedDocument)
			}
			next := gear.Vec2{X: args[len(args)-2], Y: args[len(args)-1]}
			if started {
				segs = append(segs, Segment{cur, next})
			}
			cur = next
		case 'Z', 'z':
			if started && cur != first {
				segs = append(segs, Segment{cur, first})
			}
		default:
			return nil, fmt.Errorf("%w: unsupported path command %q", train.ErrMalformedDocument, string(cmd))
		}
	}
	return segs, nil
}

func ccw(a, b, c gear.Vec2) bool {
	return (c.Y-a.Y)*(b.X-a.X) > (b.Y-a.Y)*(c.X-a.X)
}

// Intersects reports whether the two segments cross.
func (s Segment) Intersects(o Segment) bool {
	return ccw(s.A, o.A, o.B) != ccw(s.B, o.A, o.B) && ccw(s.A, s.B, o.A) != ccw(s.A, s.B, o.B)
}

// MinDistance returns the smallest of the four endpoint-to-opposite-
// segment distances. Zero only when an endpoint touches the other
// segment; crossing segments are detected by Intersects instead.
func (s Segment) MinDistance(o Segment) float64 {
	return math.Min(
		math.Min(pointSegDistance(o.A, s), pointSegDistance(o.B, s)),
		math.Min(pointSegDistance(s.A, o), pointSegDistance(s.B, o)),
	)
}

func pointSegDistance(p gear.Vec2, s Segment) float64 {
	d := s.B.Sub(s.A)
	den := d.X*d.X + d.Y*d.Y
	if den == 0 {
		return p.Distance(s.A)
	}
	t := ((p.X-s.A.X)*d.X + (p.Y-s.A.Y)*d.Y) / den
	t = math.Max(0, math.Min(1, t))
	return p.Distance(s.A.Add(d.Scale(t)))
}

// GeomPair is the geometric measurement of one gear pair.
type GeomPair struct {
	Gear1, Gear2 string
	Intersects   bool
	MinDistance  float64
	// Overlap is the classification: intersecting outlines, or a
	// minimum separation below the near-zero epsilon.
	Overlap bool
}

// GeometricReport summarizes the outline-based detector.
type GeometricReport struct {
	PairsChecked int
	Pairs        []GeomPair
	Overlap      bool
	Findings     []train.Finding
}

// CheckGeometric classifies every pair of distinct gear outlines.
// outlines maps gear id to parsed segments. A pair overlaps when any
// two segments intersect or when the minimum inter-outline distance
// falls below tol.NearZero; everything else is clearance.
func CheckGeometric(outlines map[string][]Segment, tol train.Tolerances) GeometricReport {
	rep := GeometricReport{}
	ids := make([]string, 0, len(outlines))
	for id := range outlines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			p := GeomPair{Gear1: ids[i], Gear2: ids[j], MinDistance: math.Inf(1)}
			for _, s1 := range outlines[ids[i]] {
				for _, s2 := range outlines[ids[j]] {
					if !p.Intersects && s1.Intersects(s2) {
						p.Intersects = true
					}
					if d := s1.MinDistance(s2); d < p.MinDistance {
						p.MinDistance = d
					}
				}
			}
			p.Overlap = p.Intersects || p.MinDistance < tol.NearZero
			rep.PairsChecked++
			if p.Overlap {
				rep.Overlap = true
				rep.Findings = append(rep.Findings, train.Finding{
					Kind:     train.ToothOverlap,
					Gear1:    p.Gear1,
					Gear2:    p.Gear2,
					Message:  fmt.Sprintf("outlines overlap, min separation %.4fmm", p.MinDistance),
					Residual: p.MinDistance,
				})
			}
			rep.Pairs = append(rep.Pairs, p)
		}
	}
	return rep
}

// SegmentsFromPaths parses externally rendered path data, keyed by
// gear id, into the segment sets CheckGeometric consumes. Each gear
// may carry several closed paths.
func SegmentsFromPaths(paths map[string][]string) (map[string][]Segment, error) {
	out := make(map[string][]Segment, len(paths))
	for id, ds := range paths {
		var segs []Segment
		for _, d := range ds {
			s, err := ParsePath(d)
			if err != nil {
				return nil, fmt.Errorf("gear %q: %w", id, err)
			}
			segs = append(segs, s...)
		}
		out[id] = segs
	}
	return out, nil
}

// OutlineSegments renders and parses each gear's outline, the same
// round trip a fabrication export would take.
func OutlineSegments(tr *train.Train) (map[string][]Segment, error) {
	out := make(map[string][]Segment, len(tr.Gears()))
	for _, g := range tr.Gears() {
		segs, err := ParsePath(PathData(Outline(g)))
		if err != nil {
			return nil, err
		}
		out[g.ID] = segs
	}
	return out, nil
}
