package train

import (
	"fmt"
	"sort"

	"github.com/chazu/epicycle/pkg/gear"
)

// Builder accumulates gears and mesh relations, rejecting duplicate or
// dangling ids at insertion time rather than at solve time.
type Builder struct {
	units  string
	params map[string]float64
	gears  map[string]*gear.Spec
	order  []string
	meshes []meshPair
	extra  []Entity
	cons   []Constraint
	err    error
}

type meshPair struct {
	g1, g2 string
}

// NewBuilder returns an empty builder using millimeter units.
func NewBuilder() *Builder {
	return &Builder{
		units:  "mm",
		params: make(map[string]float64),
		gears:  make(map[string]*gear.Spec),
	}
}

// Parameter defines a named scalar usable via Ref in entities.
func (b *Builder) Parameter(name string, value float64) *Builder {
	if b.err != nil {
		return b
	}
	if name == "" {
		b.err = fmt.Errorf("%w: parameter name must not be empty", ErrMalformedDocument)
		return b
	}
	b.params[name] = value
	return b
}

// Gear adds a gear. The id must be unique across the train.
func (b *Builder) Gear(spec *gear.Spec) *Builder {
	if b.err != nil {
		return b
	}
	if err := spec.Validate(); err != nil {
		b.err = fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		return b
	}
	if _, dup := b.gears[spec.ID]; dup {
		b.err = fmt.Errorf("%w: duplicate gear id %q", ErrMalformedDocument, spec.ID)
		return b
	}
	c := *spec
	b.gears[spec.ID] = &c
	b.order = append(b.order, spec.ID)
	return b
}

// Mesh declares that two previously added gears mesh.
func (b *Builder) Mesh(gear1, gear2 string) *Builder {
	if b.err != nil {
		return b
	}
	for _, id := range []string{gear1, gear2} {
		if _, ok := b.gears[id]; !ok {
			b.err = fmt.Errorf("%w: mesh references undefined gear %q", ErrMalformedDocument, id)
			return b
		}
	}
	if gear1 == gear2 {
		b.err = fmt.Errorf("%w: gear %q cannot mesh with itself", ErrMalformedDocument, gear1)
		return b
	}
	b.meshes = append(b.meshes, meshPair{gear1, gear2})
	return b
}

// Entity adds a pass-through entity destined for the external solver.
func (b *Builder) Entity(e Entity) *Builder {
	if b.err != nil {
		return b
	}
	if e.EntityID() == "" {
		b.err = fmt.Errorf("%w: entity is missing an id", ErrMalformedDocument)
		return b
	}
	b.extra = append(b.extra, e)
	return b
}

// Constraint adds a pass-through constraint destined for the external
// solver.
func (b *Builder) Constraint(c Constraint) *Builder {
	if b.err != nil {
		return b
	}
	b.cons = append(b.cons, c)
	return b
}

// Build snapshots the accumulated state into an immutable Train.
func (b *Builder) Build() (*Train, error) {
	if b.err != nil {
		return nil, b.err
	}
	t := &Train{
		units:  b.units,
		params: make(map[string]float64, len(b.params)),
		gears:  make(map[string]*gear.Spec, len(b.gears)),
		order:  append([]string(nil), b.order...),
		meshes: append([]meshPair(nil), b.meshes...),
		extra:  append([]Entity(nil), b.extra...),
		cons:   append([]Constraint(nil), b.cons...),
	}
	for k, v := range b.params {
		t.params[k] = v
	}
	for id, g := range b.gears {
		c := *g
		t.gears[id] = &c
	}
	t.graph = newMeshGraph(t.meshes)
	return t, nil
}

// Train is an immutable snapshot of a gear train: resolved gears, mesh
// relations and the adjacency index over them.
type Train struct {
	units  string
	params map[string]float64
	gears  map[string]*gear.Spec
	order  []string
	meshes []meshPair
	extra  []Entity
	cons   []Constraint
	graph  *MeshGraph
}

// FromDocument resolves a parsed document into a Train.
func FromDocument(d *Document) (*Train, error) {
	b := NewBuilder()
	b.units = d.Units
	for name, v := range d.Parameters {
		b.Parameter(name, v)
	}
	gears, err := d.Gears()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(gears))
	for _, e := range d.Entities {
		if ge, ok := e.(*GearEntity); ok {
			ids = append(ids, ge.ID)
		} else {
			b.Entity(e)
		}
	}
	for _, id := range ids {
		b.Gear(gears[id])
	}
	for _, c := range d.Constraints {
		if m, ok := c.(*MeshConstraint); ok {
			b.Mesh(m.Gear1, m.Gear2)
		} else {
			b.Constraint(c)
		}
	}
	return b.Build()
}

// Gear returns the gear with the given id, or nil.
func (t *Train) Gear(id string) *gear.Spec {
	return t.gears[id]
}

// Gears returns all gears in insertion order.
func (t *Train) Gears() []*gear.Spec {
	out := make([]*gear.Spec, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.gears[id])
	}
	return out
}

// IDs returns the gear ids in insertion order.
func (t *Train) IDs() []string {
	return append([]string(nil), t.order...)
}

// Graph returns the mesh adjacency index.
func (t *Train) Graph() *MeshGraph {
	return t.graph
}

// WithPhases returns a copy of the train with the given per-gear
// phases applied. Ids absent from phases keep their current phase.
func (t *Train) WithPhases(phases map[string]float64) *Train {
	c := *t
	c.gears = make(map[string]*gear.Spec, len(t.gears))
	for id, g := range t.gears {
		g2 := *g
		if p, ok := phases[id]; ok {
			g2.Phase = p
		}
		c.gears[id] = &g2
	}
	return &c
}

// Document renders the train back into its document form.
func (t *Train) Document() *Document {
	d := &Document{
		Schema: Schema,
		Units:  t.units,
	}
	if len(t.params) > 0 {
		d.Parameters = make(map[string]float64, len(t.params))
		for k, v := range t.params {
			d.Parameters[k] = v
		}
	}
	for _, id := range t.order {
		g := t.gears[id]
		d.Entities = append(d.Entities, &GearEntity{
			Type:          "gear",
			ID:            g.ID,
			Center:        []Scalar{Number(g.Center.X), Number(g.Center.Y), Number(g.Center.Z)},
			Teeth:         Number(float64(g.Teeth)),
			Module:        Number(g.Module),
			PressureAngle: Number(g.PressureAngle),
			Phase:         g.Phase,
			Internal:      g.Internal,
		})
	}
	d.Entities = append(d.Entities, t.extra...)
	for _, m := range t.meshes {
		d.Constraints = append(d.Constraints, &MeshConstraint{Type: "mesh", Gear1: m.g1, Gear2: m.g2})
	}
	d.Constraints = append(d.Constraints, t.cons...)
	return d
}

// MeshGraph is an undirected adjacency index over mesh constraints,
// built once per train snapshot.
type MeshGraph struct {
	adj   map[string][]string
	edges []meshPair
}

func newMeshGraph(meshes []meshPair) *MeshGraph {
	g := &MeshGraph{adj: make(map[string][]string)}
	seen := make(map[meshPair]bool)
	for _, m := range meshes {
		key := m
		if key.g2 < key.g1 {
			key.g1, key.g2 = key.g2, key.g1
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		g.edges = append(g.edges, key)
		g.adj[m.g1] = append(g.adj[m.g1], m.g2)
		g.adj[m.g2] = append(g.adj[m.g2], m.g1)
	}
	for _, ns := range g.adj {
		sort.Strings(ns)
	}
	return g
}

// Neighbors returns the gears meshing with id, sorted for determinism.
func (g *MeshGraph) Neighbors(id string) []string {
	return g.adj[id]
}

// Edges returns each mesh pair once, with g1 < g2.
func (g *MeshGraph) Edges() [][2]string {
	out := make([][2]string, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, [2]string{e.g1, e.g2})
	}
	return out
}
