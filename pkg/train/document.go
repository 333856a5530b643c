package train

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/epicycle/pkg/gear"
)

// Schema is the document format version tag.
const Schema = "slvs-json/1"

// ErrMalformedDocument marks hard input failures: missing required
// fields, unknown $parameter references, bad entity types. Unlike
// geometric infeasibility these abort the current operation.
var ErrMalformedDocument = errors.New("malformed document")

// Scalar is a numeric document field that is either a literal value or
// a "$name" reference into the document's parameters table.
type Scalar struct {
	value float64
	ref   string
}

// Number returns a literal scalar.
func Number(v float64) Scalar {
	return Scalar{value: v}
}

// Ref returns a scalar referencing the named parameter.
func Ref(name string) Scalar {
	return Scalar{ref: name}
}

// IsRef reports whether the scalar is a parameter reference.
func (s Scalar) IsRef() bool {
	return s.ref != ""
}

// Resolve returns the scalar's numeric value, looking up parameter
// references in params.
func (s Scalar) Resolve(params map[string]float64) (float64, error) {
	if s.ref == "" {
		return s.value, nil
	}
	v, ok := params[s.ref]
	if !ok {
		return 0, fmt.Errorf("%w: undefined parameter reference %q", ErrMalformedDocument, "$"+s.ref)
	}
	return v, nil
}

// MarshalJSON writes either the literal number or the "$name" string.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s.ref != "" {
		return json.Marshal("$" + s.ref)
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON accepts a JSON number or a "$name" string.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*s = Scalar{value: num}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("%w: scalar must be a number or $reference, got %s", ErrMalformedDocument, data)
	}
	if !strings.HasPrefix(str, "$") || len(str) < 2 {
		return fmt.Errorf("%w: scalar string %q is not a $reference", ErrMalformedDocument, str)
	}
	*s = Scalar{ref: str[1:]}
	return nil
}

// Entity is a typed document entity. The core only interprets gears;
// points, lines and circles pass through to the external solver.
type Entity interface {
	EntityID() string
	entityType() string
}

// GearEntity is the document form of a gear.
type GearEntity struct {
	Type          string   `json:"type"`
	ID            string   `json:"id"`
	Center        []Scalar `json:"center"`
	Teeth         Scalar   `json:"teeth"`
	Module        Scalar   `json:"module"`
	PressureAngle Scalar   `json:"pressure_angle"`
	Phase         float64  `json:"phase"`
	Internal      bool     `json:"internal"`
}

func (e *GearEntity) EntityID() string   { return e.ID }
func (e *GearEntity) entityType() string { return "gear" }

// PointEntity passes through to the external solver.
type PointEntity struct {
	Type string   `json:"type"`
	ID   string   `json:"id"`
	At   []Scalar `json:"at"`
}

func (e *PointEntity) EntityID() string   { return e.ID }
func (e *PointEntity) entityType() string { return "point" }

// LineEntity passes through to the external solver.
type LineEntity struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	P1   string `json:"p1"`
	P2   string `json:"p2"`
}

func (e *LineEntity) EntityID() string   { return e.ID }
func (e *LineEntity) entityType() string { return "line" }

// CircleEntity passes through to the external solver.
type CircleEntity struct {
	Type     string   `json:"type"`
	ID       string   `json:"id"`
	Center   []Scalar `json:"center"`
	Diameter Scalar   `json:"diameter"`
}

func (e *CircleEntity) EntityID() string   { return e.ID }
func (e *CircleEntity) entityType() string { return "circle" }

// Constraint is a typed document constraint. The core only interprets
// mesh constraints; the rest pass through to the external solver.
type Constraint interface {
	constraintType() string
}

// MeshConstraint asserts two gears mesh: their centers sit at the
// theoretical center distance and their phases interleave.
type MeshConstraint struct {
	Type  string `json:"type"`
	Gear1 string `json:"gear1"`
	Gear2 string `json:"gear2"`
}

func (c *MeshConstraint) constraintType() string { return "mesh" }

// DistanceConstraint passes through to the external solver.
type DistanceConstraint struct {
	Type    string   `json:"type"`
	Between []string `json:"between"`
	Value   Scalar   `json:"value"`
}

func (c *DistanceConstraint) constraintType() string { return "distance" }

// FixedConstraint passes through to the external solver.
type FixedConstraint struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
}

func (c *FixedConstraint) constraintType() string { return "fixed" }

// HorizontalConstraint passes through to the external solver.
type HorizontalConstraint struct {
	Type string `json:"type"`
	A    string `json:"a"`
}

func (c *HorizontalConstraint) constraintType() string { return "horizontal" }

// VerticalConstraint passes through to the external solver.
type VerticalConstraint struct {
	Type string `json:"type"`
	A    string `json:"a"`
}

func (c *VerticalConstraint) constraintType() string { return "vertical" }

// Document is the declarative gear-train document exchanged with the
// external constraint solver.
type Document struct {
	Schema      string             `json:"schema"`
	Units       string             `json:"units"`
	Parameters  map[string]float64 `json:"parameters,omitempty"`
	Entities    []Entity           `json:"entities"`
	Constraints []Constraint       `json:"constraints"`
}

// normalize fills in each element's wire type tag so hand-constructed
// documents marshal correctly.
func (d *Document) normalize() {
	if d.Units == "" {
		d.Units = "mm"
	}
	if d.Schema == "" {
		d.Schema = Schema
	}
	for _, e := range d.Entities {
		switch v := e.(type) {
		case *GearEntity:
			v.Type = v.entityType()
		case *PointEntity:
			v.Type = v.entityType()
		case *LineEntity:
			v.Type = v.entityType()
		case *CircleEntity:
			v.Type = v.entityType()
		}
	}
	for _, c := range d.Constraints {
		switch v := c.(type) {
		case *MeshConstraint:
			v.Type = v.constraintType()
		case *DistanceConstraint:
			v.Type = v.constraintType()
		case *FixedConstraint:
			v.Type = v.constraintType()
		case *HorizontalConstraint:
			v.Type = v.constraintType()
		case *VerticalConstraint:
			v.Type = v.constraintType()
		}
	}
}

// Marshal encodes the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	d.normalize()
	return json.MarshalIndent(d, "", "  ")
}

type documentWire struct {
	Schema      string             `json:"schema"`
	Units       string             `json:"units"`
	Parameters  map[string]float64 `json:"parameters"`
	Entities    []json.RawMessage  `json:"entities"`
	Constraints []json.RawMessage  `json:"constraints"`
}

type typeTag struct {
	Type string `json:"type"`
}

// UnmarshalJSON decodes the typed entity and constraint arrays.
func (d *Document) UnmarshalJSON(data []byte) error {
	var w documentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	d.Schema = w.Schema
	d.Units = w.Units
	d.Parameters = w.Parameters
	d.Entities = nil
	d.Constraints = nil

	for i, raw := range w.Entities {
		var tag typeTag
		if err := json.Unmarshal(raw, &tag); err != nil {
			return fmt.Errorf("%w: entity %d: %v", ErrMalformedDocument, i, err)
		}
		var (
			ent Entity
			err error
		)
		switch tag.Type {
		case "gear":
			e := &GearEntity{}
			err = json.Unmarshal(raw, e)
			ent = e
		case "point":
			e := &PointEntity{}
			err = json.Unmarshal(raw, e)
			ent = e
		case "line":
			e := &LineEntity{}
			err = json.Unmarshal(raw, e)
			ent = e
		case "circle":
			e := &CircleEntity{}
			err = json.Unmarshal(raw, e)
			ent = e
		default:
			return fmt.Errorf("%w: entity %d has unsupported type %q", ErrMalformedDocument, i, tag.Type)
		}
		if err != nil {
			return fmt.Errorf("%w: entity %d (%s): %v", ErrMalformedDocument, i, tag.Type, err)
		}
		if ent.EntityID() == "" {
			return fmt.Errorf("%w: entity %d (%s) is missing an id", ErrMalformedDocument, i, tag.Type)
		}
		d.Entities = append(d.Entities, ent)
	}

	for i, raw := range w.Constraints {
		var tag typeTag
		if err := json.Unmarshal(raw, &tag); err != nil {
			return fmt.Errorf("%w: constraint %d: %v", ErrMalformedDocument, i, err)
		}
		var (
			con Constraint
			err error
		)
		switch tag.Type {
		case "mesh":
			c := &MeshConstraint{}
			err = json.Unmarshal(raw, c)
			con = c
		case "distance":
			c := &DistanceConstraint{}
			err = json.Unmarshal(raw, c)
			con = c
		case "fixed":
			c := &FixedConstraint{}
			err = json.Unmarshal(raw, c)
			con = c
		case "horizontal":
			c := &HorizontalConstraint{}
			err = json.Unmarshal(raw, c)
			con = c
		case "vertical":
			c := &VerticalConstraint{}
			err = json.Unmarshal(raw, c)
			con = c
		default:
			return fmt.Errorf("%w: constraint %d has unsupported type %q", ErrMalformedDocument, i, tag.Type)
		}
		if err != nil {
			return fmt.Errorf("%w: constraint %d (%s): %v", ErrMalformedDocument, i, tag.Type, err)
		}
		d.Constraints = append(d.Constraints, con)
	}
	return nil
}

// Parse decodes and structurally validates a gear-train document.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if d.Schema != Schema {
		return nil, fmt.Errorf("%w: schema %q, want %q", ErrMalformedDocument, d.Schema, Schema)
	}
	if err := d.check(); err != nil {
		return nil, err
	}
	return &d, nil
}

// check verifies id uniqueness and that mesh constraints reference
// defined gears.
func (d *Document) check() error {
	seen := make(map[string]bool, len(d.Entities))
	for _, e := range d.Entities {
		if seen[e.EntityID()] {
			return fmt.Errorf("%w: duplicate entity id %q", ErrMalformedDocument, e.EntityID())
		}
		seen[e.EntityID()] = true
	}
	for _, c := range d.Constraints {
		m, ok := c.(*MeshConstraint)
		if !ok {
			continue
		}
		if !seen[m.Gear1] {
			return fmt.Errorf("%w: mesh constraint references undefined gear %q", ErrMalformedDocument, m.Gear1)
		}
		if !seen[m.Gear2] {
			return fmt.Errorf("%w: mesh constraint references undefined gear %q", ErrMalformedDocument, m.Gear2)
		}
	}
	return nil
}

// Gears resolves every gear entity against the parameters table.
func (d *Document) Gears() (map[string]*gear.Spec, error) {
	gears := make(map[string]*gear.Spec)
	for _, e := range d.Entities {
		ge, ok := e.(*GearEntity)
		if !ok {
			continue
		}
		spec, err := d.resolveGear(ge)
		if err != nil {
			return nil, err
		}
		gears[spec.ID] = spec
	}
	return gears, nil
}

func (d *Document) resolveGear(ge *GearEntity) (*gear.Spec, error) {
	teeth, err := ge.Teeth.Resolve(d.Parameters)
	if err != nil {
		return nil, fmt.Errorf("gear %q teeth: %w", ge.ID, err)
	}
	if teeth <= 0 || teeth != math.Trunc(teeth) {
		return nil, fmt.Errorf("%w: gear %q teeth must be a positive integer, got %g", ErrMalformedDocument, ge.ID, teeth)
	}
	module, err := ge.Module.Resolve(d.Parameters)
	if err != nil {
		return nil, fmt.Errorf("gear %q module: %w", ge.ID, err)
	}
	pa := gear.DefaultPressureAngle
	if ge.PressureAngle != (Scalar{}) {
		pa, err = ge.PressureAngle.Resolve(d.Parameters)
		if err != nil {
			return nil, fmt.Errorf("gear %q pressure_angle: %w", ge.ID, err)
		}
	}
	var center gear.Vec3
	if len(ge.Center) > 3 {
		return nil, fmt.Errorf("%w: gear %q center has %d components", ErrMalformedDocument, ge.ID, len(ge.Center))
	}
	coords := [3]float64{}
	for i, s := range ge.Center {
		coords[i], err = s.Resolve(d.Parameters)
		if err != nil {
			return nil, fmt.Errorf("gear %q center[%d]: %w", ge.ID, i, err)
		}
	}
	center = gear.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}

	spec := &gear.Spec{
		ID:            ge.ID,
		Teeth:         int(teeth),
		Module:        module,
		PressureAngle: pa,
		Phase:         ge.Phase,
		Center:        center,
		Internal:      ge.Internal,
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return spec, nil
}

// Meshes returns the mesh constraints in document order.
func (d *Document) Meshes() []*MeshConstraint {
	var meshes []*MeshConstraint
	for _, c := range d.Constraints {
		if m, ok := c.(*MeshConstraint); ok {
			meshes = append(meshes, m)
		}
	}
	return meshes
}
