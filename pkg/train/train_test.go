package train_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/chazu/epicycle/pkg/gear"
	"github.com/chazu/epicycle/pkg/train"
)

const doubleDoc = `{
  "schema": "slvs-json/1",
  "units": "mm",
  "parameters": {"m": 2.0, "sun_teeth": 24},
  "entities": [
    {"type": "gear", "id": "sun", "center": [0, 0, 0], "teeth": "$sun_teeth", "module": "$m", "pressure_angle": 20, "phase": 0, "internal": false},
    {"type": "gear", "id": "inner1", "center": [36, 0, 0], "teeth": 12, "module": "$m", "pressure_angle": 20, "phase": 7.5, "internal": false},
    {"type": "gear", "id": "ring", "center": [0, 0, 0], "teeth": 72, "module": "$m", "pressure_angle": 20, "phase": 0, "internal": true}
  ],
  "constraints": [
    {"type": "mesh", "gear1": "sun", "gear2": "inner1"},
    {"type": "mesh", "gear1": "inner1", "gear2": "ring"}
  ]
}`

func TestParseResolvesParameters(t *testing.T) {
	d, err := train.Parse([]byte(doubleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	gears, err := d.Gears()
	if err != nil {
		t.Fatalf("Gears: %v", err)
	}
	sun := gears["sun"]
	if sun == nil {
		t.Fatal("sun missing")
	}
	if sun.Teeth != 24 || sun.Module != 2.0 {
		t.Errorf("sun = %d teeth module %g, want 24 teeth module 2", sun.Teeth, sun.Module)
	}
	if got := sun.PitchRadius(); math.Abs(got-24) > 1e-9 {
		t.Errorf("sun pitch radius = %g, want 24", got)
	}
	if !gears["ring"].Internal {
		t.Error("ring should be internal")
	}
	if n := len(d.Meshes()); n != 2 {
		t.Errorf("got %d mesh constraints, want 2", n)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			"bad schema",
			`{"schema": "slvs-json/9", "units": "mm", "entities": [], "constraints": []}`,
		},
		{
			"unknown parameter ref",
			`{"schema": "slvs-json/1", "units": "mm", "entities": [
				{"type": "gear", "id": "g", "center": [0,0,0], "teeth": "$nope", "module": 2, "phase": 0}
			], "constraints": []}`,
		},
		{
			"duplicate id",
			`{"schema": "slvs-json/1", "units": "mm", "entities": [
				{"type": "gear", "id": "g", "center": [0,0,0], "teeth": 12, "module": 2, "phase": 0},
				{"type": "gear", "id": "g", "center": [10,0,0], "teeth": 12, "module": 2, "phase": 0}
			], "constraints": []}`,
		},
		{
			"unsupported entity type",
			`{"schema": "slvs-json/1", "units": "mm", "entities": [
				{"type": "spline", "id": "s"}
			], "constraints": []}`,
		},
		{
			"mesh references undefined gear",
			`{"schema": "slvs-json/1", "units": "mm", "entities": [
				{"type": "gear", "id": "g", "center": [0,0,0], "teeth": 12, "module": 2, "phase": 0}
			], "constraints": [{"type": "mesh", "gear1": "g", "gear2": "ghost"}]}`,
		},
		{
			"fractional teeth",
			`{"schema": "slvs-json/1", "units": "mm", "entities": [
				{"type": "gear", "id": "g", "center": [0,0,0], "teeth": 12.5, "module": 2, "phase": 0}
			], "constraints": []}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := train.Parse([]byte(tt.doc))
			if err == nil {
				_, err = d.Gears()
			}
			if !errors.Is(err, train.ErrMalformedDocument) {
				t.Fatalf("err = %v, want ErrMalformedDocument", err)
			}
		})
	}
}

func TestScalarJSON(t *testing.T) {
	var s train.Scalar
	if err := json.Unmarshal([]byte(`"$spacing"`), &s); err != nil {
		t.Fatalf("unmarshal ref: %v", err)
	}
	if !s.IsRef() {
		t.Error("expected a reference")
	}
	v, err := s.Resolve(map[string]float64{"spacing": 36})
	if err != nil || v != 36 {
		t.Errorf("Resolve = %g, %v; want 36, nil", v, err)
	}
	out, err := json.Marshal(s)
	if err != nil || string(out) != `"$spacing"` {
		t.Errorf("marshal = %s, %v", out, err)
	}
	if err := json.Unmarshal([]byte(`"no-dollar"`), &s); !errors.Is(err, train.ErrMalformedDocument) {
		t.Errorf("bare string: err = %v, want ErrMalformedDocument", err)
	}
}

func TestBuilderRejectsDuplicates(t *testing.T) {
	_, err := train.NewBuilder().
		Gear(&gear.Spec{ID: "a", Teeth: 12, Module: 2}).
		Gear(&gear.Spec{ID: "a", Teeth: 24, Module: 2}).
		Build()
	if !errors.Is(err, train.ErrMalformedDocument) {
		t.Fatalf("err = %v, want ErrMalformedDocument", err)
	}
}

func TestBuilderRejectsDanglingMesh(t *testing.T) {
	_, err := train.NewBuilder().
		Gear(&gear.Spec{ID: "a", Teeth: 12, Module: 2}).
		Mesh("a", "missing").
		Build()
	if !errors.Is(err, train.ErrMalformedDocument) {
		t.Fatalf("err = %v, want ErrMalformedDocument", err)
	}
}

func TestMeshGraphAdjacency(t *testing.T) {
	tr, err := train.NewBuilder().
		Gear(&gear.Spec{ID: "sun", Teeth: 24, Module: 2}).
		Gear(&gear.Spec{ID: "p1", Teeth: 12, Module: 2, Center: gear.Vec3{X: 36}}).
		Gear(&gear.Spec{ID: "p2", Teeth: 12, Module: 2, Center: gear.Vec3{X: -36}}).
		Gear(&gear.Spec{ID: "ring", Teeth: 72, Module: 2, Internal: true}).
		Mesh("sun", "p1").
		Mesh("sun", "p2").
		Mesh("p1", "ring").
		Mesh("p2", "ring").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := tr.Graph()
	got := g.Neighbors("sun")
	if len(got) != 2 || got[0] != "p1" || got[1] != "p2" {
		t.Errorf("Neighbors(sun) = %v, want [p1 p2]", got)
	}
	if len(g.Neighbors("ring")) != 2 {
		t.Errorf("Neighbors(ring) = %v, want 2 planets", g.Neighbors("ring"))
	}
	if len(g.Edges()) != 4 {
		t.Errorf("Edges = %v, want 4", g.Edges())
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	d, err := train.Parse([]byte(doubleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tr, err := train.FromDocument(d)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	out, err := tr.Document().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	d2, err := train.Parse(out)
	if err != nil {
		t.Fatalf("re-Parse: %v", err)
	}
	g1, _ := d.Gears()
	g2, _ := d2.Gears()
	if len(g1) != len(g2) {
		t.Fatalf("gear count changed: %d vs %d", len(g1), len(g2))
	}
	for id, a := range g1 {
		b := g2[id]
		if a.Teeth != b.Teeth || a.Module != b.Module || a.Internal != b.Internal {
			t.Errorf("gear %q changed across round trip", id)
		}
	}
}

func TestWithPhases(t *testing.T) {
	tr, err := train.NewBuilder().
		Gear(&gear.Spec{ID: "a", Teeth: 12, Module: 2}).
		Gear(&gear.Spec{ID: "b", Teeth: 24, Module: 2, Center: gear.Vec3{X: 36}, Phase: 5}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tr2 := tr.WithPhases(map[string]float64{"a": 10})
	if tr2.Gear("a").Phase != 10 {
		t.Errorf("a phase = %g, want 10", tr2.Gear("a").Phase)
	}
	if tr2.Gear("b").Phase != 5 {
		t.Errorf("b phase = %g, want 5 (unchanged)", tr2.Gear("b").Phase)
	}
	if tr.Gear("a").Phase != 0 {
		t.Errorf("original mutated: a phase = %g", tr.Gear("a").Phase)
	}
}
