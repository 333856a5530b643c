package solver_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/chazu/epicycle/pkg/gear"
	"github.com/chazu/epicycle/pkg/solver"
	"github.com/chazu/epicycle/pkg/train"
)

func testDocument(t *testing.T) *train.Document {
	t.Helper()
	tr, err := train.NewBuilder().
		Gear(&gear.Spec{ID: "sun", Teeth: 24, Module: 2}).
		Gear(&gear.Spec{ID: "p1", Teeth: 12, Module: 2, Center: gear.Vec3{X: 36}}).
		Mesh("sun", "p1").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tr.Document()
}

// cat is a perfectly good identity solver.
func TestSolveEcho(t *testing.T) {
	c := solver.New("cat", nil)
	solved, err := c.Solve(context.Background(), testDocument(t))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	gears, err := solved.Gears()
	if err != nil {
		t.Fatalf("Gears: %v", err)
	}
	if len(gears) != 2 || gears["sun"] == nil {
		t.Errorf("solved gears = %v", gears)
	}
}

func TestSolveFailureCarriesStderr(t *testing.T) {
	c := solver.New("sh", []string{"-c", "echo unsolvable constraint system >&2; exit 3"})
	_, err := c.Solve(context.Background(), testDocument(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unsolvable constraint system") {
		t.Errorf("error %q does not carry stderr", err)
	}
}

func TestSolveMalformedOutput(t *testing.T) {
	c := solver.New("sh", []string{"-c", "echo not json"})
	_, err := c.Solve(context.Background(), testDocument(t))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSolveTimeout(t *testing.T) {
	c := solver.New("sleep", []string{"10"}, solver.WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := c.Solve(context.Background(), testDocument(t))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout not enforced")
	}
}
