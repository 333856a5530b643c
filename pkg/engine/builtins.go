package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/epicycle/pkg/gear"
	"github.com/chazu/epicycle/pkg/layout"
	"github.com/chazu/epicycle/pkg/overlap"
	"github.com/chazu/epicycle/pkg/phase"
	"github.com/chazu/epicycle/pkg/train"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms train Lisp source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids registering keyword symbols as globals, which would
//     conflict with user variables of the same name.
//
//  2. Kebab-case to underscore: pressure-angle -> pressure_angle.
//     zygomys does not allow hyphens in identifiers (it reads them as
//     subtraction).
//
// Both transformations respect string literal boundaries and line
// comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Kebab-case identifiers: only when the hyphen sits between
		// identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpGearRef wraps a gear id so meshes can take either names or the
// values returned by `gear`.
type sexpGearRef struct {
	id string
}

func (g *sexpGearRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(gearref %q)", g.id)
}
func (g *sexpGearRef) Type() *zygo.RegisteredType { return nil }

// sexpVec2 wraps a gear.Vec2.
type sexpVec2 struct {
	vec gear.Vec2
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %.1f %.1f)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by
// preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string, returning
// the keyword name without the prefix.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds a parsed mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	return false, fmt.Errorf("expected bool, got %T (%s)", s, s.SexpString(nil))
}

// toGearID accepts either a gear reference or a plain name.
func toGearID(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *sexpGearRef:
		return v.id, nil
	case *zygo.SexpStr:
		return v.S, nil
	}
	return "", fmt.Errorf("expected gear reference or name, got %T (%s)", s, s.SexpString(nil))
}

func toVec2(s zygo.Sexp) (gear.Vec2, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	return gear.Vec2{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the gear-train DSL into a zygomys
// environment. The builtins populate the provided train builder
// during evaluation.
//
// Source must be preprocessed with preprocessSource() first so that
// :keyword tokens arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *train.Builder) {

	// -----------------------------------------------------------------------
	// (parameter "m" 2.0)
	// -----------------------------------------------------------------------
	env.AddFunction("parameter", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("parameter requires a name and a value")
		}
		pname, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("parameter: name: %w", err)
		}
		val, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("parameter %q: %w", pname, err)
		}
		b.Parameter(pname, val)
		return args[1], nil
	})

	// -----------------------------------------------------------------------
	// (vec2 36 0)
	// -----------------------------------------------------------------------
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}
		return &sexpVec2{vec: gear.Vec2{X: x, Y: y}}, nil
	})

	// -----------------------------------------------------------------------
	// (gear "sun" :teeth 24 :module 2 :center (vec2 0 0)
	//             :pressure-angle 20 :phase 0 :internal false)
	// -----------------------------------------------------------------------
	env.AddFunction("gear", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("gear requires a name argument")
		}
		id, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("gear: name: %w", err)
		}

		spec := &gear.Spec{ID: id, PressureAngle: gear.DefaultPressureAngle}
		if v, ok := pa.kw["teeth"]; ok {
			spec.Teeth, err = toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("gear %q: teeth: %w", id, err)
			}
		}
		if v, ok := pa.kw["module"]; ok {
			spec.Module, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("gear %q: module: %w", id, err)
			}
		}
		if v, ok := pa.kw["pressure-angle"]; ok {
			spec.PressureAngle, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("gear %q: pressure-angle: %w", id, err)
			}
		}
		if v, ok := pa.kw["phase"]; ok {
			spec.Phase, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("gear %q: phase: %w", id, err)
			}
		}
		if v, ok := pa.kw["center"]; ok {
			c, err := toVec2(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("gear %q: center: %w", id, err)
			}
			spec.Center = gear.Vec3{X: c.X, Y: c.Y}
		}
		if v, ok := pa.kw["internal"]; ok {
			spec.Internal, err = toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("gear %q: internal: %w", id, err)
			}
		}

		b.Gear(spec)
		return &sexpGearRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (mesh "sun" "inner1")  or  (mesh sun-ref inner-ref)
	// -----------------------------------------------------------------------
	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("mesh requires exactly 2 gears, got %d", len(args))
		}
		g1, err := toGearID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: %w", err)
		}
		g2, err := toGearID(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: %w", err)
		}
		b.Mesh(g1, g2)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (planet-ring :sun 24 :planet 12 :ring 72 :count 3 :module 2)
	//
	// Creates a sun, an internal ring and count equally spaced planets
	// with all meshes declared. Returns the planet refs so later stages
	// can mesh onto them.
	// -----------------------------------------------------------------------
	env.AddFunction("planet_ring", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		teeth := func(key string) (int, error) {
			v, ok := pa.kw[key]
			if !ok {
				return 0, fmt.Errorf("planet-ring: missing :%s", key)
			}
			n, err := toInt(v)
			if err != nil {
				return 0, fmt.Errorf("planet-ring: %s: %w", key, err)
			}
			return n, nil
		}
		sun, err := teeth("sun")
		if err != nil {
			return zygo.SexpNull, err
		}
		planet, err := teeth("planet")
		if err != nil {
			return zygo.SexpNull, err
		}
		ring, err := teeth("ring")
		if err != nil {
			return zygo.SexpNull, err
		}
		count := 3
		if v, ok := pa.kw["count"]; ok {
			count, err = toInt(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("planet-ring: count: %w", err)
			}
		}
		if count < 1 {
			return zygo.SexpNull, fmt.Errorf("planet-ring: count must be positive, got %d", count)
		}
		module := 1.0
		if v, ok := pa.kw["module"]; ok {
			module, err = toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("planet-ring: module: %w", err)
			}
		}

		b.Gear(&gear.Spec{ID: "sun", Teeth: sun, Module: module, PressureAngle: gear.DefaultPressureAngle})
		b.Gear(&gear.Spec{ID: "ring", Teeth: ring, Module: module, PressureAngle: gear.DefaultPressureAngle, Internal: true})
		orbit := float64(sun+planet) * module / 2
		refs := make([]zygo.Sexp, 0, count)
		for i, pos := range layout.InnerRing(orbit, count) {
			id := fmt.Sprintf("p%d", i+1)
			b.Gear(&gear.Spec{
				ID: id, Teeth: planet, Module: module,
				PressureAngle: gear.DefaultPressureAngle,
				Center:        gear.Vec3{X: pos.X, Y: pos.Y},
			})
			b.Mesh("sun", id)
			b.Mesh(id, "ring")
			refs = append(refs, &sexpGearRef{id: id})
		}
		return &zygo.SexpArray{Val: refs, Env: env}, nil
	})

	// -----------------------------------------------------------------------
	// (validate)
	//
	// Checks the train built so far: phase agreement at convergence
	// gears, tip clearances and meshing overlaps. Returns an array of
	// finding strings; empty means valid.
	// -----------------------------------------------------------------------
	env.AddFunction("validate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		tr, err := b.Build()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("validate: %w", err)
		}
		tol := train.DefaultTolerances()
		report := &train.Report{}

		res, err := phase.Propagate(tr)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("validate: %w", err)
		}
		for _, g := range tr.Gears() {
			demands := res.DemandValues(g.ID)
			if len(demands) < 2 {
				continue
			}
			if a := phase.CheckAlignment(demands, g.Teeth, tol); !a.Aligned && !a.RegularlySpaced {
				report.Add(train.Finding{
					Kind:     train.PhaseMisalignment,
					Gear1:    g.ID,
					Message:  fmt.Sprintf("demands spread %.4f over tooth period %.4f", a.Variance, a.Period),
					Residual: a.Variance,
				})
			}
		}
		solved := tr.WithPhases(res.Phases)
		report.Merge(train.Report{Findings: overlap.CheckAnalytic(solved, tol).Findings})
		report.Merge(train.Report{Findings: layout.CheckClearances(solved, tol).Findings})

		findings := make([]zygo.Sexp, 0, len(report.Findings))
		for _, f := range report.Findings {
			findings = append(findings, &zygo.SexpStr{S: f.String()})
		}
		return &zygo.SexpArray{Val: findings, Env: env}, nil
	})
}
