package engine

import (
	"strings"
	"testing"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/epicycle/pkg/train"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(gear "a" :teeth 24)`,
			expect: `(gear "a" "__kw_teeth" 24)`,
		},
		{
			name:   "kebab keyword",
			input:  `:pressure-angle 20`,
			expect: `"__kw_pressure-angle" 20`,
		},
		{
			name:   "keyword inside string untouched",
			input:  `"a :keyword in a string"`,
			expect: `"a :keyword in a string"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(x := 5)`,
			expect: `(x := 5)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.input); got != tt.expect {
				t.Errorf("got %q, want %q", got, tt.expect)
			}
		})
	}
}

func TestPreprocessKebabIdentifiers(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "identifier hyphen",
			input:  `(inner-orbit 36)`,
			expect: `(inner_orbit 36)`,
		},
		{
			name:   "subtraction untouched",
			input:  `(- 10 3)`,
			expect: `(- 10 3)`,
		},
		{
			name:   "negative literal untouched",
			input:  `(vec2 -36 0)`,
			expect: `(vec2 -36 0)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.input); got != tt.expect {
				t.Errorf("got %q, want %q", got, tt.expect)
			}
		})
	}
}

func TestPreprocessComments(t *testing.T) {
	got := preprocessSource(";; build the sun\n(gear \"sun\" :teeth 24)")
	want := "// build the sun\n(gear \"sun\" \"__kw_teeth\" 24)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// Argument parsing tests
// ---------------------------------------------------------------------------

func TestParseArgsMixed(t *testing.T) {
	args := []zygo.Sexp{
		&zygo.SexpStr{S: "sun"},
		&zygo.SexpStr{S: kwPrefix + "teeth"},
		&zygo.SexpInt{Val: 24},
		&zygo.SexpStr{S: kwPrefix + "internal"},
		&zygo.SexpBool{Val: true},
	}
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		t.Fatalf("positional = %d, want 1", len(pa.positional))
	}
	if v, ok := pa.kw["teeth"]; !ok {
		t.Error("missing teeth keyword")
	} else if n, err := toInt(v); err != nil || n != 24 {
		t.Errorf("teeth = %v, %v", v, err)
	}
	if _, ok := pa.kw["internal"]; !ok {
		t.Error("missing internal keyword")
	}
}

func TestParseArgsTrailingKeyword(t *testing.T) {
	pa := parseArgs([]zygo.Sexp{&zygo.SexpStr{S: kwPrefix + "internal"}})
	if v, ok := pa.kw["internal"]; !ok || v != zygo.SexpNull {
		t.Errorf("trailing keyword = %v, want null flag", v)
	}
}

// ---------------------------------------------------------------------------
// Validate builtin tests
// ---------------------------------------------------------------------------

// runScript evaluates preprocessed source in a fresh sandbox and
// returns the last expression's value.
func runScript(t *testing.T, source string) zygo.Sexp {
	t.Helper()
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, train.NewBuilder())
	if err := env.LoadString(preprocessSource(source)); err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	out, err := env.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out
}

func TestValidateBuiltinClean(t *testing.T) {
	// 24/12/48 with three planets assembles: (24+48) divides by 3 and
	// the ring sits at sun + two planets.
	out := runScript(t, `
(planet-ring :sun 24 :planet 12 :ring 48 :count 3 :module 2)
(validate)`)
	arr, ok := out.(*zygo.SexpArray)
	if !ok {
		t.Fatalf("validate returned %T (%s)", out, out.SexpString(nil))
	}
	if len(arr.Val) != 0 {
		t.Errorf("findings on a valid train: %v", arr.Val)
	}
}

func TestValidateBuiltinMisaligned(t *testing.T) {
	// The second planet sits at 40deg instead of 120deg: the ring
	// demands land 2.5deg apart on its 7.5deg tooth period.
	out := runScript(t, `
(gear "sun" :teeth 24 :module 2)
(gear "ring" :teeth 48 :module 2 :internal true)
(gear "p1" :teeth 12 :module 2 :center (vec2 36 0))
(gear "p2" :teeth 12 :module 2 :center (vec2 27.5775 23.1403))
(mesh "sun" "p1")
(mesh "sun" "p2")
(mesh "p1" "ring")
(mesh "p2" "ring")
(validate)`)
	arr, ok := out.(*zygo.SexpArray)
	if !ok {
		t.Fatalf("validate returned %T (%s)", out, out.SexpString(nil))
	}
	var phaseFinding bool
	for _, f := range arr.Val {
		s, err := toString(f)
		if err != nil {
			t.Fatalf("finding is not a string: %v", err)
		}
		if strings.Contains(s, "phase") {
			phaseFinding = true
		}
	}
	if !phaseFinding {
		t.Errorf("expected a phase finding, got %v", arr.Val)
	}
}
