package phase

import (
	"math"
	"sort"

	"github.com/chazu/epicycle/pkg/train"
)

// Alignment scores how well a set of phase demands agree modulo a
// gear's tooth period. Aligned and RegularlySpaced are distinct
// outcomes: strict gating needs the former, search ranking can accept
// the latter as a pattern signal.
type Alignment struct {
	Period     float64 // tooth angular period, 360/teeth
	Normalized []float64
	Variance   float64 // spread of normalized demands
	Tolerance  float64
	Aligned    bool
	// RegularlySpaced reports that the demands, while not identical,
	// divide the tooth period evenly. Compliant assemblies can still
	// close under such a pattern.
	RegularlySpaced bool
	// HalfToothShifted reports every demand sits at 0 or half the
	// period, the signature of alternating tip/valley engagement.
	HalfToothShifted bool
}

// CheckAlignment normalizes demands (degrees) into [0, period) for a
// gear with the given tooth count and measures their dispersion. The
// alignment tolerance is tol.PhaseFraction of the tooth period.
func CheckAlignment(demands []float64, teeth int, tol train.Tolerances) Alignment {
	period := 360.0 / float64(teeth)
	a := Alignment{
		Period:    period,
		Tolerance: tol.PhaseFraction * period,
	}
	if len(demands) == 0 {
		a.Aligned = true
		return a
	}
	a.Normalized = make([]float64, len(demands))
	for i, d := range demands {
		a.Normalized[i] = math.Mod(Mod360(d), period)
	}
	lo, hi := a.Normalized[0], a.Normalized[0]
	for _, v := range a.Normalized[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	a.Variance = hi - lo
	a.Aligned = a.Variance < a.Tolerance

	if !a.Aligned {
		a.RegularlySpaced = regularlySpaced(a.Normalized, period, a.Tolerance)
	}
	a.HalfToothShifted = halfToothShifted(a.Normalized, period, a.Tolerance)
	return a
}

// regularlySpaced reports whether the sorted demands divide the period
// into equal circular gaps.
func regularlySpaced(normalized []float64, period, tol float64) bool {
	if len(normalized) < 2 {
		return false
	}
	s := append([]float64(nil), normalized...)
	sort.Float64s(s)
	gaps := make([]float64, len(s))
	for i := 1; i < len(s); i++ {
		gaps[i-1] = s[i] - s[i-1]
	}
	gaps[len(s)-1] = period - s[len(s)-1] + s[0]
	for _, g := range gaps[1:] {
		if math.Abs(g-gaps[0]) > tol {
			return false
		}
	}
	return true
}

// halfToothShifted reports whether every demand sits at 0 or period/2
// within tolerance (0 and period are the same position).
func halfToothShifted(normalized []float64, period, tol float64) bool {
	for _, v := range normalized {
		atZero := v < tol || period-v < tol
		atHalf := math.Abs(v-period/2) < tol
		if !atZero && !atHalf {
			return false
		}
	}
	return true
}
