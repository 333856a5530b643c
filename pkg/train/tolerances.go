package train

// Tolerances collects every numeric threshold used by the feasibility,
// placement, phase and overlap checks. The historical scripts scattered
// these as magic numbers; hoisting them here lets a test suite (or a
// config file) vary them deterministically.
type Tolerances struct {
	// MeshDistance is the maximum deviation, in mm, between a solved
	// center distance and the exact mesh distance required by the
	// triangular placement construction.
	MeshDistance float64

	// RingFit is the maximum deviation, in mm, between a solved outer
	// planet orbit and the orbit the ring mesh requires. Adjustable per
	// use case; compliant assemblies can absorb more.
	RingFit float64

	// CenterDistance is the maximum deviation, in mm, between an
	// entity's solved center distance and the theoretical one before a
	// mesh edge is reported as misplaced.
	CenterDistance float64

	// PhaseFraction is the aligned-phase tolerance as a fraction of the
	// target gear's tooth period.
	PhaseFraction float64

	// TipClearance is the minimum distance, in mm, allowed between the
	// sampled tooth tips of two meshing gears before they are flagged
	// as overlapping.
	TipClearance float64

	// SampleClearance is subtracted from the outer radius when sampling
	// tooth tips, emulating manufacturing tolerance.
	SampleClearance float64

	// NearZero is the minimum inter-gear outline distance, in mm,
	// below which the geometric detector classifies a pair as
	// overlapping even without an intersecting segment.
	NearZero float64

	// PlausibleAngleMin and PlausibleAngleMax bound the placement
	// offset angle, in degrees, outside which a configuration is
	// flagged as a design-quality warning (not a hard failure).
	PlausibleAngleMin float64
	PlausibleAngleMax float64
}

// DefaultTolerances returns the documented defaults.
func DefaultTolerances() Tolerances {
	return Tolerances{
		MeshDistance:      0.01,
		RingFit:           1.0,
		CenterDistance:    0.1,
		PhaseFraction:     0.1,
		TipClearance:      0.5,
		SampleClearance:   0.7,
		NearZero:          0.1,
		PlausibleAngleMin: 30,
		PlausibleAngleMax: 150,
	}
}
