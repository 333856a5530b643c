package train

import "fmt"

// FindingKind classifies a validation finding. Infeasibility is a
// normal outcome during search, so findings are values, not errors.
type FindingKind int

const (
	// AssemblyConstraintViolated: the tooth-count combination cannot
	// close symmetrically ((S+R) mod n != 0).
	AssemblyConstraintViolated FindingKind = iota
	// InfeasibleGeometry: triangle inequality fails or |cos offset|>1.
	InfeasibleGeometry
	// RingFitError: solved outer-planet orbit deviates from the
	// ring-required orbit beyond tolerance.
	RingFitError
	// PhaseMisalignment: phase demands at a convergence gear disagree
	// beyond tolerance.
	PhaseMisalignment
	// ToothOverlap: sampled or rendered geometry shows insufficient
	// inter-gear clearance.
	ToothOverlap
	// PlacementError: a mesh edge's solved center distance deviates
	// from the theoretical one.
	PlacementError
)

func (k FindingKind) String() string {
	switch k {
	case AssemblyConstraintViolated:
		return "assembly-constraint"
	case InfeasibleGeometry:
		return "infeasible-geometry"
	case RingFitError:
		return "ring-fit"
	case PhaseMisalignment:
		return "phase-misalignment"
	case ToothOverlap:
		return "tooth-overlap"
	case PlacementError:
		return "placement"
	default:
		return "unknown"
	}
}

// Finding describes a single validation failure or advisory with the
// numeric residual that triggered it.
type Finding struct {
	Kind     FindingKind
	Gear1    string // offending gear, empty if train-level
	Gear2    string // second gear of the pair, if any
	Message  string
	Residual float64 // error distance / variance in the check's units
	Warning  bool    // advisory only, does not fail the train
}

func (f Finding) String() string {
	sev := "error"
	if f.Warning {
		sev = "warning"
	}
	if f.Gear1 == "" {
		return fmt.Sprintf("[%s] %s: %s", sev, f.Kind, f.Message)
	}
	if f.Gear2 == "" {
		return fmt.Sprintf("[%s] %s: %s: %s", sev, f.Kind, f.Gear1, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s-%s: %s", sev, f.Kind, f.Gear1, f.Gear2, f.Message)
}

// Report bundles findings from one or more validation passes.
type Report struct {
	Findings []Finding
}

// Add appends a finding.
func (r *Report) Add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// Merge appends all findings from another report.
func (r *Report) Merge(other Report) {
	r.Findings = append(r.Findings, other.Findings...)
}

// OK reports whether the report contains no non-warning findings.
func (r *Report) OK() bool {
	for _, f := range r.Findings {
		if !f.Warning {
			return false
		}
	}
	return true
}

// Errors returns the non-warning findings.
func (r *Report) Errors() []Finding {
	var errs []Finding
	for _, f := range r.Findings {
		if !f.Warning {
			errs = append(errs, f)
		}
	}
	return errs
}
