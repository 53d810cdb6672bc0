package segment

import "errors"

var (
	// ErrDegenerateFit is returned when the line fit is underdetermined:
	// fewer than two points, non-positive errors, or all points at the
	// same weighted depth.
	ErrDegenerateFit = errors.New("degenerate line fit")

	// ErrInvalidPhase is returned for a refinement phase outside the
	// defined set. It is raised before any measurement is touched.
	ErrInvalidPhase = errors.New("invalid refinement phase")

	// ErrHitUpdate is returned when the drift model cannot compute a new
	// position for a measurement. The whole segment update is abandoned.
	ErrHitUpdate = errors.New("hit position update failed")

	// ErrChi2Limit is returned when a fit succeeds but its chi2 per degree
	// of freedom exceeds Options.MaxChi2PerDOF. Nothing is committed.
	ErrChi2Limit = errors.New("segment chi2/dof above limit")

	// ErrNotGood is returned for candidates that fail Candidate.Good.
	ErrNotGood = errors.New("segment candidate is not fittable")
)
