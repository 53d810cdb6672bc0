package segment

import "fmt"

// Phase selects how the refiner recomputes hit positions.
type Phase uint8

const (
	// PhaseAngleOnly uses only the segment's local incidence angle. Used
	// for the first refinement, when only the direction is trusted.
	PhaseAngleOnly Phase = iota + 1
	// PhaseAngleAndPosition also passes the predicted global position of
	// the segment on each layer, so the drift model can resolve the
	// left/right ambiguity geometrically.
	PhaseAngleAndPosition
)

// Phases lists every defined phase in schedule order.
var Phases = []Phase{PhaseAngleOnly, PhaseAngleAndPosition}

// Valid reports whether p is a defined phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseAngleOnly, PhaseAngleAndPosition:
		return true
	default:
		return false
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseAngleOnly:
		return "angle-only"
	case PhaseAngleAndPosition:
		return "angle-and-position"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPhase, s)
}
