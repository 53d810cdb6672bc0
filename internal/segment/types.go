package segment

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/dtsegment/internal/geometry"
)

// MinMeasurements is the smallest number of measurements a two-parameter
// line fit can use.
const MinMeasurements = 2

// Side is the left/right drift ambiguity of a measurement relative to its wire.
type Side int8

const (
	SideUnknown Side = iota
	SideLeft         // hit at negative local x of the wire
	SideRight        // hit at positive local x of the wire
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "unknown"
	}
}

// ParseSide parses the String form of a Side. The empty string is
// SideUnknown.
func ParseSide(s string) (Side, error) {
	switch s {
	case "left", "l":
		return SideLeft, nil
	case "right", "r":
		return SideRight, nil
	case "", "unknown":
		return SideUnknown, nil
	}
	return SideUnknown, fmt.Errorf("unknown side %q", s)
}

// Sign returns -1 for left, +1 for right and 0 when unknown.
func (s Side) Sign() float64 {
	switch s {
	case SideLeft:
		return -1
	case SideRight:
		return 1
	default:
		return 0
	}
}

// Measurement is a single drift-tube hit. Position is in the layer's local
// frame; only its x component is measured.
type Measurement struct {
	Layer     geometry.LayerID
	Wire      int
	DriftTime float64 // ns, after trigger time subtraction
	Side      Side
	Position  r3.Vec
	Variance  float64 // cm², along local x
}

// Sigma returns the measurement error along local x.
func (m Measurement) Sigma() float64 { return math.Sqrt(m.Variance) }

// FitResult is the outcome of one line fit, expressed in the superlayer frame.
type FitResult struct {
	Position   r3.Vec        // (intercept, 0, 0)
	Direction  r3.Vec        // unit, z < 0
	Covariance *mat.SymDense // 2x2 over (slope, intercept)
	Chi2       float64

	Slope     float64
	Intercept float64
	NumPoints int
}

// DOF returns the degrees of freedom of the fit.
func (r FitResult) DOF() int { return r.NumPoints - 2 }

// Candidate is a set of measurements believed to come from one straight
// track crossing a superlayer, together with its current line estimate.
type Candidate struct {
	ID           uuid.UUID
	SuperLayer   geometry.LayerID
	Measurements []Measurement

	Position   r3.Vec
	Direction  r3.Vec
	Covariance *mat.SymDense
	Chi2       float64
	Valid      bool
}

// NewCandidate creates a candidate with a fresh id. The measurements slice
// is copied.
func NewCandidate(sl geometry.LayerID, ms []Measurement) *Candidate {
	return &Candidate{
		ID:           uuid.New(),
		SuperLayer:   sl.SuperLayerID(),
		Measurements: append([]Measurement(nil), ms...),
	}
}

// Good reports whether the candidate can be fitted: at least
// MinMeasurements hits, each on a different layer of its superlayer.
func (c *Candidate) Good() bool {
	if len(c.Measurements) < MinMeasurements {
		return false
	}
	seen := make(map[geometry.LayerID]struct{}, len(c.Measurements))
	for _, m := range c.Measurements {
		if m.Layer.SuperLayerID() != c.SuperLayer {
			return false
		}
		if _, dup := seen[m.Layer]; dup {
			return false
		}
		seen[m.Layer] = struct{}{}
	}
	return true
}

// DOF returns the degrees of freedom of the committed fit.
func (c *Candidate) DOF() int { return len(c.Measurements) - 2 }

// Chi2PerDOF returns chi2/dof, or 0 when the fit has no degrees of freedom.
func (c *Candidate) Chi2PerDOF() float64 {
	if c.DOF() <= 0 {
		return 0
	}
	return c.Chi2 / float64(c.DOF())
}

// Slope returns dx/dz of the committed direction.
func (c *Candidate) Slope() float64 {
	if c.Direction.Z == 0 {
		return 0
	}
	return c.Direction.X / c.Direction.Z
}

// commit swaps in the refined measurements and the fit in one step.
func (c *Candidate) commit(r FitResult, ms []Measurement) {
	c.Measurements = ms
	c.Position = r.Position
	c.Direction = r.Direction
	c.Covariance = mat.NewSymDense(2, nil)
	c.Covariance.CopySym(r.Covariance)
	c.Chi2 = r.Chi2
	c.Valid = true
}
