package segment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/dtsegment/internal/geometry"
)

// DriftModel turns a raw drift-tube hit plus the segment's incidence
// geometry into a disambiguated position in the layer's local frame.
// Implementations must be safe for concurrent use.
type DriftModel interface {
	// Name identifies the model in logs and stored results.
	Name() string

	// CanRefine reports whether the model's output depends on the
	// segment geometry. Models that ignore it make refinement pointless.
	CanRefine() bool

	// Compute recomputes m for a segment crossing the layer at angle
	// (radians, in the layer's local xz plane). ok is false when no
	// position can be computed.
	Compute(layer geometry.Layer, m Measurement, angle float64) (updated Measurement, ok bool)

	// ComputeWithPosition is Compute with the segment's predicted global
	// position on the layer, used to resolve the left/right ambiguity.
	ComputeWithPosition(layer geometry.Layer, m Measurement, angle float64, globalPos r3.Vec) (updated Measurement, ok bool)
}

// Refiner recomputes hit positions of a segment with a drift model.
type Refiner struct {
	geom  geometry.Provider
	model DriftModel
}

// NewRefiner returns a Refiner using geom for surface lookups.
func NewRefiner(geom geometry.Provider, model DriftModel) *Refiner {
	return &Refiner{geom: geom, model: model}
}

// crossing is the segment's geometry as seen from one layer.
type crossing struct {
	layer     geometry.Layer
	angle     float64
	predicted r3.Vec // local, on z = 0
}

// Refine returns a fresh copy of ms with every position recomputed by the
// drift model. pos and dir are the segment estimate in the frame of
// superlayer sl. The input slice is never modified; on error nothing is
// returned.
func (r *Refiner) Refine(sl geometry.LayerID, ms []Measurement, pos, dir r3.Vec, phase Phase) ([]Measurement, error) {
	if !phase.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPhase, phase)
	}

	gpos, err := r.geom.LocalToGlobal(sl, pos)
	if err != nil {
		return nil, fmt.Errorf("segment position to global: %w", err)
	}
	gdir, err := r.geom.LocalToGlobalDir(sl, dir)
	if err != nil {
		return nil, fmt.Errorf("segment direction to global: %w", err)
	}

	crossings := make(map[geometry.LayerID]crossing, len(ms))
	out := make([]Measurement, len(ms))
	for i, m := range ms {
		c, ok := crossings[m.Layer]
		if !ok {
			c, err = r.cross(m.Layer, gpos, gdir)
			if err != nil {
				return nil, err
			}
			crossings[m.Layer] = c
		}

		var updated Measurement
		switch phase {
		case PhaseAngleOnly:
			updated, ok = r.model.Compute(c.layer, m, c.angle)
		case PhaseAngleAndPosition:
			// y is not measured by the hit; take both coordinates from
			// the extrapolated segment.
			at := c.layer.Frame.ToGlobal(r3.Vec{X: c.predicted.X, Y: c.predicted.Y})
			updated, ok = r.model.ComputeWithPosition(c.layer, m, c.angle, at)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s wire %d (hit %d of %d, %s)",
				ErrHitUpdate, m.Layer, m.Wire, i+1, len(ms), phase)
		}
		updated.Layer = m.Layer
		updated.Wire = m.Wire
		Tracef("%s wire %d: x %.4f -> %.4f (%s, angle %.4f)",
			m.Layer, m.Wire, m.Position.X, updated.Position.X, phase, c.angle)
		out[i] = updated
	}
	return out, nil
}

// cross extrapolates the global line (gpos, gdir) into the local frame of
// layer id and intersects it with the layer plane.
func (r *Refiner) cross(id geometry.LayerID, gpos, gdir r3.Vec) (crossing, error) {
	layer, err := r.geom.Layer(id)
	if err != nil {
		return crossing{}, fmt.Errorf("layer lookup: %w", err)
	}
	lpos := layer.Frame.ToLocal(gpos)
	ldir := layer.Frame.ToLocalDir(gdir)

	predicted, ok := geometry.IntersectZ0(lpos, ldir)
	if !ok {
		return crossing{}, fmt.Errorf("%w: segment parallel to %s", ErrHitUpdate, id)
	}
	return crossing{
		layer:     layer,
		angle:     math.Atan(ldir.X / -ldir.Z),
		predicted: predicted,
	}, nil
}
