package drift

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/dtsegment/internal/geometry"
	"github.com/banshee-data/dtsegment/internal/segment"
)

// Linear converts drift time to distance with a constant drift velocity.
// The distance is the track's closest approach to the wire; the crossing
// point on the layer plane is that distance divided by cos(angle).
type Linear struct {
	Velocity   float64 // cm/ns
	T0         float64 // ns subtracted from every drift time
	MinTime    float64 // ns, earliest accepted corrected time
	MaxTime    float64 // ns, latest accepted corrected time
	Resolution float64 // cm, hit error along local x
}

// NewLinear returns a Linear model with the given drift velocity and the
// standard time window and resolution.
func NewLinear(velocity float64) *Linear {
	return &Linear{
		Velocity:   velocity,
		MinTime:    -3,
		MaxTime:    415,
		Resolution: 0.02,
	}
}

func (l *Linear) Name() string { return "linear" }

func (l *Linear) CanRefine() bool { return true }

// distance returns the drift distance for m, clamped to half a cell.
func (l *Linear) distance(layer geometry.Layer, m segment.Measurement) (float64, bool) {
	t := m.DriftTime - l.T0
	if t < l.MinTime || t > l.MaxTime {
		return 0, false
	}
	d := math.Max(0, l.Velocity*t)
	return math.Min(d, layer.CellWidth/2), true
}

// positions returns the left and right crossing points of m for a track
// at angle.
func (l *Linear) positions(layer geometry.Layer, m segment.Measurement, angle float64) (left, right float64, ok bool) {
	if !layer.HasWire(m.Wire) {
		return 0, 0, false
	}
	d, ok := l.distance(layer, m)
	if !ok {
		return 0, 0, false
	}
	cos := math.Cos(angle)
	if !(cos > 0) {
		return 0, 0, false
	}
	wire := layer.WireX(m.Wire)
	dx := d / cos
	return wire - dx, wire + dx, true
}

func (l *Linear) update(m segment.Measurement, x float64, side segment.Side) segment.Measurement {
	m.Side = side
	m.Position = r3.Vec{X: x, Y: m.Position.Y}
	m.Variance = l.Resolution * l.Resolution
	return m
}

// Compute keeps the measurement's side. Without a side and without a
// predicted position the hit cannot be placed, so an unknown side fails.
func (l *Linear) Compute(layer geometry.Layer, m segment.Measurement, angle float64) (segment.Measurement, bool) {
	left, right, ok := l.positions(layer, m, angle)
	if !ok {
		return m, false
	}
	switch m.Side {
	case segment.SideLeft:
		return l.update(m, left, m.Side), true
	case segment.SideRight:
		return l.update(m, right, m.Side), true
	default:
		return m, false
	}
}

// ComputeWithPosition picks the side closer to the segment's predicted
// crossing point, overriding the measurement's own side flag.
func (l *Linear) ComputeWithPosition(layer geometry.Layer, m segment.Measurement, angle float64, globalPos r3.Vec) (segment.Measurement, bool) {
	left, right, ok := l.positions(layer, m, angle)
	if !ok {
		return m, false
	}
	predicted := layer.Frame.ToLocal(globalPos).X
	if math.Abs(left-predicted) < math.Abs(right-predicted) {
		return l.update(m, left, segment.SideLeft), true
	}
	return l.update(m, right, segment.SideRight), true
}

// NewMeasurement builds the raw hit for a wire signal, placed as if the
// track crossed the layer perpendicularly. A hit with an unknown side sits
// on the wire with an error covering the whole half cell.
func (l *Linear) NewMeasurement(layer geometry.Layer, wire int, driftTime float64, side segment.Side) (segment.Measurement, bool) {
	m := segment.Measurement{Layer: layer.ID, Wire: wire, DriftTime: driftTime, Side: side}
	if side != segment.SideUnknown {
		return l.Compute(layer, m, 0)
	}
	if !layer.HasWire(wire) {
		return m, false
	}
	if _, ok := l.distance(layer, m); !ok {
		return m, false
	}
	half := layer.CellWidth / 2
	m.Position = r3.Vec{X: layer.WireX(wire)}
	m.Variance = half * half
	return m, true
}
