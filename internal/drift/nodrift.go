package drift

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/dtsegment/internal/geometry"
	"github.com/banshee-data/dtsegment/internal/segment"
)

// NoDrift places every hit on its wire with the error of a uniform
// distribution over the cell. It ignores the segment geometry.
type NoDrift struct{}

func (NoDrift) Name() string { return "none" }

func (NoDrift) CanRefine() bool { return false }

func (NoDrift) Compute(layer geometry.Layer, m segment.Measurement, _ float64) (segment.Measurement, bool) {
	if !layer.HasWire(m.Wire) {
		return m, false
	}
	m.Position = r3.Vec{X: layer.WireX(m.Wire), Y: m.Position.Y}
	m.Variance = layer.CellWidth * layer.CellWidth / 12
	m.Side = segment.SideUnknown
	return m, true
}

func (n NoDrift) ComputeWithPosition(layer geometry.Layer, m segment.Measurement, angle float64, _ r3.Vec) (segment.Measurement, bool) {
	return n.Compute(layer, m, angle)
}
