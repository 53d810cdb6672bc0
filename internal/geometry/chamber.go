package geometry

import "gonum.org/v1/gonum/spatial/r3"

// SuperLayerSpec describes the regular cell layout of a drift-tube superlayer.
type SuperLayerSpec struct {
	Layers     int     // layers per superlayer
	NumWires   int     // wires per layer
	CellWidth  float64 // cm
	CellHeight float64 // cm, layer-to-layer spacing
}

// DefaultSuperLayerSpec is the standard 4-layer layout with 4.2 × 1.3 cm cells.
func DefaultSuperLayerSpec() SuperLayerSpec {
	return SuperLayerSpec{
		Layers:     4,
		NumWires:   60,
		CellWidth:  4.2,
		CellHeight: 1.3,
	}
}

// NewSuperLayer lays out a superlayer surface and its layers. Layers are
// parallel to the superlayer, stacked along its local z and centred on it;
// even layers are staggered by half a cell.
func NewSuperLayer(sl LayerID, frame Frame, spec SuperLayerSpec) []Layer {
	sl = sl.SuperLayerID()
	out := make([]Layer, 0, spec.Layers+1)
	out = append(out, Layer{ID: sl, Frame: frame})

	half := float64(spec.NumWires-1) * spec.CellWidth / 2
	for i := 0; i < spec.Layers; i++ {
		z := (float64(i) - float64(spec.Layers-1)/2) * spec.CellHeight
		first := -half
		if i%2 == 1 {
			first += spec.CellWidth / 2
		}
		id := sl
		id.Layer = i + 1
		out = append(out, Layer{
			ID:         id,
			Frame:      Frame{R: frame.R, Origin: frame.ToGlobal(r3.Vec{Z: z})},
			CellWidth:  spec.CellWidth,
			NumWires:   spec.NumWires,
			FirstWireX: first,
		})
	}
	return out
}
