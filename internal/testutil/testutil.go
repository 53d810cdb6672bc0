// Package testutil provides shared test fixtures: a synthetic drift-tube
// chamber and a generator of hits left by straight tracks.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/dtsegment/internal/geometry"
	"github.com/banshee-data/dtsegment/internal/segment"
)

// DriftVelocity is the drift velocity used by the generated hits (cm/ns).
const DriftVelocity = 0.00543

// Resolution is the hit error assigned to generated hits (cm).
const Resolution = 0.02

// SuperLayer is the id of the chamber built by Chamber.
var SuperLayer = geometry.LayerID{Wheel: -1, Station: 2, Sector: 4, SuperLayer: 1}

// ChamberFrame is the superlayer frame used by Chamber: rotated about the
// beam axis and displaced so that local and global coordinates differ.
var ChamberFrame = geometry.Frame{
	R:      geometry.RotationZ(0.4),
	Origin: r3.Vec{X: 120, Y: 480, Z: -35},
}

// Chamber returns a provider holding one standard superlayer.
func Chamber(t testing.TB) *geometry.Static {
	t.Helper()
	p, err := geometry.NewStatic(geometry.NewSuperLayer(SuperLayer, ChamberFrame, geometry.DefaultSuperLayerSpec()))
	if err != nil {
		t.Fatalf("build chamber: %v", err)
	}
	return p
}

// LayerID returns the id of layer n (1-based) of SuperLayer.
func LayerID(n int) geometry.LayerID {
	id := SuperLayer
	id.Layer = n
	return id
}

// Track is a straight line in the superlayer frame: x = X0 + Slope·z.
type Track struct {
	X0    float64
	Slope float64
}

// Direction returns the unit direction of the track, pointing to -z.
func (tr Track) Direction() r3.Vec {
	return r3.Unit(r3.Vec{X: -tr.Slope, Z: -1})
}

// Hit is a generated hit with its true crossing point.
type Hit struct {
	Measurement segment.Measurement
	TrueX       float64 // layer-local x where the track crosses z = 0
}

// Hits returns one hit per layer of SuperLayer for tr. Each measurement
// carries the drift time and side of the true crossing, with the raw
// position placed as for a perpendicular track (wire ± drift distance).
func Hits(t testing.TB, p geometry.Provider, tr Track) []Hit {
	t.Helper()
	sl, err := p.Layer(SuperLayer)
	if err != nil {
		t.Fatalf("superlayer: %v", err)
	}
	cos := math.Cos(math.Atan(tr.Slope))

	var hits []Hit
	for n := 1; ; n++ {
		layer, err := p.Layer(LayerID(n))
		if err != nil {
			break
		}
		depth := sl.Frame.ToLocal(layer.Frame.Origin).Z
		// The layer is parallel to the superlayer and centred on its z axis,
		// so layer-local x equals superlayer-local x.
		x := tr.X0 + tr.Slope*depth

		wire := int(math.Round((x-layer.FirstWireX)/layer.CellWidth)) + 1
		if !layer.HasWire(wire) {
			t.Fatalf("track x=%.3f outside layer %s", x, layer.ID)
		}
		dx := x - layer.WireX(wire)
		d := math.Abs(dx) * cos
		side := segment.SideRight
		if dx < 0 {
			side = segment.SideLeft
		}
		hits = append(hits, Hit{
			Measurement: segment.Measurement{
				Layer:     layer.ID,
				Wire:      wire,
				DriftTime: d / DriftVelocity,
				Side:      side,
				Position:  r3.Vec{X: layer.WireX(wire) + side.Sign()*d},
				Variance:  Resolution * Resolution,
			},
			TrueX: x,
		})
	}
	return hits
}

// Measurements strips the truth from hits.
func Measurements(hits []Hit) []segment.Measurement {
	out := make([]segment.Measurement, len(hits))
	for i, h := range hits {
		out[i] = h.Measurement
	}
	return out
}

// AssertVecNear fails the test if got differs from want by more than tol
// in any component.
func AssertVecNear(t testing.TB, want, got r3.Vec, tol float64) {
	t.Helper()
	if math.Abs(want.X-got.X) > tol || math.Abs(want.Y-got.Y) > tol || math.Abs(want.Z-got.Z) > tol {
		t.Errorf("vector = %+v, want %+v (tol %g)", got, want, tol)
	}
}
