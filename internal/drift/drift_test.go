package drift_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/dtsegment/internal/config"
	"github.com/banshee-data/dtsegment/internal/drift"
	"github.com/banshee-data/dtsegment/internal/geometry"
	"github.com/banshee-data/dtsegment/internal/segment"
	"github.com/banshee-data/dtsegment/internal/testutil"
)

const wire = 30

func layer(t *testing.T) geometry.Layer {
	t.Helper()
	l, err := testutil.Chamber(t).Layer(testutil.LayerID(1))
	require.NoError(t, err)
	require.True(t, l.HasWire(wire))
	return l
}

func TestLinear_Compute(t *testing.T) {
	l := layer(t)
	wx := l.WireX(wire)
	model := drift.NewLinear(testutil.DriftVelocity)

	tests := []struct {
		name  string
		time  float64
		side  segment.Side
		angle float64
		wantX float64
	}{
		{"right perpendicular", 100, segment.SideRight, 0, wx + 0.543},
		{"left perpendicular", 100, segment.SideLeft, 0, wx - 0.543},
		{"inclined", 100, segment.SideRight, 0.3, wx + 0.543/math.Cos(0.3)},
		{"negative angle", 100, segment.SideLeft, -0.3, wx - 0.543/math.Cos(0.3)},
		{"early time clamps to wire", -2, segment.SideRight, 0, wx},
		{"late time clamps to half cell", 410, segment.SideRight, 0, wx + l.CellWidth/2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := segment.Measurement{Layer: l.ID, Wire: wire, DriftTime: tt.time, Side: tt.side}
			got, ok := model.Compute(l, m, tt.angle)
			require.True(t, ok)
			assert.InDelta(t, tt.wantX, got.Position.X, 1e-9)
			assert.Equal(t, tt.side, got.Side)
			assert.InDelta(t, 0.0004, got.Variance, 1e-15)
			assert.Equal(t, l.ID, got.Layer)
			assert.Equal(t, wire, got.Wire)
		})
	}
}

func TestLinear_ComputeRejects(t *testing.T) {
	l := layer(t)
	model := drift.NewLinear(testutil.DriftVelocity)

	tests := []struct {
		name  string
		m     segment.Measurement
		angle float64
	}{
		{"before window", segment.Measurement{Wire: wire, DriftTime: -10, Side: segment.SideRight}, 0},
		{"after window", segment.Measurement{Wire: wire, DriftTime: 500, Side: segment.SideRight}, 0},
		{"no such wire", segment.Measurement{Wire: 0, DriftTime: 100, Side: segment.SideRight}, 0},
		{"wire past layer end", segment.Measurement{Wire: l.NumWires + 1, DriftTime: 100, Side: segment.SideRight}, 0},
		{"track along the layer", segment.Measurement{Wire: wire, DriftTime: 100, Side: segment.SideRight}, math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := model.Compute(l, tt.m, tt.angle)
			assert.False(t, ok)
			assert.Equal(t, tt.m, got, "rejected measurement must be returned unchanged")
		})
	}
}

func TestLinear_T0(t *testing.T) {
	l := layer(t)
	model := drift.NewLinear(testutil.DriftVelocity)
	model.T0 = 20

	got, ok := model.Compute(l, segment.Measurement{Wire: wire, DriftTime: 120, Side: segment.SideRight}, 0)
	require.True(t, ok)
	assert.InDelta(t, l.WireX(wire)+0.543, got.Position.X, 1e-9)

	_, ok = model.Compute(l, segment.Measurement{Wire: wire, DriftTime: 10, Side: segment.SideRight}, 0)
	assert.False(t, ok, "corrected time -10 is outside the window")
}

func TestLinear_ComputeRejectsUnknownSide(t *testing.T) {
	l := layer(t)
	wx := l.WireX(wire)
	model := drift.NewLinear(testutil.DriftVelocity)

	for _, x := range []float64{wx - 1, wx, wx + 0.1} {
		m := segment.Measurement{Wire: wire, DriftTime: 100, Position: r3.Vec{X: x}}
		got, ok := model.Compute(l, m, 0)
		assert.False(t, ok, "x=%g", x)
		assert.Equal(t, m, got)
	}

	// A predicted position resolves the side.
	m := segment.Measurement{Wire: wire, DriftTime: 100, Position: r3.Vec{X: wx}}
	got, ok := model.ComputeWithPosition(l, m, 0, l.Frame.ToGlobal(r3.Vec{X: wx - 0.5}))
	require.True(t, ok)
	assert.Equal(t, segment.SideLeft, got.Side)
	assert.InDelta(t, wx-0.543, got.Position.X, 1e-9)
}

func TestLinear_ComputeWithPositionPicksNearestSide(t *testing.T) {
	l := layer(t)
	wx := l.WireX(wire)
	model := drift.NewLinear(testutil.DriftVelocity)
	m := segment.Measurement{Wire: wire, DriftTime: 100, Side: segment.SideRight, Position: r3.Vec{X: wx + 0.543}}

	left := l.Frame.ToGlobal(r3.Vec{X: wx - 0.4})
	got, ok := model.ComputeWithPosition(l, m, 0.2, left)
	require.True(t, ok)
	assert.Equal(t, segment.SideLeft, got.Side)
	assert.InDelta(t, wx-0.543/math.Cos(0.2), got.Position.X, 1e-9)

	right := l.Frame.ToGlobal(r3.Vec{X: wx + 1.5})
	got, ok = model.ComputeWithPosition(l, m, 0.2, right)
	require.True(t, ok)
	assert.Equal(t, segment.SideRight, got.Side)
}

func TestLinear_NewMeasurement(t *testing.T) {
	l := layer(t)
	wx := l.WireX(wire)
	model := drift.NewLinear(testutil.DriftVelocity)

	m, ok := model.NewMeasurement(l, wire, 100, segment.SideLeft)
	require.True(t, ok)
	assert.Equal(t, l.ID, m.Layer)
	assert.InDelta(t, wx-0.543, m.Position.X, 1e-9)
	assert.InDelta(t, 0.02, m.Sigma(), 1e-12)

	m, ok = model.NewMeasurement(l, wire, 100, segment.SideUnknown)
	require.True(t, ok)
	assert.Equal(t, segment.SideUnknown, m.Side)
	assert.Equal(t, wx, m.Position.X)
	assert.InDelta(t, l.CellWidth/2, m.Sigma(), 1e-12)

	_, ok = model.NewMeasurement(l, wire, 1000, segment.SideUnknown)
	assert.False(t, ok)
	_, ok = model.NewMeasurement(l, l.NumWires+5, 100, segment.SideUnknown)
	assert.False(t, ok)
}

func TestNoDrift(t *testing.T) {
	l := layer(t)
	var model drift.NoDrift
	assert.False(t, model.CanRefine())
	assert.Equal(t, "none", model.Name())

	m := segment.Measurement{Wire: wire, DriftTime: 100, Side: segment.SideRight, Position: r3.Vec{X: 3, Y: 7}}
	got, ok := model.ComputeWithPosition(l, m, 0.4, r3.Vec{})
	require.True(t, ok)
	assert.Equal(t, r3.Vec{X: l.WireX(wire), Y: 7}, got.Position)
	assert.Equal(t, segment.SideUnknown, got.Side)
	assert.InDelta(t, l.CellWidth*l.CellWidth/12, got.Variance, 1e-12)

	m.Wire = -1
	_, ok = model.Compute(l, m, 0)
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	m, err := drift.New(config.EmptyRecoConfig())
	require.NoError(t, err)
	lin, ok := m.(*drift.Linear)
	require.True(t, ok)
	assert.Equal(t, "linear", lin.Name())
	assert.True(t, lin.CanRefine())
	assert.Equal(t, 0.00543, lin.Velocity)
	assert.Equal(t, -3.0, lin.MinTime)
	assert.Equal(t, 415.0, lin.MaxTime)
	assert.Equal(t, 0.02, lin.Resolution)

	cfg := config.EmptyRecoConfig()
	none := config.DriftModelNone
	cfg.DriftModel = &none
	m, err = drift.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, drift.NoDrift{}, m)

	bogus := "parabolic"
	cfg.DriftModel = &bogus
	_, err = drift.New(cfg)
	assert.ErrorContains(t, err, "parabolic")
}

func TestRawMeasurement(t *testing.T) {
	l := layer(t)

	m, ok := drift.RawMeasurement(drift.NewLinear(testutil.DriftVelocity), l, wire, 100, segment.SideRight)
	require.True(t, ok)
	assert.Equal(t, l.ID, m.Layer)
	assert.InDelta(t, l.WireX(wire)+0.543, m.Position.X, 1e-9)

	m, ok = drift.RawMeasurement(drift.NoDrift{}, l, wire, 100, segment.SideRight)
	require.True(t, ok)
	assert.Equal(t, l.ID, m.Layer)
	assert.Equal(t, l.WireX(wire), m.Position.X)
	assert.Equal(t, segment.SideUnknown, m.Side)
}
