// Package drift provides the drift-time-to-position models used to refine
// segment hits.
package drift

import (
	"fmt"

	"github.com/banshee-data/dtsegment/internal/config"
	"github.com/banshee-data/dtsegment/internal/geometry"
	"github.com/banshee-data/dtsegment/internal/segment"
)

var (
	_ segment.DriftModel = (*Linear)(nil)
	_ segment.DriftModel = NoDrift{}
)

// New builds the model named by cfg.
func New(cfg *config.RecoConfig) (segment.DriftModel, error) {
	switch name := cfg.GetDriftModel(); name {
	case config.DriftModelLinear:
		return &Linear{
			Velocity:   cfg.GetDriftVelocity(),
			T0:         cfg.GetT0Offset(),
			MinTime:    cfg.GetMinDriftTime(),
			MaxTime:    cfg.GetMaxDriftTime(),
			Resolution: cfg.GetHitResolution(),
		}, nil
	case config.DriftModelNone:
		return NoDrift{}, nil
	default:
		return nil, fmt.Errorf("unknown drift model %q", name)
	}
}

// RawMeasurement builds the measurement of a wire signal before any
// segment is known, placed as for a perpendicular track.
func RawMeasurement(model segment.DriftModel, layer geometry.Layer, wire int, driftTime float64, side segment.Side) (segment.Measurement, bool) {
	if l, ok := model.(*Linear); ok {
		return l.NewMeasurement(layer, wire, driftTime, side)
	}
	m := segment.Measurement{Layer: layer.ID, Wire: wire, DriftTime: driftTime, Side: side}
	return model.Compute(layer, m, 0)
}
