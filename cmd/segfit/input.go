package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/dtsegment/internal/drift"
	"github.com/banshee-data/dtsegment/internal/geometry"
	"github.com/banshee-data/dtsegment/internal/segment"
)

// maxInputFileSize bounds the candidate file read by loadCandidates.
const maxInputFileSize = 64 * 1024 * 1024

// inputFile is the JSON list of segment candidates to fit.
type inputFile struct {
	Candidates []inputCandidate `json:"candidates"`
}

type inputCandidate struct {
	SuperLayer geometry.LayerID `json:"superlayer"`
	Hits       []inputHit       `json:"hits"`
}

type inputHit struct {
	Layer     int     `json:"layer"`
	Wire      int     `json:"wire"`
	DriftTime float64 `json:"drift_time_ns"`
	Side      string  `json:"side,omitempty"`
}

// loadCandidates reads path and converts every hit into a raw measurement
// with model. Hits the model rejects are dropped and counted. The side may
// only be omitted for models that do not refine positions.
func loadCandidates(path string, geom geometry.Provider, model segment.DriftModel) ([]*segment.Candidate, int, error) {
	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat input: %w", err)
	}
	if info.Size() > maxInputFileSize {
		return nil, 0, fmt.Errorf("input file too large: %d bytes (max %d)", info.Size(), maxInputFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read input: %w", err)
	}

	var in inputFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, 0, fmt.Errorf("failed to parse input JSON: %w", err)
	}

	var (
		cands   []*segment.Candidate
		dropped int
	)
	for i, ic := range in.Candidates {
		sl := ic.SuperLayer.SuperLayerID()
		ms := make([]segment.Measurement, 0, len(ic.Hits))
		for j, h := range ic.Hits {
			side, err := segment.ParseSide(h.Side)
			if err != nil {
				return nil, 0, fmt.Errorf("candidate %d hit %d: %w", i, j, err)
			}
			// A refining model places a hit on its side of the wire before the
			// segment position is known.
			if side == segment.SideUnknown && model.CanRefine() {
				return nil, 0, fmt.Errorf("candidate %d hit %d: side is required by drift model %q", i, j, model.Name())
			}
			id := sl
			id.Layer = h.Layer
			layer, err := geom.Layer(id)
			if err != nil {
				return nil, 0, fmt.Errorf("candidate %d hit %d: %w", i, j, err)
			}
			m, ok := drift.RawMeasurement(model, layer, h.Wire, h.DriftTime, side)
			if !ok {
				segment.Diagf("candidate %d: dropped hit %d (layer %s wire %d t=%.1f)", i, j, id, h.Wire, h.DriftTime)
				dropped++
				continue
			}
			ms = append(ms, m)
		}
		cands = append(cands, segment.NewCandidate(sl, ms))
	}
	return cands, dropped, nil
}
