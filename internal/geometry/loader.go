package geometry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"
)

// maxGeometryFileSize bounds the geometry description read by LoadFile.
const maxGeometryFileSize = 8 * 1024 * 1024

// File is the JSON description of a detector geometry. Surfaces may be
// listed one by one or generated from superlayer blocks.
type File struct {
	Layers      []LayerEntry      `json:"layers,omitempty"`
	SuperLayers []SuperLayerEntry `json:"superlayers,omitempty"`
}

// LayerEntry describes one surface.
type LayerEntry struct {
	LayerID
	Origin     [3]float64  `json:"origin"`
	Rotation   *[9]float64 `json:"rotation,omitempty"` // row-major; identity when omitted
	CellWidth  float64     `json:"cell_width,omitempty"`
	NumWires   int         `json:"num_wires,omitempty"`
	FirstWireX float64     `json:"first_wire_x,omitempty"`
}

// SuperLayerEntry generates a superlayer and its layers with NewSuperLayer.
type SuperLayerEntry struct {
	LayerID
	Origin     [3]float64  `json:"origin"`
	Rotation   *[9]float64 `json:"rotation,omitempty"`
	PhiRad     *float64    `json:"phi_rad,omitempty"` // rotation about global z, used when Rotation is omitted
	Layers     int         `json:"layers,omitempty"`
	NumWires   int         `json:"num_wires,omitempty"`
	CellWidth  float64     `json:"cell_width,omitempty"`
	CellHeight float64     `json:"cell_height,omitempty"`
}

func (e SuperLayerEntry) spec() SuperLayerSpec {
	s := DefaultSuperLayerSpec()
	if e.Layers > 0 {
		s.Layers = e.Layers
	}
	if e.NumWires > 0 {
		s.NumWires = e.NumWires
	}
	if e.CellWidth > 0 {
		s.CellWidth = e.CellWidth
	}
	if e.CellHeight > 0 {
		s.CellHeight = e.CellHeight
	}
	return s
}

// Build expands the description into surfaces and indexes them.
func (f *File) Build() (*Static, error) {
	var layers []Layer
	for _, e := range f.Layers {
		r := IdentityRotation
		if e.Rotation != nil {
			r = *e.Rotation
		}
		fr, err := NewFrame(r, r3.Vec{X: e.Origin[0], Y: e.Origin[1], Z: e.Origin[2]})
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", e.LayerID, err)
		}
		layers = append(layers, Layer{
			ID:         e.LayerID,
			Frame:      fr,
			CellWidth:  e.CellWidth,
			NumWires:   e.NumWires,
			FirstWireX: e.FirstWireX,
		})
	}
	for _, e := range f.SuperLayers {
		r := IdentityRotation
		switch {
		case e.Rotation != nil:
			r = *e.Rotation
		case e.PhiRad != nil:
			r = RotationZ(*e.PhiRad)
		}
		fr, err := NewFrame(r, r3.Vec{X: e.Origin[0], Y: e.Origin[1], Z: e.Origin[2]})
		if err != nil {
			return nil, fmt.Errorf("superlayer %s: %w", e.LayerID, err)
		}
		layers = append(layers, NewSuperLayer(e.LayerID, fr, e.spec())...)
	}
	return NewStatic(layers)
}

// LoadFile reads a JSON geometry description. The path must have a .json
// extension and the file must be smaller than 8MB.
func LoadFile(path string) (*Static, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("geometry file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat geometry file: %w", err)
	}
	if info.Size() > maxGeometryFileSize {
		return nil, fmt.Errorf("geometry file too large: %d bytes (max %d)", info.Size(), maxGeometryFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read geometry file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse geometry JSON: %w", err)
	}
	return f.Build()
}
