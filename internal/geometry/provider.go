package geometry

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnknownLayer is returned when a provider has no surface for an id.
var ErrUnknownLayer = errors.New("unknown layer")

// Layer is the geometry of one drift-tube layer (or, with ID.Layer == 0,
// of a superlayer reference surface). Lengths are in cm.
type Layer struct {
	ID         LayerID
	Frame      Frame
	CellWidth  float64 // wire pitch along local x
	NumWires   int
	FirstWireX float64 // local x of wire 1
}

// WireX returns the local x position of a wire (1-based).
func (l Layer) WireX(wire int) float64 {
	return l.FirstWireX + float64(wire-1)*l.CellWidth
}

// HasWire reports whether wire is a valid wire number for the layer.
func (l Layer) HasWire(wire int) bool {
	return wire >= 1 && wire <= l.NumWires
}

// Provider resolves layer ids to surfaces and maps coordinates between a
// layer's local frame and the global frame. Implementations must be safe
// for concurrent use and must not change during a reconstruction pass.
type Provider interface {
	Layer(id LayerID) (Layer, error)
	LocalToGlobal(id LayerID, p r3.Vec) (r3.Vec, error)
	GlobalToLocal(id LayerID, p r3.Vec) (r3.Vec, error)
	LocalToGlobalDir(id LayerID, v r3.Vec) (r3.Vec, error)
	GlobalToLocalDir(id LayerID, v r3.Vec) (r3.Vec, error)
}

// RelativeFramer is implemented by providers that can hand out (and
// possibly cache) the frame mapping one surface's local coordinates into
// another's.
type RelativeFramer interface {
	RelativeFrame(from, to LayerID) (Frame, error)
}

// Relative returns the frame mapping from-local coordinates into to-local
// coordinates, using p's own RelativeFrame when it has one.
func Relative(p Provider, from, to LayerID) (Frame, error) {
	if rf, ok := p.(RelativeFramer); ok {
		return rf.RelativeFrame(from, to)
	}
	return relative(p, from, to)
}

func relative(p Provider, from, to LayerID) (Frame, error) {
	src, err := p.Layer(from)
	if err != nil {
		return Frame{}, err
	}
	dst, err := p.Layer(to)
	if err != nil {
		return Frame{}, err
	}
	return src.Frame.RelativeTo(dst.Frame), nil
}

// Static is an immutable in-memory Provider.
type Static struct {
	layers map[LayerID]Layer
}

// NewStatic indexes layers by id. Duplicate ids and invalid frames are rejected.
func NewStatic(layers []Layer) (*Static, error) {
	s := &Static{layers: make(map[LayerID]Layer, len(layers))}
	for _, l := range layers {
		if _, dup := s.layers[l.ID]; dup {
			return nil, fmt.Errorf("duplicate layer %s", l.ID)
		}
		if !IsValidRotation(l.Frame.R) {
			return nil, fmt.Errorf("layer %s: %w", l.ID, ErrInvalidFrame)
		}
		if !l.ID.IsSuperLayer() && l.CellWidth <= 0 {
			return nil, fmt.Errorf("layer %s: cell width must be positive, got %g", l.ID, l.CellWidth)
		}
		s.layers[l.ID] = l
	}
	return s, nil
}

// Len returns the number of surfaces known to the provider.
func (s *Static) Len() int { return len(s.layers) }

// Layers returns every surface in unspecified order.
func (s *Static) Layers() []Layer {
	out := make([]Layer, 0, len(s.layers))
	for _, l := range s.layers {
		out = append(out, l)
	}
	return out
}

func (s *Static) Layer(id LayerID) (Layer, error) {
	l, ok := s.layers[id]
	if !ok {
		return Layer{}, fmt.Errorf("%w: %s", ErrUnknownLayer, id)
	}
	return l, nil
}

func (s *Static) LocalToGlobal(id LayerID, p r3.Vec) (r3.Vec, error) {
	l, err := s.Layer(id)
	if err != nil {
		return r3.Vec{}, err
	}
	return l.Frame.ToGlobal(p), nil
}

func (s *Static) GlobalToLocal(id LayerID, p r3.Vec) (r3.Vec, error) {
	l, err := s.Layer(id)
	if err != nil {
		return r3.Vec{}, err
	}
	return l.Frame.ToLocal(p), nil
}

func (s *Static) LocalToGlobalDir(id LayerID, v r3.Vec) (r3.Vec, error) {
	l, err := s.Layer(id)
	if err != nil {
		return r3.Vec{}, err
	}
	return l.Frame.ToGlobalDir(v), nil
}

func (s *Static) GlobalToLocalDir(id LayerID, v r3.Vec) (r3.Vec, error) {
	l, err := s.Layer(id)
	if err != nil {
		return r3.Vec{}, err
	}
	return l.Frame.ToLocalDir(v), nil
}
