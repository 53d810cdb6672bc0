package geometry

import "fmt"

// LayerID identifies a drift-tube layer. A LayerID with Layer == 0 names
// the superlayer surface that segments are expressed in.
type LayerID struct {
	Wheel      int `json:"wheel"`
	Station    int `json:"station"`
	Sector     int `json:"sector"`
	SuperLayer int `json:"superlayer"`
	Layer      int `json:"layer"`
}

// SuperLayerID returns the id of the superlayer containing l.
func (l LayerID) SuperLayerID() LayerID {
	l.Layer = 0
	return l
}

// IsSuperLayer reports whether l names a superlayer surface.
func (l LayerID) IsSuperLayer() bool { return l.Layer == 0 }

func (l LayerID) String() string {
	if l.IsSuperLayer() {
		return fmt.Sprintf("W%d/St%d/Se%d/SL%d", l.Wheel, l.Station, l.Sector, l.SuperLayer)
	}
	return fmt.Sprintf("W%d/St%d/Se%d/SL%d/L%d", l.Wheel, l.Station, l.Sector, l.SuperLayer, l.Layer)
}
