// Package terrainmap provides the elevation maps built from perception data.
package terrainmap

import (
	"github.com/golang/geo/r2"

	"github.com/deimos-rover/deimos/cellmap"
)

// Layer identifies a terrain map layer.
type Layer string

// LayerHeight is the single elevation layer of a terrain map.
const LayerHeight Layer = "height"

// Height is the value of one terrain cell: an elevation which may not have
// been observed yet.
type Height struct {
	// Known reports whether the cell has an observed elevation.
	Known bool `json:"known"`

	// M is the elevation in meters, meaningful only when Known.
	M float64 `json:"m,omitempty"`
}

// KnownHeight returns a known elevation value.
func KnownHeight(m float64) Height {
	return Height{Known: true, M: m}
}

// Map is a cell map with a single optional-elevation layer.
type Map struct {
	*cellmap.Map[Layer, Height]
}

// New creates an empty terrain map with the given grid geometry.
func New(params cellmap.Params) (*Map, error) {
	cells, err := cellmap.New[Layer, Height](params, []Layer{LayerHeight})
	if err != nil {
		return nil, err
	}
	return &Map{cells}, nil
}

// GetHeight returns the elevation at the given cell.
func (m *Map) GetHeight(cell cellmap.Vec2i) (Height, error) {
	return m.Get(LayerHeight, cell)
}

// SetHeight stores a known elevation at the given cell.
func (m *Map) SetHeight(cell cellmap.Vec2i, elevationM float64) error {
	return m.Set(LayerHeight, cell, KnownHeight(elevationM))
}

// Clone returns a deep copy of the map.
func (m *Map) Clone() *Map {
	return &Map{m.Map.Clone()}
}

// Merge folds other into the map, expanding it to the union of both bounding
// boxes. Cells known in both maps take the average elevation; cells known in
// only one keep the known value.
func (m *Map) Merge(other *Map) error {
	m.Resize(cellmap.UnionBounds(m.Map, other.Map))

	return m.Apply(LayerHeight, func(_ cellmap.Vec2i, posM r2.Point, value Height) Height {
		otherHeight, err := other.GetPosition(LayerHeight, posM)
		if err != nil || !otherHeight.Known {
			return value
		}
		if !value.Known {
			return otherHeight
		}
		return KnownHeight(0.5 * (value.M + otherHeight.M))
	})
}
