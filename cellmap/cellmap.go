// Package cellmap provides a multi-layer 2D grid map with a rigid pose in a
// parent frame.
//
// The design follows the universal grid map concept from ANYbotics' grid_map
// library: a rectangular grid of cells, each holding one value per named
// layer, positioned in a parent frame by a translation and a rotation about
// +Z. Maps can be resized in place (preserving cell contents), cheaply moved
// within the parent frame, and iterated by cell, by window, or along a line
// between two parent-frame points.
package cellmap

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Errors returned by map accessors.
var (
	ErrOutsideMap   = errors.New("requested position or cell outside map bounds")
	ErrUnknownLayer = errors.New("attempted to access unknown layer")
	ErrNoLayers     = errors.New("map created with no layers, there must be at least one")
)

// Params configures a new Map.
type Params struct {
	// CellSizeM is the size of each cell in meters per cell.
	CellSizeM r2.Point `json:"cell_size_m"`

	// CellBounds are the initial cell index bounds of the map.
	CellBounds Bounds `json:"cell_bounds"`

	// PositionM is the position of the map origin in the parent frame.
	PositionM r2.Point `json:"position_m"`

	// HeadingRad is the rotation of the map about the parent +Z axis.
	HeadingRad float64 `json:"heading_rad"`
}

// Map is a rectangular grid of cells indexed by (x, y), with one value of
// type V per layer L per cell.
type Map[L comparable, V any] struct {
	cellSizeM  r2.Point
	bounds     Bounds
	positionM  r2.Point
	headingRad float64

	layers   []L
	layerIdx map[L]int

	// Flat cell data, indexed (layer, x, y), x then y fastest.
	data []V
}

// New creates a map with the given layers, every cell holding the zero value
// of V.
func New[L comparable, V any](params Params, layers []L) (*Map[L, V], error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}
	layerIdx := make(map[L]int, len(layers))
	for i, layer := range layers {
		layerIdx[layer] = i
	}

	num := params.CellBounds.NumCells()
	return &Map[L, V]{
		cellSizeM:  params.CellSizeM,
		bounds:     params.CellBounds,
		positionM:  params.PositionM,
		headingRad: params.HeadingRad,
		layers:     layers,
		layerIdx:   layerIdx,
		data:       make([]V, len(layers)*num.X*num.Y),
	}, nil
}

// Params returns the parameters which would recreate this map's current
// geometry.
func (m *Map[L, V]) Params() Params {
	return Params{
		CellSizeM:  m.cellSizeM,
		CellBounds: m.bounds,
		PositionM:  m.positionM,
		HeadingRad: m.headingRad,
	}
}

// CellSize returns the size of each cell in meters.
func (m *Map[L, V]) CellSize() r2.Point { return m.cellSizeM }

// CellBounds returns the map's current cell index bounds.
func (m *Map[L, V]) CellBounds() Bounds { return m.bounds }

// NumCells returns the number of cells along each axis.
func (m *Map[L, V]) NumCells() Vec2i { return m.bounds.NumCells() }

// Layers returns the map's layers in index order.
func (m *Map[L, V]) Layers() []L { return m.layers }

// Pose returns the map's position and heading in the parent frame.
func (m *Map[L, V]) Pose() (r2.Point, float64) { return m.positionM, m.headingRad }

func (m *Map[L, V]) dataIndex(layer int, cell Vec2i) int {
	num := m.bounds.NumCells()
	return (layer*num.X+(cell.X-m.bounds.X0))*num.Y + (cell.Y - m.bounds.Y0)
}

func (m *Map[L, V]) layerIndex(layer L) (int, error) {
	idx, ok := m.layerIdx[layer]
	if !ok {
		return 0, ErrUnknownLayer
	}
	return idx, nil
}

// Get returns the value of the given layer at the given cell.
func (m *Map[L, V]) Get(layer L, cell Vec2i) (V, error) {
	var zero V
	idx, err := m.layerIndex(layer)
	if err != nil {
		return zero, err
	}
	if !m.bounds.Contains(cell) {
		return zero, ErrOutsideMap
	}
	return m.data[m.dataIndex(idx, cell)], nil
}

// Set writes the value of the given layer at the given cell.
func (m *Map[L, V]) Set(layer L, cell Vec2i, value V) error {
	idx, err := m.layerIndex(layer)
	if err != nil {
		return err
	}
	if !m.bounds.Contains(cell) {
		return ErrOutsideMap
	}
	m.data[m.dataIndex(idx, cell)] = value
	return nil
}

// GetPosition returns the value of the given layer at the cell containing the
// given parent-frame position.
func (m *Map[L, V]) GetPosition(layer L, positionM r2.Point) (V, error) {
	var zero V
	cell, ok := m.Index(positionM)
	if !ok {
		return zero, ErrOutsideMap
	}
	return m.Get(layer, cell)
}

// SetPosition writes the value of the given layer at the cell containing the
// given parent-frame position.
func (m *Map[L, V]) SetPosition(layer L, positionM r2.Point, value V) error {
	cell, ok := m.Index(positionM)
	if !ok {
		return ErrOutsideMap
	}
	return m.Set(layer, cell, value)
}

// ToParent expresses a map-frame point in the parent frame.
func (m *Map[L, V]) ToParent(mapPoint r2.Point) r2.Point {
	sin, cos := math.Sincos(m.headingRad)
	return r2.Point{
		X: cos*mapPoint.X - sin*mapPoint.Y + m.positionM.X,
		Y: sin*mapPoint.X + cos*mapPoint.Y + m.positionM.Y,
	}
}

// ToMap expresses a parent-frame point in the map frame.
func (m *Map[L, V]) ToMap(parentPoint r2.Point) r2.Point {
	sin, cos := math.Sincos(m.headingRad)
	dx := parentPoint.X - m.positionM.X
	dy := parentPoint.Y - m.positionM.Y
	return r2.Point{
		X: cos*dx + sin*dy,
		Y: -sin*dx + cos*dy,
	}
}

// Index returns the cell containing the given parent-frame position, if it is
// inside the map.
func (m *Map[L, V]) Index(positionM r2.Point) (Vec2i, bool) {
	mp := m.ToMap(positionM)
	cell := Vec2i{
		X: int(math.Floor(mp.X / m.cellSizeM.X)),
		Y: int(math.Floor(mp.Y / m.cellSizeM.Y)),
	}
	return cell, m.bounds.Contains(cell)
}

// PositionOf returns the parent-frame position of the centre of the given
// cell.
func (m *Map[L, V]) PositionOf(cell Vec2i) r2.Point {
	return m.ToParent(r2.Point{
		X: (float64(cell.X) + 0.5) * m.cellSizeM.X,
		Y: (float64(cell.Y) + 0.5) * m.cellSizeM.Y,
	})
}

// Move changes the map's pose in the parent frame. Cell data is untouched, so
// this is a cheap reinterpretation of where the map sits.
func (m *Map[L, V]) Move(positionM r2.Point, headingRad float64) {
	m.positionM = positionM
	m.headingRad = headingRad
}

// Resize changes the map's cell bounds, preserving the values of any cells in
// the intersection of the old and new bounds. New cells hold the zero value.
func (m *Map[L, V]) Resize(newBounds Bounds) {
	if newBounds == m.bounds {
		return
	}

	old := *m
	num := newBounds.NumCells()
	m.data = make([]V, len(m.layers)*num.X*num.Y)
	m.bounds = newBounds

	keep := old.bounds.Intersect(newBounds)
	if keep.IsEmpty() {
		return
	}
	for l := range m.layers {
		for x := keep.X0; x < keep.X1; x++ {
			for y := keep.Y0; y < keep.Y1; y++ {
				cell := Vec2i{X: x, Y: y}
				m.data[m.dataIndex(l, cell)] = old.data[old.dataIndex(l, cell)]
			}
		}
	}
}

// Clone returns a deep copy of the map.
func (m *Map[L, V]) Clone() *Map[L, V] {
	out := *m
	out.layers = append([]L{}, m.layers...)
	out.layerIdx = make(map[L]int, len(m.layerIdx))
	for k, v := range m.layerIdx {
		out.layerIdx[k] = v
	}
	out.data = append([]V{}, m.data...)
	return &out
}
