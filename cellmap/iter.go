package cellmap

import (
	"math"

	"github.com/golang/geo/r2"
)

// Each calls fn for every cell of the given layer, with the cell index, the
// parent-frame position of the cell centre, and the cell value.
func (m *Map[L, V]) Each(layer L, fn func(cell Vec2i, positionM r2.Point, value V)) error {
	idx, err := m.layerIndex(layer)
	if err != nil {
		return err
	}
	for x := m.bounds.X0; x < m.bounds.X1; x++ {
		for y := m.bounds.Y0; y < m.bounds.Y1; y++ {
			cell := Vec2i{X: x, Y: y}
			fn(cell, m.PositionOf(cell), m.data[m.dataIndex(idx, cell)])
		}
	}
	return nil
}

// Apply replaces every cell of the given layer with the value returned by fn.
func (m *Map[L, V]) Apply(layer L, fn func(cell Vec2i, positionM r2.Point, value V) V) error {
	idx, err := m.layerIndex(layer)
	if err != nil {
		return err
	}
	for x := m.bounds.X0; x < m.bounds.X1; x++ {
		for y := m.bounds.Y0; y < m.bounds.Y1; y++ {
			cell := Vec2i{X: x, Y: y}
			di := m.dataIndex(idx, cell)
			m.data[di] = fn(cell, m.PositionOf(cell), m.data[di])
		}
	}
	return nil
}

// Window is the 3x3 neighbourhood of an interior cell, indexed
// [dx+1][dy+1] for dx, dy in -1..1.
type Window[V any] [3][3]V

// EachWindow calls fn for every interior cell of the given layer with the 3x3
// window of values centred on that cell.
func (m *Map[L, V]) EachWindow(layer L, fn func(cell Vec2i, window Window[V])) error {
	idx, err := m.layerIndex(layer)
	if err != nil {
		return err
	}
	for x := m.bounds.X0 + 1; x < m.bounds.X1-1; x++ {
		for y := m.bounds.Y0 + 1; y < m.bounds.Y1-1; y++ {
			var window Window[V]
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					window[dx+1][dy+1] = m.data[m.dataIndex(idx, Vec2i{X: x + dx, Y: y + dy})]
				}
			}
			fn(Vec2i{X: x, Y: y}, window)
		}
	}
	return nil
}

// LineCell is one cell returned by Line.
type LineCell[V any] struct {
	Cell      Vec2i
	PositionM r2.Point
	Value     V
}

// Line returns the cells of the given layer crossed by the straight segment
// between two parent-frame points, in order from start to end. Both endpoints
// must lie inside the map.
func (m *Map[L, V]) Line(layer L, startM, endM r2.Point) ([]LineCell[V], error) {
	idx, err := m.layerIndex(layer)
	if err != nil {
		return nil, err
	}
	startCell, ok := m.Index(startM)
	if !ok {
		return nil, ErrOutsideMap
	}
	endCell, ok := m.Index(endM)
	if !ok {
		return nil, ErrOutsideMap
	}

	// Amanatides-Woo traversal in continuous cell coordinates.
	start := m.ToMap(startM)
	end := m.ToMap(endM)
	cx := start.X / m.cellSizeM.X
	cy := start.Y / m.cellSizeM.Y
	dx := end.X/m.cellSizeM.X - cx
	dy := end.Y/m.cellSizeM.Y - cy

	stepX, stepY := 1, 1
	if dx < 0 {
		stepX = -1
	}
	if dy < 0 {
		stepY = -1
	}

	tMaxX, tDeltaX := axisCrossings(cx, dx)
	tMaxY, tDeltaY := axisCrossings(cy, dy)

	cell := startCell
	var out []LineCell[V]
	for {
		out = append(out, LineCell[V]{
			Cell:      cell,
			PositionM: m.PositionOf(cell),
			Value:     m.data[m.dataIndex(idx, cell)],
		})
		if cell == endCell {
			break
		}
		if tMaxX < tMaxY {
			tMaxX += tDeltaX
			cell.X += stepX
		} else {
			tMaxY += tDeltaY
			cell.Y += stepY
		}
		if !m.bounds.Contains(cell) {
			// Numerical drift walked the trace out of the map before the end
			// cell; both endpoints were inside so stop at the edge.
			break
		}
	}
	return out, nil
}

// axisCrossings returns the parametric distance along the ray at which the
// first cell edge on this axis is crossed, and the distance between
// subsequent crossings.
func axisCrossings(origin, dir float64) (tMax, tDelta float64) {
	if dir == 0 {
		return math.Inf(1), math.Inf(1)
	}
	tDelta = math.Abs(1 / dir)
	floor := math.Floor(origin)
	if dir > 0 {
		tMax = (floor + 1 - origin) / dir
	} else {
		tMax = (origin - floor) / -dir
	}
	if tMax == 0 {
		tMax = tDelta
	}
	return tMax, tDelta
}
