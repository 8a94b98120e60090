// Package costmap derives traversability cost maps from terrain maps and
// answers the cost queries used by the path planner.
package costmap

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/deimos-rover/deimos/cellmap"
	"github.com/deimos-rover/deimos/terrainmap"
)

// Layer identifies a cost map layer.
type Layer string

// The three cost map layers. LayerTotal is always the combination of the
// other two under Value.Add and Value.AddIgnoreOtherNone.
const (
	LayerTotal             Layer = "total"
	LayerGradient          Layer = "gradient"
	LayerGroundPlannedPath Layer = "ground_planned_path"
)

// Layers returns all layers in index order.
func Layers() []Layer {
	return []Layer{LayerTotal, LayerGradient, LayerGroundPlannedPath}
}

// ErrShapeMismatch is returned when a terrain map and cost map disagree on
// grid shape.
var ErrShapeMismatch = errors.New("terrain map and cost map have different shapes")

// Params configure cost map calculation.
type Params struct {
	// MaxSafeGradient is the gradient cost above which a cell becomes
	// unsafe.
	MaxSafeGradient float64 `json:"max_safe_gradient"`

	// GradientCostFactor scales the gradient magnitude into a cost.
	GradientCostFactor float64 `json:"gradient_cost_factor"`

	// GndPathCostOnsetSemiWidthM is the distance from a ground planned path
	// at which cost starts to be added.
	GndPathCostOnsetSemiWidthM float64 `json:"gnd_path_cost_onset_semi_width_m"`

	// MaxGndPathCostSemiWidthM is the distance from a ground planned path at
	// which the maximum added cost applies.
	MaxGndPathCostSemiWidthM float64 `json:"max_gnd_path_cost_semi_width_m"`

	// MaxGndPathAddedCost is the maximum cost added by a ground planned
	// path. Values of 1 or more make far-from-path cells unsafe.
	MaxGndPathAddedCost float64 `json:"max_gnd_path_added_cost"`
}

// DefaultParams returns the flight-trial costing parameters.
func DefaultParams() Params {
	return Params{
		MaxSafeGradient:            0.8,
		GradientCostFactor:         1.5,
		GndPathCostOnsetSemiWidthM: 1.0,
		MaxGndPathCostSemiWidthM:   3.0,
		MaxGndPathAddedCost:        1.0,
	}
}

// Map is a cell map with gradient, ground-planned-path and total cost layers.
type Map struct {
	cells  *cellmap.Map[Layer, Value]
	params Params
}

// New creates an empty cost map, every cell None.
func New(cellParams cellmap.Params, params Params) (*Map, error) {
	cells, err := cellmap.New[Layer, Value](cellParams, Layers())
	if err != nil {
		return nil, err
	}
	m := &Map{cells: cells, params: params}
	// Start every cell of every layer as None.
	for _, layer := range Layers() {
		//nolint:errcheck
		cells.Apply(layer, func(cellmap.Vec2i, r2.Point, Value) Value { return None() })
	}
	return m, nil
}

// Calculate builds a cost map from a terrain map: the gradient layer from
// centred differences over the terrain, and the total from the combine rules.
func Calculate(params Params, terrain *terrainmap.Map) (*Map, error) {
	m, err := New(terrain.Params(), params)
	if err != nil {
		return nil, err
	}
	if err := m.calculateGradient(terrain); err != nil {
		return nil, err
	}
	m.calculateTotal()
	return m, nil
}

// Cells exposes the underlying cell map for iteration and geometry queries.
func (m *Map) Cells() *cellmap.Map[Layer, Value] { return m.cells }

// Params returns the costing parameters.
func (m *Map) Params() Params { return m.params }

// Get returns the value of the given layer at the given cell.
func (m *Map) Get(layer Layer, cell cellmap.Vec2i) (Value, error) {
	return m.cells.Get(layer, cell)
}

// GetPosition returns the value of the given layer at the given parent-frame
// position.
func (m *Map) GetPosition(layer Layer, positionM r2.Point) (Value, error) {
	return m.cells.GetPosition(layer, positionM)
}

// Index returns the cell containing the given parent-frame position.
func (m *Map) Index(positionM r2.Point) (cellmap.Vec2i, bool) {
	return m.cells.Index(positionM)
}

// Move changes the map's pose in the parent frame.
func (m *Map) Move(positionM r2.Point, headingRad float64) {
	m.cells.Move(positionM, headingRad)
}

// Clone returns a deep copy of the map.
func (m *Map) Clone() *Map {
	return &Map{cells: m.cells.Clone(), params: m.params}
}

func (m *Map) calculateGradient(terrain *terrainmap.Map) error {
	if m.cells.NumCells() != terrain.NumCells() {
		return errors.Wrapf(ErrShapeMismatch, "cost %v vs terrain %v", m.cells.NumCells(), terrain.NumCells())
	}

	cellSize := terrain.CellSize()
	return terrain.EachWindow(terrainmap.LayerHeight,
		func(cell cellmap.Vec2i, window cellmap.Window[terrainmap.Height]) {
			// dh/dx and dh/dy by centred differences, each valid only when
			// both neighbours are known.
			dhdx, dxOk := centredDiff(window[2][1], window[0][1], cellSize.X)
			dhdy, dyOk := centredDiff(window[1][2], window[1][0], cellSize.Y)

			var value Value
			switch {
			case dxOk && dyOk:
				value = m.gradientCost(math.Hypot(dhdx, dhdy))
			case dxOk:
				value = m.gradientCost(math.Abs(dhdx))
			case dyOk:
				value = m.gradientCost(math.Abs(dhdy))
			default:
				value = None()
			}
			//nolint:errcheck // the window iterator only yields in-map cells
			m.cells.Set(LayerGradient, cell, value)
		})
}

func centredDiff(a, b terrainmap.Height, cellSizeM float64) (float64, bool) {
	if !a.Known || !b.Known {
		return 0, false
	}
	return (a.M - b.M) / (2 * cellSizeM), true
}

func (m *Map) gradientCost(gradient float64) Value {
	cost := gradient * m.params.GradientCostFactor
	if cost > m.params.MaxSafeGradient {
		return Unsafe(cost)
	}
	return Cost(cost)
}

// calculateTotal recomputes the total layer from its siblings.
func (m *Map) calculateTotal() {
	//nolint:errcheck
	m.cells.Apply(LayerTotal, func(cell cellmap.Vec2i, _ r2.Point, _ Value) Value {
		gradient, _ := m.cells.Get(LayerGradient, cell)
		gndPath, _ := m.cells.Get(LayerGroundPlannedPath, cell)
		return Cost(0).Add(gradient).AddIgnoreOtherNone(gndPath)
	})
}

// Merge folds other into the map, expanding it to the union of both bounding
// boxes. Cells observed in both maps take the average cost (promoting to
// Unsafe above 1); cells observed in only one keep the observed value.
func (m *Map) Merge(other *Map) {
	m.cells.Resize(cellmap.UnionBounds(m.cells, other.cells))

	for _, layer := range Layers() {
		//nolint:errcheck
		m.cells.Apply(layer, func(_ cellmap.Vec2i, posM r2.Point, value Value) Value {
			otherValue, err := other.cells.GetPosition(layer, posM)
			if err != nil {
				return value
			}
			otherCost, ok := otherValue.CostValue()
			if !ok {
				return value
			}
			if current, ok := value.CostValue(); ok {
				return Cost(0.5 * (current + otherCost))
			}
			return Cost(otherCost)
		})
	}
}
