package costmap

import (
	"github.com/golang/geo/r2"
)

// GetCostBetweenPoints accumulates the total-layer cost of every cell crossed
// by the straight segment between two parent-frame points, under the
// without-max combine rule: an unobserved cell yields None, an unsafe cell
// short-circuits to Unsafe.
func (m *Map) GetCostBetweenPoints(startM, endM r2.Point) (Value, error) {
	cells, err := m.cells.Line(LayerTotal, startM, endM)
	if err != nil {
		return None(), err
	}

	cost := Cost(0)
	for _, cell := range cells {
		cost = cost.AddWithoutMax(cell.Value)
	}
	return cost, nil
}

// GetPathCost accumulates the cost of every segment of the given path points
// under the without-max combine rule.
func (m *Map) GetPathCost(pathPointsM []r2.Point) (Value, error) {
	cost := Cost(0)
	for i := 1; i < len(pathPointsM); i++ {
		segment, err := m.GetCostBetweenPoints(pathPointsM[i-1], pathPointsM[i])
		if err != nil {
			return None(), err
		}
		cost = cost.AddWithoutMax(segment)
	}
	return cost, nil
}
