package costmap

import (
	"github.com/golang/geo/r2"

	"github.com/deimos-rover/deimos/cellmap"
	"github.com/deimos-rover/deimos/quadtree"
)

// quadtreeThreshold is the path point count above which the quadtree
// nearest-neighbour wins over a linear scan.
const quadtreeThreshold = 256

// ApplyGroundPlannedPath fills the ground-planned-path layer from the given
// path points (in the map's parent frame) and recomputes the total.
//
// Cells within the onset semi-width of the path cost nothing extra; cells
// beyond the maximum semi-width get the full added cost; in between the cost
// interpolates linearly.
func (m *Map) ApplyGroundPlannedPath(pathPointsM []r2.Point) {
	maxCost := Cost(m.params.MaxGndPathAddedCost)
	if m.params.MaxGndPathAddedCost >= 1 {
		maxCost = Unsafe(m.params.MaxGndPathAddedCost)
	}

	nearest := m.nearestPathPointFn(pathPointsM)

	//nolint:errcheck
	m.cells.Apply(LayerGroundPlannedPath, func(_ cellmap.Vec2i, posM r2.Point, _ Value) Value {
		dist, found := nearest(posM)
		switch {
		case !found, dist >= m.params.MaxGndPathCostSemiWidthM:
			return maxCost
		case dist <= m.params.GndPathCostOnsetSemiWidthM:
			return Cost(0)
		default:
			cost := linMap(
				m.params.GndPathCostOnsetSemiWidthM, m.params.MaxGndPathCostSemiWidthM,
				0, m.params.MaxGndPathAddedCost,
				dist,
			)
			if cost >= 1 {
				return Unsafe(cost)
			}
			return Cost(cost)
		}
	})

	m.calculateTotal()
}

// nearestPathPointFn returns a nearest-point query over the path. Small paths
// use a linear scan, which benchmarks faster below a few hundred points;
// larger ones build a quadtree.
func (m *Map) nearestPathPointFn(pathPointsM []r2.Point) func(r2.Point) (float64, bool) {
	semiWidth := m.params.MaxGndPathCostSemiWidthM

	if len(pathPointsM) >= quadtreeThreshold {
		tree := quadtree.FromPoints(pathPointsM)
		return func(posM r2.Point) (float64, bool) {
			_, dist, ok := tree.Nearest(posM, semiWidth)
			return dist, ok
		}
	}

	return func(posM r2.Point) (float64, bool) {
		query := quadtree.NewQuad(posM, semiWidth)
		best := 0.0
		found := false
		for _, point := range pathPointsM {
			if !query.Contains(point) {
				continue
			}
			if dist := point.Sub(posM).Norm(); !found || dist < best {
				best = dist
				found = true
			}
		}
		return best, found
	}
}

func linMap(srcLo, srcHi, dstLo, dstHi, value float64) float64 {
	return dstLo + (value-srcLo)*(dstHi-dstLo)/(srcHi-srcLo)
}
