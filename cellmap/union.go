package cellmap

import (
	"math"

	"github.com/golang/geo/r2"
)

// BoundsOfInParent returns the cell bounds that self would need in order to
// cover every cell of other, accounting for the two maps' different poses in
// their shared parent frame.
func BoundsOfInParent[L, L2 comparable, V, V2 any](self *Map[L, V], other *Map[L2, V2]) Bounds {
	ob := other.CellBounds()
	cs := other.CellSize()

	// All four corners must be transformed because rotation can move any of
	// them to any extreme.
	corners := []r2.Point{
		{X: float64(ob.X0) * cs.X, Y: float64(ob.Y0) * cs.Y},
		{X: float64(ob.X1) * cs.X, Y: float64(ob.Y0) * cs.Y},
		{X: float64(ob.X0) * cs.X, Y: float64(ob.Y1) * cs.Y},
		{X: float64(ob.X1) * cs.X, Y: float64(ob.Y1) * cs.Y},
	}

	first := true
	var out Bounds
	selfCS := self.CellSize()
	for _, corner := range corners {
		inSelf := self.ToMap(other.ToParent(corner))
		// Corners usually fall on cell edges; the small tolerance keeps
		// floating point noise from adding a cell on either side.
		fx := inSelf.X / selfCS.X
		fy := inSelf.Y / selfCS.Y
		x0 := int(math.Floor(fx + 1e-9))
		y0 := int(math.Floor(fy + 1e-9))
		x1 := int(math.Ceil(fx - 1e-9))
		y1 := int(math.Ceil(fy - 1e-9))
		if first {
			out = Bounds{X0: x0, X1: x1, Y0: y0, Y1: y1}
			first = false
			continue
		}
		// A single corner spans no cells, so the extremes are accumulated
		// directly: Bounds.Union would discard them as empty.
		out = Bounds{X0: min(out.X0, x0), X1: max(out.X1, x1), Y0: min(out.Y0, y0), Y1: max(out.Y1, y1)}
	}
	return out
}

// UnionBounds returns self's bounds expanded to cover other.
func UnionBounds[L, L2 comparable, V, V2 any](self *Map[L, V], other *Map[L2, V2]) Bounds {
	return self.CellBounds().Union(BoundsOfInParent(self, other))
}
