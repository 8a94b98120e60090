package cellmap

import "golang.org/x/exp/constraints"

// Vec2i is an integer cell index or cell count.
type Vec2i struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Bounds describes the half-open cell index ranges [X0, X1) x [Y0, Y1) of a
// map. Indices may be negative; the map origin cell is (0, 0).
type Bounds struct {
	X0 int `json:"x0"`
	X1 int `json:"x1"`
	Y0 int `json:"y0"`
	Y1 int `json:"y1"`
}

// NewBounds returns the bounds for the given ranges, swapping ends if needed.
func NewBounds(x0, x1, y0, y1 int) Bounds {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Bounds{X0: x0, X1: x1, Y0: y0, Y1: y1}
}

// NumCells returns the number of cells along each axis.
func (b Bounds) NumCells() Vec2i {
	return Vec2i{X: b.X1 - b.X0, Y: b.Y1 - b.Y0}
}

// IsEmpty reports whether the bounds contain no cells.
func (b Bounds) IsEmpty() bool {
	return b.X1 <= b.X0 || b.Y1 <= b.Y0
}

// Contains reports whether the cell index lies inside the bounds.
func (b Bounds) Contains(cell Vec2i) bool {
	return cell.X >= b.X0 && cell.X < b.X1 && cell.Y >= b.Y0 && cell.Y < b.Y1
}

// Union returns the smallest bounds containing both b and other.
func (b Bounds) Union(other Bounds) Bounds {
	if b.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return b
	}
	return Bounds{
		X0: min(b.X0, other.X0),
		X1: max(b.X1, other.X1),
		Y0: min(b.Y0, other.Y0),
		Y1: max(b.Y1, other.Y1),
	}
}

// Intersect returns the bounds common to b and other, which may be empty.
func (b Bounds) Intersect(other Bounds) Bounds {
	isect := Bounds{
		X0: max(b.X0, other.X0),
		X1: min(b.X1, other.X1),
		Y0: max(b.Y0, other.Y0),
		Y1: min(b.Y1, other.Y1),
	}
	if isect.IsEmpty() {
		return Bounds{}
	}
	return isect
}

func min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
