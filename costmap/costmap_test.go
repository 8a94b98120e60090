package costmap

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/deimos-rover/deimos/cellmap"
	"github.com/deimos-rover/deimos/terrainmap"
)

func testCellParams(bounds cellmap.Bounds) cellmap.Params {
	return cellmap.Params{
		CellSizeM:  r2.Point{X: 0.1, Y: 0.1},
		CellBounds: bounds,
	}
}

func flatTerrain(t *testing.T, bounds cellmap.Bounds, heightM float64) *terrainmap.Map {
	t.Helper()
	terrain, err := terrainmap.New(testCellParams(bounds))
	test.That(t, err, test.ShouldBeNil)
	err = terrain.Apply(terrainmap.LayerHeight,
		func(cellmap.Vec2i, r2.Point, terrainmap.Height) terrainmap.Height {
			return terrainmap.KnownHeight(heightM)
		})
	test.That(t, err, test.ShouldBeNil)
	return terrain
}

func TestValueCombineRules(t *testing.T) {
	for _, tc := range []struct {
		name string
		got  Value
		want Value
	}{
		{"none absorbs left", None().Add(Cost(0.5)), None()},
		{"none absorbs right", Cost(0.5).Add(None()), None()},
		{"unsafe wins", Cost(0.5).Add(Unsafe(2)), Unsafe(2.5)},
		{"costs add", Cost(0.25).Add(Cost(0.5)), Cost(0.75)},
		{"costs promote above one", Cost(0.75).Add(Cost(0.75)), Unsafe(1.5)},

		{"ignore none right", Cost(0.5).AddIgnoreOtherNone(None()), Cost(0.5)},
		{"ignore none still none left", None().AddIgnoreOtherNone(Cost(0.5)), None()},

		{"without max never promotes", Cost(0.75).AddWithoutMax(Cost(0.75)), Value{Kind: KindCost, C: 1.5}},
		{"without max unsafe short circuit", Unsafe(2).AddWithoutMax(Cost(0.5)), Unsafe(2)},
		{"without max none", Cost(0.5).AddWithoutMax(None()), None()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, tc.got, test.ShouldResemble, tc.want)
		})
	}
}

func TestCalculateGradient(t *testing.T) {
	bounds := cellmap.NewBounds(0, 10, 0, 10)
	terrain := flatTerrain(t, bounds, 0)

	// Flat terrain costs nothing at interior cells.
	m, err := Calculate(DefaultParams(), terrain)
	test.That(t, err, test.ShouldBeNil)

	v, err := m.Get(LayerGradient, cellmap.Vec2i{X: 5, Y: 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, Cost(0))

	// Border cells have no window and stay unobserved.
	v, err = m.Get(LayerGradient, cellmap.Vec2i{X: 0, Y: 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, None())

	// Steep terrain promotes to unsafe.
	steep, err := terrainmap.New(testCellParams(bounds))
	test.That(t, err, test.ShouldBeNil)
	err = steep.Apply(terrainmap.LayerHeight,
		func(cell cellmap.Vec2i, _ r2.Point, _ terrainmap.Height) terrainmap.Height {
			return terrainmap.KnownHeight(float64(cell.X)) // 10 m per meter
		})
	test.That(t, err, test.ShouldBeNil)

	m, err = Calculate(DefaultParams(), steep)
	test.That(t, err, test.ShouldBeNil)
	v, err = m.Get(LayerGradient, cellmap.Vec2i{X: 5, Y: 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.IsUnsafe(), test.ShouldBeTrue)
}

func TestCalculateShapeMismatch(t *testing.T) {
	terrain := flatTerrain(t, cellmap.NewBounds(0, 10, 0, 10), 0)
	m, err := New(testCellParams(cellmap.NewBounds(0, 5, 0, 5)), DefaultParams())
	test.That(t, err, test.ShouldBeNil)
	err = m.calculateGradient(terrain)
	test.That(t, err, test.ShouldNotBeNil)
}

// Total must always equal Gradient combined with GroundPlannedPath.
func TestTotalInvariant(t *testing.T) {
	terrain := flatTerrain(t, cellmap.NewBounds(0, 30, 0, 30), 0)
	m, err := Calculate(DefaultParams(), terrain)
	test.That(t, err, test.ShouldBeNil)

	path := []r2.Point{{X: 0.5, Y: 1.5}, {X: 2.5, Y: 1.5}}
	m.ApplyGroundPlannedPath(path)

	err = m.Cells().Each(LayerTotal, func(cell cellmap.Vec2i, _ r2.Point, total Value) {
		gradient, err := m.Get(LayerGradient, cell)
		test.That(t, err, test.ShouldBeNil)
		gndPath, err := m.Get(LayerGroundPlannedPath, cell)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, total, test.ShouldResemble, Cost(0).Add(gradient).AddIgnoreOtherNone(gndPath))
	})
	test.That(t, err, test.ShouldBeNil)
}

func TestGroundPlannedPathBands(t *testing.T) {
	terrain := flatTerrain(t, cellmap.NewBounds(0, 100, 0, 100), 0)
	m, err := Calculate(DefaultParams(), terrain)
	test.That(t, err, test.ShouldBeNil)

	// A straight path along y = 5.
	var path []r2.Point
	for x := 0.0; x <= 10.0; x += 0.05 {
		path = append(path, r2.Point{X: x, Y: 5})
	}
	m.ApplyGroundPlannedPath(path)

	// On the path: no added cost.
	v, err := m.GetPosition(LayerGroundPlannedPath, r2.Point{X: 5, Y: 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, Cost(0))

	// Within the onset semi-width: still free.
	v, err = m.GetPosition(LayerGroundPlannedPath, r2.Point{X: 5, Y: 5.8})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, Cost(0))

	// Between onset and max: linear, strictly between 0 and the max.
	v, err = m.GetPosition(LayerGroundPlannedPath, r2.Point{X: 5, Y: 7})
	test.That(t, err, test.ShouldBeNil)
	cost, ok := v.CostValue()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, cost, test.ShouldBeGreaterThan, 0.0)
	test.That(t, cost, test.ShouldBeLessThan, 1.0)

	// Beyond the max semi-width: the full added cost, unsafe at >= 1.
	v, err = m.GetPosition(LayerGroundPlannedPath, r2.Point{X: 5, Y: 9.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.IsUnsafe(), test.ShouldBeTrue)
}

func TestMergeProperties(t *testing.T) {
	terrain := flatTerrain(t, cellmap.NewBounds(0, 20, 0, 20), 0)

	a, err := Calculate(DefaultParams(), terrain)
	test.That(t, err, test.ShouldBeNil)

	// Merging a map with itself is idempotent on cell values.
	before := a.Clone()
	a.Merge(before)
	err = a.Cells().Each(LayerTotal, func(cell cellmap.Vec2i, _ r2.Point, value Value) {
		orig, err := before.Get(LayerTotal, cell)
		test.That(t, err, test.ShouldBeNil)
		if origCost, ok := orig.CostValue(); ok {
			gotCost, ok := value.CostValue()
			test.That(t, ok, test.ShouldBeTrue)
			test.That(t, gotCost, test.ShouldAlmostEqual, origCost, 1e-12)
		}
	})
	test.That(t, err, test.ShouldBeNil)

	// Merging is commutative on overlapping observed cells.
	x, err := Calculate(DefaultParams(), terrain)
	test.That(t, err, test.ShouldBeNil)
	y, err := Calculate(DefaultParams(), terrain)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x.Cells().Set(LayerTotal, cellmap.Vec2i{X: 5, Y: 5}, Cost(0.2)), test.ShouldBeNil)
	test.That(t, y.Cells().Set(LayerTotal, cellmap.Vec2i{X: 5, Y: 5}, Cost(0.6)), test.ShouldBeNil)

	xy := x.Clone()
	xy.Merge(y)
	yx := y.Clone()
	yx.Merge(x)

	vxy, err := xy.Get(LayerTotal, cellmap.Vec2i{X: 5, Y: 5})
	test.That(t, err, test.ShouldBeNil)
	vyx, err := yx.Get(LayerTotal, cellmap.Vec2i{X: 5, Y: 5})
	test.That(t, err, test.ShouldBeNil)
	cxy, _ := vxy.CostValue()
	cyx, _ := vyx.CostValue()
	test.That(t, cxy, test.ShouldAlmostEqual, 0.4, 1e-12)
	test.That(t, cyx, test.ShouldAlmostEqual, cxy, 1e-12)
}

func TestCostQueries(t *testing.T) {
	terrain := flatTerrain(t, cellmap.NewBounds(0, 50, 0, 50), 0)
	m, err := Calculate(DefaultParams(), terrain)
	test.That(t, err, test.ShouldBeNil)

	// A flat observed map accumulates zero cost along a line.
	v, err := m.GetCostBetweenPoints(r2.Point{X: 0.55, Y: 0.55}, r2.Point{X: 3.55, Y: 0.55})
	test.That(t, err, test.ShouldBeNil)
	cost, ok := v.CostValue()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, cost, test.ShouldEqual, 0.0)

	// An unsafe cell on the line short-circuits to unsafe.
	cell, ok := m.Index(r2.Point{X: 2.05, Y: 0.55})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.Cells().Set(LayerTotal, cell, Unsafe(2.0)), test.ShouldBeNil)
	v, err = m.GetCostBetweenPoints(r2.Point{X: 0.55, Y: 0.55}, r2.Point{X: 3.55, Y: 0.55})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.IsUnsafe(), test.ShouldBeTrue)

	// A None cell on the line yields None.
	test.That(t, m.Cells().Set(LayerTotal, cell, None()), test.ShouldBeNil)
	v, err = m.GetCostBetweenPoints(r2.Point{X: 0.55, Y: 0.55}, r2.Point{X: 3.55, Y: 0.55})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.IsNone(), test.ShouldBeTrue)

	// Path cost sums segments.
	test.That(t, m.Cells().Set(LayerTotal, cell, Cost(0.5)), test.ShouldBeNil)
	v, err = m.GetPathCost([]r2.Point{{X: 0.55, Y: 0.55}, {X: 2.05, Y: 0.55}, {X: 3.55, Y: 0.55}})
	test.That(t, err, test.ShouldBeNil)
	cost, ok = v.CostValue()
	test.That(t, ok, test.ShouldBeTrue)
	// The shared cell is counted once per adjoining segment.
	test.That(t, cost, test.ShouldEqual, 1.0)
}
