package travmgr

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/deimos-rover/deimos/cellmap"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/nav"
)

// localCostMap builds a map centred on the origin spanning +/- sizeM, every
// cell None.
func localCostMap(t *testing.T, sizeM float64) *costmap.Map {
	t.Helper()
	cells := int(sizeM / 0.1)
	m, err := costmap.New(cellmap.Params{
		CellSizeM:  r2.Point{X: 0.1, Y: 0.1},
		CellBounds: cellmap.NewBounds(-cells, cells, -cells, cells),
	}, costmap.DefaultParams())
	test.That(t, err, test.ShouldBeNil)
	return m
}

// observeDisc marks every cell within radiusM of the origin as observed at
// the given cost.
func observeDisc(t *testing.T, m *costmap.Map, radiusM float64, value costmap.Value) {
	t.Helper()
	err := m.Cells().Apply(costmap.LayerTotal,
		func(_ cellmap.Vec2i, posM r2.Point, old costmap.Value) costmap.Value {
			if posM.Norm() <= radiusM {
				return value
			}
			return old
		})
	test.That(t, err, test.ShouldBeNil)
}

func ebParams() EscapeBoundaryParams {
	return DefaultParams().EscapeBoundary
}

func TestEscapeBoundaryOnDisc(t *testing.T) {
	m := localCostMap(t, 5)
	observeDisc(t, m, 2.0, costmap.Cost(0.1))

	eb, err := CalculateEscapeBoundary(ebParams(), m, nav.NavPoseFromParts(r2.Point{}, 0))
	test.That(t, err, test.ShouldBeNil)

	// The boundary sits near the edge of the observed disc, with the full
	// heading sweep available.
	test.That(t, eb.RadiusM, test.ShouldBeBetween, 1.5, 2.01)
	test.That(t, eb.LeftHeadingRad, test.ShouldAlmostEqual, ebParams().MaxHeadingRad, 1e-9)
	test.That(t, eb.RightHeadingRad, test.ShouldAlmostEqual, ebParams().MaxHeadingRad, 1e-9)
	test.That(t, eb.Path.NumPoints(), test.ShouldBeGreaterThan, 2)

	// The target lies on the boundary arc, heading outward from the
	// centre.
	test.That(t, eb.MinCostTarget.PositionM.Norm(), test.ShouldBeBetween, 1.0, 2.1)
}

func TestEscapeBoundaryPrefersLowCost(t *testing.T) {
	m := localCostMap(t, 5)
	observeDisc(t, m, 2.0, costmap.Cost(0.5))

	// A cheap pocket on the left of the arc.
	err := m.Cells().Apply(costmap.LayerTotal,
		func(_ cellmap.Vec2i, posM r2.Point, old costmap.Value) costmap.Value {
			if posM.Sub(r2.Point{X: 1.6, Y: 0.8}).Norm() < 0.3 {
				return costmap.Cost(0.01)
			}
			return old
		})
	test.That(t, err, test.ShouldBeNil)

	eb, errCalc := CalculateEscapeBoundary(ebParams(), m, nav.NavPoseFromParts(r2.Point{}, 0))
	test.That(t, errCalc, test.ShouldBeNil)
	test.That(t, eb.MinCostTarget.PositionM.Y, test.ShouldBeGreaterThan, 0.0)
}

func TestEscapeBoundaryTransformsToParent(t *testing.T) {
	m := localCostMap(t, 5)
	observeDisc(t, m, 2.0, costmap.Cost(0.1))

	// Imaging pose away from the LM origin, facing +Y: the target must be
	// expressed in LM and head outward from the imaging position.
	imaging := nav.NavPoseFromParts(r2.Point{X: 10, Y: 5}, 1.2)
	eb, err := CalculateEscapeBoundary(ebParams(), m, imaging)
	test.That(t, err, test.ShouldBeNil)

	outward := eb.MinCostTarget.PositionM.Sub(imaging.PositionM)
	test.That(t, outward.Norm(), test.ShouldBeGreaterThan, 1.0)
	// The outward normal is the target heading.
	test.That(t, eb.MinCostTarget.HeadingRad, test.ShouldAlmostEqual,
		math.Atan2(outward.Y, outward.X), 1e-9)
}

func TestEscapeBoundaryUnobservedMap(t *testing.T) {
	m := localCostMap(t, 5)
	_, err := CalculateEscapeBoundary(ebParams(), m, nav.NavPoseFromParts(r2.Point{}, 0))
	test.That(t, err, test.ShouldBeError, ErrInvalidCentreline)
}

func TestEscapeBoundaryAllUnsafeArcHasNoTarget(t *testing.T) {
	m := localCostMap(t, 5)
	observeDisc(t, m, 2.0, costmap.Unsafe(2.0))

	// Unsafe cells are valid boundary cells, but no traversable target
	// exists along the arc.
	_, err := CalculateEscapeBoundary(ebParams(), m, nav.NavPoseFromParts(r2.Point{}, 0))
	test.That(t, err, test.ShouldBeError, ErrNoValidTarget)
}

func TestEscapeBoundaryDegenerateSweep(t *testing.T) {
	m := localCostMap(t, 5)
	observeDisc(t, m, 2.0, costmap.Cost(0.1))

	// With max heading equal to min heading the sweep degenerates; a zero
	// sweep produces no arc and therefore no boundary.
	params := ebParams()
	params.MaxHeadingRad = 0
	params.MinHeadingRad = 0
	_, err := CalculateEscapeBoundary(params, m, nav.NavPoseFromParts(r2.Point{}, 0))
	test.That(t, err, test.ShouldBeError, ErrNoEscapeBoundary)
}
