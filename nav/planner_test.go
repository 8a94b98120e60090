package nav

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/deimos-rover/deimos/cellmap"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/logging"
)

// uniformCostMap builds a fully observed map spanning 0..sizeM on both axes
// with every total cell at the given cost.
func uniformCostMap(t *testing.T, sizeM, cellCost float64) *costmap.Map {
	t.Helper()
	cells := int(sizeM / 0.1)
	m, err := costmap.New(cellmap.Params{
		CellSizeM:  r2.Point{X: 0.1, Y: 0.1},
		CellBounds: cellmap.NewBounds(0, cells, 0, cells),
	}, costmap.DefaultParams())
	test.That(t, err, test.ShouldBeNil)
	err = m.Cells().Apply(costmap.LayerTotal,
		func(cellmap.Vec2i, r2.Point, costmap.Value) costmap.Value {
			return costmap.Cost(cellCost)
		})
	test.That(t, err, test.ShouldBeNil)
	return m
}

func TestPlanDirectToTarget(t *testing.T) {
	cm := uniformCostMap(t, 6, 0.01)
	planner := NewPathPlanner(DefaultPlannerParams(), logging.NewTestLogger(t))

	start := NavPoseFromParts(r2.Point{X: 1, Y: 1}, 0)
	target := NavPoseFromParts(r2.Point{X: 4, Y: 4}, math.Pi/2)

	paths, report, err := planner.PlanDirect(cm, start, target, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(paths), test.ShouldEqual, 2)
	test.That(t, report.NumTestedPaths, test.ShouldBeGreaterThan, 0)

	// The chain starts at the start pose and ends within tolerance of the
	// target.
	test.That(t, paths[0].StartM().Sub(start.PositionM).Norm(), test.ShouldBeLessThan, 1e-9)
	endDist := paths[len(paths)-1].EndM().Sub(target.PositionM).Norm()
	test.That(t, endDist, test.ShouldBeLessThanOrEqualTo, DefaultPlannerParams().TargetToleranceM)

	// Consecutive paths share an endpoint.
	for i := 1; i < len(paths); i++ {
		gap := paths[i].StartM().Sub(paths[i-1].EndM()).Norm()
		test.That(t, gap, test.ShouldBeLessThan, 1e-9)
	}

	// Each path is about the derived length, and keeps the configured point
	// separation.
	wantLength := target.PositionM.Sub(start.PositionM).Norm() / 2
	for _, path := range paths {
		test.That(t, path.LengthM(), test.ShouldAlmostEqual, wantLength, 1e-6)
		points := path.PointsM()
		for i := 1; i < len(points); i++ {
			sep := points[i].Sub(points[i-1]).Norm()
			test.That(t, sep, test.ShouldBeLessThanOrEqualTo,
				DefaultPlannerParams().PathPointSeparationM+1e-9)
		}
	}
}

func TestPlanStartOutsideMap(t *testing.T) {
	cm := uniformCostMap(t, 6, 0.01)
	planner := NewPathPlanner(DefaultPlannerParams(), logging.NewTestLogger(t))

	_, _, err := planner.PlanDirect(cm,
		NavPoseFromParts(r2.Point{X: -10, Y: 0}, 0),
		NavPoseFromParts(r2.Point{X: 4, Y: 4}, 0), 2)
	test.That(t, errors.Is(err, ErrPointOutsideMap), test.ShouldBeTrue)

	_, _, err = planner.PlanDirect(cm,
		NavPoseFromParts(r2.Point{X: 1, Y: 1}, 0),
		NavPoseFromParts(r2.Point{X: 40, Y: 4}, 0), 2)
	test.That(t, errors.Is(err, ErrPointOutsideMap), test.ShouldBeTrue)
}

func TestPlanUnobservedMapHasNoRoute(t *testing.T) {
	// Every cell None: every fan path is untraversable and the search has
	// nothing to explore.
	cm, err := costmap.New(cellmap.Params{
		CellSizeM:  r2.Point{X: 0.1, Y: 0.1},
		CellBounds: cellmap.NewBounds(0, 60, 0, 60),
	}, costmap.DefaultParams())
	test.That(t, err, test.ShouldBeNil)

	planner := NewPathPlanner(DefaultPlannerParams(), logging.NewTestLogger(t))
	_, _, err = planner.PlanDirect(cm,
		NavPoseFromParts(r2.Point{X: 1, Y: 1}, 0),
		NavPoseFromParts(r2.Point{X: 4, Y: 4}, 0), 2)
	test.That(t, errors.Is(err, ErrNoPathToTarget), test.ShouldBeTrue)
}

func TestPlanDetoursAroundUnsafeWall(t *testing.T) {
	cm := uniformCostMap(t, 6, 0.01)

	// An unsafe wall across the straight line from start to target, with
	// room to go around: cells x=2.5m, y from 1.5m to 2.5m.
	for y := 15; y < 25; y++ {
		test.That(t,
			cm.Cells().Set(costmap.LayerTotal, cellmap.Vec2i{X: 25, Y: y}, costmap.Unsafe(2.0)),
			test.ShouldBeNil)
	}

	start := NavPoseFromParts(r2.Point{X: 1, Y: 2}, 0)
	target := NavPoseFromParts(r2.Point{X: 4, Y: 2}, 0)

	// The straight line itself reports unsafe.
	between, err := cm.GetCostBetweenPoints(start.PositionM, target.PositionM)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, between.IsUnsafe(), test.ShouldBeTrue)

	planner := NewPathPlanner(DefaultPlannerParams(), logging.NewTestLogger(t))
	paths, _, err := planner.PlanIndirect(cm, start, target, 1.0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(paths), test.ShouldBeGreaterThanOrEqualTo, 2)

	// The returned chain reaches the target and never touches the wall.
	endDist := paths[len(paths)-1].EndM().Sub(target.PositionM).Norm()
	test.That(t, endDist, test.ShouldBeLessThanOrEqualTo, DefaultPlannerParams().TargetToleranceM)
	for _, path := range paths {
		for _, point := range path.PointsM() {
			cell, ok := cm.Index(point)
			test.That(t, ok, test.ShouldBeTrue)
			value, err := cm.Get(costmap.LayerTotal, cell)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, value.IsUnsafe(), test.ShouldBeFalse)
		}
	}
}

func TestPlanBestFitWhenTargetUnreachable(t *testing.T) {
	cm := uniformCostMap(t, 6, 0.01)

	// Box the target in with unsafe cells so nothing can reach it.
	for x := 30; x < 50; x++ {
		for y := 30; y < 50; y++ {
			test.That(t,
				cm.Cells().Set(costmap.LayerTotal, cellmap.Vec2i{X: x, Y: y}, costmap.Unsafe(2.0)),
				test.ShouldBeNil)
		}
	}

	planner := NewPathPlanner(DefaultPlannerParams(), logging.NewTestLogger(t))
	paths, _, err := planner.PlanDirect(cm,
		NavPoseFromParts(r2.Point{X: 1, Y: 1}, 0),
		NavPoseFromParts(r2.Point{X: 4, Y: 4}, 0), 2)

	// The best partial chain is returned alongside the error.
	test.That(t, errors.Is(err, ErrBestPathNotAtTarget), test.ShouldBeTrue)
	test.That(t, len(paths), test.ShouldBeGreaterThanOrEqualTo, 1)
}
