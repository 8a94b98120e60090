// map_test generates a random terrain map, costs it, plans a path over it,
// and dumps every product as JSON for offline inspection.
package main

import (
	"math"
	"os"
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/deimos-rover/deimos/cellmap"
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/logging"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/session"
	"github.com/deimos-rover/deimos/spatialmath"
	"github.com/deimos-rover/deimos/terrainmap"
)

func main() {
	app := &cli.App{
		Name:  "map_test",
		Usage: "generate a random terrain map, cost it, and plan a path over it",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "terrain noise seed"},
		},
		Action: func(c *cli.Context) error {
			return run(c.Int64("seed"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("map_test").Errorf("%s", err)
		os.Exit(1)
	}
}

func run(seed int64) error {
	sess, err := session.New("map_test", "sessions")
	if err != nil {
		return errors.Wrap(err, "failed to create the session")
	}

	logger := logging.NewDebugLogger("map_test")
	closeLog, err := sess.AttachLogFile(logger)
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck
		logger.Sync()
		//nolint:errcheck
		closeLog()
	}()

	// A 100x100 cell terrain of 0.1 m cells.
	terrain, err := terrainmap.GenerateRandom(cellmap.Params{
		CellSizeM:  r2.Point{X: 0.1, Y: 0.1},
		CellBounds: cellmap.NewBounds(0, 100, 0, 100),
	}, terrainmap.DefaultRandomParams(seed))
	if err != nil {
		return err
	}

	startPose := spatialmath.NewPose2D(r2.Point{X: 1, Y: 1}, 0)

	groundPath, err := nav.FromPathSpec(tc.PathSpec{AckSeq: &tc.AckSeq{
		SeparationM: 0.05,
		Seq: []float64{
			0.5, math.Pi,
			0.0, 4.0,
			-0.5, math.Pi,
			0.0, 2.0,
			-0.5, math.Pi,
			0.0, 6.0,
		},
	}}, startPose)
	if err != nil {
		return err
	}

	if err := sess.Save("test_path.json", groundPath); err != nil {
		return err
	}
	if err := sess.Save("random_terr_map.json", terrain); err != nil {
		return err
	}

	// Cost the terrain and apply the ground path, timing each step.
	start := time.Now()
	cm, err := costmap.Calculate(costmap.DefaultParams(), terrain)
	if err != nil {
		return err
	}
	calcDur := time.Since(start)

	start = time.Now()
	cm.ApplyGroundPlannedPath(groundPath.PointsM())
	gppDur := time.Since(start)

	start = time.Now()
	groundPathCost, err := cm.GetPathCost(groundPath.PointsM())
	if err != nil {
		return err
	}
	costDur := time.Since(start)

	logger.Infof("ground path cost = %+v", groundPathCost)
	logger.Infof("costmap.Calculate took %d ns", calcDur.Nanoseconds())
	logger.Infof("costmap.ApplyGroundPlannedPath took %d ns", gppDur.Nanoseconds())
	logger.Infof("costmap.GetPathCost took %d ns", costDur.Nanoseconds())

	if err := sess.Save("random_cost_map.json", cm); err != nil {
		return err
	}

	// Plan over the cost map.
	planner := nav.NewPathPlanner(nav.DefaultPlannerParams(), logger.Sublogger("path_planner"))

	start = time.Now()
	paths, report, err := planner.PlanDirect(
		cm,
		nav.NavPoseFromPose(startPose),
		nav.NavPoseFromParts(r2.Point{X: 4, Y: 4}, math.Pi/2),
		2,
	)
	if err != nil && !errors.Is(err, nav.ErrBestPathNotAtTarget) {
		return errors.Wrap(err, "couldn't plan path")
	}
	logger.Infof("path planning took %d ns", time.Since(start).Nanoseconds())

	if err := sess.Save("path_planner/report.json", report); err != nil {
		return err
	}
	return sess.Save("planned_path.json", paths)
}
