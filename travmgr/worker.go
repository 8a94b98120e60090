package travmgr

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/deimos-rover/deimos/comms/eqpt"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/spatialmath"
	"github.com/deimos-rover/deimos/terrainmap"
)

// signalKind tags the messages exchanged with the worker goroutine.
type signalKind int

const (
	// sigStop (main -> worker): terminate the worker.
	sigStop signalKind = iota

	// sigNewDepthImg (main -> worker): run a full
	// perception -> merge -> plan cycle.
	sigNewDepthImg

	// sigRecalcGlobalCost (main -> worker): recompute the global cost map
	// from the global terrain map, optionally applying a ground path.
	sigRecalcGlobalCost

	// sigGlobalMapsUpdated (worker -> main): the global maps have new data.
	sigGlobalMapsUpdated

	// sigComplete (worker -> main): the requested task finished.
	sigComplete

	// sigError (worker -> main): the requested task failed.
	sigError
)

// workerSignal is one message between the foreground and the worker.
type workerSignal struct {
	kind signalKind

	// img, pose and kickstart accompany sigNewDepthImg.
	img       *eqpt.DepthImage
	pose      spatialmath.Pose
	kickstart bool

	// groundPath accompanies sigRecalcGlobalCost.
	groundPath *nav.Path

	// err accompanies sigError.
	err error
}

// workerLoop processes one request at a time, so the global maps observe a
// strict request/response order. It is the only writer of the global maps.
func (t *TravMgr) workerLoop() {
	defer close(t.workerDone)
	defer close(t.fromWorker)

	for signal := range t.toWorker {
		switch signal.kind {
		case sigStop:
			return
		case sigRecalcGlobalCost:
			t.workerRecalcGlobalCost(signal.groundPath)
		case sigNewDepthImg:
			t.workerNewDepthImg(signal.img, signal.pose, signal.kickstart)
		default:
			t.logger.Warnf("unexpected signal from main thread: %v", signal.kind)
		}
	}
}

func (t *TravMgr) workerError(err error) {
	t.fromWorker <- workerSignal{kind: sigError, err: err}
}

func (t *TravMgr) archive(relPath string, v interface{}) {
	if t.session == nil {
		return
	}
	if err := t.session.SaveWithTimestamp(relPath, v); err != nil {
		t.logger.Warnf("couldn't archive %s: %s", relPath, err)
	}
}

// workerRecalcGlobalCost rebuilds the global cost map from the global
// terrain map, applying the ground path when given.
func (t *TravMgr) workerRecalcGlobalCost(groundPath *nav.Path) {
	var gtm *terrainmap.Map
	t.globalTerrMap.with(func(m *terrainmap.Map) { gtm = m.Clone() })

	newMap, err := costmap.Calculate(t.costMapParams, gtm)
	if err != nil {
		t.workerError(err)
		return
	}
	if groundPath != nil {
		newMap.ApplyGroundPlannedPath(groundPath.PointsM())
	}

	t.globalCostMap.set(newMap)
	t.fromWorker <- workerSignal{kind: sigComplete}
}

// workerNewDepthImg runs the full perception cycle for one depth image: local
// terrain, local cost, escape boundary, merge into the global maps, then plan
// the next path(s).
func (t *TravMgr) workerNewDepthImg(img *eqpt.DepthImage, pose spatialmath.Pose, kickstart bool) {
	navPose := nav.NavPoseFromPose(pose)

	// 1. Local terrain from the depth image.
	localTerr, err := t.perMgr.Calculate(img, pose)
	if err != nil {
		t.workerError(err)
		return
	}
	t.archive("local_terr_map/ltm.json", localTerr)

	// 2. Local cost from local terrain.
	localCost, err := costmap.Calculate(t.costMapParams, localTerr)
	if err != nil {
		t.workerError(err)
		return
	}

	// 3. Apply the ground path to the local cost map. The path lives in
	// the LM frame, so move the map there and back; moves are cheap.
	groundPath := t.groundPath.get()
	if groundPath != nil {
		localCost.Move(navPose.PositionM, navPose.HeadingRad)
		localCost.ApplyGroundPlannedPath(groundPath.PointsM())
		localCost.Move(r2.Point{}, 0)
	}
	t.archive("local_cost_map/lcm.json", localCost)

	// 4. Escape boundary from the local cost map, check mode only.
	var escBoundary *EscapeBoundary
	if groundPath != nil {
		escBoundary, err = CalculateEscapeBoundary(t.params.EscapeBoundary, localCost, navPose)
		if err != nil && err != ErrNoValidTarget {
			t.workerError(err)
			return
		}
		if escBoundary != nil {
			t.archive("escape_boundaries/eb.json", escBoundary)
		}
	}

	// 5. Move the local maps into the LM frame and merge them into the
	// global maps.
	localTerr.Move(navPose.PositionM, navPose.HeadingRad)
	t.globalTerrMap.update(func(gtm *terrainmap.Map) *terrainmap.Map {
		if mergeErr := gtm.Merge(localTerr); mergeErr != nil {
			t.logger.Errorf("terrain merge failed: %s", mergeErr)
		}
		t.archive("global_terr_map/gtm.json", gtm)
		return gtm
	})

	localCost.Move(navPose.PositionM, navPose.HeadingRad)
	t.globalCostMap.update(func(gcm *costmap.Map) *costmap.Map {
		gcm.Merge(localCost)
		t.archive("global_cost_map/gcm.json", gcm)
		return gcm
	})

	t.fromWorker <- workerSignal{kind: sigGlobalMapsUpdated}

	// 6. Kickstart ends here: maps populated, nothing to plan.
	if kickstart {
		t.fromWorker <- workerSignal{kind: sigComplete}
		return
	}

	// 7. Choose the planning start and target.
	state := t.traverseState.get()
	startPose := navPose
	numPaths := 2
	if state != StateFirstStop {
		primary := t.primaryPath.get()
		if primary == nil {
			t.workerError(ErrNoPrimaryPath)
			return
		}
		startPose = nav.NavPoseFromPathEnd(primary)
		numPaths = 1
	}

	target, finalGoal, err := t.chooseTarget(escBoundary, navPose)
	if err != nil {
		t.workerError(err)
		return
	}

	// 8. Plan, and store the new path(s).
	var gcm *costmap.Map
	t.globalCostMap.with(func(m *costmap.Map) { gcm = m.Clone() })

	paths, report, err := t.planner.PlanDirect(gcm, startPose, target, numPaths)
	if report != nil {
		t.archive("path_planner/report.json", report)
	}
	if errors.Is(err, nav.ErrBestPathNotAtTarget) && len(paths) > 0 {
		// A partial chain still makes progress; the next imaging stop
		// replans from its end.
		t.logger.Warn("planner returned best fit short of target, continuing with it")
	} else if err != nil {
		t.workerError(err)
		return
	}
	if len(paths) == 0 || (state == StateFirstStop && len(paths) < 2) {
		t.workerError(ErrPathPlannerFailed)
		return
	}

	secondary := paths[len(paths)-1]
	t.secondaryPath.set(secondary)
	if state == StateFirstStop {
		t.primaryPath.set(paths[len(paths)-2])
	}

	// The secondary is final when it ends within tolerance of the overall
	// goal.
	if finalGoal != nil {
		endDist := secondary.EndM().Sub(finalGoal.PositionM).Norm()
		if endDist <= t.params.FinalTargetToleranceM {
			t.logger.Info("planned secondary reaches the final goal")
			t.secondaryIsFinal.set(true)
		}
	}

	t.fromWorker <- workerSignal{kind: sigComplete}
}

// chooseTarget picks the next planning target: the escape boundary's
// minimum-cost point in check mode, the global goal in goto mode. It also
// returns the overall goal of the traverse, used to detect the final
// secondary.
func (t *TravMgr) chooseTarget(
	escBoundary *EscapeBoundary,
	navPose nav.NavPose,
) (nav.NavPose, *nav.NavPose, error) {
	if groundPath := t.groundPath.get(); groundPath != nil {
		goal := nav.NavPoseFromPathEnd(groundPath)

		if escBoundary != nil {
			return escBoundary.MinCostTarget, &goal, nil
		}

		// No traversable point on the boundary arc: fall back to the
		// furthest ground path point inside known terrain.
		localTarget := t.localTarget.get()
		if localTarget == nil {
			return nav.NavPose{}, nil, ErrNoValidTarget
		}
		var gcm *costmap.Map
		t.globalCostMap.with(func(m *costmap.Map) { gcm = m.Clone() })
		target, err := localTarget.Next(navPose, groundPath, gcm)
		if err != nil {
			return nav.NavPose{}, nil, err
		}
		return target, &goal, nil
	}

	if target := t.globalTarget.get(); target != nil {
		return *target, target, nil
	}
	return nav.NavPose{}, nil, ErrNoValidTarget
}
