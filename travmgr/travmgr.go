// Package travmgr implements the traverse manager: the
// perception-planning-control pipeline that drives the rover across unmapped
// terrain by alternating imaging stops with path execution, hiding
// perception and planning latency behind the execution of a previously
// planned path.
package travmgr

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/deimos-rover/deimos/cellmap"
	"github.com/deimos-rover/deimos/comms/eqpt"
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/logging"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/perception"
	"github.com/deimos-rover/deimos/session"
	"github.com/deimos-rover/deimos/spatialmath"
	"github.com/deimos-rover/deimos/terrainmap"
	"github.com/deimos-rover/deimos/trajctrl"
)

// TraverseState is the state of the traverse pipeline.
type TraverseState string

// All traverse states.
const (
	// StateOff: the manager is idle.
	StateOff TraverseState = "off"

	// StateKickStart: acquire one image to populate the global maps, plan
	// nothing.
	StateKickStart TraverseState = "kickstart"

	// StateFirstStop: plan both primary and secondary before moving.
	StateFirstStop TraverseState = "first_stop"

	// StateTraverse: drive the primary while the worker plans the
	// secondary.
	StateTraverse TraverseState = "traverse"

	// StateStop: navigation update stop, acquiring a new depth image.
	StateStop TraverseState = "stop"
)

// Errors raised by the traverse manager.
var (
	// ErrAlreadyTraversing is returned when starting a traverse while one
	// is running.
	ErrAlreadyTraversing = errors.New("cannot start another traverse as a previous traverse hasn't finished")

	// ErrNoPrimaryPath is returned when the worker expected a primary path
	// to plan from and there was none.
	ErrNoPrimaryPath = errors.New("worker expected a primary path to plan from but there was none")

	// ErrPathPlannerFailed is returned when the planner produced the wrong
	// number of paths.
	ErrPathPlannerFailed = errors.New("path planner failed to produce the correct number of paths")
)

// TravMgr coordinates the traverse: the foreground steps trajectory control
// each cycle while a single worker goroutine handles perception, map merging
// and planning.
type TravMgr struct {
	params        Params
	costMapParams costmap.Params
	logger        logging.Logger
	session       *session.Session

	// TrajCtrl drives the primary path; stepped by the foreground only.
	TrajCtrl *trajctrl.TrajCtrl

	perMgr  *perception.PerMgr
	planner *nav.PathPlanner

	// Shared data, each behind its own reader-writer lock. Global maps are
	// mutated only by the worker; the foreground reads snapshots.
	traverseState    guarded[TraverseState]
	secondaryIsFinal guarded[bool]
	globalTarget     guarded[*nav.NavPose]
	localTarget      guarded[*LocalTarget]
	groundPath       guarded[*nav.Path]
	primaryPath      guarded[*nav.Path]
	secondaryPath    guarded[*nav.Path]
	globalTerrMap    guarded[*terrainmap.Map]
	globalCostMap    guarded[*costmap.Map]

	toWorker   chan workerSignal
	fromWorker chan workerSignal
	workerDone chan struct{}

	recalcRunning       bool
	depthImgRequestSent bool
	imgProcTaskStarted  bool
	replanAttempted     bool
}

// Config collects the construction dependencies of a traverse manager.
type Config struct {
	Params        Params
	CostMapParams costmap.Params
	PerParams     perception.Params
	PlannerParams nav.PlannerParams
	TrajParams    trajctrl.Params

	// Session receives archive dumps of maps, boundaries and planner
	// reports; nil disables archiving.
	Session *session.Session

	Clock  clock.Clock
	Logger logging.Logger
}

// New creates a traverse manager and starts its worker goroutine.
func New(cfg Config) (*TravMgr, error) {
	emptyMapParams := cellmap.Params{CellSizeM: cfg.Params.MapCellSizeM}

	gtm, err := terrainmap.New(emptyMapParams)
	if err != nil {
		return nil, err
	}
	gcm, err := costmap.New(emptyMapParams, cfg.CostMapParams)
	if err != nil {
		return nil, err
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	t := &TravMgr{
		params:        cfg.Params,
		costMapParams: cfg.CostMapParams,
		logger:        cfg.Logger,
		session:       cfg.Session,
		TrajCtrl:      trajctrl.New(cfg.TrajParams, clk, cfg.Logger.Sublogger("traj_ctrl")),
		perMgr:        perception.New(cfg.PerParams, cfg.Logger.Sublogger("per")),
		planner:       nav.NewPathPlanner(cfg.PlannerParams, cfg.Logger.Sublogger("path_planner")),
		toWorker:      make(chan workerSignal, 8),
		fromWorker:    make(chan workerSignal, 8),
		workerDone:    make(chan struct{}),
	}
	t.traverseState.set(StateOff)
	t.globalTerrMap.set(gtm)
	t.globalCostMap.set(gcm)

	goutils.PanicCapturingGo(t.workerLoop)
	return t, nil
}

// Close stops the worker goroutine and waits for it to exit.
func (t *TravMgr) Close() {
	t.toWorker <- workerSignal{kind: sigStop}
	<-t.workerDone
}

// IsOff reports whether the manager is idle.
func (t *TravMgr) IsOff() bool {
	return t.traverseState.get() == StateOff
}

// State returns the current traverse state.
func (t *TravMgr) State() TraverseState {
	return t.traverseState.get()
}

// GlobalMaps returns snapshots of the global terrain and cost maps.
func (t *TravMgr) GlobalMaps() (*terrainmap.Map, *costmap.Map) {
	var gtm *terrainmap.Map
	var gcm *costmap.Map
	t.globalTerrMap.with(func(m *terrainmap.Map) { gtm = m.Clone() })
	t.globalCostMap.with(func(m *costmap.Map) { gcm = m.Clone() })
	return gtm, gcm
}

// Kickstart populates the global maps from one depth image without planning
// a path. Takes effect on the next Step.
func (t *TravMgr) Kickstart() error {
	if !t.IsOff() {
		return ErrAlreadyTraversing
	}
	t.traverseState.set(StateKickStart)
	return nil
}

// StartGoto begins a traverse towards a global target. Takes effect on the
// next Step.
func (t *TravMgr) StartGoto(target nav.NavPose) error {
	if !t.IsOff() {
		return ErrAlreadyTraversing
	}
	t.traverseState.set(StateFirstStop)
	tgt := target
	t.globalTarget.set(&tgt)

	// Recompute the global cost map from terrain with no ground path.
	t.toWorker <- workerSignal{kind: sigRecalcGlobalCost}
	t.recalcRunning = true
	return nil
}

// StartCheck begins a traverse following a ground-planned path. Takes
// effect on the next Step.
func (t *TravMgr) StartCheck(groundPath *nav.Path) error {
	if !t.IsOff() {
		return ErrAlreadyTraversing
	}
	t.traverseState.set(StateFirstStop)
	t.groundPath.set(groundPath)
	t.localTarget.set(NewLocalTarget(
		t.params.LocalTargetExclusionDistanceM,
		t.params.LocalTargetMaxDistanceM,
	))

	// Recompute the global cost map with the ground path applied.
	t.toWorker <- workerSignal{kind: sigRecalcGlobalCost, groundPath: groundPath}
	t.recalcRunning = true
	return nil
}

// Stop aborts the current traverse, clearing the paths but keeping the
// global maps.
func (t *TravMgr) Stop() Output {
	t.traverseState.set(StateOff)
	t.primaryPath.set(nil)
	t.secondaryPath.set(nil)
	t.TrajCtrl.AbortPathSequence()

	t.depthImgRequestSent = false
	t.imgProcTaskStarted = false

	stop := tc.NewStopCmd()
	return Output{LocoCmd: &stop}
}

// replan restarts the traverse from the current pose with the same target
// or ground path, after a failed secondary plan.
func (t *TravMgr) replan() (Output, error) {
	t.logger.Info("beginning replan")
	out := t.Stop()

	groundPath := t.groundPath.get()
	t.groundPath.set(nil)
	target := t.globalTarget.get()
	t.globalTarget.set(nil)

	switch {
	case groundPath != nil:
		return out, t.StartCheck(groundPath)
	case target != nil:
		return out, t.StartGoto(*target)
	default:
		return Output{Abort: true}, nil
	}
}

// endTraverse clears the traverse state, keeping the global maps for the
// next one.
func (t *TravMgr) endTraverse() Output {
	t.traverseState.set(StateOff)
	t.groundPath.set(nil)
	t.globalTarget.set(nil)
	t.localTarget.set(nil)
	t.secondaryIsFinal.set(false)
	t.primaryPath.set(nil)
	t.secondaryPath.set(nil)

	t.depthImgRequestSent = false
	t.imgProcTaskStarted = false
	t.recalcRunning = false
	t.replanAttempted = false

	return Output{}
}

// Step runs one foreground cycle of the traverse manager.
func (t *TravMgr) Step(depthImg *eqpt.DepthImage, pose spatialmath.Pose) (Output, error) {
	state := t.traverseState.get()

	// Check for a signal from the worker without blocking.
	var signal *workerSignal
	select {
	case s, ok := <-t.fromWorker:
		if !ok {
			t.logger.Error("worker has stopped, aborting")
			return Output{Abort: true}, nil
		}
		signal = &s
	default:
	}

	out := Output{}

	// Fold new global maps into the output as soon as the worker announces
	// them.
	if signal != nil && signal.kind == sigGlobalMapsUpdated {
		out.NewGlobalTerrMap, out.NewGlobalCostMap = t.GlobalMaps()
		signal = nil
	}

	switch state {
	case StateOff:
		return out, nil
	case StateTraverse:
		return t.stepTraverse(out, signal, pose)
	case StateStop, StateFirstStop, StateKickStart:
		return t.stepStopped(out, signal, state, depthImg, pose)
	}
	return out, nil
}

func (t *TravMgr) stepTraverse(out Output, signal *workerSignal, pose spatialmath.Pose) (Output, error) {
	if signal != nil {
		switch signal.kind {
		case sigComplete:
			t.logger.Info("secondary path calculated")
			t.replanAttempted = false
		case sigError:
			t.logger.Errorf("failed to calculate secondary path: %s", signal.err)
			if t.replanAttempted {
				t.logger.Error("replan already attempted, aborting traverse")
				return Output{Abort: true}, nil
			}
			t.replanAttempted = true
			return t.replan()
		default:
			t.logger.Warnf("unexpected signal from worker: %v", signal.kind)
		}
	}

	locoCmd, status := t.TrajCtrl.Proc(pose)
	out.TrajCtrlStatus = &status

	if status.SequenceFinished {
		if status.SequenceAborted {
			t.logger.Error("trajectory control aborted the path, aborting traverse")
			return Output{Abort: true, TrajCtrlStatus: &status}, nil
		}
		t.logger.Info("trajectory control reached end of path")

		// The traverse is over when the final secondary has already been
		// promoted and driven.
		if t.secondaryIsFinal.get() && t.secondaryPath.get() == nil {
			t.logger.Info("traverse complete")
			end := t.endTraverse()
			end.TrajCtrlStatus = &status
			return end, nil
		}
		t.traverseState.set(StateStop)
	}

	out.LocoCmd = locoCmd
	out.PrimaryPath = t.primaryPath.get()
	out.SecondaryPath = t.secondaryPath.get()
	return out, nil
}

func (t *TravMgr) stepStopped(
	out Output,
	signal *workerSignal,
	state TraverseState,
	depthImg *eqpt.DepthImage,
	pose spatialmath.Pose,
) (Output, error) {
	// On a normal stop, promote a planned secondary to primary.
	if state == StateStop && t.secondaryPath.get() != nil {
		promoted := t.secondaryPath.get()
		t.secondaryPath.set(nil)
		t.primaryPath.set(promoted)
		t.logger.Info("secondary path promoted to primary")

		if t.secondaryIsFinal.get() {
			t.logger.Info("new primary is last path of traverse")
			t.traverseState.set(StateTraverse)
			if err := t.TrajCtrl.BeginPathSequence([]*nav.Path{promoted}); err != nil {
				return out, err
			}
			out.PrimaryPath = promoted
			return out, nil
		}
	}

	// An optional global cost recalc must finish before imaging.
	if t.recalcRunning {
		if signal == nil {
			out.PrimaryPath = t.primaryPath.get()
			out.SecondaryPath = t.secondaryPath.get()
			return out, nil
		}
		switch signal.kind {
		case sigComplete:
			t.logger.Info("global cost map recalculated")
			t.recalcRunning = false
			signal = nil
		case sigError:
			t.logger.Errorf("failed to recalculate global cost map: %s", signal.err)
			return Output{Abort: true}, nil
		default:
			t.logger.Warnf("unexpected signal from worker: %v", signal.kind)
			signal = nil
		}
	}

	// Request one depth image through an imaging stop.
	if !t.depthImgRequestSent {
		t.logger.Info("---- NAV STOP ----")
		t.depthImgRequestSent = true
		out.RequestImgStop = true
		out.PrimaryPath = t.primaryPath.get()
		out.SecondaryPath = t.secondaryPath.get()
		return out, nil
	}

	// Wait for the image to land in the persistent data.
	if depthImg == nil {
		return out, nil
	}

	// Hand the image and imaging pose to the worker exactly once.
	if !t.imgProcTaskStarted {
		t.logger.Info("starting background processing of depth image")
		t.toWorker <- workerSignal{
			kind:      sigNewDepthImg,
			img:       depthImg.Clone(),
			pose:      pose,
			kickstart: state == StateKickStart,
		}
		t.imgProcTaskStarted = true
	}

	// A mid-traverse stop can resume driving immediately: the secondary was
	// already promoted, and the new plan proceeds in the background. First
	// stops and kickstarts must wait for the worker to complete.
	endOfStop := false
	switch state {
	case StateStop:
		t.traverseState.set(StateTraverse)
		endOfStop = true
	case StateFirstStop, StateKickStart:
		if signal != nil {
			switch signal.kind {
			case sigComplete:
				if state == StateFirstStop {
					t.logger.Info("primary and secondary paths calculated")
					t.traverseState.set(StateTraverse)
				} else {
					t.traverseState.set(StateOff)
				}
				endOfStop = true
			case sigError:
				t.logger.Errorf("error processing last depth image: %s", signal.err)
				return t.Stop(), nil
			default:
				t.logger.Warnf("unexpected signal from worker: %v", signal.kind)
			}
		}
	}

	if endOfStop {
		t.depthImgRequestSent = false
		t.imgProcTaskStarted = false
	}

	// If the stop ended in Traverse, start trajectory control on the
	// primary.
	if t.traverseState.get() == StateTraverse {
		if primary := t.primaryPath.get(); primary != nil {
			t.logger.Info("traversing primary path")
			if err := t.TrajCtrl.BeginPathSequence([]*nav.Path{primary}); err != nil {
				return out, err
			}
		}
	}

	out.PrimaryPath = t.primaryPath.get()
	out.SecondaryPath = t.secondaryPath.get()
	return out, nil
}
