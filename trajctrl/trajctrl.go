// Package trajctrl implements closed-loop trajectory following: given the
// rover's pose and a sequence of paths, it produces the locomotion commands
// which keep the rover on the path.
package trajctrl

import (
	"math"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/logging"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/spatialmath"
)

// Mode is the executing mode of trajectory control.
type Mode string

// All modes.
const (
	ModeOff              Mode = "off"
	ModeFollowPath       Mode = "follow_path"
	ModeHeadingAdjust    Mode = "heading_adjust"
	ModeSequenceFinished Mode = "sequence_finished"
)

// Errors raised by trajectory control.
var (
	// ErrSequenceAlreadyLoaded is returned when beginning a sequence while
	// one is executing.
	ErrSequenceAlreadyLoaded = errors.New("attempted to load a path sequence while one is already loaded")

	// ErrEmptySequence is returned for sequences with no paths.
	ErrEmptySequence = errors.New("attempted to load empty path sequence")

	// ErrInvalidPaths is returned when a sequence contains paths with fewer
	// than two points.
	ErrInvalidPaths = errors.New("loaded sequence contains invalid paths")
)

// StatusReport carries trajectory control's per-cycle monitoring values.
type StatusReport struct {
	// LatErrorM is the signed lateral error to the current segment,
	// left-positive.
	LatErrorM float64 `json:"lat_error_m"`

	// LongErrorM is the signed longitudinal error to the current target,
	// positive once the target is passed.
	LongErrorM float64 `json:"long_error_m"`

	// HeadErrorRad is the signed heading error to the current segment,
	// left-positive.
	HeadErrorRad float64 `json:"head_error_rad"`

	// LatErrorLimitExceeded is set when the lateral error limit was
	// exceeded.
	LatErrorLimitExceeded bool `json:"lat_error_limit_exceeded"`

	// HeadErrorLimitExceeded is set when the heading error limit was
	// exceeded.
	HeadErrorLimitExceeded bool `json:"head_error_limit_exceeded"`

	// SequenceFinished is set on the cycle the sequence ends.
	SequenceFinished bool `json:"sequence_finished"`

	// SequenceAborted is set when the sequence ended due to an error limit
	// rather than reaching the end of the final path.
	SequenceAborted bool `json:"sequence_aborted"`
}

// TrajCtrl follows a sequence of paths.
type TrajCtrl struct {
	params      Params
	logger      logging.Logger
	controllers trajControllers

	mode Mode

	pathSequence []*nav.Path
	pathIndex    int
	targetIndex  int

	report    StatusReport
	outputCmd *tc.MnvrCmd
}

// New creates a trajectory controller.
func New(params Params, clk clock.Clock, logger logging.Logger) *TrajCtrl {
	return &TrajCtrl{
		params:      params,
		logger:      logger,
		controllers: newTrajControllers(params, clk),
		mode:        ModeOff,
	}
}

// Mode returns the current executing mode.
func (t *TrajCtrl) Mode() Mode { return t.mode }

// BeginPathSequence loads a new path sequence. Execution begins on the next
// call to Proc, starting in heading-adjust mode to line the rover up with
// the first segment.
func (t *TrajCtrl) BeginPathSequence(seq []*nav.Path) error {
	if t.pathSequence != nil {
		return ErrSequenceAlreadyLoaded
	}
	if len(seq) == 0 {
		return ErrEmptySequence
	}
	for i, path := range seq {
		if path == nil || path.NumPoints() < 2 {
			return errors.Wrapf(ErrInvalidPaths, "path %d", i)
		}
	}

	t.pathSequence = seq
	t.report = StatusReport{}
	t.pathIndex = 0
	// The target must be 1, not 0: a segment is defined between the target
	// and the previous point.
	t.targetIndex = 1
	t.mode = ModeHeadingAdjust
	t.controllers.reset()
	return nil
}

// AbortPathSequence stops the current sequence; the next Proc issues a stop
// and clears it.
func (t *TrajCtrl) AbortPathSequence() {
	if t.pathSequence != nil {
		t.mode = ModeSequenceFinished
		t.report.SequenceAborted = true
	}
}

// Proc runs one cycle of trajectory control for the given pose, returning
// the locomotion command to issue (nil for none) and the status report.
func (t *TrajCtrl) Proc(pose spatialmath.Pose) (*tc.MnvrCmd, StatusReport) {
	aborted := t.report.SequenceAborted
	t.report = StatusReport{SequenceAborted: aborted}
	t.outputCmd = nil

	switch t.mode {
	case ModeOff:
	case ModeFollowPath:
		t.modeFollowPath(pose)
	case ModeHeadingAdjust:
		t.modeHeadingAdjust(pose)
	case ModeSequenceFinished:
		t.modeSequenceFinished()
	}

	return t.outputCmd, t.report
}

func (t *TrajCtrl) currentSegment() (nav.PathSegment, bool) {
	if t.pathIndex >= len(t.pathSequence) {
		return nav.PathSegment{}, false
	}
	return t.pathSequence[t.pathIndex].SegmentToTarget(t.targetIndex)
}

func (t *TrajCtrl) modeFollowPath(pose spatialmath.Pose) {
	// Target management: once the target is passed move to the next one,
	// rolling over to the next path, and finishing the sequence past the
	// last.
	longErrM := t.longError(pose)
	t.report.LongErrorM = longErrM

	if longErrM > 0 {
		t.targetIndex++
	}
	if t.targetIndex >= t.pathSequence[t.pathIndex].NumPoints() {
		t.pathIndex++
		t.targetIndex = 1
	}
	if t.pathIndex >= len(t.pathSequence) {
		t.logger.Debug("end of final path reached")
		t.mode = ModeSequenceFinished
		t.modeSequenceFinished()
		return
	}

	segment, ok := t.currentSegment()
	if !ok {
		t.mode = ModeSequenceFinished
		t.modeSequenceFinished()
		return
	}

	cmd := t.controllers.ackermanCmd(segment, pose, &t.report, t.params)

	if t.report.LatErrorLimitExceeded || t.report.HeadErrorLimitExceeded {
		// Abort immediately so we stop as close to the path as possible.
		t.logger.Warnf(
			"path error limits exceeded (lat %0.2f m, head %0.2f rad), aborting sequence",
			t.report.LatErrorM, t.report.HeadErrorRad,
		)
		t.report.SequenceAborted = true
		t.mode = ModeSequenceFinished
		t.modeSequenceFinished()
		return
	}

	t.outputCmd = &cmd
}

// modeHeadingAdjust points the rover at the current segment with point
// turns, then switches to follow-path. It runs at the start of each path
// sequence; rolling over from one path of a sequence to the next stays in
// follow-path.
func (t *TrajCtrl) modeHeadingAdjust(pose spatialmath.Pose) {
	segment, ok := t.currentSegment()
	if !ok {
		t.mode = ModeSequenceFinished
		t.modeSequenceFinished()
		return
	}

	headErrRad := calcHeadError(segment, pose)
	t.report.HeadErrorRad = headErrRad

	if math.Abs(headErrRad) < t.params.HeadAdjustThresholdRad {
		stop := tc.NewStopCmd()
		t.outputCmd = &stop
		t.mode = ModeFollowPath
		return
	}

	// The turn rate's sense matches the error's, so oppose it.
	cmd := tc.NewPointTurnCmd(-sign(headErrRad) * t.params.HeadAdjustRateRads)
	t.outputCmd = &cmd
}

func (t *TrajCtrl) modeSequenceFinished() {
	stop := tc.NewStopCmd()
	t.outputCmd = &stop

	t.pathSequence = nil
	t.pathIndex = 0
	t.targetIndex = 0
	t.report.SequenceFinished = true
	t.mode = ModeOff
}

// longError returns the signed distance from the projection of the rover
// onto the current segment to the segment's target, positive once the
// projection is past the target.
func (t *TrajCtrl) longError(pose spatialmath.Pose) float64 {
	segment, ok := t.currentSegment()
	if !ok {
		return 0
	}

	toRover := pose.Position2().Sub(segment.StartM)
	projection := toRover.Dot(segment.Direction)
	return projection - segment.LengthM
}
