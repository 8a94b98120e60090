package tc

import (
	"encoding/json"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// AutoCmdType identifies an autonomy command.
type AutoCmdType string

// All autonomy commands.
const (
	AutoCmdMnvr    AutoCmdType = "MNVR"
	AutoCmdFollow  AutoCmdType = "FOLLOW"
	AutoCmdCheck   AutoCmdType = "CHECK"
	AutoCmdGoto    AutoCmdType = "GOTO"
	AutoCmdImgStop AutoCmdType = "IMG_STOP"
	AutoCmdPause   AutoCmdType = "PAUSE"
	AutoCmdResume  AutoCmdType = "RESUME"
	AutoCmdAbort   AutoCmdType = "ABORT"
)

// AutoCmd is a command to the autonomy system.
type AutoCmd struct {
	Type AutoCmdType `json:"type"`

	// Mnvr is set for MNVR commands.
	Mnvr *AutoMnvrCmd `json:"mnvr,omitempty"`

	// Path is set for FOLLOW and CHECK commands.
	Path *PathSpec `json:"path,omitempty"`

	// XMLm / YMLm are set for GOTO commands: the target coordinates in the
	// local map frame.
	XMLm float64 `json:"x_m_lm,omitempty"`
	YMLm float64 `json:"y_m_lm,omitempty"`
}

// AutoMnvrCmd is a locomotion manoeuvre of known extent: an ackermann of
// known arc length, or a point turn of known angular distance.
type AutoMnvrCmd struct {
	Type MnvrType `json:"type"`

	SpeedMs float64 `json:"speed_ms,omitempty"`
	CurvM   float64 `json:"curv_m,omitempty"`
	CrabRad float64 `json:"crab_rad,omitempty"`
	DistM   float64 `json:"dist_m,omitempty"`

	RateRads float64 `json:"rate_rads,omitempty"`
	DistRad  float64 `json:"dist_rad,omitempty"`
}

// PathSpec describes how to build a path: either an ackermann sequence of
// (curvature, length) pairs, or an explicit set of waypoints.
type PathSpec struct {
	// AckSeq, if set, is the ackermann sequence form.
	AckSeq *AckSeq `json:"ack_seq,omitempty"`

	// WaypointsM, if set, is the explicit waypoint form, in the local map
	// frame.
	WaypointsM []r2.Point `json:"waypoints_m,omitempty"`
}

// AckSeq is a sequence of ackermann arcs: pairs of (curvature 1/m, length m),
// sampled every SeparationM meters.
type AckSeq struct {
	SeparationM float64   `json:"separation_m"`
	Seq         []float64 `json:"seq"`
}

// Validate checks the command is structurally complete.
func (cmd AutoCmd) Validate() error {
	switch cmd.Type {
	case AutoCmdMnvr:
		if cmd.Mnvr == nil {
			return errors.New("MNVR autonomy command requires a manoeuvre")
		}
		if cmd.Mnvr.Type != MnvrAckerman && cmd.Mnvr.Type != MnvrPointTurn {
			return errors.Errorf("autonomy manoeuvres must be ackermann or point turn, got %q", cmd.Mnvr.Type)
		}
	case AutoCmdFollow, AutoCmdCheck:
		if cmd.Path == nil {
			return errors.Errorf("%s autonomy command requires a path", cmd.Type)
		}
		return cmd.Path.Validate()
	case AutoCmdGoto, AutoCmdImgStop, AutoCmdPause, AutoCmdResume, AutoCmdAbort:
	default:
		return errors.Errorf("invalid autonomy command type %q", cmd.Type)
	}
	return nil
}

// Validate checks the spec has exactly one form and that form is well formed.
func (spec PathSpec) Validate() error {
	switch {
	case spec.AckSeq != nil && spec.WaypointsM != nil:
		return errors.New("path spec must be an ack sequence or waypoints, not both")
	case spec.AckSeq != nil:
		if spec.AckSeq.SeparationM <= 0 {
			return errors.New("path point separation must be positive")
		}
		if len(spec.AckSeq.Seq)%2 != 0 || len(spec.AckSeq.Seq) == 0 {
			return errors.New("ack sequence must be non-empty (curvature, length) pairs")
		}
	case spec.WaypointsM != nil:
		if len(spec.WaypointsM) < 2 {
			return errors.New("waypoint path must have at least two points")
		}
	default:
		return errors.New("path spec must have an ack sequence or waypoints")
	}
	return nil
}

// ParseAutoCmd parses an autonomy command from its JSON form.
func ParseAutoCmd(data []byte) (AutoCmd, error) {
	var cmd AutoCmd
	if err := json.Unmarshal(data, &cmd); err != nil {
		return AutoCmd{}, errors.Wrap(err, "failed to deserialise autonomy command")
	}
	if err := cmd.Validate(); err != nil {
		return AutoCmd{}, err
	}
	return cmd, nil
}
