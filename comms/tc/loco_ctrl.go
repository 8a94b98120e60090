package tc

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// MnvrType identifies a class of coordinated-wheel manoeuvre.
type MnvrType string

// All manoeuvre classes.
const (
	// MnvrNone is interpreted as continue with the last manoeuvre.
	MnvrNone MnvrType = "NONE"

	// MnvrStop brings the rover to a full stop, keeping the current steer
	// axis angles but setting all drive axes to zero speed.
	MnvrStop MnvrType = "STOP"

	// MnvrAckerman drives the rover in a coordinated manner in a circle
	// around a centre of rotation located by the curvature and crab angle.
	MnvrAckerman MnvrType = "ACKERMAN"

	// MnvrPointTurn turns on the spot about the centre of the wheelbase.
	MnvrPointTurn MnvrType = "POINT_TURN"

	// MnvrSkidSteer is tank-like steering using differential speed between
	// the left and right wheels.
	MnvrSkidSteer MnvrType = "SKID_STEER"
)

// MnvrCmd is a manoeuvre to be executed by locomotion control.
//
// Speeds are in meters/second, positive forwards. Curvatures are in 1/meters
// and follow the right hand rule about the rover's +Z axis, so positive
// curvature turns left. Crab angles are in radians with positive angles
// moving left. Turn rates are in radians/second, positive turning left.
type MnvrCmd struct {
	Type MnvrType `json:"type"`

	SpeedMs  float64 `json:"speed_ms,omitempty"`
	CurvM    float64 `json:"curv_m,omitempty"`
	CrabRad  float64 `json:"crab_rad,omitempty"`
	RateRads float64 `json:"rate_rads,omitempty"`
}

// NewStopCmd returns a stop manoeuvre.
func NewStopCmd() MnvrCmd {
	return MnvrCmd{Type: MnvrStop}
}

// NewAckermanCmd returns a generic ackermann manoeuvre.
func NewAckermanCmd(speedMs, curvM, crabRad float64) MnvrCmd {
	return MnvrCmd{Type: MnvrAckerman, SpeedMs: speedMs, CurvM: curvM, CrabRad: crabRad}
}

// NewPointTurnCmd returns a point-turn manoeuvre.
func NewPointTurnCmd(rateRads float64) MnvrCmd {
	return MnvrCmd{Type: MnvrPointTurn, RateRads: rateRads}
}

// NewSkidSteerCmd returns a skid-steer manoeuvre.
func NewSkidSteerCmd(speedMs, curvM float64) MnvrCmd {
	return MnvrCmd{Type: MnvrSkidSteer, SpeedMs: speedMs, CurvM: curvM}
}

// Validate checks the command names a known manoeuvre type.
func (cmd MnvrCmd) Validate() error {
	switch cmd.Type {
	case MnvrNone, MnvrStop, MnvrAckerman, MnvrPointTurn, MnvrSkidSteer:
		return nil
	}
	return errors.Errorf("invalid manoeuvre type %q", cmd.Type)
}

// ParseMnvrCmd parses a manoeuvre command from its JSON form.
func ParseMnvrCmd(data []byte) (MnvrCmd, error) {
	var cmd MnvrCmd
	if err := json.Unmarshal(data, &cmd); err != nil {
		return MnvrCmd{}, errors.Wrap(err, "failed to deserialise manoeuvre command")
	}
	if err := cmd.Validate(); err != nil {
		return MnvrCmd{}, err
	}
	return cmd, nil
}
