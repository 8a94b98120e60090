package eqpt

// ActId identifies an actuator available to the rover.
type ActId string

// Drive, steer and arm actuators. Drive and steer actuators are named by
// corner: front/middle/rear, left/right.
const (
	DrvFL ActId = "DRV_FL"
	DrvML ActId = "DRV_ML"
	DrvRL ActId = "DRV_RL"
	DrvFR ActId = "DRV_FR"
	DrvMR ActId = "DRV_MR"
	DrvRR ActId = "DRV_RR"

	StrFL ActId = "STR_FL"
	StrML ActId = "STR_ML"
	StrRL ActId = "STR_RL"
	StrFR ActId = "STR_FR"
	StrMR ActId = "STR_MR"
	StrRR ActId = "STR_RR"

	ArmBase     ActId = "ARM_BASE"
	ArmShoulder ActId = "ARM_SHOULDER"
	ArmElbow    ActId = "ARM_ELBOW"
	ArmWrist    ActId = "ARM_WRIST"
	ArmGrabber  ActId = "ARM_GRABBER"
)

// DriveActIds returns the drive actuators in locomotion order: left side
// front to rear, then right side front to rear.
func DriveActIds() []ActId {
	return []ActId{DrvFL, DrvML, DrvRL, DrvFR, DrvMR, DrvRR}
}

// SteerActIds returns the steer actuators in locomotion order.
func SteerActIds() []ActId {
	return []ActId{StrFL, StrML, StrRL, StrFR, StrMR, StrRR}
}

// ArmActIds returns the arm actuators base first.
func ArmActIds() []ActId {
	return []ActId{ArmBase, ArmShoulder, ArmElbow, ArmWrist, ArmGrabber}
}

// MechDems are the demands sent to the mechanisms server.
type MechDems struct {
	// PosRad is the demanded position of each actuator in radians.
	PosRad map[ActId]float64 `json:"pos_rad"`

	// SpeedRads is the demanded speed of each actuator in radians/second.
	SpeedRads map[ActId]float64 `json:"speed_rads"`
}

// NewMechDems returns empty demands.
func NewMechDems() MechDems {
	return MechDems{
		PosRad:    map[ActId]float64{},
		SpeedRads: map[ActId]float64{},
	}
}

// EmptyLocoDems returns zeroed demands for all locomotion actuators.
func EmptyLocoDems() MechDems {
	dems := NewMechDems()
	for _, id := range SteerActIds() {
		dems.PosRad[id] = 0
	}
	for _, id := range DriveActIds() {
		dems.SpeedRads[id] = 0
	}
	return dems
}

// Merge folds other into the demands. Keys already present keep their value.
func (dems *MechDems) Merge(other MechDems) {
	for id, pos := range other.PosRad {
		if _, ok := dems.PosRad[id]; !ok {
			dems.PosRad[id] = pos
		}
	}
	for id, speed := range other.SpeedRads {
		if _, ok := dems.SpeedRads[id]; !ok {
			dems.SpeedRads[id] = speed
		}
	}
}

// MechDemsResponse is the mechanisms server's response to a set of demands.
type MechDemsResponse string

// All mechanisms responses.
const (
	// DemsOk means the demands were valid and will be executed.
	DemsOk MechDemsResponse = "DEMS_OK"

	// DemsInvalid means the demands were invalid and have been rejected.
	DemsInvalid MechDemsResponse = "DEMS_INVALID"

	// EqptInvalid means the equipment is invalid so demands cannot be
	// actuated.
	EqptInvalid MechDemsResponse = "EQPT_INVALID"
)
