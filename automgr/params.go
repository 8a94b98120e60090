package automgr

import "github.com/deimos-rover/deimos/trajctrl"

// StopParams configure the Stop state's stationarity detection.
type StopParams struct {
	// MinStationaryTimeS is how long the pose must hold still before the
	// rover counts as stopped.
	MinStationaryTimeS float64 `json:"min_stationary_time_s"`

	// PositionDeltaMaxMagnM is the largest per-cycle position change still
	// considered stationary.
	PositionDeltaMaxMagnM float64 `json:"position_delta_max_magn_m"`

	// AttitudeDeltaMaxMagnRad is the largest per-cycle attitude change
	// still considered stationary.
	AttitudeDeltaMaxMagnRad float64 `json:"attitude_delta_max_magn_rad"`
}

// WaitNewPoseParams configure the WaitNewPose state.
type WaitNewPoseParams struct {
	// MaxWaitTimeS is how long to wait for localisation before aborting.
	MaxWaitTimeS float64 `json:"max_wait_time_s"`
}

// AutoMnvrParams configure the AutoMnvr state's completion thresholds.
type AutoMnvrParams struct {
	// LinearDistanceThresholdM is the tolerance on linear manoeuvre
	// distance.
	LinearDistanceThresholdM float64 `json:"linear_distance_threshold_m"`

	// AngularDistanceThresholdRad is the tolerance on angular manoeuvre
	// distance.
	AngularDistanceThresholdRad float64 `json:"angular_distance_threshold_rad"`
}

// Params configure the autonomy manager and its states.
type Params struct {
	Stop        StopParams        `json:"stop"`
	WaitNewPose WaitNewPoseParams `json:"wait_new_pose"`
	AutoMnvr    AutoMnvrParams    `json:"auto_mnvr"`

	// TrajCtrl tunes the trajectory controller owned by the Follow state.
	TrajCtrl trajctrl.Params `json:"traj_ctrl"`
}

// DefaultParams returns the field-trial autonomy tuning.
func DefaultParams() Params {
	return Params{
		Stop: StopParams{
			MinStationaryTimeS:      0.5,
			PositionDeltaMaxMagnM:   0.005,
			AttitudeDeltaMaxMagnRad: 0.005,
		},
		WaitNewPose: WaitNewPoseParams{MaxWaitTimeS: 5.0},
		AutoMnvr: AutoMnvrParams{
			LinearDistanceThresholdM:    0.05,
			AngularDistanceThresholdRad: 0.05,
		},
		TrajCtrl: trajctrl.DefaultParams(),
	}
}
