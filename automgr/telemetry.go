package automgr

import (
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/spatialmath"
	"github.com/deimos-rover/deimos/trajctrl"
)

// Telemetry summarises the autonomy state for the telemetry publisher.
type Telemetry struct {
	// Pose is the most recent rover pose seen by the autonomy system.
	Pose *spatialmath.Pose `json:"pose,omitempty"`

	// TrajCtrlStatus is the most recent trajectory control status.
	TrajCtrlStatus *trajctrl.StatusReport `json:"traj_ctrl_status,omitempty"`

	// GlobalCostMap is the most recent global cost map snapshot.
	GlobalCostMap *costmap.Map `json:"global_cost_map,omitempty"`

	// Path and SecondaryPath are the current primary and secondary paths.
	Path          *nav.Path `json:"path,omitempty"`
	SecondaryPath *nav.Path `json:"secondary_path,omitempty"`

	// StackStates names the stacked states, bottom first.
	StackStates []string `json:"stack_states,omitempty"`
}
