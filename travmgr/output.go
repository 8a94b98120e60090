package travmgr

import (
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/terrainmap"
	"github.com/deimos-rover/deimos/trajctrl"
)

// Output is what one step of the traverse manager asks of the autonomy
// system above it.
type Output struct {
	// LocoCmd is a locomotion command to issue, nil for none.
	LocoCmd *tc.MnvrCmd

	// RequestImgStop asks for an imaging stop to be pushed above the
	// current state.
	RequestImgStop bool

	// Abort reports an unrecoverable failure; the stack should abort.
	Abort bool

	// TrajCtrlStatus is the trajectory control status report, when
	// trajectory control ran this step.
	TrajCtrlStatus *trajctrl.StatusReport

	// NewGlobalTerrMap and NewGlobalCostMap are snapshots of the global
	// maps, present on the step after the worker updates them.
	NewGlobalTerrMap *terrainmap.Map
	NewGlobalCostMap *costmap.Map

	// PrimaryPath is the path being driven; SecondaryPath the one being
	// planned or queued.
	PrimaryPath   *nav.Path
	SecondaryPath *nav.Path
}
