// Package loc provides the rover's localisation source: the pose of the
// rover body in the local map frame.
package loc

import (
	"sync"

	"github.com/deimos-rover/deimos/spatialmath"
)

// LocMgr hands out the most recent pose produced by the localisation
// stream. Poses are set by whatever feeds the manager (the perloc stream on
// the rover, the simulation offline) and read once per cycle by the
// autonomy system.
type LocMgr struct {
	mu   sync.RWMutex
	pose *spatialmath.Pose
}

// New creates a localisation manager with no pose yet.
func New() *LocMgr {
	return &LocMgr{}
}

// SetPose stores the latest pose.
func (l *LocMgr) SetPose(pose spatialmath.Pose) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := pose
	l.pose = &p
}

// ClearPose drops the stored pose, e.g. on localisation loss.
func (l *LocMgr) ClearPose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pose = nil
}

// GetPose returns the most recent pose, if any has been produced.
func (l *LocMgr) GetPose() (spatialmath.Pose, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.pose == nil {
		return spatialmath.Pose{}, false
	}
	return *l.pose, true
}
