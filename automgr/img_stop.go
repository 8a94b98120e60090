package automgr

import (
	"github.com/deimos-rover/deimos/comms/eqpt"
	"github.com/deimos-rover/deimos/comms/tc"
)

// ImgStop acquires one depth image while stationary: it pushes a Stop if the
// rover may be moving, requests a frame from the perception equipment, and
// pops once the image lands in the persistent data.
type ImgStop struct {
	imgRequestIssued bool
}

// NewImgStop creates an ImgStop state.
func NewImgStop() *ImgStop { return &ImgStop{} }

// Name implements State.
func (i *ImgStop) Name() string { return "ImgStop" }

// Step implements State.
func (i *ImgStop) Step(ctx *Context, cmd *tc.AutoCmd) (StepOutput, error) {
	if cmd != nil {
		switch cmd.Type {
		case tc.AutoCmdPause:
			return StepOutput{Action: ActionPushAbove(NewPause())}, nil
		case tc.AutoCmdAbort:
			return StepOutput{Action: ActionAbort()}, nil
		default:
			ctx.Logger.Warnf("only PAUSE and ABORT are accepted in ImgStop, %s ignored", cmd.Type)
		}
	}

	// Images are only useful when stationary.
	if !ctx.IsStopped {
		return StepOutput{Action: ActionPushAbove(NewStop())}, nil
	}

	// Clear the stale image and request a fresh one.
	if !i.imgRequestIssued {
		ctx.Logger.Info("requesting new depth image from perloc")
		ctx.DepthImg = nil
		i.imgRequestIssued = true
		acq := eqpt.PerlocAcqDepthFrame
		return StepOutput{Data: OutputData{PerlocCmd: &acq}}, nil
	}

	// Pop once the image has arrived.
	if ctx.DepthImg != nil {
		if ctx.Session != nil {
			if err := ctx.Session.SaveWithTimestamp("depth_imgs/depth_img.json", ctx.DepthImg.ToFrame()); err != nil {
				ctx.Logger.Warnf("couldn't archive depth image: %s", err)
			}
		}
		return StepOutput{Action: ActionPop()}, nil
	}
	return StepNone(), nil
}
