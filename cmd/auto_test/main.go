// auto_test runs the autonomy system offline against a script of timed
// telecommands, without the simulation or the physical rover.
package main

import (
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/deimos-rover/deimos/automgr"
	"github.com/deimos-rover/deimos/comms/tc"
	"github.com/deimos-rover/deimos/costmap"
	"github.com/deimos-rover/deimos/loc"
	"github.com/deimos-rover/deimos/lococtrl"
	"github.com/deimos-rover/deimos/logging"
	"github.com/deimos-rover/deimos/nav"
	"github.com/deimos-rover/deimos/perception"
	"github.com/deimos-rover/deimos/script"
	"github.com/deimos-rover/deimos/session"
	"github.com/deimos-rover/deimos/spatialmath"
	"github.com/deimos-rover/deimos/trajctrl"
	"github.com/deimos-rover/deimos/travmgr"
)

// cyclePeriod is the target period of one control cycle.
const cyclePeriod = 10 * time.Millisecond

// maxConsecOverruns is the number of consecutive cycle overruns tolerated
// before the executive terminates.
const maxConsecOverruns = 500

func main() {
	app := &cli.App{
		Name:      "auto_test",
		Usage:     "run the autonomy system offline against a TC script",
		ArgsUsage: "<script_path>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected the path to a TC script as the only argument")
			}
			return run(c.Args().First())
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("auto_test").Errorf("%s", err)
		os.Exit(1)
	}
}

func run(scriptPath string) error {
	sess, err := session.New("auto_test", "sessions")
	if err != nil {
		return errors.Wrap(err, "failed to create the session")
	}

	logger := logging.NewDebugLogger("auto_test")
	closeLog, err := sess.AttachLogFile(logger)
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck
		logger.Sync()
		//nolint:errcheck
		closeLog()
	}()

	logger.Info("Autonomy Test")
	logger.Infof("session directory: %s", sess.SessionRoot)

	interp, err := script.Load(scriptPath)
	if err != nil {
		return errors.Wrap(err, "failed to load script")
	}
	logger.Infof("loaded script lasts %0.2f s and contains %d TCs",
		interp.DurationS(), interp.NumTcs())

	// Module initialisation.
	clk := clock.New()
	locMgr := loc.New()
	// Offline there is no localisation stream; the rover starts at the LM
	// origin.
	locMgr.SetPose(spatialmath.NewZeroPose())

	travMgr, err := travmgr.New(travmgr.Config{
		Params:        travmgr.DefaultParams(),
		CostMapParams: costmap.DefaultParams(),
		PerParams:     perception.DefaultParams(),
		PlannerParams: nav.DefaultPlannerParams(),
		TrajParams:    trajctrl.DefaultParams(),
		Session:       sess,
		Clock:         clk,
		Logger:        logger.Sublogger("trav_mgr"),
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialise TravMgr")
	}
	defer travMgr.Close()

	autoMgr := automgr.New(&automgr.Context{
		Params:  automgr.DefaultParams(),
		Clock:   clk,
		Logger:  logger.Sublogger("auto_mgr"),
		Session: sess,
		LocMgr:  locMgr,
		TravMgr: travMgr,
	})

	locoCtrl := lococtrl.New(lococtrl.DefaultParams(), logger.Sublogger("loco_ctrl"))

	logger.Info("beginning main loop")

	consecOverruns := 0
	for {
		cycleStart := clk.Now()

		// Telecommand processing.
		pending, endOfScript := interp.PendingTcs(sess.ElapsedSeconds())
		if endOfScript {
			logger.Info("end of TC script reached, stopping")
			return nil
		}

		var autoCmd *tc.AutoCmd
		var locoCmd *tc.MnvrCmd
		for _, command := range pending {
			processTc(logger, locoCtrl, command, &autoCmd, &locoCmd)
		}

		// Autonomy processing.
		autoOut := autoMgr.Step(autoCmd)
		if autoOut.LocoCmd != nil {
			locoCmd = autoOut.LocoCmd
		}

		// Locomotion control processing; errors make the rover safe rather
		// than stopping the executive.
		if _, err := locoCtrl.Proc(locoCmd); err != nil {
			logger.Warnf("error during locomotion control processing: %s", err)
			locoCtrl.MakeSafe("loco_ctrl error")
		}

		// Cycle management.
		cycleDur := clk.Now().Sub(cycleStart)
		if sleep := cyclePeriod - cycleDur; sleep > 0 {
			consecOverruns = 0
			time.Sleep(sleep)
		} else {
			logger.Warnf("cycle overran by %0.6f s", (-sleep).Seconds())
			consecOverruns++
			if consecOverruns > maxConsecOverruns {
				return errors.Errorf("more than %d consecutive cycle overruns", maxConsecOverruns)
			}
		}
	}
}

// processTc routes one telecommand to the right module.
func processTc(
	logger logging.Logger,
	locoCtrl *lococtrl.LocoCtrl,
	command tc.Tc,
	autoCmd **tc.AutoCmd,
	locoCmd **tc.MnvrCmd,
) {
	switch command.Type {
	case tc.TypeNone:
	case tc.TypeHeartbeat:
		logger.Debug("received heartbeat")
	case tc.TypeMakeSafe:
		cause, err := command.SafeCause()
		if err != nil {
			logger.Warnf("invalid make-safe TC: %s", err)
			return
		}
		locoCtrl.MakeSafe(cause)
	case tc.TypeMakeUnsafe:
		cause, err := command.SafeCause()
		if err != nil {
			logger.Warnf("invalid make-unsafe TC: %s", err)
			return
		}
		// Mismatched causes are rejected silently.
		//nolint:errcheck
		locoCtrl.MakeUnsafe(cause)
	case tc.TypeLocoCtrlMnvr:
		cmd, err := tc.ParseMnvrCmd(command.Payload)
		if err != nil {
			logger.Warnf("cannot parse TC into a manoeuvre command: %s", err)
			return
		}
		*locoCmd = &cmd
	case tc.TypeAutonomy:
		cmd, err := tc.ParseAutoCmd(command.Payload)
		if err != nil {
			logger.Warnf("cannot parse TC into an autonomy command: %s", err)
			return
		}
		*autoCmd = &cmd
	}
}
