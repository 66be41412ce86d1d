// Package robot wires the motor drivers, joint tracker, trajectory
// engine, state machine and IPC server into the single robot-state
// singleton described in spec §3/§9: single-writer (the control
// thread) with one priority-lane writer (the emergency path) guarded
// by the state machine's mutex.
package robot

import (
	"context"
	"sync"

	"github.com/itohio/armctl/internal/canbus"
	"github.com/itohio/armctl/internal/config"
	"github.com/itohio/armctl/internal/diffwrist"
	"github.com/itohio/armctl/internal/ipcserver"
	"github.com/itohio/armctl/internal/jointstate"
	"github.com/itohio/armctl/internal/motor"
	"github.com/itohio/armctl/internal/statemachine"
	"github.com/itohio/armctl/internal/trajectory"
	"github.com/itohio/armctl/pkg/logger"
)

// Robot owns every per-arm component and dispatches IPC commands onto
// them.
type Robot struct {
	cfg config.Config

	motors  [jointstate.NumJoints]*motor.Motor
	solver  diffwrist.Solver
	tracker *jointstate.Tracker
	engine  *trajectory.Engine
	machine *statemachine.Machine
	server  *ipcserver.Server

	modMu         sync.Mutex
	speedModifier float32
}

// New builds a Robot over bus from cfg. Motors are indexed id-1 so
// motors[5]/motors[6] are the right/left wrist motors per the
// differential index convention.
func New(cfg config.Config, bus canbus.Bus) *Robot {
	r := &Robot{cfg: cfg, speedModifier: cfg.SpeedModifier}

	for _, mc := range cfg.Motors {
		mCfg := motor.Config{
			ID:             mc.ID,
			ReductionRatio: mc.ReductionRatio,
			RawAngleSpan:   mc.RawAngleSpan,
			LimitLowDeg:    mc.LimitLowDeg,
			LimitHighDeg:   mc.LimitHighDeg,
			MaxSpeedDegS:   mc.MaxSpeedDegS,
			MaxAccelDegS2:  mc.MaxAccelDegS2,
			MaxJerkDegS3:   mc.MaxJerkDegS3,
			IsDifferential: mc.IsDifferential,
			SpeedModifier:  cfg.SpeedModifier,
		}
		mCfg.TorqueNewtonMetersToIQ.M = mc.NmToIqM
		mCfg.TorqueNewtonMetersToIQ.B = mc.NmToIqB
		r.motors[mc.ID-1] = motor.New(mCfg, bus)
	}

	r.solver = diffwrist.New(cfg.PitchLimitLowDeg, cfg.PitchLimitHighDeg)
	r.tracker = jointstate.New(r.motors, r.solver, 1.0/float32(cfg.ControlRateHz))
	r.engine = trajectory.New(cfg.PIKp, cfg.PIKi, cfg.PIMaxInt, r.solver)
	r.machine = statemachine.New()
	r.server = ipcserver.New(cfg.SocketPath)
	r.server.OnEmergency = r.handleEmergency

	return r
}

// Start pings every motor once (best-effort head start on real state,
// per SPEC_FULL.md §4) and starts the IPC server.
func (r *Robot) Start(ctx context.Context) error {
	for _, m := range r.motors {
		m.ReadState1Error(ctx)
		m.ReadState2(ctx)
		m.ReadSingleAngle(ctx)
		m.ReadMultiAngle(ctx)
	}
	return r.server.Start()
}

// Stop shuts down the IPC server.
func (r *Robot) Stop() { r.server.Stop() }

func (r *Robot) handleEmergency(cmd ipcserver.Command) {
	ctx := context.Background()
	switch cmd.Cmd {
	case "setESTOP":
		r.machine.SetEstop(ctx, r.engine, r.tracker, r.motors)
	case "setHoldPosition":
		r.machine.SetHold(ctx, r.engine, r.tracker, r.motors)
	}
}

// Tick runs one control-period iteration of the pipeline described in
// spec §4.8, holding the state machine's mutex for the whole sequence
// (spec §5): drain inbound commands and dispatch each one (a
// moveToJointPosition dispatch calls BeginTrajectory, which assumes
// that lock is already held), read back and differentiate joint
// state, step the trajectory engine when active and issue its
// corrected speed commands, and broadcast a snapshot every divider'th
// call. Holding the lock across the whole sequence means an IPC
// reader thread's setESTOP/setHoldPosition (SetEstop/SetHold, which
// acquire the same lock) can never land in the middle of a
// half-applied dispatch or trajectory step.
func (r *Robot) Tick(ctx context.Context, tickIndex uint64, broadcastDue bool) {
	r.machine.Lock()
	defer r.machine.Unlock()

	cmds := r.server.Drain()
	for _, cmd := range cmds {
		r.dispatch(ctx, cmd)
	}

	r.modMu.Lock()
	modifier := r.speedModifier
	r.modMu.Unlock()
	r.tracker.Tick(ctx, modifier)

	if r.machine.StateLocked() == statemachine.TrajectoryActive {
		r.stepTrajectory(ctx)
	}

	if broadcastDue {
		r.broadcast()
	}
}

func (r *Robot) stepTrajectory(ctx context.Context) {
	period := float32(1) / float32(r.cfg.ControlRateHz)
	status, posDeg, velDegS, _ := r.engine.Step(period)
	r.tracker.SetTwinTarget(posDeg)

	var measured [jointstate.NumJoints]float32
	for i, j := range r.tracker.Joints {
		measured[i] = j.PositionDeg
	}

	corrected := r.engine.Correct(period, posDeg, velDegS, measured)
	corrected = trajectory.WristCommandVelocity(corrected)

	for i, m := range r.motors {
		m.SetSpeed(ctx, corrected[i])
	}

	switch status {
	case trajectory.Finished, trajectory.Error:
		r.machine.FinishTrajectory()
		for _, m := range r.motors {
			m.SetSpeed(ctx, 0)
		}
		if status == trajectory.Error {
			logger.Log.Error().Msg("trajectory engine reported error, entering hold")
		}
	}
}

// MoveToJointPosition is the entry point used by the "moveToJointPositionRuckig"
// and "setMultiJointAngles" commands.
func (r *Robot) MoveToJointPosition(target [jointstate.NumJoints]float32) {
	r.machine.BeginTrajectory(r.engine, r.tracker, target)
}

// SetMaxSpeedModifier applies a new global speed modifier to every
// motor and to the tracker's limit refresh atomically, per
// SPEC_FULL.md §4.
func (r *Robot) SetMaxSpeedModifier(v float32) {
	r.modMu.Lock()
	defer r.modMu.Unlock()
	r.speedModifier = v
	for _, m := range r.motors {
		m.Config.SpeedModifier = v
	}
}

