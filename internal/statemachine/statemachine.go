// Package statemachine implements the robot's Idle/TrajectoryActive/
// Hold/Estop tagged-variant state machine (C6), grounded on the
// teacher's explicit-dispatch style (no runtime polymorphism beyond a
// plain enum switch, matching pkg/robot/kinematics.Kinematics's use of
// a concrete interface rather than reflection-driven dispatch).
package statemachine

import (
	"context"
	"sync"

	"github.com/itohio/armctl/internal/jointstate"
	"github.com/itohio/armctl/internal/motor"
	"github.com/itohio/armctl/internal/trajectory"
	"github.com/itohio/armctl/pkg/logger"
)

// State is one of the four robot states.
type State int

const (
	Idle State = iota
	TrajectoryActive
	Hold
	Estop
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case TrajectoryActive:
		return "trajectoryActive"
	case Hold:
		return "hold"
	case Estop:
		return "estop"
	default:
		return "unknown"
	}
}

// Machine holds the current state behind a mutex that serializes two
// kinds of caller against each other, per spec §5: the control thread,
// which holds Lock for the whole of one tick's drain-dispatch-step
// sequence (BeginTrajectory/FinishTrajectory assume that lock is
// already held and do not take it themselves), and an IPC reader
// thread, which calls SetHold/SetEstop directly on
// setHoldPosition/setESTOP and acquires the lock itself. This way an
// emergency transition can never land in the middle of a tick's
// half-applied dispatch or trajectory step.
type Machine struct {
	mu    sync.Mutex
	state State
}

// New creates a Machine in Idle.
func New() *Machine { return &Machine{state: Idle} }

// Lock acquires the machine's mutex for the control thread's entire
// per-tick critical section (drain, dispatch, trajectory step).
func (m *Machine) Lock() { m.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (m *Machine) Unlock() { m.mu.Unlock() }

// State returns the current state under its own lock, for callers
// that are not already inside the control thread's Lock/Unlock
// section (tests, other goroutines). Code running inside Tick uses
// StateLocked instead.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StateLocked returns the current state without acquiring the lock.
// The caller must already hold it via Lock (the control thread's Tick
// does, for its whole critical section).
func (m *Machine) StateLocked() State { return m.state }

// BeginTrajectory transitions to TrajectoryActive on moveToJointPosition.
// If a trajectory is already active it is reset first (§4.6). The
// caller must already hold Lock; Tick does, for its whole per-tick
// critical section.
func (m *Machine) BeginTrajectory(engine *trajectory.Engine, tracker *jointstate.Tracker, target [jointstate.NumJoints]float32) {
	engine.MoveToJointPosition(target, tracker)
	m.state = TrajectoryActive
}

// FinishTrajectory transitions TrajectoryActive -> Hold on OTG Finished
// or Error. The caller must already hold Lock.
func (m *Machine) FinishTrajectory() {
	m.state = Hold
}

// SetHold transitions to Hold: reset the trajectory, then command every
// motor to zero speed. Called directly by an IPC reader thread on
// setHoldPosition; acquires the lock itself since that thread never
// holds it, per spec §4.6.
func (m *Machine) SetHold(ctx context.Context, engine *trajectory.Engine, tracker *jointstate.Tracker, motors [jointstate.NumJoints]*motor.Motor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	engine.Reset(tracker)
	m.state = Hold
	for _, mo := range motors {
		mo.SetSpeed(ctx, 0)
	}
	logger.Log.Warn().Msg("robot entering hold")
}

// SetEstop transitions to Estop: reset the trajectory, then command
// every motor to stop (0x81). Called directly by an IPC reader thread
// on setESTOP; acquires the lock itself since that thread never holds
// it.
func (m *Machine) SetEstop(ctx context.Context, engine *trajectory.Engine, tracker *jointstate.Tracker, motors [jointstate.NumJoints]*motor.Motor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	engine.Reset(tracker)
	m.state = Estop
	for _, mo := range motors {
		mo.Stop(ctx)
	}
	logger.Log.Error().Msg("robot entering estop")
}
