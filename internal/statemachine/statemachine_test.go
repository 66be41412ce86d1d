package statemachine

import (
	"context"
	"testing"

	"github.com/itohio/armctl/internal/canbus/loopback"
	"github.com/itohio/armctl/internal/diffwrist"
	"github.com/itohio/armctl/internal/jointstate"
	"github.com/itohio/armctl/internal/motor"
	"github.com/itohio/armctl/internal/trajectory"
)

func buildHarness() (*trajectory.Engine, *jointstate.Tracker, [jointstate.NumJoints]*motor.Motor) {
	var motors [jointstate.NumJoints]*motor.Motor
	for i := range motors {
		cfg := motor.Config{
			ID: i + 1, ReductionRatio: 1, RawAngleSpan: 36000,
			LimitLowDeg: -180, LimitHighDeg: 180,
			MaxSpeedDegS: 90, MaxAccelDegS2: 180, MaxJerkDegS3: 720,
		}
		motors[i] = motor.New(cfg, loopback.New(nil))
	}
	solver := diffwrist.New(-90, 90)
	tracker := jointstate.New(motors, solver, 1.0/200.0)
	engine := trajectory.New(0.8, 0.05, 50, solver)
	return engine, tracker, motors
}

func TestNewMachineStartsIdle(t *testing.T) {
	m := New()
	if m.State() != Idle {
		t.Fatalf("expected Idle, got %v", m.State())
	}
}

func TestBeginAndFinishTrajectory(t *testing.T) {
	m := New()
	engine, tracker, _ := buildHarness()

	var target [jointstate.NumJoints]float32
	target[0] = 30
	m.Lock()
	m.BeginTrajectory(engine, tracker, target)
	m.Unlock()
	if m.State() != TrajectoryActive {
		t.Fatalf("expected TrajectoryActive, got %v", m.State())
	}

	m.Lock()
	m.FinishTrajectory()
	m.Unlock()
	if m.State() != Hold {
		t.Fatalf("expected Hold after finishing, got %v", m.State())
	}
}

func TestSetHoldTransitionsFromAnyState(t *testing.T) {
	m := New()
	engine, tracker, motors := buildHarness()

	var target [jointstate.NumJoints]float32
	target[0] = 30
	m.Lock()
	m.BeginTrajectory(engine, tracker, target)
	m.Unlock()

	m.SetHold(context.Background(), engine, tracker, motors)
	if m.State() != Hold {
		t.Fatalf("expected Hold, got %v", m.State())
	}
	if engine.Active() {
		t.Fatal("expected SetHold to reset the trajectory engine")
	}
}

func TestSetEstopTransitionsFromAnyState(t *testing.T) {
	m := New()
	engine, tracker, motors := buildHarness()

	var target [jointstate.NumJoints]float32
	target[0] = 30
	m.Lock()
	m.BeginTrajectory(engine, tracker, target)
	m.Unlock()

	m.SetEstop(context.Background(), engine, tracker, motors)
	if m.State() != Estop {
		t.Fatalf("expected Estop, got %v", m.State())
	}
	if engine.Active() {
		t.Fatal("expected SetEstop to reset the trajectory engine")
	}
}

func TestStateStringer(t *testing.T) {
	cases := map[State]string{
		Idle: "idle", TrajectoryActive: "trajectoryActive",
		Hold: "hold", Estop: "estop",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Fatalf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
