package trajectory

import (
	"testing"

	"github.com/itohio/armctl/internal/canbus/loopback"
	"github.com/itohio/armctl/internal/diffwrist"
	"github.com/itohio/armctl/internal/jointstate"
	"github.com/itohio/armctl/internal/motor"
)

func buildTracker() *jointstate.Tracker {
	var motors [jointstate.NumJoints]*motor.Motor
	for i := range motors {
		cfg := motor.Config{
			ID:             i + 1,
			ReductionRatio: 1,
			RawAngleSpan:   36000,
			LimitLowDeg:    -180,
			LimitHighDeg:   180,
			MaxSpeedDegS:   90,
			MaxAccelDegS2:  180,
			MaxJerkDegS3:   720,
		}
		if i == jointstate.RightWristIndex || i == jointstate.LeftWristIndex {
			cfg.IsDifferential = true
			cfg.LimitLowDeg = -18000
			cfg.LimitHighDeg = 18000
		}
		motors[i] = motor.New(cfg, loopback.New(nil))
	}
	solver := diffwrist.New(-90, 90)
	return jointstate.New(motors, solver, 1.0/200.0)
}

func TestEngineMoveToJointPositionReachesTarget(t *testing.T) {
	tracker := buildTracker()
	solver := diffwrist.New(-90, 90)
	e := New(0.8, 0.05, 50, solver)

	var target [jointstate.NumJoints]float32
	target[0] = 45
	target[jointstate.RightWristIndex] = 0.3 // roll, deg-as-rad-like input interpreted by solver below
	target[jointstate.LeftWristIndex] = 0.2

	e.MoveToJointPosition(target, tracker)
	if !e.Active() {
		t.Fatal("expected engine to be active after MoveToJointPosition")
	}

	status := Working
	const dt = 1.0 / 200.0
	var pos [jointstate.NumJoints]float32
	for i := 0; i < 5000 && status == Working; i++ {
		status, pos, _, _ = e.Step(dt)
	}

	if status != Finished {
		t.Fatalf("expected trajectory to finish, last status %v", status)
	}
	if diff := pos[0] - 45; diff > 0.1 || diff < -0.1 {
		t.Fatalf("joint 0 settled at %v, want ~45", pos[0])
	}
	if e.Active() {
		t.Fatal("expected engine to deactivate on Finished")
	}
}

func TestEngineResetReseedsFromTracker(t *testing.T) {
	tracker := buildTracker()
	tracker.Joints[0].PositionDeg = 12
	solver := diffwrist.New(-90, 90)
	e := New(0.8, 0.05, 50, solver)

	var target [jointstate.NumJoints]float32
	target[0] = 90
	e.MoveToJointPosition(target, tracker)
	e.Reset(tracker)

	if e.Active() {
		t.Fatal("expected Reset to deactivate the engine")
	}
	if e.axes[0].output != 12 || e.axes[0].target != 12 {
		t.Fatalf("expected axis 0 reseeded to the tracker's 12 deg, got output=%v target=%v", e.axes[0].output, e.axes[0].target)
	}
	status, pos, vel, _ := e.Step(1.0 / 200.0)
	if status != Working {
		// Step on an inactive engine should just report Working with no motion.
		t.Fatalf("expected Working status from inactive engine, got %v", status)
	}
	if pos[0] != 0 || vel[0] != 0 {
		t.Fatalf("expected inactive Step to report zero motion, got pos=%v vel=%v", pos[0], vel[0])
	}
}

func TestCorrectClampsIntegral(t *testing.T) {
	e := New(0.5, 1.0, 2, diffwrist.New(-90, 90))

	var newPos, newVel, measured [jointstate.NumJoints]float32
	newPos[0] = 100
	measured[0] = 0 // huge, sustained error

	var corrected [jointstate.NumJoints]float32
	for i := 0; i < 100; i++ {
		corrected = e.Correct(1.0/200.0, newPos, newVel, measured)
	}

	if e.integral[0] > 2.0001 {
		t.Fatalf("expected integral clamped to MaxIntegral=2, got %v", e.integral[0])
	}
	if corrected[0] <= 0 {
		t.Fatalf("expected positive corrective velocity toward target, got %v", corrected[0])
	}
}

func TestWristCommandVelocityDividesWristAxesByTen(t *testing.T) {
	var in [jointstate.NumJoints]float32
	in[0] = 50
	in[jointstate.RightWristIndex] = 100
	in[jointstate.LeftWristIndex] = 200

	out := WristCommandVelocity(in)
	if out[0] != 50 {
		t.Fatalf("expected non-wrist axis untouched, got %v", out[0])
	}
	if out[jointstate.RightWristIndex] != 10 {
		t.Fatalf("expected right wrist axis /10, got %v", out[jointstate.RightWristIndex])
	}
	if out[jointstate.LeftWristIndex] != 20 {
		t.Fatalf("expected left wrist axis /10, got %v", out[jointstate.LeftWristIndex])
	}
}
