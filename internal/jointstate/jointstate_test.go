package jointstate

import (
	"context"
	"testing"

	"github.com/chewxy/math32"

	"github.com/itohio/armctl/internal/canbus"
	"github.com/itohio/armctl/internal/canbus/loopback"
	"github.com/itohio/armctl/internal/diffwrist"
	"github.com/itohio/armctl/internal/motor"
)

func buildTestTracker(period float32) *Tracker {
	var motors [NumJoints]*motor.Motor
	for i := range motors {
		cfg := motor.Config{
			ID: i + 1, ReductionRatio: 1, RawAngleSpan: 36000,
			LimitLowDeg: -180, LimitHighDeg: 180,
			MaxSpeedDegS: 90, MaxAccelDegS2: 180, MaxJerkDegS3: 720,
		}
		if i == RightWristIndex || i == LeftWristIndex {
			cfg.IsDifferential = true
			cfg.LimitLowDeg, cfg.LimitHighDeg = -18000, 18000
		}
		bus := loopback.New(func(sent canbus.Frame) (canbus.Frame, bool) { return sent, true })
		motors[i] = motor.New(cfg, bus)
	}
	solver := diffwrist.New(-90, 90)
	return New(motors, solver, period)
}

func TestTickDifferentiatesPositionIntoSpeed(t *testing.T) {
	tracker := buildTestTracker(0.01)
	tracker.Joints[0].PositionDeg = 10 // simulate a prior reading

	tracker.Tick(context.Background(), 1.0/6.0)
	// with an echo-zero bus every motor reads back position 0; speed is
	// the finite difference against the previous sample.
	if tracker.Joints[0].prevPositionDeg != 10 {
		t.Fatalf("expected previous position carried from before Tick, got %v", tracker.Joints[0].prevPositionDeg)
	}
	// (0 - 10) / 0.01 = -1000 deg/s.
	if math32.Abs(tracker.Joints[0].SpeedDegS-(-1000)) > 1e-2 {
		t.Fatalf("expected speed -1000 deg/s from the finite difference, got %v", tracker.Joints[0].SpeedDegS)
	}
}

func TestRefreshLimitsScalesDifferentialByExtraTen(t *testing.T) {
	tracker := buildTestTracker(0.01)
	tracker.Tick(context.Background(), 0.5)

	normal := tracker.Joints[0]
	diff := tracker.Joints[RightWristIndex]

	wantNormal := float32(90) * 0.5
	wantDiff := float32(90) * 0.5 * 10
	if math32.Abs(normal.MaxSpeedDegS-wantNormal) > 1e-3 {
		t.Fatalf("normal joint MaxSpeedDegS = %v, want %v", normal.MaxSpeedDegS, wantNormal)
	}
	if math32.Abs(diff.MaxSpeedDegS-wantDiff) > 1e-3 {
		t.Fatalf("differential joint MaxSpeedDegS = %v, want %v", diff.MaxSpeedDegS, wantDiff)
	}
}

func TestUpdateTwinDiffDerivesRollPitchFromRawTargets(t *testing.T) {
	tracker := buildTestTracker(0.01)
	tracker.Twin.JointAnglesDeg[RightWristIndex] = diffwrist.RadiansToRaw(0.1)
	tracker.Twin.JointAnglesDeg[LeftWristIndex] = diffwrist.RadiansToRaw(-0.1)

	tracker.updateTwinDiff()

	wantRoll, wantPitch := diffwrist.Forward(-0.1, 0.1)
	if math32.Abs(tracker.Twin.DiffRollRad-wantRoll) > 1e-3 {
		t.Fatalf("twin roll = %v, want %v", tracker.Twin.DiffRollRad, wantRoll)
	}
	if math32.Abs(tracker.Twin.DiffPitchRad-wantPitch) > 1e-3 {
		t.Fatalf("twin pitch = %v, want %v", tracker.Twin.DiffPitchRad, wantPitch)
	}
}
