// Package jointstate implements the per-cycle read-back and numerical
// differentiation of all seven joints (C4), grounded on the teacher's
// PID1D.Update two-sample derivative pattern in
// pkg/core/math/filter/pid/pid1d.go, generalized to position, speed and
// acceleration across a fixed-size joint vector.
package jointstate

import (
	"context"

	"github.com/itohio/armctl/internal/diffwrist"
	"github.com/itohio/armctl/internal/mathutil"
	"github.com/itohio/armctl/internal/motor"
)

// NumJoints is the arm's degree-of-freedom count (5 arm joints plus the
// differential wrist's two motors, addressed at indices 5 (right) and
// 6 (left) per the differential index convention).
const NumJoints = 7

// RightWristIndex and LeftWristIndex are the indices of the wrist's two
// motors within every 7-element joint array. The swap is intentional
// (spec §9 "Differential index convention"): index 5 is the right
// motor, index 6 the left.
const (
	RightWristIndex = 5
	LeftWristIndex  = 6
)

// Joint is one joint's current and previous kinematic state.
type Joint struct {
	PositionDeg, PositionRad float32
	SpeedDegS, SpeedRadS     float32
	AccelDegS2, AccelRadS2   float32

	prevPositionDeg float32
	prevSpeedDegS   float32

	LimitLowDeg, LimitHighDeg float32 // copied unscaled from the motor config; refreshLimits rescales only the ceilings below
	MaxSpeedDegS              float32
	MaxAccelDegS2             float32
	MaxJerkDegS3              float32
}

// Diff is the differential wrist's derived (roll, pitch) sub-state.
type Diff struct {
	RightRawDeg, LeftRawDeg float32 // 0.01 deg/LSB (diffwrist.RawLSBPerDegree), as read from the motors
	RollRad, PitchRad       float32
	RollDeg, PitchDeg       float32
}

// Twin is the visualization mirror fed by the trajectory engine's
// output, independent of motor feedback.
type Twin struct {
	Active bool
	// JointAnglesDeg holds five joint degrees (indices 0..4) followed by
	// the right (index 5) and left (index 6) wrist motor raw targets. The
	// broadcast snapshot replaces indices 5/6 with pitch and roll in
	// radians for the outbound shape of spec §6.
	JointAnglesDeg [7]float32
	DiffRollRad    float32
	DiffPitchRad   float32
}

// Tracker owns the seven Joint records, the Diff sub-state and the Twin
// mirror, and refreshes them once per control tick from live motor
// state.
type Tracker struct {
	Joints [NumJoints]Joint
	Diff   Diff
	Twin   Twin

	motors  [NumJoints]*motor.Motor
	solver  diffwrist.Solver
	period  float32 // control period in seconds (1/control_rate)
}

// New builds a Tracker over the seven motor drivers, indexed per the
// right=5/left=6 convention, with differential pitch limits given by
// solver and a control period in seconds.
func New(motors [NumJoints]*motor.Motor, solver diffwrist.Solver, periodSeconds float32) *Tracker {
	t := &Tracker{motors: motors, solver: solver, period: periodSeconds}
	for i := range t.Joints {
		t.Joints[i].MaxSpeedDegS = motors[i].Config.MaxSpeedDegS
		t.Joints[i].MaxAccelDegS2 = motors[i].Config.MaxAccelDegS2
		t.Joints[i].MaxJerkDegS3 = motors[i].Config.MaxJerkDegS3
		t.Joints[i].LimitLowDeg = motors[i].Config.LimitLowDeg
		t.Joints[i].LimitHighDeg = motors[i].Config.LimitHighDeg
	}
	return t
}

// Tick reads back every motor, differentiates position into speed and
// acceleration, refreshes the scaled limit vector, and recomputes the
// differential (roll, pitch) sub-state, per spec §4.4.
func (t *Tracker) Tick(ctx context.Context, speedModifier float32) {
	for i, m := range t.motors {
		m.ReadState2(ctx)
		m.ReadSingleAngle(ctx)
		m.ReadMultiAngle(ctx)

		j := &t.Joints[i]
		j.prevPositionDeg = j.PositionDeg
		j.prevSpeedDegS = j.SpeedDegS

		st := m.State()
		if m.Config.IsDifferential {
			j.PositionDeg = float32(st.MultiTurnRaw)
		} else {
			j.PositionDeg = st.MultiTurnDeg
		}
		j.PositionRad = mathutil.DegToRad(j.PositionDeg)

		j.SpeedDegS = (j.PositionDeg - j.prevPositionDeg) / t.period
		j.SpeedRadS = mathutil.DegToRad(j.SpeedDegS)
		j.AccelDegS2 = (j.SpeedDegS - j.prevSpeedDegS) / t.period
		j.AccelRadS2 = mathutil.DegToRad(j.AccelDegS2)

		t.refreshLimits(j, m, speedModifier)
	}

	right := t.Joints[RightWristIndex]
	left := t.Joints[LeftWristIndex]
	t.Diff.RightRawDeg = right.PositionDeg
	t.Diff.LeftRawDeg = left.PositionDeg
	t.Diff.RollRad, t.Diff.PitchRad = diffwrist.Forward(
		diffwrist.RawToRadians(left.PositionDeg),
		diffwrist.RawToRadians(right.PositionDeg),
	)
	t.Diff.RollDeg = mathutil.RadToDeg(t.Diff.RollRad)
	t.Diff.PitchDeg = mathutil.RadToDeg(t.Diff.PitchRad)

	t.updateTwinDiff()
}

// refreshLimits recomputes a joint's speed/accel/jerk ceiling as
// limit*speed_modifier, with an extra x10 factor for differential
// joints per spec §4.4.
func (t *Tracker) refreshLimits(j *Joint, m *motor.Motor, speedModifier float32) {
	factor := speedModifier
	if m.Config.IsDifferential {
		factor *= 10
	}
	j.MaxSpeedDegS = m.Config.MaxSpeedDegS * factor
	j.MaxAccelDegS2 = m.Config.MaxAccelDegS2 * factor
	j.MaxJerkDegS3 = m.Config.MaxJerkDegS3 * factor
}

// SetTwinTarget records the trajectory engine's per-step output
// position into the Twin mirror and recomputes its derived
// differential (roll, pitch) sub-state, independent of motor feedback:
// the twin is "updated by the core from the generator's output
// regardless of whether motors respond" (spec §3).
func (t *Tracker) SetTwinTarget(posDeg [NumJoints]float32) {
	t.Twin.JointAnglesDeg = posDeg
	t.updateTwinDiff()
}

// updateTwinDiff recomputes the twin's differential mirror from the
// twin's own joint vector (not sensor feedback), using the same
// forward equations as the real differential sub-state. Internally the
// twin's joint_angles_deg[5]/[6] carry the right/left motor raw targets
// (the same index convention the trajectory engine writes); the
// broadcast layer is what substitutes pitch/roll for those two slots
// per spec §6.
func (t *Tracker) updateTwinDiff() {
	rightRaw := t.Twin.JointAnglesDeg[RightWristIndex]
	leftRaw := t.Twin.JointAnglesDeg[LeftWristIndex]
	t.Twin.DiffRollRad, t.Twin.DiffPitchRad = diffwrist.Forward(
		diffwrist.RawToRadians(leftRaw),
		diffwrist.RawToRadians(rightRaw),
	)
}
