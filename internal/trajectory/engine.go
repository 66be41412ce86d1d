// Package trajectory implements the 7-DOF jerk-limited online
// trajectory generator and PI velocity correction (C5), grounded on
// the teacher's pkg/core/math/filter/vaj.VAJ1D (per-axis jerk-limited
// stepping) and pkg/core/math/filter/pid.PID1D (integral-clamped
// correction), generalized from a single axis to the arm's seven
// joints.
package trajectory

import (
	"github.com/itohio/armctl/internal/diffwrist"
	"github.com/itohio/armctl/internal/jointstate"
	"github.com/itohio/armctl/internal/mathutil"
)

// Status is the OTG's terminal classification for one step.
type Status int

const (
	Working Status = iota
	Finished
	Error
)

func (s Status) String() string {
	switch s {
	case Working:
		return "working"
	case Finished:
		return "finished"
	default:
		return "error"
	}
}

// Engine drives all seven joints' axisOTGs together with a shared PI
// velocity corrector. Gains are shared across joints per spec §9: the
// wrist's raw-unit axes and the arm's degree axes see the same Kp/Ki,
// a known source of uneven responsiveness the spec leaves to the
// reimplementer.
type Engine struct {
	axes     [jointstate.NumJoints]axisOTG
	integral [jointstate.NumJoints]float32

	active bool

	Kp, Ki      float32
	MaxIntegral float32

	solver diffwrist.Solver
}

// New builds an Engine with shared PI gains and the wrist solver used
// to resolve joints 5/6 targets during MoveToJointPosition.
func New(kp, ki, maxIntegral float32, solver diffwrist.Solver) *Engine {
	return &Engine{Kp: kp, Ki: ki, MaxIntegral: maxIntegral, solver: solver}
}

// Active reports whether a trajectory is in flight.
func (e *Engine) Active() bool { return e.active }

// Reset deactivates the trajectory, reseeding every axis's input and
// target to the tracker's current position with zero velocity and
// acceleration; limits are left as previously configured. Per spec
// §4.6 this runs before every re-trigger and on setHold/setEstop.
func (e *Engine) Reset(tracker *jointstate.Tracker) {
	for i := range e.axes {
		cur := tracker.Joints[i].PositionDeg
		e.axes[i].seed(cur, cur, e.axes[i].maxV, e.axes[i].maxA, e.axes[i].maxJ)
		e.integral[i] = 0
	}
	e.active = false
}

// MoveToJointPosition triggers (or re-triggers, after an implicit
// Reset) a trajectory toward targetDeg. Indices 0..4 are taken as arm
// joint degrees directly; index 5 is roll (deg) and index 6 is pitch
// (deg), reinterpreted through the wrist solver's inverse to obtain
// absolute left/right motor raw targets, which are written back into
// the working array at the swapped indices the rest of the system
// expects (§9 "Differential index convention"): array index 5 holds
// the right motor target, index 6 the left.
func (e *Engine) MoveToJointPosition(targetDeg [jointstate.NumJoints]float32, tracker *jointstate.Tracker) {
	if e.active {
		e.Reset(tracker)
	}

	var absolute [jointstate.NumJoints]float32
	copy(absolute[:5], targetDeg[:5])

	rollRad := mathutil.DegToRad(targetDeg[jointstate.RightWristIndex])
	pitchRad := mathutil.DegToRad(targetDeg[jointstate.LeftWristIndex])
	aL, aR := e.solver.Inverse(rollRad, pitchRad)
	absolute[jointstate.LeftWristIndex] = diffwrist.RadiansToRaw(aL)
	absolute[jointstate.RightWristIndex] = diffwrist.RadiansToRaw(aR)

	for i := range e.axes {
		j := tracker.Joints[i]
		e.axes[i].seed(j.PositionDeg, absolute[i], j.MaxSpeedDegS, j.MaxAccelDegS2, j.MaxJerkDegS3)
		e.integral[i] = 0
	}
	e.active = true
}

// Step advances every axis by one control period. It returns Finished
// once all seven axes have settled, deactivating the trajectory in the
// same call; it never reports Error today (the axes are unconditionally
// stable), but the status is plumbed through end to end so a future
// degenerate-limit check has somewhere to report it, per spec §4.5/§7(d).
func (e *Engine) Step(dt float32) (status Status, posDeg, velDegS, accelDegS2 [jointstate.NumJoints]float32) {
	if !e.active {
		return Working, posDeg, velDegS, accelDegS2
	}

	settled := true
	for i := range e.axes {
		p, v, a := e.axes[i].step(dt)
		posDeg[i], velDegS[i], accelDegS2[i] = p, v, a
		if !e.axes[i].settled() {
			settled = false
		}
	}

	if settled {
		e.active = false
		return Finished, posDeg, velDegS, accelDegS2
	}
	return Working, posDeg, velDegS, accelDegS2
}

// Correct applies the PI velocity correction of spec §4.5: for each
// joint the position error between the OTG's new output and the
// measured angle drives an anti-windup-clamped integral, and the
// corrected velocity is fed forward plus the proportional and integral
// terms.
func (e *Engine) Correct(dt float32, newPosDeg, newVelDegS, measuredDeg [jointstate.NumJoints]float32) (correctedVelDegS [jointstate.NumJoints]float32) {
	for i := range correctedVelDegS {
		err := newPosDeg[i] - measuredDeg[i]
		e.integral[i] = mathutil.Clamp(e.integral[i]+err*dt, -e.MaxIntegral, e.MaxIntegral)
		correctedVelDegS[i] = newVelDegS[i] + e.Kp*err + e.Ki*e.integral[i]
	}
	return correctedVelDegS
}

// WristCommandVelocity restores native motor-shaft units for joints 5
// and 6 by dividing the joint-degree velocity by 10, per spec §4.5's
// stepping note, before it is issued as a setSpeed command.
func WristCommandVelocity(velDegS [jointstate.NumJoints]float32) [jointstate.NumJoints]float32 {
	out := velDegS
	out[jointstate.RightWristIndex] /= 10
	out[jointstate.LeftWristIndex] /= 10
	return out
}
