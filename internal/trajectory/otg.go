package trajectory

import "github.com/itohio/armctl/internal/mathutil"

// axisOTG is a single joint's jerk-limited online trajectory generator,
// ported from the teacher's pkg/core/math/filter/vaj.VAJ1D: it
// integrates a velocity/acceleration pair toward Target and switches
// from accelerating to decelerating once the distance already covered
// passes half of what remains, bounding jerk at every step rather than
// computing a closed-form S-curve profile.
type axisOTG struct {
	maxV, maxA, maxJ float32

	velocity, acceleration float32
	input, output, target  float32
}

func (a *axisOTG) seed(current, target, maxV, maxA, maxJ float32) {
	a.input = current
	a.output = current
	a.target = target
	a.velocity = 0
	a.acceleration = 0
	a.maxV, a.maxA, a.maxJ = maxV, maxA, maxJ
}

// step advances the axis by one control period and returns the new
// position, velocity and acceleration.
func (a *axisOTG) step(dt float32) (position, velocity, acceleration float32) {
	a.output += (a.velocity + (0.5*a.acceleration-a.maxJ*dt/6)*dt) * dt

	remaining := a.target - a.output
	traveled := a.output - a.input
	direction := float32(1)
	if remaining == 0 {
		direction = -1
	} else if traveled/remaining >= 0.5 {
		direction = -1
	}

	a.velocity = mathutil.Clamp(
		a.velocity+a.acceleration*dt-0.5*direction*a.maxJ*dt*dt,
		-a.maxV, a.maxV,
	)
	a.acceleration = mathutil.Clamp(
		a.acceleration+a.maxJ*direction*dt,
		-a.maxA, a.maxA,
	)

	return a.output, a.velocity, a.acceleration
}

// settled reports whether the axis has converged to its target: close
// in position and effectively stationary.
func (a *axisOTG) settled() bool {
	const posEps, velEps = 0.05, 0.05
	return mathutil.AbsF(a.target-a.output) < posEps && mathutil.AbsF(a.velocity) < velEps
}
