// Package mathutil holds the small set of numeric helpers shared by the
// motor driver, the differential solver and the trajectory engine.
package mathutil

import "github.com/chewxy/math32"

// Clamp restricts a to [min, max].
func Clamp(a, min, max float32) float32 {
	switch {
	case a > max:
		return max
	case a < min:
		return min
	default:
		return a
	}
}

// ClampI32 restricts a to [min, max] for integer-valued limits, used when
// clamping raw motor-shaft units before they're packed into a CAN frame.
func ClampI32(a, min, max int32) int32 {
	switch {
	case a > max:
		return max
	case a < min:
		return min
	default:
		return a
	}
}

// Wrap360 wraps a degree value into [0, 360).
func Wrap360(deg float32) float32 {
	deg = math32.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// WrapPi wraps a radian value into (-pi, pi].
func WrapPi(rad float32) float32 {
	r := math32.Mod(rad+math32.Pi, 2*math32.Pi)
	if r <= 0 {
		r += 2 * math32.Pi
	}
	return r - math32.Pi
}

// AbsF returns the absolute value of a.
func AbsF(a float32) float32 {
	if a < 0 {
		return -a
	}
	return a
}

// DegToRad converts degrees to radians.
func DegToRad(deg float32) float32 { return deg * math32.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float32) float32 { return rad * 180 / math32.Pi }
