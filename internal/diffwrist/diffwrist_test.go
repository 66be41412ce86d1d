package diffwrist

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"

	"github.com/itohio/armctl/internal/mathutil"
)

func TestForwardInverseRoundTrip(t *testing.T) {
	s := New(-90, 90)
	cases := []struct{ roll, pitch float32 }{
		{0, 0},
		{0.5, 0.3},
		{-0.5, -0.3},
		{0, 1.4},
		{-1.0, 0.1},
	}
	for _, c := range cases {
		aL, aR := s.Inverse(c.roll, c.pitch)
		roll, pitch := Forward(aL, aR)
		assert.InDeltaf(t, c.roll, roll, 1e-4, "roll round trip for %v", c.roll)
		assert.InDeltaf(t, c.pitch, pitch, 1e-4, "pitch round trip for %v", c.pitch)
	}
}

func TestInverseClampsPitchToSolverLimits(t *testing.T) {
	s := New(-45, 45)

	aL, aR := s.Inverse(0, math32.Pi) // well beyond the 45 deg limit
	_, pitch := Forward(aL, aR)
	limit := mathutil.DegToRad(45)
	assert.LessOrEqual(t, pitch, limit+1e-3)
}

func TestScenarioFourRawMagnitude(t *testing.T) {
	// spec scenario 4: pitch = pi/2 should resolve to a raw magnitude
	// around 9000 once converted through RadiansToRaw.
	raw := RadiansToRaw(math32.Pi / 2)
	assert.InDelta(t, 9000, raw, 50)
}

func TestRawRadiansRoundTrip(t *testing.T) {
	for _, raw := range []float32{0, 9000, -9000, 4500, -1234} {
		got := RadiansToRaw(RawToRadians(raw))
		assert.InDeltaf(t, raw, got, 1e-2, "raw/radians round trip for %v", raw)
	}
}
