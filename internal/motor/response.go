package motor

import (
	"context"

	"github.com/itohio/armctl/internal/canbus"
	"github.com/itohio/armctl/internal/mathutil"
)

// parseResponse dispatches on the response frame's command byte and
// updates the motor's live state, per spec §4.2's "Response parsing".
func (m *Motor) parseResponse(ctx context.Context, f canbus.Frame) {
	switch f.Command() {
	case cmdOpenLoop, cmdTorque, cmdSpeed,
		cmdMultiAngle, cmdMultiAngleWithSpeed,
		cmdSingleAngle, cmdSingleAngleWithSpd,
		cmdIncAngle, cmdIncAngleWithSpeed,
		cmdReadState2:
		m.parseMotionOrState2(f)
	case cmdReadState1Err:
		m.parseState1(f)
	case cmdReadSingleAng:
		m.parseSingleAngle(f)
	case cmdReadMultiAng:
		m.parseMultiAngle(ctx, f)
	case cmdReadPID:
		m.parsePID(f)
	}
}

// parseMotionOrState2 handles the shared layout of the nine motion
// responses (0xA0..0xA8) and state2 (0x9C): temperature + iq + speed +
// encoder.
func (m *Motor) parseMotionOrState2(f canbus.Frame) {
	temp := int8(f.Data[1])
	iq := canbus.Unpack16(f.Data, 2)
	speedRaw := canbus.Unpack16(f.Data, 4)
	encoder := canbus.Unpack16(f.Data, 6)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.TemperatureC = temp
	m.state.TorqueCurrent = iq
	m.state.SpeedDegS = m.scaleSpeed(float32(speedRaw))
	m.state.EncoderRaw = int32(encoder)
}

// scaleSpeed converts the wire's 0.01 deg/s units to joint-output deg/s:
// divided by r, except for differential motors where it is divided by 10.
func (m *Motor) scaleSpeed(raw float32) float32 {
	raw /= 100
	if m.Config.IsDifferential {
		return raw / 10
	}
	return raw / m.Config.ReductionRatio
}

func (m *Motor) parseState1(f canbus.Frame) {
	temp := int8(f.Data[1])
	voltageRaw := canbus.Unpack16(f.Data, 2) // 0.1V units
	errByte := f.Data[7]

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.TemperatureC = temp
	m.state.BusVoltageV = float32(voltageRaw) / 10
	m.state.ErrorPresent = errByte != 0
	m.state.ErrorCode = errByte
}

func (m *Motor) parseSingleAngle(f canbus.Frame) {
	raw := canbus.Unpack32(f.Data, 1) // 0.01 deg
	deg := mathutil.Wrap360(float32(raw) / 100 / m.Config.ReductionRatio)

	m.mu.Lock()
	m.state.SingleTurnDeg = deg
	m.mu.Unlock()
}

// parseMultiAngle handles the 0x92 response and then performs the
// single/multi-turn sync check (§3 invariant, §4.2): if the two
// disagree by >=1 degree while the single-turn angle is in (0,180), a
// clear-multi-loop-angle command is issued synchronously, on the same
// control-thread call stack, exactly like the explicit
// syncSingleAndMulti command path (dispatch.go). Differential motors
// never apply this resync.
func (m *Motor) parseMultiAngle(ctx context.Context, f canbus.Frame) {
	raw64 := canbus.Unpack64(f.Data, 1) // 0.01 deg, multi-turn

	m.mu.Lock()
	m.state.MultiTurnRaw = raw64

	var wrappedDeg float32
	if m.Config.IsDifferential {
		// Differential joints carry MultiTurnRaw as-is (0.01 deg/LSB,
		// the same scale diffwrist.RawLSBPerDegree uses) as the current
		// angle (§4.4); MultiTurnDeg still carries the display-wrapped
		// human-degree value for the IPC snapshot.
		wrappedDeg = mathutil.Wrap360(float32(raw64) / 100)
	} else {
		wrappedDeg = mathutil.Wrap360(float32(raw64) / 100 / m.Config.ReductionRatio)
	}
	m.state.MultiTurnDeg = wrappedDeg
	single := m.state.SingleTurnDeg
	m.mu.Unlock()

	if m.Config.IsDifferential {
		return
	}
	if single <= 0 || single >= 180 {
		return
	}
	if mathutil.AbsF(single-wrappedDeg) >= 1 {
		m.ClearMultiLoopAngle(ctx)
	}
}

func (m *Motor) parsePID(f canbus.Frame) {
	g := Gains{
		AngleKp: f.Data[1],
		AngleKi: f.Data[2],
		SpeedKp: f.Data[3],
		SpeedKi: f.Data[4],
		IqKp:    f.Data[5],
		IqKi:    f.Data[6],
	}
	m.mu.Lock()
	m.state.Gains = g
	m.mu.Unlock()
}
