package motor

import (
	"context"
	"errors"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/armctl/internal/canbus"
	"github.com/itohio/armctl/internal/mathutil"
	"github.com/itohio/armctl/pkg/logger"
)

// Command bytes, per spec §4.2.
const (
	cmdOff  = 0x80
	cmdOn   = 0x88
	cmdStop = 0x81

	cmdOpenLoop = 0xA0
	cmdTorque   = 0xA1
	cmdSpeed    = 0xA2

	cmdMultiAngle          = 0xA3
	cmdMultiAngleWithSpeed = 0xA4
	cmdSingleAngle         = 0xA5
	cmdSingleAngleWithSpd  = 0xA6
	cmdIncAngle            = 0xA7
	cmdIncAngleWithSpeed   = 0xA8

	cmdReadPID       = 0x30
	cmdWritePIDRAM   = 0x31
	cmdWritePIDROM   = 0x32
	cmdReadAccel     = 0x33
	cmdWriteAccel    = 0x34
	cmdWriteZeroROM  = 0x19
	cmdReadEncoder   = 0x90
	cmdWriteEncOfs   = 0x91
	cmdClearMultiAng = 0x93
	cmdReadMultiAng  = 0x92
	cmdReadSingleAng = 0x94
	cmdClearAngle    = 0x95
	cmdReadState1Err = 0x9A
	cmdClearError    = 0x9B
	cmdReadState2    = 0x9C
	cmdReadState3    = 0x9D
)

// transact sends f and waits for the matching response within
// TransactionDeadline, logging and returning zero-value/no-op on overrun
// per spec §7(a): a transient transport error never mutates state and
// never propagates past the driver.
func (m *Motor) transact(ctx context.Context, f canbus.Frame) (canbus.Frame, error) {
	resp, err := canbus.Transact(ctx, m.bus, f, m.arbID(), f.Command(), TransactionDeadline)
	if err != nil {
		logger.Log.Warn().
			Int("motor", m.Config.ID).
			Uint8("cmd", f.Command()).
			Err(err).
			Msg("can transaction overrun")
		return canbus.Frame{}, err
	}
	return resp, nil
}

func (m *Motor) send(ctx context.Context, command byte, payload func(*canbus.Frame)) {
	f := canbus.NewFrame(m.Config.ID, command)
	if payload != nil {
		payload(&f)
	}
	resp, err := m.transact(ctx, f)
	if err != nil {
		return
	}
	m.parseResponse(ctx, resp)
}

// Off issues a power-off command (0x80).
func (m *Motor) Off(ctx context.Context) { m.send(ctx, cmdOff, nil) }

// On issues a power-on command (0x88).
func (m *Motor) On(ctx context.Context) { m.send(ctx, cmdOn, nil) }

// Stop issues a motor-stop command (0x81): halts motion but can resume.
func (m *Motor) Stop(ctx context.Context) { m.send(ctx, cmdStop, nil) }

// OpenLoopControl drives the motor open-loop with power in [-850, 850].
func (m *Motor) OpenLoopControl(ctx context.Context, power int16) {
	power = int16(mathutil.ClampI32(int32(power), -850, 850))
	m.send(ctx, cmdOpenLoop, func(f *canbus.Frame) { f.Pack16(3, power) })
}

// SetTorque issues a closed-loop torque (iq) command, iq in [-2048, 2048].
func (m *Motor) SetTorque(ctx context.Context, iq int16) {
	iq = int16(mathutil.ClampI32(int32(iq), -2048, 2048))
	m.send(ctx, cmdTorque, func(f *canbus.Frame) { f.Pack16(3, iq) })
}

// SetTorqueNewtonMeters is the convenience path from SPEC_FULL.md §4: it
// converts torque in Nm to the raw iq units via the motor's linear
// calibration and issues the same 0xA1 command setTorque would.
func (m *Motor) SetTorqueNewtonMeters(ctx context.Context, nm float32) error {
	cal := m.Config.TorqueNewtonMetersToIQ
	if cal.M == 0 {
		return errors.New("motor: no Nm-to-iq calibration configured")
	}
	iq := cal.M*nm + cal.B
	m.SetTorque(ctx, int16(iq))
	return nil
}

// SetSpeed issues a closed-loop speed command, speedDegS is deg/s at the
// joint output (raw motor-shaft units for differential motors). It is
// scaled x100 then x10 (differential) or xr (otherwise), per spec §4.2.
func (m *Motor) SetSpeed(ctx context.Context, speedDegS float32) {
	scaled := speedDegS * 100
	if m.Config.IsDifferential {
		scaled *= 10
	} else {
		scaled *= m.Config.ReductionRatio
	}
	// bytes 3..6 of the frame carry the 32-bit speed field (spec §8 scenario 2).
	m.send(ctx, cmdSpeed, func(f *canbus.Frame) { f.Pack32(3, int32(scaled)) })
}

// angleRaw clamps a joint-output angle (deg) to the motor's limits and
// scales it to the wire's 0.01-deg x reduction-ratio units. For
// differential motors (ids 6,7) the limits are already expressed in
// raw motor-shaft units per spec §3, so the clamped value is sent as-is
// with no further scaling.
func (m *Motor) angleRaw(deg float32) int32 {
	clamped := m.clampAngleDeg(deg)
	if m.Config.IsDifferential {
		return int32(clamped)
	}
	return int32(clamped * 100 * m.Config.ReductionRatio)
}

// SetMultiAngle issues a multi-loop angle command (0xA3).
func (m *Motor) SetMultiAngle(ctx context.Context, deg float32) {
	m.send(ctx, cmdMultiAngle, func(f *canbus.Frame) { f.Pack32(1, m.angleRaw(deg)) })
}

// SetMultiAngleWithSpeed issues a multi-loop angle + max-speed command (0xA4).
func (m *Motor) SetMultiAngleWithSpeed(ctx context.Context, deg float32, maxSpeedDegS float32) {
	speed := m.effectiveMaxSpeed(maxSpeedDegS)
	m.send(ctx, cmdMultiAngleWithSpeed, func(f *canbus.Frame) {
		f.PackU16(2, speed)
		f.Pack32(4, m.angleRaw(deg))
	})
}

// SetSingleAngle issues a single-loop angle command (0xA5).
// spinDirection: 0 = CW, 1 = CCW.
func (m *Motor) SetSingleAngle(ctx context.Context, spinDirection uint8, deg float32) {
	m.send(ctx, cmdSingleAngle, func(f *canbus.Frame) {
		f.Data[1] = spinDirection
		f.Pack32(2, m.angleRaw(deg))
	})
}

// SetSingleAngleWithSpeed issues a single-loop angle + max-speed command (0xA6).
func (m *Motor) SetSingleAngleWithSpeed(ctx context.Context, spinDirection uint8, deg float32, maxSpeedDegS float32) {
	speed := m.effectiveMaxSpeed(maxSpeedDegS)
	m.send(ctx, cmdSingleAngleWithSpd, func(f *canbus.Frame) {
		f.Data[1] = spinDirection
		f.PackU16(2, speed)
		f.Pack32(4, m.angleRaw(deg))
	})
}

// SetIncrementAngle issues a relative angle increment command (0xA7).
func (m *Motor) SetIncrementAngle(ctx context.Context, incDeg float32) {
	raw := int32(incDeg * 100 * m.Config.ReductionRatio)
	m.send(ctx, cmdIncAngle, func(f *canbus.Frame) { f.Pack32(1, raw) })
}

// SetIncrementAngleWithSpeed issues a relative angle increment + max-speed
// command (0xA8).
func (m *Motor) SetIncrementAngleWithSpeed(ctx context.Context, incDeg float32, maxSpeedDegS float32) {
	speed := m.effectiveMaxSpeed(maxSpeedDegS)
	raw := int32(incDeg * 100 * m.Config.ReductionRatio)
	m.send(ctx, cmdIncAngleWithSpeed, func(f *canbus.Frame) {
		f.PackU16(2, speed)
		f.Pack32(4, raw)
	})
}

// ReadPID issues the PID read command (0x30).
func (m *Motor) ReadPID(ctx context.Context) { m.send(ctx, cmdReadPID, nil) }

// WritePIDRAM writes the six PID gain bytes to RAM (0x31, not persistent).
func (m *Motor) WritePIDRAM(ctx context.Context, g Gains) {
	m.send(ctx, cmdWritePIDRAM, func(f *canbus.Frame) { packGains(f, g) })
}

// WritePIDROM writes the six PID gain bytes to ROM (0x32, persistent).
func (m *Motor) WritePIDROM(ctx context.Context, g Gains) {
	m.send(ctx, cmdWritePIDROM, func(f *canbus.Frame) { packGains(f, g) })
}

func packGains(f *canbus.Frame, g Gains) {
	f.Data[1] = g.AngleKp
	f.Data[2] = g.AngleKi
	f.Data[3] = g.SpeedKp
	f.Data[4] = g.SpeedKi
	f.Data[5] = g.IqKp
	f.Data[6] = g.IqKi
}

// ReadAcceleration issues the acceleration read command (0x33).
func (m *Motor) ReadAcceleration(ctx context.Context) { m.send(ctx, cmdReadAccel, nil) }

// WriteAcceleration writes the acceleration setpoint (0x34), 1 dps^2 units.
func (m *Motor) WriteAcceleration(ctx context.Context, accel int32) {
	m.send(ctx, cmdWriteAccel, func(f *canbus.Frame) { f.Pack32(1, accel) })
}

// ReadEncoder issues the encoder read command (0x90).
func (m *Motor) ReadEncoder(ctx context.Context) { m.send(ctx, cmdReadEncoder, nil) }

// WriteEncoderOffset writes the encoder offset to ROM (0x91).
func (m *Motor) WriteEncoderOffset(ctx context.Context, offset uint16) {
	m.send(ctx, cmdWriteEncOfs, func(f *canbus.Frame) { f.PackU16(1, offset) })
}

// WriteCurrentPosAsZero writes the current position as zero to ROM
// (0x19). Rate-limited per SPEC_FULL.md §4: repeated writes within 5s of
// each other are dropped to avoid degrading the encoder chip's ROM life.
func (m *Motor) WriteCurrentPosAsZero(ctx context.Context) {
	m.mu.Lock()
	since := time.Since(m.lastZeroWrite)
	if since < 5*time.Second {
		m.mu.Unlock()
		logger.Log.Warn().Int("motor", m.Config.ID).Msg("writeCurrentPosAsZero rate-limited, dropped")
		return
	}
	m.lastZeroWrite = time.Now()
	m.mu.Unlock()

	m.send(ctx, cmdWriteZeroROM, nil)
}

// ReadMultiAngle issues the multi-turn angle read command (0x92), and on
// a non-differential motor performs the single/multi-turn sync check.
func (m *Motor) ReadMultiAngle(ctx context.Context) { m.send(ctx, cmdReadMultiAng, nil) }

// ReadSingleAngle issues the single-turn angle read command (0x94).
func (m *Motor) ReadSingleAngle(ctx context.Context) { m.send(ctx, cmdReadSingleAng, nil) }

// ClearAngle clears multi- and single-turn angle data in RAM (0x95).
func (m *Motor) ClearAngle(ctx context.Context) { m.send(ctx, cmdClearAngle, nil) }

// ClearMultiLoopAngle clears the multi-loop angle accumulator (0x93).
// It has no response frame, so this is a plain Send rather than a
// Transact; called from the control thread either directly (the
// syncSingleAndMulti command) or synchronously from the sync check in
// parseMultiAngle, per spec §4.2.
func (m *Motor) ClearMultiLoopAngle(ctx context.Context) {
	f := canbus.NewFrame(m.Config.ID, cmdClearMultiAng)
	if err := m.bus.Send(ctx, f); err != nil {
		logger.Log.Warn().Int("motor", m.Config.ID).Err(err).Msg("clear multi-loop angle send failed")
	}
}

// ReadState1Error issues the state1+error read command (0x9A).
func (m *Motor) ReadState1Error(ctx context.Context) { m.send(ctx, cmdReadState1Err, nil) }

// ClearError clears the motor's error flag (0x9B).
func (m *Motor) ClearError(ctx context.Context) { m.send(ctx, cmdClearError, nil) }

// ReadState2 issues the state2 read command (0x9C): temperature, iq,
// speed, encoder.
func (m *Motor) ReadState2(ctx context.Context) { m.send(ctx, cmdReadState2, nil) }

// ReadState3 issues the state3 read command (0x9D): temperature and
// phase currents. Phase currents are not modeled in State; the
// transaction is still performed so the motor's watchdog sees traffic.
func (m *Motor) ReadState3(ctx context.Context) { m.send(ctx, cmdReadState3, nil) }

// RawToRadians converts a raw motor-shaft unit to radians: (x/S)*2*pi.
func (m *Motor) RawToRadians(x float32) float32 {
	return (x / m.Config.RawAngleSpan) * 2 * math32.Pi
}

// RadiansToRaw converts radians to a raw motor-shaft unit, clamped to
// [LimitLowDeg, LimitHighDeg] (which for joints 6-7 are raw units, per
// spec §3/§4.2).
func (m *Motor) RadiansToRaw(theta float32) float32 {
	raw := (theta / (2 * math32.Pi)) * m.Config.RawAngleSpan
	return mathutil.Clamp(raw, m.Config.LimitLowDeg, m.Config.LimitHighDeg)
}
