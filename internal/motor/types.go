// Package motor implements the per-motor command surface (C2): command
// encoding, response parsing, unit conversion and the single-turn/
// multi-turn angle resync check, against the canbus.Bus transport.
package motor

import (
	"sync"
	"time"

	"github.com/itohio/armctl/internal/canbus"
)

// Config is the immutable, per-motor configuration described in spec §3.
type Config struct {
	ID int // 1..7

	ReductionRatio   float32 // r
	RawAngleSpan     float32 // S: raw units per 360 deg of motor shaft
	LimitLowDeg      float32 // L_l (deg at joint output, except joints 6-7: raw units)
	LimitHighDeg     float32 // L_h
	MaxSpeedDegS     float32 // Vmax, deg/s at joint output
	MaxAccelDegS2    float32
	MaxJerkDegS3     float32
	IsDifferential   bool
	SpeedModifier    float32 // global scalar in [0,1], default 1/6

	// TorqueNewtonMetersToIQ optionally maps Newton-meters to the raw iq
	// units setTorque expects (see SPEC_FULL.md §4, carried from the
	// original's per-motor Nm_to_iq_m/Nm_to_iq_b fields). Zero value
	// (M==0) means the convenience helper is unavailable; setTorque
	// itself always accepts a raw iq value regardless.
	TorqueNewtonMetersToIQ struct {
		M, B float32
	}
}

// Gains is the motor's last-known PID gain set (six 8-bit values).
type Gains struct {
	AngleKp, AngleKi uint8
	SpeedKp, SpeedKi uint8
	IqKp, IqKi       uint8
}

// State is the mutable, per-cycle live state written by response parsing.
type State struct {
	TemperatureC   int8
	BusVoltageV    float32
	TorqueCurrent  int16
	SingleTurnDeg  float32 // wrapped to [0,360)
	MultiTurnDeg   float32 // wrapped to [0,360) for display
	MultiTurnRaw   int64   // retained raw (0.01 deg units) for differentials
	SpeedDegS      float32
	EncoderRaw     int32
	ErrorPresent   bool
	ErrorCode      uint8
	Gains          Gains
}

// Motor drives a single servo over a canbus.Bus: every public command
// method is a synchronous request/response transaction bounded by
// TransactionDeadline, except ClearMultiLoopAngle, which only sends.
type Motor struct {
	Config Config

	mu    sync.Mutex
	state State

	bus canbus.Bus

	lastZeroWrite time.Time
}

// TransactionDeadline is the per-transaction ceiling from spec §4.2.
const TransactionDeadline = 10 * time.Millisecond

// New creates a driver for one motor over bus.
func New(cfg Config, bus canbus.Bus) *Motor {
	if cfg.SpeedModifier == 0 {
		cfg.SpeedModifier = 1.0 / 6.0
	}
	return &Motor{Config: cfg, bus: bus}
}

// State returns a copy of the motor's last-known live state.
func (m *Motor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Motor) arbID() uint32 { return canbus.ArbitrationIDFor(m.Config.ID) }

// effectiveMaxSpeed is Vmax * speed_modifier, scaled to the unit the wire
// command expects (x10 for differential motors, xr otherwise), per §4.2.
// A clamped-to-zero result is promoted to 1 so the drive never interprets
// zero as "infinite speed".
func (m *Motor) effectiveMaxSpeed(requested float32) uint16 {
	limit := m.Config.MaxSpeedDegS * m.Config.SpeedModifier
	v := requested
	if v > limit {
		v = limit
	}
	if v < 0 {
		v = 0
	}

	var scaled float32
	if m.Config.IsDifferential {
		scaled = v * 10
	} else {
		scaled = v * m.Config.ReductionRatio
	}

	u := uint16(scaled)
	if u == 0 {
		u = 1
	}
	return u
}

// clampAngleDeg restricts a joint-output angle to the motor's soft limits.
func (m *Motor) clampAngleDeg(deg float32) float32 {
	if deg > m.Config.LimitHighDeg {
		return m.Config.LimitHighDeg
	}
	if deg < m.Config.LimitLowDeg {
		return m.Config.LimitLowDeg
	}
	return deg
}
