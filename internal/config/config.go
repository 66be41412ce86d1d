// Package config loads the arm's static configuration: the per-motor
// table, differential pitch limits, PI gains, IPC/CAN settings and
// scheduler rates. Values are expressed as a YAML document via
// gopkg.in/yaml.v3, following the teacher's choice of YAML for
// hand-editable config (x/marshaller/yaml); Default provides the
// values spec.md §6 calls "compile-time configuration" so the binary
// runs with no file present.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MotorConfig is one motor's entry in the config file.
type MotorConfig struct {
	ID             int     `yaml:"id"`
	ReductionRatio float32 `yaml:"reductionRatio"`
	RawAngleSpan   float32 `yaml:"rawAngleSpan"`
	LimitLowDeg    float32 `yaml:"limitLowDeg"`
	LimitHighDeg   float32 `yaml:"limitHighDeg"`
	MaxSpeedDegS   float32 `yaml:"maxSpeedDegS"`
	MaxAccelDegS2  float32 `yaml:"maxAccelDegS2"`
	MaxJerkDegS3   float32 `yaml:"maxJerkDegS3"`
	IsDifferential bool    `yaml:"isDifferential"`

	NmToIqM float32 `yaml:"nmToIqM"`
	NmToIqB float32 `yaml:"nmToIqB"`
}

// Config is the complete arm configuration tree.
type Config struct {
	Motors []MotorConfig `yaml:"motors"`

	PitchLimitLowDeg  float32 `yaml:"pitchLimitLowDeg"`
	PitchLimitHighDeg float32 `yaml:"pitchLimitHighDeg"`

	PIKp         float32 `yaml:"piKp"`
	PIKi         float32 `yaml:"piKi"`
	PIMaxInt     float32 `yaml:"piMaxIntegral"`
	SpeedModifier float32 `yaml:"speedModifier"`

	SocketPath  string `yaml:"socketPath"`
	CANInterface string `yaml:"canInterface"`

	ControlRateHz   int `yaml:"controlRateHz"`
	BroadcastRateHz int `yaml:"broadcastRateHz"`
}

// Default returns the configuration spec.md §6 describes as
// compile-time constants: seven motors with representative reduction
// ratios/limits, the default 1/6 speed modifier, and the well-known
// socket path.
func Default() Config {
	return Config{
		Motors: []MotorConfig{
			{ID: 1, ReductionRatio: 9, RawAngleSpan: 32768, LimitLowDeg: -170, LimitHighDeg: 170, MaxSpeedDegS: 180, MaxAccelDegS2: 360, MaxJerkDegS3: 1800},
			{ID: 2, ReductionRatio: 9, RawAngleSpan: 32768, LimitLowDeg: -90, LimitHighDeg: 90, MaxSpeedDegS: 180, MaxAccelDegS2: 360, MaxJerkDegS3: 1800},
			{ID: 3, ReductionRatio: 9, RawAngleSpan: 32768, LimitLowDeg: -170, LimitHighDeg: 170, MaxSpeedDegS: 180, MaxAccelDegS2: 360, MaxJerkDegS3: 1800},
			{ID: 4, ReductionRatio: 6, RawAngleSpan: 32768, LimitLowDeg: -120, LimitHighDeg: 120, MaxSpeedDegS: 220, MaxAccelDegS2: 400, MaxJerkDegS3: 2000},
			{ID: 5, ReductionRatio: 6, RawAngleSpan: 32768, LimitLowDeg: -170, LimitHighDeg: 170, MaxSpeedDegS: 220, MaxAccelDegS2: 400, MaxJerkDegS3: 2000},
			{ID: 6, ReductionRatio: 1, RawAngleSpan: 32768, LimitLowDeg: -18000, LimitHighDeg: 18000, MaxSpeedDegS: 300, MaxAccelDegS2: 600, MaxJerkDegS3: 3000, IsDifferential: true},
			{ID: 7, ReductionRatio: 1, RawAngleSpan: 32768, LimitLowDeg: -18000, LimitHighDeg: 18000, MaxSpeedDegS: 300, MaxAccelDegS2: 600, MaxJerkDegS3: 3000, IsDifferential: true},
		},
		PitchLimitLowDeg:  -90,
		PitchLimitHighDeg: 90,
		PIKp:              0.8,
		PIKi:              0.05,
		PIMaxInt:          50,
		SpeedModifier:     1.0 / 6.0,
		SocketPath:        "/home/debian/.armatron/robot_socket",
		CANInterface:      "can0",
		ControlRateHz:     200,
		BroadcastRateHz:   60,
	}
}

// Load reads and parses a YAML config file on top of Default, so a
// partial file only overrides the fields it specifies.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
