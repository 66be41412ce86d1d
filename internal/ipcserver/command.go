package ipcserver

// Command is the inbound command envelope, per spec §6:
// {"cmd": <string>, "motorID"?: int, ...args}. Fields not used by a
// given cmd are simply left at their zero value.
type Command struct {
	Cmd     string  `json:"cmd"`
	MotorID int     `json:"motorID"`
	Value   float64 `json:"value"`

	Angles []float64 `json:"angles"`

	Roll     float64 `json:"roll"`
	Pitch    float64 `json:"pitch"`
	MaxSpeed float64 `json:"maxSpeed"`

	SpinDirection uint8 `json:"spinDirection"`
	Modifier      float64 `json:"modifier"`

	AngleKp uint8 `json:"angKp"`
	AngleKi uint8 `json:"angKi"`
	SpeedKp uint8 `json:"spdKp"`
	SpeedKi uint8 `json:"spdKi"`
	IqKp    uint8 `json:"iqKp"`
	IqKi    uint8 `json:"iqKi"`

	EncoderOffset uint16 `json:"encoderOffset"`
	Accel         int32  `json:"accel"`
}

// knownCommands is the recognized cmd vocabulary from spec §4.7; an
// unrecognized cmd is logged and dropped by the dispatcher.
var knownCommands = map[string]bool{
	"motorOn": true, "motorOff": true, "motorStop": true,
	"setHoldPosition": true, "setESTOP": true,
	"openLoopControl": true, "setTorque": true, "setSpeed": true,
	"setMultiAngle": true, "setMultiAngleWithSpeed": true,
	"setSingleAngle": true, "setSingleAngleWithSpeed": true,
	"setIncrementAngle": true, "setIncrementAngleWithSpeed": true,
	"setMultiJointAngles": true, "setDifferentialAngles": true,
	"moveToJointPositionRuckig": true, "setMaxSpeedModifier": true,
	"syncSingleAndMulti": true,
	"readPID": true, "writePID_RAM": true, "writePID_ROM": true,
	"readAcceleration": true, "writeAcceleration": true,
	"readEncoder": true, "writeEncoderOffset": true,
	"writeCurrentPosAsZero": true,
	"readMultiAngle": true, "readSingleAngle": true, "clearAngle": true,
	"readState1_Error": true, "clearError": true,
	"readState2": true, "readState3": true,
}

// KnownCommand reports whether cmd is part of the recognized vocabulary.
func KnownCommand(cmd string) bool { return knownCommands[cmd] }
