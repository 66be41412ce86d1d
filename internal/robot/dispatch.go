package robot

import (
	"context"

	"github.com/itohio/armctl/internal/diffwrist"
	"github.com/itohio/armctl/internal/ipcserver"
	"github.com/itohio/armctl/internal/jointstate"
	"github.com/itohio/armctl/internal/mathutil"
	"github.com/itohio/armctl/internal/motor"
	"github.com/itohio/armctl/pkg/logger"
)

// dispatch applies one drained command to the robot. Commands are
// only reached here after ipcserver has already validated the cmd
// string against the known vocabulary; malformed motor ids are logged
// and dropped per spec §7(c).
func (r *Robot) dispatch(ctx context.Context, cmd ipcserver.Command) {
	switch cmd.Cmd {
	case "setMultiJointAngles", "moveToJointPositionRuckig":
		if len(cmd.Angles) != jointstate.NumJoints {
			logger.Log.Warn().Int("len", len(cmd.Angles)).Msg("wrong angle array shape, dropped")
			return
		}
		var target [jointstate.NumJoints]float32
		for i, a := range cmd.Angles {
			target[i] = float32(a)
		}
		r.MoveToJointPosition(target)
		return
	case "setDifferentialAngles":
		r.setDifferentialAngles(ctx, cmd)
		return
	case "setMaxSpeedModifier":
		r.SetMaxSpeedModifier(float32(cmd.Modifier))
		return
	}

	m, ok := r.motorFor(cmd.MotorID)
	if !ok {
		logger.Log.Warn().Int("motorID", cmd.MotorID).Str("cmd", cmd.Cmd).Msg("out-of-range motor id, dropped")
		return
	}

	switch cmd.Cmd {
	case "motorOn":
		m.On(ctx)
	case "motorOff":
		m.Off(ctx)
	case "motorStop":
		m.Stop(ctx)
	case "openLoopControl":
		m.OpenLoopControl(ctx, int16(cmd.Value))
	case "setTorque":
		m.SetTorque(ctx, int16(cmd.Value))
	case "setSpeed":
		m.SetSpeed(ctx, float32(cmd.Value))
	case "setMultiAngle":
		m.SetMultiAngle(ctx, float32(cmd.Value))
	case "setMultiAngleWithSpeed":
		m.SetMultiAngleWithSpeed(ctx, float32(cmd.Value), float32(cmd.MaxSpeed))
	case "setSingleAngle":
		m.SetSingleAngle(ctx, cmd.SpinDirection, float32(cmd.Value))
	case "setSingleAngleWithSpeed":
		m.SetSingleAngleWithSpeed(ctx, cmd.SpinDirection, float32(cmd.Value), float32(cmd.MaxSpeed))
	case "setIncrementAngle":
		m.SetIncrementAngle(ctx, float32(cmd.Value))
	case "setIncrementAngleWithSpeed":
		m.SetIncrementAngleWithSpeed(ctx, float32(cmd.Value), float32(cmd.MaxSpeed))
	case "syncSingleAndMulti":
		m.ClearMultiLoopAngle(ctx)
	case "readPID":
		m.ReadPID(ctx)
	case "writePID_RAM":
		m.WritePIDRAM(ctx, motor.Gains{AngleKp: cmd.AngleKp, AngleKi: cmd.AngleKi, SpeedKp: cmd.SpeedKp, SpeedKi: cmd.SpeedKi, IqKp: cmd.IqKp, IqKi: cmd.IqKi})
	case "writePID_ROM":
		m.WritePIDROM(ctx, motor.Gains{AngleKp: cmd.AngleKp, AngleKi: cmd.AngleKi, SpeedKp: cmd.SpeedKp, SpeedKi: cmd.SpeedKi, IqKp: cmd.IqKp, IqKi: cmd.IqKi})
	case "readAcceleration":
		m.ReadAcceleration(ctx)
	case "writeAcceleration":
		m.WriteAcceleration(ctx, cmd.Accel)
	case "readEncoder":
		m.ReadEncoder(ctx)
	case "writeEncoderOffset":
		m.WriteEncoderOffset(ctx, cmd.EncoderOffset)
	case "writeCurrentPosAsZero":
		m.WriteCurrentPosAsZero(ctx)
	case "readMultiAngle":
		m.ReadMultiAngle(ctx)
	case "readSingleAngle":
		m.ReadSingleAngle(ctx)
	case "clearAngle":
		m.ClearAngle(ctx)
	case "readState1_Error":
		m.ReadState1Error(ctx)
	case "clearError":
		m.ClearError(ctx)
	case "readState2":
		m.ReadState2(ctx)
	case "readState3":
		m.ReadState3(ctx)
	default:
		logger.Log.Warn().Str("cmd", cmd.Cmd).Msg("unhandled known command")
	}
}

func (r *Robot) motorFor(id int) (*motor.Motor, bool) {
	if id < 1 || id > jointstate.NumJoints {
		return nil, false
	}
	return r.motors[id-1], true
}

// setDifferentialAngles resolves a direct (roll, pitch) target through
// the wrist solver's inverse and commands both wrist motors' absolute
// angle with the given max speed, per spec §8 scenario 4. This bypasses
// the trajectory engine: it is a one-shot position command, not a
// jerk-limited move.
func (r *Robot) setDifferentialAngles(ctx context.Context, cmd ipcserver.Command) {
	aL, aR := r.solver.Inverse(float32(cmd.Roll), float32(cmd.Pitch))
	rawL := diffwrist.RadiansToRaw(aL)
	rawR := diffwrist.RadiansToRaw(aR)

	left, _ := r.motorFor(jointstate.LeftWristIndex + 1)
	right, _ := r.motorFor(jointstate.RightWristIndex + 1)

	maxSpeed := mathutil.AbsF(float32(cmd.MaxSpeed))
	left.SetMultiAngleWithSpeed(ctx, rawL, maxSpeed)
	right.SetMultiAngleWithSpeed(ctx, rawR, maxSpeed)
}
