package robot

import (
	"encoding/json"

	"github.com/itohio/armctl/internal/jointstate"
	"github.com/itohio/armctl/internal/mathutil"
	"github.com/itohio/armctl/pkg/logger"
)

// motorSnapshot is one motor's block in the broadcast payload, per
// spec §6's outbound shape.
type motorSnapshot struct {
	Temp                int8    `json:"temp"`
	TorqueA             int16   `json:"torqueA"`
	SpeedDegS           float32 `json:"speedDeg_s"`
	PosDeg              float32 `json:"posDeg"`
	MultiTurnRaw        int64   `json:"multiTurnRaw"`
	MultiTurnRadMapped  float32 `json:"multiTurnRad_Mapped"`
	MultiTurnDegMapped  float32 `json:"multiTurnDeg_Mapped"`
	Error               int     `json:"error"`
	EncoderVal          int32   `json:"encoder_val"`
	PositionRadMapped   float32 `json:"positionRad_Mapped"`
	PositionDegMapped   float32 `json:"positionDeg_Mapped"`
	Gains               gainsSnapshot `json:"gains"`
}

type gainsSnapshot struct {
	AngKp uint8 `json:"angKp"`
	AngKi uint8 `json:"angKi"`
	SpdKp uint8 `json:"spdKp"`
	SpdKi uint8 `json:"spdKi"`
	IqKp  uint8 `json:"iqKp"`
	IqKi  uint8 `json:"iqKi"`
}

type twinSnapshot struct {
	Active         bool       `json:"active"`
	JointAnglesDeg [7]float32 `json:"joint_angles_deg"`
}

type snapshot struct {
	Type         string                   `json:"type"`
	Motors       map[string]motorSnapshot `json:"motors"`
	DiffRollRad  float32                  `json:"diff_roll_rad"`
	DiffPitchRad float32                  `json:"diff_pitch_rad"`
	DiffRollDeg  float32                  `json:"diff_roll_deg"`
	DiffPitchDeg float32                  `json:"diff_pitch_deg"`
	Twin         twinSnapshot             `json:"twin"`
}

func (r *Robot) broadcast() {
	snap := snapshot{
		Type:         "motorStates",
		Motors:       make(map[string]motorSnapshot, jointstate.NumJoints),
		DiffRollRad:  r.tracker.Diff.RollRad,
		DiffPitchRad: r.tracker.Diff.PitchRad,
		DiffRollDeg:  r.tracker.Diff.RollDeg,
		DiffPitchDeg: r.tracker.Diff.PitchDeg,
	}

	for i, m := range r.motors {
		st := m.State()
		errBit := 0
		if st.ErrorPresent {
			errBit = 1
		}
		snap.Motors[motorKey(i)] = motorSnapshot{
			Temp:               st.TemperatureC,
			TorqueA:            st.TorqueCurrent,
			SpeedDegS:          st.SpeedDegS,
			PosDeg:             st.SingleTurnDeg,
			MultiTurnRaw:       st.MultiTurnRaw,
			MultiTurnRadMapped: mathutil.DegToRad(st.MultiTurnDeg),
			MultiTurnDegMapped: st.MultiTurnDeg,
			Error:              errBit,
			EncoderVal:         st.EncoderRaw,
			PositionRadMapped:  mathutil.DegToRad(st.SingleTurnDeg),
			PositionDegMapped:  st.SingleTurnDeg,
			Gains: gainsSnapshot{
				AngKp: st.Gains.AngleKp, AngKi: st.Gains.AngleKi,
				SpdKp: st.Gains.SpeedKp, SpdKi: st.Gains.SpeedKi,
				IqKp: st.Gains.IqKp, IqKi: st.Gains.IqKi,
			},
		}
	}

	twinJoints := r.tracker.Twin.JointAnglesDeg
	twinJoints[jointstate.RightWristIndex] = r.tracker.Twin.DiffPitchRad
	twinJoints[jointstate.LeftWristIndex] = r.tracker.Twin.DiffRollRad
	snap.Twin = twinSnapshot{Active: r.engine.Active(), JointAnglesDeg: twinJoints}

	payload, err := json.Marshal(snap)
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to marshal broadcast snapshot")
		return
	}
	r.server.Broadcast(payload)
}

func motorKey(index int) string {
	return string(rune('1' + index))
}
