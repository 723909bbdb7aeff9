package handler

import (
	"github.com/mcbrc/rcrx/apitypes"
	"github.com/mcbrc/rcrx/pairing"
	"github.com/mcbrc/rcrx/receiver"
)

func pairingState(st pairing.Status) apitypes.PairingState {
	return apitypes.PairingState{
		State:       st.State.String(),
		Serial:      st.Serial,
		NeverPaired: st.NeverPaired,
		RemainingMs: st.RemainingMS,
	}
}

func stateResponse(snap receiver.Snapshot) apitypes.StateResponse {
	btns := make([]apitypes.Button, 0, len(snap.Buttons))
	for _, b := range snap.Buttons {
		btns = append(btns, apitypes.Button{Key: b.Key, Pressed: b.Pressed})
	}
	return apitypes.StateResponse{
		Pairing: pairingState(snap.Pairing),
		Joystick: apitypes.JoystickState{
			DirArrow: snap.Joystick.DirArrow,
			Strength: snap.Joystick.Strength,
			Degrees:  snap.Joystick.Degrees,
		},
		Buttons: btns,
		Key:     snap.Key,
		Image:   snap.Image.Compact(),
	}
}
