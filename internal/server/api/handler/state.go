package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/mcbrc/rcrx/internal/server/api"
	"github.com/mcbrc/rcrx/receiver"
)

// State returns the last known joystick, buttons, image and pairing status.
func State(rx *receiver.Receiver) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		b, err := json.Marshal(stateResponse(rx.Snapshot()))
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
