package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/mcbrc/rcrx/apitypes"
	"github.com/mcbrc/rcrx/internal/server/api"
	"github.com/mcbrc/rcrx/receiver"
)

// Button reports whether {key} is pressed. Unknown keys are not an error;
// they are reported as known=false, pressed=false.
func Button(rx *receiver.Receiver) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		key, ok := req.Params["key"]
		if !ok {
			return api.ErrBadRequest("missing key parameter")
		}
		out := apitypes.ButtonResponse{Key: key}
		for _, b := range rx.Snapshot().Buttons {
			if b.Key == key {
				out.Known = true
				break
			}
		}
		out.Pressed = rx.IsButtonPressed(key)
		b, err := json.Marshal(out)
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
