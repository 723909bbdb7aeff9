package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/mcbrc/rcrx/apitypes"
	"github.com/mcbrc/rcrx/internal/server/api"
	"github.com/mcbrc/rcrx/receiver"
)

// Pair forgets the current transmitter and opens the pairing window.
func Pair(rx *receiver.Receiver) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		rx.BeginPairing()
		logger.Info("Pairing started via API")
		b, err := json.Marshal(apitypes.PairResponse{Pairing: pairingState(rx.Pairing().Status())})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
