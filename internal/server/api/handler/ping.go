package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/mcbrc/rcrx/apitypes"
	"github.com/mcbrc/rcrx/internal/server/api"
)

// Ping identifies the server.
func Ping(version string) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		b, err := json.Marshal(apitypes.PingResponse{Server: "rcrx", Version: version})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
