package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mcbrc/rcrx/apitypes"
	"github.com/mcbrc/rcrx/feedback"
	"github.com/mcbrc/rcrx/internal/server/api"
	"github.com/mcbrc/rcrx/receiver"
)

// Mapping replaces the key to image table. Keys missing from the table use
// the built-in images; an empty payload restores the defaults.
func Mapping(rx *receiver.Receiver) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		keys := []string{}
		if strings.TrimSpace(req.Payload) == "" {
			rx.SetImageMapping(nil)
		} else {
			var mr apitypes.MappingRequest
			if err := json.Unmarshal([]byte(req.Payload), &mr); err != nil {
				return api.ErrBadRequest(fmt.Sprintf("invalid mapping: %v", err))
			}
			table := make(map[string]feedback.Image, len(mr.Images))
			for key, s := range mr.Images {
				img, err := feedback.ParseImage(s)
				if err != nil {
					return api.ErrBadRequest(fmt.Sprintf("image %q: %v", key, err))
				}
				table[key] = img
				keys = append(keys, key)
			}
			rx.SetImageMapping(feedback.TableMapping(table, nil))
		}
		slices.Sort(keys)
		logger.Info("Image mapping replaced", "keys", keys)

		b, err := json.Marshal(apitypes.MappingResponse{Keys: keys})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
