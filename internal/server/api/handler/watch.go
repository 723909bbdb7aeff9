package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"

	"github.com/mcbrc/rcrx/internal/server/api"
	"github.com/mcbrc/rcrx/receiver"
)

// Watch streams one state JSON line now and one after every accepted
// packet, until the client hangs up or the server stops.
func Watch(rx *receiver.Receiver) api.StreamHandlerFunc {
	return func(ctx context.Context, conn net.Conn, params map[string]string, logger *slog.Logger) error {
		updates, unsubscribe := rx.Subscribe()
		defer unsubscribe()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			// Clients send nothing after the request; any read result means hang up.
			_, _ = io.Copy(io.Discard, conn)
			cancel()
		}()

		enc := json.NewEncoder(conn)
		if err := enc.Encode(stateResponse(rx.Snapshot())); err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case snap, ok := <-updates:
				if !ok {
					return nil
				}
				if err := enc.Encode(stateResponse(snap)); err != nil {
					logger.Debug("watch client gone", "error", err)
					return nil
				}
			}
		}
	}
}
