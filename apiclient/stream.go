package apiclient

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/mcbrc/rcrx/apitypes"
)

// StateStream receives a state line after every packet the receiver accepts.
type StateStream struct {
	conn net.Conn
	r    *bufio.Reader

	closeOnce sync.Once
}

// Watch opens the state stream. The first state arrives immediately.
func (c *Client) Watch(ctx context.Context) (*StateStream, error) {
	conn, err := c.transport.Open(ctx, "watch", nil, nil)
	if err != nil {
		return nil, err
	}
	return &StateStream{conn: conn, r: bufio.NewReader(conn)}, nil
}

// Next blocks for the next state.
func (s *StateStream) Next() (*apitypes.StateResponse, error) {
	line, err := s.r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	st, err := parse[apitypes.StateResponse](string(line))
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	return st, nil
}

// StartReading delivers states on a channel until ctx is done or the
// stream ends. The error channel receives the terminal error, if any.
func (s *StateStream) StartReading(ctx context.Context, chSize int) (<-chan *apitypes.StateResponse, <-chan error) {
	stateCh := make(chan *apitypes.StateResponse, chSize)
	errCh := make(chan error, 1)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(done)
		defer close(stateCh)
		defer close(errCh)
		for {
			st, err := s.Next()
			if err != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				}
				errCh <- err
				return
			}
			select {
			case stateCh <- st:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()
	return stateCh, errCh
}

// Close ends the stream.
func (s *StateStream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}
