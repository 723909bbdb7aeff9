package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcbrc/rcrx/apitypes"
)

// Client provides a high-level interface to the rcrx control API, handling
// request formatting, response parsing, and error handling.
type Client struct{ transport *Transport }

// New constructs a high-level API client using the internal low-level Transport.
// The addr parameter specifies the TCP address (host:port) of the receiver's API server.
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with the given password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

// NewWithConfig constructs a client with custom transport timeouts.
func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client using a custom Transport implementation.
// This is primarily useful for testing or when advanced transport configuration is needed.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

// Ping returns the version and identity of the receiver.
func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

// PingCtx is the context-aware version of Ping.
func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	const path = "ping"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PingResponse](raw)
}

// Pair makes the receiver forget its transmitter and open the pairing window.
func (c *Client) Pair() (*apitypes.PairResponse, error) {
	return c.PairCtx(context.Background())
}

func (c *Client) PairCtx(ctx context.Context) (*apitypes.PairResponse, error) {
	const path = "pair"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.PairResponse](raw)
}

// State returns the last known controller state.
func (c *Client) State() (*apitypes.StateResponse, error) {
	return c.StateCtx(context.Background())
}

func (c *Client) StateCtx(ctx context.Context) (*apitypes.StateResponse, error) {
	const path = "state"
	raw, err := c.transport.DoCtx(ctx, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.StateResponse](raw)
}

// Button reports whether the button with the given key is pressed.
// Keys are case-sensitive.
func (c *Client) Button(key string) (*apitypes.ButtonResponse, error) {
	return c.ButtonCtx(context.Background(), key)
}

func (c *Client) ButtonCtx(ctx context.Context, key string) (*apitypes.ButtonResponse, error) {
	const path = "button/{key}"
	raw, err := c.transport.DoCtx(ctx, path, nil, map[string]string{"key": key})
	if err != nil {
		return nil, err
	}
	return parse[apitypes.ButtonResponse](raw)
}

// SetMapping replaces the receiver's key to image table. A nil or empty
// table restores the built-in images.
func (c *Client) SetMapping(images map[string]string) (*apitypes.MappingResponse, error) {
	return c.SetMappingCtx(context.Background(), images)
}

func (c *Client) SetMappingCtx(ctx context.Context, images map[string]string) (*apitypes.MappingResponse, error) {
	const path = "mapping"
	var payload any
	if len(images) > 0 {
		payload = apitypes.MappingRequest{Images: images}
	}
	raw, err := c.transport.DoCtx(ctx, path, payload, nil)
	if err != nil {
		return nil, err
	}
	return parse[apitypes.MappingResponse](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
