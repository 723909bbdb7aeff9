package api_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcbrc/rcrx/apiclient"
	"github.com/mcbrc/rcrx/internal/server/api"
	"github.com/mcbrc/rcrx/internal/server/api/auth"
	th "github.com/mcbrc/rcrx/internal/testing"
)

func echo(req *api.Request, res *api.Response, logger *slog.Logger) error {
	res.JSON = fmt.Sprintf(`{"params":%q,"payload":%q}`, fmt.Sprint(req.Params), req.Payload)
	return nil
}

func startServer(t *testing.T, cfg api.ServerConfig, key []byte, register func(r *api.Router)) *api.Server {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	srv := api.New(cfg, key, slog.New(slog.NewTextHandler(io.Discard, nil)))
	register(srv.Router())
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)
	return srv
}

func TestAPIServer_Dispatch(t *testing.T) {
	srv := startServer(t, api.ServerConfig{}, nil, func(r *api.Router) {
		r.Register("echo/{key}", echo)
		r.Register("fail", func(*api.Request, *api.Response, *slog.Logger) error { return api.ErrConflict("busy") })
		r.Register("boom", func(*api.Request, *api.Response, *slog.Logger) error { return errors.New("boom") })
	})

	tests := []struct {
		cmd  string
		want string
	}{
		{cmd: "ECHO/Ab payload with spaces", want: `{"params":"map[key:Ab]","payload":"payload with spaces"}`},
		{cmd: "fail", want: `{"status":409,"title":"Conflict","detail":"busy"}`},
		{cmd: "boom", want: `{"status":500,"title":"Internal Server Error","detail":"boom"}`},
		{cmd: "nope", want: `{"status":404,"title":"Not Found","detail":"unknown path: nope"}`},
		{cmd: "", want: `{"status":400,"title":"Bad Request","detail":"empty request"}`},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			assert.Equal(t, tt.want, th.ExecCmd(t, srv.Addr(), tt.cmd))
		})
	}
}

func TestAPIServer_Auth(t *testing.T) {
	key, err := auth.DeriveKey("secret")
	require.NoError(t, err)

	tests := []struct {
		name        string
		key         []byte
		requireAuth bool
		password    string
		wantErr     string
		wantLine    string
	}{
		{name: "authenticated", key: key, requireAuth: true, password: "secret", wantLine: `{"params":"map[key:K]","payload":"x"}`},
		{name: "wrong password", key: key, requireAuth: true, password: "nope", wantErr: "401 Unauthorized: invalid password"},
		{name: "plain rejected", key: key, requireAuth: true, wantLine: `{"status":401,"title":"Unauthorized","detail":"authentication required"}`},
		{name: "plain allowed", key: key, wantLine: `{"params":"map[key:K]","payload":"x"}`},
		{name: "auth not configured", password: "secret", wantErr: "401 Unauthorized: authentication not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startServer(t, api.ServerConfig{RequireAuth: tt.requireAuth}, tt.key, func(r *api.Router) {
				r.Register("echo/{key}", echo)
			})
			out, err := apiclient.NewTransportWithPassword(srv.Addr(), tt.password).Do("echo/{key}", "x", map[string]string{"key": "K"})
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLine, out)
		})
	}
}

func TestAPIServer_StreamHandlerOwnsConn(t *testing.T) {
	started := make(chan struct{})
	srv := startServer(t, api.ServerConfig{}, nil, func(r *api.Router) {
		r.RegisterStream("stream/{id}", func(ctx context.Context, conn net.Conn, params map[string]string, logger *slog.Logger) error {
			_, _ = fmt.Fprintf(conn, "hello %s\n", params["id"])
			close(started)
			<-ctx.Done()
			return errors.New("stopped")
		})
	})

	c, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer c.Close()
	_, err = fmt.Fprint(c, "stream/7\x00")
	require.NoError(t, err)

	buf := make([]byte, len("hello 7\n"))
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(c, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello 7\n", string(buf))
	<-started

	srv.Close()
	_, readErr := c.Read(buf[:1])
	assert.Error(t, readErr)
}

func TestAPIServer_ConnectionTimeout(t *testing.T) {
	srv := startServer(t, api.ServerConfig{ConnectionTimeout: 50 * time.Millisecond}, nil, func(r *api.Router) {
		r.Register("echo/{key}", echo)
	})

	c, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer c.Close()
	_, err = fmt.Fprint(c, "echo/slow")
	require.NoError(t, err)

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadAll(c)
	assert.NoError(t, err)
}
