package api

import "time"

// ServerConfig configures the control API of the listen command.
type ServerConfig struct {
	Addr              string        `help:"API server listen address (empty disables the API)" default:":3243" env:"RCRX_API_ADDR"`
	RequireAuth       bool          `help:"Require the key file handshake from clients" default:"true" negatable:"" env:"RCRX_API_REQUIRE_AUTH"`
	ConnectionTimeout time.Duration `help:"Time a client has to send its request" default:"5s" env:"RCRX_API_CONNECTION_TIMEOUT"`
}
