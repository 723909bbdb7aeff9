// Package config holds the root command line of rcrx.
package config

import (
	"github.com/mcbrc/rcrx/internal/cmd"
	"github.com/mcbrc/rcrx/internal/log"
)

type CLI struct {
	Log    log.Config `embed:"" prefix:"log."`
	Config string     `help:"Path to a JSON, YAML or TOML config file" type:"path" env:"RCRX_CONFIG"`

	Listen   cmd.Listen        `cmd:"" help:"Run the receiver"`
	Transmit cmd.Transmit      `cmd:"" help:"Run a simulated controller"`
	Pair     cmd.Pair          `cmd:"" help:"Open the pairing window of a running receiver"`
	Status   cmd.Status        `cmd:"" help:"Print the state of a running receiver"`
	Cfg      cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
}
