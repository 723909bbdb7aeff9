package cmd

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"

	"github.com/mcbrc/rcrx/internal/log"
	"github.com/mcbrc/rcrx/radio"
	"github.com/mcbrc/rcrx/radio/udp"
)

// RadioConfig selects the simulated radio link shared by listen and transmit.
type RadioConfig struct {
	Group  uint8      `help:"Radio group shared by transmitter and receiver" default:"1" env:"RCRX_RADIO_GROUP"`
	Band   uint8      `help:"Frequency band (0-83)" default:"7" env:"RCRX_RADIO_BAND"`
	Serial uint32     `help:"Station serial; 0 picks a random one" default:"0" env:"RCRX_RADIO_SERIAL"`
	UDP    udp.Config `embed:"" prefix:"udp."`
}

func (c RadioConfig) serial() uint32 {
	if c.Serial != 0 {
		return c.Serial
	}
	var b [4]byte
	for {
		_, _ = rand.Read(b[:])
		if s := binary.LittleEndian.Uint32(b[:]); s != 0 {
			return s
		}
	}
}

func (c RadioConfig) open(logger *slog.Logger, rawLogger log.RawLogger) *radio.Radio {
	serial := c.serial()
	logger.Info("Radio station", "serial", serial, "group", c.Group, "band", c.Band)
	return radio.New(udp.New(c.UDP, logger), serial, logger, rawLogger)
}
