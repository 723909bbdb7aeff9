package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcbrc/rcrx/internal/log"
	"github.com/mcbrc/rcrx/protocol"
	"github.com/mcbrc/rcrx/radio"
	"github.com/mcbrc/rcrx/transmitter"
)

// Transmit runs a simulated controller whose stick circles at a fixed
// strength while the given buttons are held.
type Transmit struct {
	Radio    RadioConfig   `embed:"" prefix:"radio."`
	Keys     []string      `help:"Button keys in bit order" default:"A,B" env:"RCRX_TRANSMIT_KEYS"`
	Press    []string      `help:"Keys held down in every state packet" env:"RCRX_TRANSMIT_PRESS"`
	Interval time.Duration `help:"Time between state packets" default:"100ms" env:"RCRX_TRANSMIT_INTERVAL"`
	Strength int           `help:"Stick strength (0-127)" default:"60" env:"RCRX_TRANSMIT_STRENGTH"`
	Spin     int           `help:"Degrees (of 512) the stick turns per packet" default:"8" env:"RCRX_TRANSMIT_SPIN"`
}

// Run is called by Kong when the transmit command is executed.
func (c *Transmit) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.StartTransmit(ctx, logger, rawLogger)
}

func (c *Transmit) StartTransmit(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rad := c.Radio.open(logger, rawLogger)
	defer rad.Close()

	tx, err := transmitter.New(rad, c.Keys, logger)
	if err != nil {
		return err
	}
	tx.Start()
	if err := rad.Configure(c.Radio.Group, c.Radio.Band); err != nil {
		return err
	}

	radioErrCh := make(chan error, 1)
	go func() {
		radioErrCh <- rad.Listen(ctx)
	}()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- tx.Run(ctx, c.Interval, c.stick())
	}()

	select {
	case err := <-runErrCh:
		cancel()
		<-radioErrCh
		return err
	case err := <-radioErrCh:
		cancel()
		<-runErrCh
		if errors.Is(err, radio.ErrClosed) {
			return nil
		}
		return err
	}
}

// stick returns a StateFunc that turns the stick by Spin every call.
func (c *Transmit) stick() transmitter.StateFunc {
	deg := 0
	return func() (protocol.JoyState, []string) {
		joy := protocol.JoyState{
			DirArrow: arrowFor(deg),
			Strength: c.Strength,
			Degrees:  deg,
		}
		deg = ((deg+c.Spin)%512 + 512) % 512
		return joy, c.Press
	}
}

// arrowFor maps a fine angle (0-511) to the nearest of eight arrows.
func arrowFor(deg int) int {
	return ((deg + 32) / 64) % 8
}
