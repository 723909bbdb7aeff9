package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcbrc/rcrx/apiclient"
)

// ClientConfig addresses the control API of a running receiver.
type ClientConfig struct {
	Addr     string `help:"Receiver API address" default:"localhost:3243" env:"RCRX_CLIENT_ADDR"`
	Password string `help:"API password; defaults to the local key file" env:"RCRX_CLIENT_PASSWORD"`
}

func (c ClientConfig) client() *apiclient.Client {
	pwd := c.Password
	if pwd == "" {
		pwd = readKeyFile()
	}
	return apiclient.NewWithPassword(c.Addr, pwd)
}

// Pair asks a running receiver to open its pairing window.
type Pair struct {
	ClientConfig `embed:""`
}

func (p *Pair) Run(logger *slog.Logger) error {
	resp, err := p.client().Pair()
	if err != nil {
		return err
	}
	logger.Info("Pairing window open", "remainingMs", resp.Pairing.RemainingMs)
	return nil
}

// Status prints the receiver state as JSON, once or on every update.
type Status struct {
	ClientConfig `embed:""`
	Watch        bool `help:"Keep printing a line on every update" short:"w"`
}

func (s *Status) Run(logger *slog.Logger) error {
	return s.print(os.Stdout)
}

func (s *Status) print(w io.Writer) error {
	enc := json.NewEncoder(w)
	c := s.client()
	if !s.Watch {
		st, err := c.State()
		if err != nil {
			return err
		}
		return enc.Encode(st)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	stream, err := c.Watch(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()
	states, errs := stream.StartReading(ctx, 8)
	for st := range states {
		if err := enc.Encode(st); err != nil {
			return err
		}
	}
	if err := <-errs; err != nil && ctx.Err() == nil && err != io.EOF {
		return err
	}
	return nil
}
