package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/mcbrc/rcrx/feedback"
	"github.com/mcbrc/rcrx/internal/log"
	"github.com/mcbrc/rcrx/internal/server/api"
	"github.com/mcbrc/rcrx/internal/server/api/auth"
	"github.com/mcbrc/rcrx/internal/server/api/handler"
	"github.com/mcbrc/rcrx/pairing"
	"github.com/mcbrc/rcrx/radio"
	"github.com/mcbrc/rcrx/receiver"
)

// Version is reported by the ping endpoint.
var Version = "dev"

// Listen runs the receiver.
type Listen struct {
	Radio       RadioConfig      `embed:"" prefix:"radio."`
	Pairing     pairing.Config   `embed:"" prefix:"pairing."`
	ApiConfig   api.ServerConfig `embed:"" prefix:"api."`
	Display     string           `help:"Feedback display: auto, terminal, log or none" enum:"auto,terminal,log,none" default:"auto" env:"RCRX_DISPLAY"`
	ImageMap    string           `help:"YAML or TOML file mapping feedback keys to images; reloaded on change" type:"path" env:"RCRX_IMAGE_MAP"`
	PairOnStart bool             `help:"Open the pairing window at startup" env:"RCRX_PAIR_ON_START"`
}

// Run is called by Kong when the listen command is executed.
func (l *Listen) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return l.StartListen(ctx, logger, rawLogger)
}

type display interface {
	feedback.Sink
	Serve(ctx context.Context, pair func()) error
	Close()
}

func (l *Listen) openDisplay(logger *slog.Logger) (feedback.Sink, display, error) {
	mode := l.Display
	if mode == "auto" || mode == "" {
		mode = "log"
		if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
			mode = "terminal"
		}
	}
	switch mode {
	case "terminal":
		ts, err := feedback.NewTerminalSink()
		if err != nil {
			return nil, nil, err
		}
		return ts, ts, nil
	case "none":
		return feedback.NopSink{}, nil, nil
	default:
		return feedback.NewLogSink(logger), nil, nil
	}
}

func (l *Listen) StartListen(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink, disp, err := l.openDisplay(logger)
	if err != nil {
		return fmt.Errorf("open display: %w", err)
	}
	if disp != nil {
		defer disp.Close()
	}

	rad := l.Radio.open(logger, rawLogger)
	defer rad.Close()

	cfg := l.Pairing
	rx := receiver.New(rad, receiver.Options{Sink: sink, Pairing: &cfg, Logger: logger})
	defer rx.Close()
	if err := rx.Initialize(l.Radio.Group, l.Radio.Band); err != nil {
		return err
	}

	if l.ImageMap != "" {
		m, err := feedback.LoadMapping(l.ImageMap)
		if err != nil {
			return fmt.Errorf("image map: %w", err)
		}
		rx.SetImageMapping(m)
		if err := feedback.WatchMapping(ctx, l.ImageMap, logger, rx.SetImageMapping); err != nil {
			logger.Warn("Image map will not be reloaded", "path", l.ImageMap, "error", err)
		}
	}

	if l.ApiConfig.Addr != "" {
		apiSrv, err := l.startAPI(rx, logger)
		if err != nil {
			return err
		}
		defer apiSrv.Close()
	}

	radioErrCh := make(chan error, 1)
	go func() {
		radioErrCh <- rad.Listen(ctx)
	}()

	if l.PairOnStart {
		rx.BeginPairing()
	}

	displayErrCh := make(chan error, 1)
	if disp != nil {
		go func() {
			displayErrCh <- disp.Serve(ctx, rx.BeginPairing)
		}()
	}

	select {
	case <-ctx.Done():
		cancel()
		<-radioErrCh
		return nil
	case err := <-radioErrCh:
		if errors.Is(err, radio.ErrClosed) {
			return nil
		}
		return err
	case err := <-displayErrCh:
		cancel()
		<-radioErrCh
		if errors.Is(err, feedback.ErrQuit) {
			return nil
		}
		return err
	}
}

func (l *Listen) startAPI(rx *receiver.Receiver, logger *slog.Logger) (*api.Server, error) {
	var key []byte
	if l.ApiConfig.RequireAuth {
		pwd, err := loadOrCreateKey(logger)
		if err != nil {
			return nil, err
		}
		if key, err = auth.DeriveKey(pwd); err != nil {
			return nil, err
		}
	}

	apiSrv := api.New(l.ApiConfig, key, logger)
	r := apiSrv.Router()
	r.Register("ping", handler.Ping(Version))
	r.Register("pair", handler.Pair(rx))
	r.Register("state", handler.State(rx))
	r.Register("button/{key}", handler.Button(rx))
	r.Register("mapping", handler.Mapping(rx))
	r.RegisterStream("watch", handler.Watch(rx))

	if err := apiSrv.Start(); err != nil {
		logger.Error("failed to start API server", "error", err)
		return nil, err
	}
	return apiSrv, nil
}
