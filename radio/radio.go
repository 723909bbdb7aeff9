// Package radio simulates the broadcast radio link between a transmitter
// and a receiver. Every frame carries the sender serial, a group id and a
// payload kind; a Driver moves encoded frames between processes.
package radio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcbrc/rcrx/internal/log"
)

// MaxBand is the highest frequency band.
const MaxBand = 83

const rxPollTimeout = 100 * time.Millisecond

// Driver moves raw frames. Frames sent on a band reach every other driver
// on the same band, best effort.
type Driver interface {
	Configure(band uint8) error
	Tx(data []byte) error
	Rx(timeout time.Duration) ([]byte, error)
	Close() error
}

// Radio frames and filters packets for one station.
type Radio struct {
	driver Driver
	serial uint32
	logger *slog.Logger
	raw    log.RawLogger

	mu         sync.Mutex
	group      uint8
	band       uint8
	configured bool
	onNumber   func(uint32)
	onValue    func(string, uint32)
	onBuffer   func([]byte)

	origin atomic.Uint32
}

func New(driver Driver, serial uint32, logger *slog.Logger, raw log.RawLogger) *Radio {
	if logger == nil {
		logger = slog.Default()
	}
	if raw == nil {
		raw = log.NewRaw(nil)
	}
	return &Radio{driver: driver, serial: serial, logger: logger, raw: raw}
}

// Serial is the serial stamped on every frame this radio sends.
func (r *Radio) Serial() uint32 { return r.serial }

// Configure selects the group and the frequency band (0..83).
func (r *Radio) Configure(group, band uint8) error {
	if band > MaxBand {
		return fmt.Errorf("%w: %d", ErrInvalidBand, band)
	}
	if err := r.driver.Configure(band); err != nil {
		return fmt.Errorf("configure band %d: %w", band, err)
	}
	r.mu.Lock()
	r.group = group
	r.band = band
	r.configured = true
	r.mu.Unlock()
	return nil
}

func (r *Radio) OnReceivedNumber(fn func(uint32)) {
	r.mu.Lock()
	r.onNumber = fn
	r.mu.Unlock()
}

func (r *Radio) OnReceivedValue(fn func(string, uint32)) {
	r.mu.Lock()
	r.onValue = fn
	r.mu.Unlock()
}

func (r *Radio) OnReceivedBuffer(fn func([]byte)) {
	r.mu.Lock()
	r.onBuffer = fn
	r.mu.Unlock()
}

// ReceivedSerial is the origin serial of the frame being dispatched.
func (r *Radio) ReceivedSerial() uint32 {
	return r.origin.Load()
}

func (r *Radio) SendNumber(n uint32) error {
	return r.send(KindNumber, numberPayload(n))
}

func (r *Radio) SendValue(name string, value uint32) error {
	p, err := valuePayload(name, value)
	if err != nil {
		return err
	}
	return r.send(KindValue, p)
}

func (r *Radio) SendBuffer(buf []byte) error {
	if len(buf) > MaxBufferLen {
		return fmt.Errorf("%w: buffer of %d bytes", ErrPayloadTooLarge, len(buf))
	}
	return r.send(KindBuffer, buf)
}

func (r *Radio) send(kind Kind, payload []byte) error {
	r.mu.Lock()
	group, configured := r.group, r.configured
	r.mu.Unlock()
	if !configured {
		return ErrNotConfigured
	}

	data, err := EncodeFrame(Frame{Group: group, Kind: kind, Serial: r.serial, Payload: payload})
	if err != nil {
		return err
	}
	r.raw.Log(false, data)
	return r.driver.Tx(data)
}

// Listen receives and dispatches frames until ctx is done or the driver
// is closed. Callbacks run on the calling goroutine, one at a time.
func (r *Radio) Listen(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		data, err := r.driver.Rx(rxPollTimeout)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				continue
			}
			if errors.Is(err, ErrClosed) && ctx.Err() != nil {
				return nil
			}
			return err
		}
		r.Dispatch(data)
	}
}

// Dispatch decodes one raw frame and hands it to the matching callback.
// Corrupt frames, frames of another group and this radio's own frames are
// dropped.
func (r *Radio) Dispatch(data []byte) {
	r.raw.Log(true, data)
	f, err := DecodeFrame(data)
	if err != nil {
		r.logger.Debug("Dropping frame", "reason", err)
		return
	}

	r.mu.Lock()
	group := r.group
	onNumber, onValue, onBuffer := r.onNumber, r.onValue, r.onBuffer
	r.mu.Unlock()

	if f.Group != group {
		r.logger.Log(context.Background(), log.LevelTrace, "Dropping frame of another group", "group", f.Group, "origin", f.Serial)
		return
	}
	if f.Serial == r.serial {
		return
	}
	r.origin.Store(f.Serial)

	switch f.Kind {
	case KindNumber:
		n, err := parseNumber(f.Payload)
		if err != nil {
			r.logger.Debug("Dropping frame", "origin", f.Serial, "reason", err)
			return
		}
		if onNumber != nil {
			onNumber(n)
		}
	case KindValue:
		name, v, err := parseValue(f.Payload)
		if err != nil {
			r.logger.Debug("Dropping frame", "origin", f.Serial, "reason", err)
			return
		}
		if onValue != nil {
			onValue(name, v)
		}
	case KindBuffer:
		if onBuffer != nil {
			onBuffer(f.Payload)
		}
	default:
		r.logger.Debug("Dropping frame", "origin", f.Serial, "reason", "unknown kind", "kind", f.Kind)
	}
}

func (r *Radio) Close() error {
	return r.driver.Close()
}
