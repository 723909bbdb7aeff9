// Package transmitter is the controller side of the link. It answers
// pairing probes, announces its button layout once paired and streams
// joystick state.
package transmitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcbrc/rcrx/protocol"
)

// Transport is implemented by *radio.Radio.
type Transport interface {
	Configure(group, band uint8) error
	SendNumber(n uint32) error
	SendValue(name string, value uint32) error
	SendBuffer(buf []byte) error
	OnReceivedValue(fn func(name string, value uint32))
	ReceivedSerial() uint32
	Serial() uint32
}

// StateFunc samples the controller.
type StateFunc func() (joy protocol.JoyState, pressed []string)

type Transmitter struct {
	tr     Transport
	keys   []string
	desc   []byte
	logger *slog.Logger

	mu       sync.Mutex
	paired   bool
	receiver uint32
}

func New(tr Transport, keys []string, logger *slog.Logger) (*Transmitter, error) {
	desc, err := protocol.EncodeButtonKeys(keys)
	if err != nil {
		return nil, fmt.Errorf("button layout: %w", err)
	}
	if len(keys) > protocol.MaxButtons {
		return nil, fmt.Errorf("button layout: %d buttons, state packets carry at most %d", len(keys), protocol.MaxButtons)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transmitter{tr: tr, keys: append([]string(nil), keys...), desc: desc, logger: logger}, nil
}

// Start registers the pairing handler on the transport.
func (t *Transmitter) Start() {
	t.tr.OnReceivedValue(t.handleValue)
}

func (t *Transmitter) handleValue(name string, value uint32) {
	if name != protocol.NamePairing {
		return
	}
	origin := t.tr.ReceivedSerial()

	switch value {
	case protocol.PairingProbe:
		t.mu.Lock()
		if t.paired && t.receiver == origin {
			t.paired = false
		}
		t.mu.Unlock()
		if err := t.Announce(); err != nil {
			t.logger.Warn("Failed to announce serial", "error", err)
		}
	case protocol.PairingAck:
		t.mu.Lock()
		fresh := !t.paired || t.receiver != origin
		t.paired = true
		t.receiver = origin
		t.mu.Unlock()
		if !fresh {
			return
		}
		t.logger.Info("Paired with receiver", "receiver", origin)
		if err := t.SendButtonConfig(); err != nil {
			t.logger.Warn("Failed to send button config", "error", err)
		}
	}
}

// Announce sends this transmitter's serial as an identity packet.
func (t *Transmitter) Announce() error {
	return t.tr.SendValue(protocol.NameSerial, t.tr.Serial())
}

func (t *Transmitter) SendButtonConfig() error {
	return t.tr.SendBuffer(t.desc)
}

func (t *Transmitter) SendState(joy protocol.JoyState, pressed ...string) error {
	return t.tr.SendNumber(protocol.EncodeState(joy, t.Mask(pressed...)))
}

// Mask builds the button bitmask for the given pressed keys. Unknown keys
// are ignored.
func (t *Transmitter) Mask(pressed ...string) uint32 {
	var mask uint32
	for _, p := range pressed {
		for i, k := range t.keys {
			if k == p {
				mask |= 1 << i
				break
			}
		}
	}
	return mask
}

// Paired returns the serial of the receiver that acknowledged us.
func (t *Transmitter) Paired() (uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.receiver, t.paired
}

// Run announces until paired, then sends a state packet every interval,
// until ctx is done.
func (t *Transmitter) Run(ctx context.Context, interval time.Duration, state StateFunc) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		var err error
		if _, ok := t.Paired(); ok {
			joy, pressed := state()
			err = t.SendState(joy, pressed...)
		} else {
			err = t.Announce()
		}
		if err != nil {
			t.logger.Warn("Transmit failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
