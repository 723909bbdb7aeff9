package testing

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mcbrc/rcrx/pairing"
	"github.com/mcbrc/rcrx/protocol"
	"github.com/mcbrc/rcrx/radio"
	"github.com/mcbrc/rcrx/radio/stub"
	"github.com/mcbrc/rcrx/receiver"
)

const (
	RigGroup      = 10
	RigBand       = 7
	RigController = 100
	rigReceiver   = 1
)

// Rig is a receiver on a stub radio plus a controller radio whose frames
// are dispatched into it synchronously.
type Rig struct {
	Receiver *receiver.Receiver
	Clock    *pairing.ManualClock

	rx       *radio.Radio
	tx       *radio.Radio
	txDriver *stub.Driver
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func NewRig(t *testing.T) *Rig {
	t.Helper()
	logger := discardLogger()
	g := &Rig{Clock: &pairing.ManualClock{}, txDriver: stub.New()}
	g.rx = radio.New(stub.New(), rigReceiver, logger, nil)
	g.tx = radio.New(g.txDriver, RigController, logger, nil)

	cfg := pairing.DefaultConfig()
	cfg.ProbeInterval = time.Hour
	g.Receiver = receiver.New(g.rx, receiver.Options{Clock: g.Clock, Pairing: &cfg, Logger: logger})
	if err := g.Receiver.Initialize(RigGroup, RigBand); err != nil {
		t.Fatalf("initialize receiver: %v", err)
	}
	if err := g.tx.Configure(RigGroup, RigBand); err != nil {
		t.Fatalf("configure controller: %v", err)
	}
	t.Cleanup(func() {
		g.Receiver.Close()
		_ = g.rx.Close()
		_ = g.tx.Close()
	})
	return g
}

// deliver runs send on the controller radio and dispatches the frame it
// produced into the receiver.
func (g *Rig) deliver(t *testing.T, send func(tx *radio.Radio) error) {
	t.Helper()
	if err := send(g.tx); err != nil {
		t.Fatalf("controller send: %v", err)
	}
	sent := g.txDriver.Sent()
	g.rx.Dispatch(sent[len(sent)-1])
}

// Pair announces the controller serial and its button layout.
func (g *Rig) Pair(t *testing.T, keys ...string) {
	t.Helper()
	g.deliver(t, func(tx *radio.Radio) error { return tx.SendValue(protocol.NameSerial, RigController) })
	desc, err := protocol.EncodeButtonKeys(keys)
	if err != nil {
		t.Fatalf("encode keys: %v", err)
	}
	g.deliver(t, func(tx *radio.Radio) error { return tx.SendBuffer(desc) })
}

// SendState sends one joystick/button state packet.
func (g *Rig) SendState(t *testing.T, joy protocol.JoyState, mask uint32) {
	t.Helper()
	g.deliver(t, func(tx *radio.Radio) error { return tx.SendNumber(protocol.EncodeState(joy, mask)) })
}
