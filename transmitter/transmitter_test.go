package transmitter_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcbrc/rcrx/pairing"
	"github.com/mcbrc/rcrx/protocol"
	"github.com/mcbrc/rcrx/radio"
	"github.com/mcbrc/rcrx/radio/stub"
	"github.com/mcbrc/rcrx/receiver"
	"github.com/mcbrc/rcrx/transmitter"
)

const (
	group = 10
	band  = 66
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func station(t *testing.T, ctx context.Context, air *stub.Air, serial uint32) *radio.Radio {
	t.Helper()
	r := radio.New(air.NewDriver(), serial, quiet, nil)
	require.NoError(t, r.Configure(group, band))
	lctx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Listen(lctx)
	}()
	t.Cleanup(func() {
		stop()
		<-done
		_ = r.Close()
	})
	return r
}

func newReceiver(t *testing.T, ctx context.Context, air *stub.Air) *receiver.Receiver {
	t.Helper()
	cfg := pairing.DefaultConfig()
	cfg.ProbeInterval = 20 * time.Millisecond
	cfg.AcceptWhenNeverPaired = false
	rx := receiver.New(station(t, ctx, air, 500), receiver.Options{Pairing: &cfg, Logger: quiet})
	require.NoError(t, rx.Initialize(group, band))
	t.Cleanup(rx.Close)
	return rx
}

func newTransmitter(t *testing.T, ctx context.Context, air *stub.Air, serial uint32, keys ...string) *transmitter.Transmitter {
	t.Helper()
	tx, err := transmitter.New(station(t, ctx, air, serial), keys, quiet)
	require.NoError(t, err)
	tx.Start()
	return tx
}

func TestPairAndStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	air := stub.NewAir()

	rx := newReceiver(t, ctx, air)
	tx := newTransmitter(t, ctx, air, 100, "A", "B", "P")

	rx.BeginPairing()
	require.Eventually(t, func() bool {
		_, ok := tx.Paired()
		return ok && len(rx.Snapshot().Buttons) == 3
	}, 3*time.Second, 5*time.Millisecond)

	serial, ok := rx.Pairing().PairedSerial()
	require.True(t, ok)
	assert.Equal(t, uint32(100), serial)
	receiverSerial, _ := tx.Paired()
	assert.Equal(t, uint32(500), receiverSerial)

	require.NoError(t, tx.SendState(protocol.JoyState{DirArrow: 2, Strength: 50, Degrees: 90}, "B"))
	require.Eventually(t, func() bool { return rx.IsButtonPressed("B") }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, 50, rx.Strength())
	assert.Equal(t, "B", rx.Snapshot().Key)
}

func TestIntruderIsIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	air := stub.NewAir()

	rx := newReceiver(t, ctx, air)
	tx := newTransmitter(t, ctx, air, 100, "A")

	rx.BeginPairing()
	require.Eventually(t, func() bool {
		_, ok := tx.Paired()
		return ok
	}, 3*time.Second, 5*time.Millisecond)

	intruder := newTransmitter(t, ctx, air, 200, "X", "Y")
	require.NoError(t, intruder.Announce())
	require.NoError(t, intruder.SendButtonConfig())
	require.NoError(t, intruder.SendState(protocol.JoyState{Strength: 90}, "X"))

	require.NoError(t, tx.SendState(protocol.JoyState{Strength: 30}, "A"))
	require.Eventually(t, func() bool { return rx.IsButtonPressed("A") }, 3*time.Second, 5*time.Millisecond)

	assert.Equal(t, 30, rx.Strength())
	assert.False(t, rx.IsButtonPressed("X"))
	serial, _ := rx.Pairing().PairedSerial()
	assert.Equal(t, uint32(100), serial)
	_, intruderPaired := intruder.Paired()
	assert.False(t, intruderPaired)
}

func TestRunAnnouncesUntilPaired(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	air := stub.NewAir()

	rx := newReceiver(t, ctx, air)
	tx := newTransmitter(t, ctx, air, 300, "A")
	go func() {
		_ = tx.Run(ctx, 10*time.Millisecond, func() (protocol.JoyState, []string) {
			return protocol.JoyState{DirArrow: 4, Strength: 60, Degrees: 180}, nil
		})
	}()

	rx.BeginPairing()
	require.Eventually(t, func() bool { return rx.Strength() == 60 }, 3*time.Second, 5*time.Millisecond)
	assert.Equal(t, 4, rx.DirectionArrow())
	assert.Equal(t, 180, rx.DirectionDegrees())
}

func TestMask(t *testing.T) {
	tx, err := transmitter.New(radio.New(stub.New(), 1, quiet, nil), []string{"A", "B", "C"}, quiet)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b101), tx.Mask("A", "C", "Z"))
	assert.Equal(t, uint32(0), tx.Mask())
}

func TestNewRejectsLayouts(t *testing.T) {
	_, err := transmitter.New(nil, []string{"AB"}, quiet)
	assert.ErrorIs(t, err, protocol.ErrInvalidKey)

	keys := make([]string, protocol.MaxButtons+1)
	for i := range keys {
		keys[i] = string(rune('A' + i))
	}
	_, err = transmitter.New(nil, keys, quiet)
	assert.Error(t, err)
}
