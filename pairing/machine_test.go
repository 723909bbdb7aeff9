package pairing_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcbrc/rcrx/feedback"
	"github.com/mcbrc/rcrx/pairing"
	"github.com/mcbrc/rcrx/protocol"
)

type sentValue struct {
	name  string
	value uint32
}

type recorder struct {
	mu   sync.Mutex
	sent []sentValue
	inds []feedback.Indication
}

func (r *recorder) SendValue(name string, value uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentValue{name, value})
	return nil
}

func (r *recorder) Indicate(ind feedback.Indication) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inds = append(r.inds, ind)
}

func (r *recorder) count(name string, value uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sent {
		if s.name == name && s.value == value {
			n++
		}
	}
	return n
}

func (r *recorder) indicated(ind feedback.Indication) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, i := range r.inds {
		if i == ind {
			n++
		}
	}
	return n
}

func (r *recorder) probes() int { return r.count(protocol.NamePairing, protocol.PairingProbe) }
func (r *recorder) acks() int   { return r.count(protocol.NamePairing, protocol.PairingAck) }

func newMachine(t *testing.T, cfg pairing.Config) (*pairing.Machine, *pairing.ManualClock, *recorder) {
	t.Helper()
	clock := &pairing.ManualClock{}
	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := pairing.New(cfg, clock, rec, rec, logger)
	t.Cleanup(m.Close)
	return m, clock, rec
}

func slowProbes() pairing.Config {
	cfg := pairing.DefaultConfig()
	cfg.ProbeInterval = time.Hour
	return cfg
}

func TestPairingWindowBoundary(t *testing.T) {
	tests := []struct {
		at       int64
		expected pairing.State
	}{
		{at: 0, expected: pairing.StatePaired},
		{at: 9999, expected: pairing.StatePaired},
		{at: 10000, expected: pairing.StatePaired},
		{at: 10001, expected: pairing.StateUnpaired},
	}

	for _, tt := range tests {
		t.Run(time.Duration(tt.at*int64(time.Millisecond)).String(), func(t *testing.T) {
			m, clock, _ := newMachine(t, slowProbes())
			m.BeginPairing(context.Background())

			clock.Set(tt.at)
			m.HandleIdentity(protocol.NameSerial, 42, 42)
			assert.Equal(t, tt.expected, m.State())

			serial, ok := m.PairedSerial()
			assert.Equal(t, tt.expected == pairing.StatePaired, ok)
			if ok {
				assert.Equal(t, uint32(42), serial)
			}
		})
	}
}

func TestNeverPairedGate(t *testing.T) {
	m, _, rec := newMachine(t, slowProbes())

	assert.Equal(t, pairing.StateUnpaired, m.State())
	assert.Equal(t, pairing.OutcomePaired, m.HandleIdentity(protocol.NameSerial, 7, 7))
	assert.True(t, m.Accepts(7))
	assert.Equal(t, 1, rec.acks())
	assert.Equal(t, 1, rec.indicated(feedback.IndicationPairedSuccess))
	assert.Equal(t, 0, rec.indicated(feedback.IndicationConnected))
}

func TestNeverPairedGateDisabled(t *testing.T) {
	cfg := slowProbes()
	cfg.AcceptWhenNeverPaired = false
	m, _, rec := newMachine(t, cfg)

	assert.Equal(t, pairing.OutcomeIgnored, m.HandleIdentity(protocol.NameSerial, 7, 7))
	assert.Equal(t, pairing.StateUnpaired, m.State())
	assert.Equal(t, 0, rec.acks())
}

func TestExpiredWindowClosesGate(t *testing.T) {
	m, clock, rec := newMachine(t, slowProbes())
	m.BeginPairing(context.Background())
	clock.Set(10001)

	assert.Equal(t, pairing.OutcomeIgnored, m.HandleIdentity(protocol.NameSerial, 9, 9))
	assert.Equal(t, pairing.StateUnpaired, m.State())
	assert.False(t, m.Accepts(9))
	assert.Equal(t, 0, rec.acks())
	assert.False(t, m.Tick())
}

func TestAnnouncementMustMatchOrigin(t *testing.T) {
	m, _, _ := newMachine(t, slowProbes())
	m.BeginPairing(context.Background())

	assert.Equal(t, pairing.OutcomeIgnored, m.HandleIdentity(protocol.NameSerial, 5, 6))
	assert.Equal(t, pairing.StateWindowOpen, m.State())
	assert.Equal(t, pairing.OutcomeIgnored, m.HandleIdentity(protocol.NamePairing, 6, 6))
	assert.Equal(t, pairing.StateWindowOpen, m.State())
}

func TestKeepAliveAndForeignOrigins(t *testing.T) {
	m, _, rec := newMachine(t, slowProbes())
	m.BeginPairing(context.Background())
	require.Equal(t, pairing.OutcomePaired, m.HandleIdentity(protocol.NameSerial, 100, 100))

	assert.Equal(t, pairing.OutcomeKeepAlive, m.HandleIdentity(protocol.NameSerial, 12345, 100))
	assert.Equal(t, 2, rec.acks())
	assert.Equal(t, 1, rec.indicated(feedback.IndicationConnected))

	assert.Equal(t, pairing.OutcomeIgnored, m.HandleIdentity(protocol.NameSerial, 200, 200))
	assert.Equal(t, pairing.OutcomeIgnored, m.HandleIdentity(protocol.NameSerial, 100, 200))
	assert.True(t, m.Accepts(100))
	assert.False(t, m.Accepts(200))
	assert.Equal(t, 2, rec.acks())
}

func TestBeginPairingForgetsPartner(t *testing.T) {
	m, _, _ := newMachine(t, slowProbes())
	require.Equal(t, pairing.OutcomePaired, m.HandleIdentity(protocol.NameSerial, 100, 100))

	m.BeginPairing(context.Background())
	assert.False(t, m.Accepts(100))
	_, ok := m.PairedSerial()
	assert.False(t, ok)
	assert.Equal(t, pairing.StateWindowOpen, m.State())

	require.Equal(t, pairing.OutcomePaired, m.HandleIdentity(protocol.NameSerial, 200, 200))
	assert.True(t, m.Accepts(200))
	assert.False(t, m.Accepts(100))
}

func TestProbeLoopStopsWhenPaired(t *testing.T) {
	cfg := pairing.DefaultConfig()
	cfg.ProbeInterval = 5 * time.Millisecond
	m, _, rec := newMachine(t, cfg)

	m.BeginPairing(context.Background())
	assert.Eventually(t, func() bool { return rec.probes() >= 3 }, 2*time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, rec.indicated(feedback.IndicationSearching), 3)

	require.Equal(t, pairing.OutcomePaired, m.HandleIdentity(protocol.NameSerial, 1, 1))
	time.Sleep(20 * time.Millisecond)
	settled := rec.probes()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, rec.probes())
}

func TestProbeLoopStopsWhenWindowExpires(t *testing.T) {
	cfg := pairing.DefaultConfig()
	cfg.ProbeInterval = 5 * time.Millisecond
	m, clock, rec := newMachine(t, cfg)

	m.BeginPairing(context.Background())
	assert.Eventually(t, func() bool { return rec.probes() >= 1 }, 2*time.Second, time.Millisecond)

	clock.Advance(cfg.Window + time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	settled := rec.probes()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, rec.probes())
	assert.Equal(t, pairing.StateUnpaired, m.State())
}

func TestProbeLoopStopsWithContext(t *testing.T) {
	cfg := pairing.DefaultConfig()
	cfg.ProbeInterval = 5 * time.Millisecond
	m, _, rec := newMachine(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	m.BeginPairing(ctx)
	assert.Eventually(t, func() bool { return rec.probes() >= 1 }, 2*time.Second, time.Millisecond)
	cancel()

	time.Sleep(20 * time.Millisecond)
	settled := rec.probes()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, rec.probes())
}

func TestTick(t *testing.T) {
	m, clock, rec := newMachine(t, slowProbes())
	assert.False(t, m.Tick())
	assert.Equal(t, 0, rec.probes())

	m.BeginPairing(context.Background())
	assert.Eventually(t, func() bool { return rec.probes() == 1 }, time.Second, time.Millisecond)

	assert.True(t, m.Tick())
	assert.Equal(t, 2, rec.probes())

	clock.Set(20000)
	assert.False(t, m.Tick())
	assert.Equal(t, 2, rec.probes())
}

func TestStatus(t *testing.T) {
	m, clock, _ := newMachine(t, slowProbes())
	st := m.Status()
	assert.Equal(t, pairing.StateUnpaired, st.State)
	assert.True(t, st.NeverPaired)

	clock.Set(1000)
	m.BeginPairing(context.Background())
	clock.Set(4000)
	st = m.Status()
	assert.Equal(t, pairing.StateWindowOpen, st.State)
	assert.False(t, st.NeverPaired)
	assert.Equal(t, int64(1000), st.WindowStarted)
	assert.Equal(t, int64(7000), st.RemainingMS)

	m.HandleIdentity(protocol.NameSerial, 3, 3)
	st = m.Status()
	assert.True(t, st.Paired)
	assert.Equal(t, uint32(3), st.Serial)
	assert.Equal(t, "paired", st.State.String())
}

// answeringSender makes a transmitter answer every probe before the probe
// send returns.
type answeringSender struct {
	m      *pairing.Machine
	serial uint32
	rec    *recorder
}

func (s *answeringSender) SendValue(name string, value uint32) error {
	_ = s.rec.SendValue(name, value)
	if name == protocol.NamePairing && value == protocol.PairingProbe {
		s.m.HandleIdentity(protocol.NameSerial, s.serial, s.serial)
	}
	return nil
}

func TestPairingDuringProbeEndsSearch(t *testing.T) {
	rec := &recorder{}
	sender := &answeringSender{serial: 100, rec: rec}
	m := pairing.New(slowProbes(), &pairing.ManualClock{}, sender, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sender.m = m
	t.Cleanup(m.Close)

	m.BeginPairing(context.Background())
	require.Eventually(t, func() bool {
		return rec.indicated(feedback.IndicationPairedSuccess) == 1
	}, time.Second, time.Millisecond)

	assert.Equal(t, pairing.StatePaired, m.State())
	assert.False(t, m.Tick())
	assert.Equal(t, 1, rec.probes())
	assert.Equal(t, 1, rec.acks())
	assert.Zero(t, rec.indicated(feedback.IndicationSearching))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []feedback.Indication{feedback.IndicationPairedSuccess}, rec.inds)
}
