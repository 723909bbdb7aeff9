// Package pairing implements the receiver side of the pairing handshake.
//
// A receiver starts Unpaired. BeginPairing opens a time limited window
// during which the receiver probes for transmitters; a transmitter whose
// announced serial matches the origin serial of its packet becomes the one
// paired partner, and from then on only its traffic is accepted.
package pairing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcbrc/rcrx/feedback"
	"github.com/mcbrc/rcrx/protocol"
)

// State is the pairing state of a receiver.
type State int

const (
	StateUnpaired State = iota
	StateWindowOpen
	StatePaired
)

func (s State) String() string {
	switch s {
	case StateUnpaired:
		return "unpaired"
	case StateWindowOpen:
		return "pairing"
	case StatePaired:
		return "paired"
	default:
		return "unknown"
	}
}

// Outcome reports what HandleIdentity did with an announcement.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomePaired
	OutcomeKeepAlive
)

func (o Outcome) String() string {
	switch o {
	case OutcomePaired:
		return "paired"
	case OutcomeKeepAlive:
		return "keep-alive"
	default:
		return "ignored"
	}
}

// Sender transmits named values. Implemented by the radio transport.
type Sender interface {
	SendValue(name string, value uint32) error
}

// Indicator receives pairing indications.
type Indicator interface {
	Indicate(ind feedback.Indication)
}

// Status is a point in time view of the machine.
type Status struct {
	State         State
	Serial        uint32
	Paired        bool
	NeverPaired   bool
	WindowStarted int64
	RemainingMS   int64
}

// Machine is safe for concurrent use. The probe loop and the packet
// handlers share its fields under mu.
type Machine struct {
	cfg       Config
	clock     Clock
	sender    Sender
	indicator Indicator
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	serial      uint32
	started     int64
	deadline    int64
	neverPaired bool
	gen         uint64
	stopProbe   context.CancelFunc
}

// New returns an unpaired machine. A nil clock means SystemClock.
func New(cfg Config, clock Clock, sender Sender, indicator Indicator, logger *slog.Logger) *Machine {
	if clock == nil {
		clock = NewSystemClock()
	}
	if indicator == nil {
		indicator = feedback.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		cfg:         cfg.withDefaults(),
		clock:       clock,
		sender:      sender,
		indicator:   indicator,
		logger:      logger,
		state:       StateUnpaired,
		neverPaired: true,
	}
}

// BeginPairing forgets the current partner, opens the pairing window and
// starts the probe loop. The loop ends when a transmitter pairs, the window
// expires or ctx is done. Calling it again restarts the window.
func (m *Machine) BeginPairing(ctx context.Context) {
	m.mu.Lock()
	if m.stopProbe != nil {
		m.stopProbe()
	}
	now := m.clock.NowMillis()
	m.state = StateWindowOpen
	m.serial = 0
	m.neverPaired = false
	m.started = now
	m.deadline = now + m.cfg.Window.Milliseconds()
	m.gen++
	gen := m.gen
	probeCtx, cancel := context.WithCancel(ctx)
	m.stopProbe = cancel
	m.mu.Unlock()

	m.logger.Info("Pairing window opened", "window", m.cfg.Window)
	go m.runProbe(probeCtx, gen)
}

func (m *Machine) runProbe(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil || !m.probe(gen) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one probe iteration: it expires the window if the deadline has
// passed and otherwise broadcasts a pairing probe. It reports whether the
// window is still open.
func (m *Machine) Tick() bool {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	return m.probe(gen)
}

func (m *Machine) probe(gen uint64) bool {
	m.mu.Lock()
	m.expireLocked()
	if m.state != StateWindowOpen || m.gen != gen {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	if m.sender != nil {
		if err := m.sender.SendValue(protocol.NamePairing, protocol.PairingProbe); err != nil {
			m.logger.Warn("Failed to send pairing probe", "error", err)
		}
	}

	// A transmitter may have paired while the probe was on air.
	if !m.current(gen) {
		return false
	}
	m.indicator.Indicate(feedback.IndicationSearching)
	return true
}

func (m *Machine) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateWindowOpen && m.gen == gen
}

// expireLocked closes an open window whose deadline has passed. The
// deadline itself is still inside the window.
func (m *Machine) expireLocked() {
	if m.state != StateWindowOpen || m.clock.NowMillis() <= m.deadline {
		return
	}
	m.state = StateUnpaired
	if m.stopProbe != nil {
		m.stopProbe()
		m.stopProbe = nil
	}
	m.logger.Info("Pairing window expired")
}

// HandleIdentity processes a named value packet from origin.
//
// A "serial" announcement whose value equals origin pairs the receiver
// while the window is open, or while the receiver has never been paired
// nor asked to pair (when AcceptWhenNeverPaired is set). A "serial" packet
// from the current partner is a keep-alive. Everything else is ignored.
func (m *Machine) HandleIdentity(name string, value, origin uint32) Outcome {
	if name != protocol.NameSerial {
		return OutcomeIgnored
	}

	m.mu.Lock()
	m.expireLocked()
	open := m.state == StateWindowOpen ||
		(m.state == StateUnpaired && m.neverPaired && m.cfg.AcceptWhenNeverPaired)

	var outcome Outcome
	switch {
	case open && value == origin:
		m.state = StatePaired
		m.serial = origin
		m.neverPaired = false
		m.gen++
		if m.stopProbe != nil {
			m.stopProbe()
			m.stopProbe = nil
		}
		outcome = OutcomePaired
	case m.state == StatePaired && origin == m.serial:
		outcome = OutcomeKeepAlive
	default:
		m.mu.Unlock()
		m.logger.Debug("Ignoring identity", "origin", origin, "value", value)
		return OutcomeIgnored
	}
	m.mu.Unlock()

	if m.sender != nil {
		if err := m.sender.SendValue(protocol.NamePairing, protocol.PairingAck); err != nil {
			m.logger.Warn("Failed to send pairing ack", "error", err)
		}
	}
	if outcome == OutcomePaired {
		m.logger.Info("Paired with transmitter", "serial", origin)
		m.indicator.Indicate(feedback.IndicationPairedSuccess)
	} else {
		m.logger.Debug("Transmitter keep-alive", "serial", origin)
		m.indicator.Indicate(feedback.IndicationConnected)
	}
	return outcome
}

// Accepts reports whether data from origin should be processed.
func (m *Machine) Accepts(origin uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StatePaired && m.serial == origin
}

// State expires an overdue window before reporting.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked()
	return m.state
}

// PairedSerial returns the partner serial, if any.
func (m *Machine) PairedSerial() (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePaired {
		return 0, false
	}
	return m.serial, true
}

// Status reports the state together with the window timing.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked()
	st := Status{
		State:       m.state,
		Serial:      m.serial,
		Paired:      m.state == StatePaired,
		NeverPaired: m.neverPaired,
	}
	if m.state == StateWindowOpen {
		st.WindowStarted = m.started
		st.RemainingMS = m.deadline - m.clock.NowMillis()
	}
	return st
}

// Close stops a running probe loop.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopProbe != nil {
		m.stopProbe()
		m.stopProbe = nil
	}
}
