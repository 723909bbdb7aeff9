// Package receiver ties the packet codec, the button registry, the pairing
// machine and the feedback selector to a radio transport.
package receiver

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mcbrc/rcrx/buttons"
	"github.com/mcbrc/rcrx/feedback"
	"github.com/mcbrc/rcrx/pairing"
	"github.com/mcbrc/rcrx/protocol"
)

// Transport is the radio link as seen by the receiver. Callbacks are
// invoked one at a time and ReceivedSerial reports the origin of the packet
// currently being delivered.
type Transport interface {
	Configure(group, band uint8) error
	SendValue(name string, value uint32) error
	OnReceivedNumber(fn func(n uint32))
	OnReceivedValue(fn func(name string, value uint32))
	OnReceivedBuffer(fn func(buf []byte))
	ReceivedSerial() uint32
}

// UpdateHandler is called after every accepted state packet with the
// decoded stick, the button states in registry order and the resolved image.
type UpdateHandler func(joy protocol.JoyState, btns []buttons.Button, img feedback.Image)

// Options holds the collaborators of a Receiver. Zero values get defaults.
type Options struct {
	Sink    feedback.Sink
	Clock   pairing.Clock
	Pairing *pairing.Config
	Logger  *slog.Logger
}

// Snapshot is the last known receiver state.
type Snapshot struct {
	Joystick protocol.JoyState
	Buttons  []buttons.Button
	Key      string
	Image    feedback.Image
	Pairing  pairing.Status
}

var ErrClosed = errors.New("receiver closed")

// Receiver owns the stick, button and pairing state of one receiver.
type Receiver struct {
	transport Transport
	sink      feedback.Sink
	logger    *slog.Logger
	machine   *pairing.Machine

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	initialized bool
	closed      bool
	joy         protocol.JoyState
	registry    *buttons.Registry
	mapping     feedback.ImageMapping
	handler     UpdateHandler
	key         string
	image       feedback.Image
	subs        map[int]chan Snapshot
	nextSub     int
}

// New builds a receiver on transport. Call Initialize before use.
func New(transport Transport, opts Options) *Receiver {
	if opts.Sink == nil {
		opts.Sink = feedback.NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg := pairing.DefaultConfig()
	if opts.Pairing != nil {
		cfg = *opts.Pairing
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Receiver{
		transport: transport,
		sink:      opts.Sink,
		logger:    opts.Logger,
		machine:   pairing.New(cfg, opts.Clock, transport, opts.Sink, opts.Logger),
		ctx:       ctx,
		cancel:    cancel,
		registry:  buttons.New(),
		mapping:   feedback.DefaultImageMapping,
		key:       protocol.NeutralKey,
		image:     feedback.DefaultImageMapping(protocol.NeutralKey),
		subs:      map[int]chan Snapshot{},
	}
}

// Initialize tunes the transport and registers the packet handlers. It may
// be called again to retune; handlers are only registered once.
func (r *Receiver) Initialize(group, band uint8) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	first := !r.initialized
	r.initialized = true
	r.mu.Unlock()

	if err := r.transport.Configure(group, band); err != nil {
		return err
	}
	if first {
		r.transport.OnReceivedNumber(r.handleNumber)
		r.transport.OnReceivedValue(r.handleValue)
		r.transport.OnReceivedBuffer(r.handleBuffer)
	}
	r.logger.Info("Receiver initialized", "group", group, "band", band)
	return nil
}

// BeginPairing forgets the current transmitter and opens the pairing window.
// Packets already being applied finish first; none from the old partner
// are applied after it returns.
func (r *Receiver) BeginPairing() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machine.BeginPairing(r.ctx)
}

// OnUpdate replaces the update handler. With no handler the resolved image
// goes straight to the sink.
func (r *Receiver) OnUpdate(h UpdateHandler) {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

// SetImageMapping replaces the key to image strategy. nil restores the default.
func (r *Receiver) SetImageMapping(m feedback.ImageMapping) {
	if m == nil {
		m = feedback.DefaultImageMapping
	}
	r.mu.Lock()
	r.mapping = m
	r.mu.Unlock()
}

// Strength is the last accepted stick magnitude.
func (r *Receiver) Strength() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joy.Strength
}

// DirectionDegrees is 0 while the stick is centered.
func (r *Receiver) DirectionDegrees() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joy.Degrees
}

// DirectionArrow is the coarse direction, 0 while centered.
func (r *Receiver) DirectionArrow() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joy.DirArrow
}

// IsButtonPressed is false for unknown keys.
func (r *Receiver) IsButtonPressed(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registry.IsPressed(key)
}

// Pairing exposes the pairing machine for status queries.
func (r *Receiver) Pairing() *pairing.Machine {
	return r.machine
}

// Snapshot returns a copy of the last known state.
func (r *Receiver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Receiver) snapshotLocked() Snapshot {
	return Snapshot{
		Joystick: r.joy,
		Buttons:  r.registry.Snapshot(),
		Key:      r.key,
		Image:    r.image,
		Pairing:  r.machine.Status(),
	}
}

// Subscribe delivers a snapshot after every accepted state or button
// packet. Slow subscribers miss updates rather than block the receiver.
func (r *Receiver) Subscribe() (<-chan Snapshot, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan Snapshot, 8)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(c)
			}
		})
	}
}

// Close stops the probe loop and ends all subscriptions.
func (r *Receiver) Close() {
	r.cancel()
	r.machine.Close()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}

func (r *Receiver) publishLocked() {
	if len(r.subs) == 0 {
		return
	}
	snap := r.snapshotLocked()
	for _, ch := range r.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (r *Receiver) handleNumber(n uint32) {
	origin := r.transport.ReceivedSerial()

	r.mu.Lock()
	if !r.machine.Accepts(origin) {
		r.mu.Unlock()
		r.logger.Debug("Dropping state from unknown origin", "origin", origin)
		return
	}
	joy, mask := protocol.DecodeState(n, r.registry.Len())
	r.joy = joy
	r.registry.ApplyBitmask(mask)
	btns := r.registry.Snapshot()
	key := feedback.Select(joy, btns)
	mapping := r.mapping
	handler := r.handler
	r.mu.Unlock()

	img := mapping(key)

	r.mu.Lock()
	r.key = key
	r.image = img
	r.publishLocked()
	r.mu.Unlock()

	if handler != nil {
		handler(joy, btns, img)
		return
	}
	r.sink.ShowImage(img)
}

func (r *Receiver) handleValue(name string, value uint32) {
	origin := r.transport.ReceivedSerial()
	if r.machine.HandleIdentity(name, value, origin) == pairing.OutcomePaired {
		r.mu.Lock()
		r.publishLocked()
		r.mu.Unlock()
	}
}

func (r *Receiver) handleBuffer(buf []byte) {
	origin := r.transport.ReceivedSerial()
	keys, err := protocol.DecodeButtonKeys(buf)

	r.mu.Lock()
	if !r.machine.Accepts(origin) {
		r.mu.Unlock()
		r.logger.Debug("Dropping button config from unknown origin", "origin", origin)
		return
	}
	if err != nil {
		r.mu.Unlock()
		r.logger.Warn("Dropping button config", "origin", origin, "error", err)
		return
	}
	r.registry.Reconcile(keys)
	r.publishLocked()
	r.mu.Unlock()
	r.logger.Info("Button config received", "keys", keys)
}
