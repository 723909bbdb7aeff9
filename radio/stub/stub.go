// Package stub is an in-memory radio driver. Drivers created from the same
// Air hear each other when tuned to the same band.
package stub

import (
	"sync"
	"time"

	"github.com/mcbrc/rcrx/radio"
)

// Air connects stub drivers.
type Air struct {
	mu      sync.Mutex
	drivers map[*Driver]struct{}
}

func NewAir() *Air {
	return &Air{drivers: map[*Driver]struct{}{}}
}

// NewDriver attaches a new driver, tuned to band 0.
func (a *Air) NewDriver() *Driver {
	d := &Driver{air: a, notify: make(chan struct{}, 1)}
	a.mu.Lock()
	a.drivers[d] = struct{}{}
	a.mu.Unlock()
	return d
}

func (a *Air) broadcast(from *Driver, band uint8, frame []byte) {
	a.mu.Lock()
	peers := make([]*Driver, 0, len(a.drivers))
	for d := range a.drivers {
		if d != from {
			peers = append(peers, d)
		}
	}
	a.mu.Unlock()

	for _, d := range peers {
		if d.Band() == band {
			d.Inject(frame)
		}
	}
}

func (a *Air) detach(d *Driver) {
	a.mu.Lock()
	delete(a.drivers, d)
	a.mu.Unlock()
}

// Driver implements radio.Driver in memory.
type Driver struct {
	air    *Air
	notify chan struct{}

	mu     sync.Mutex
	band   uint8
	closed bool
	rxBuf  ringBuffer
	txBuf  ringBuffer
}

// New returns a driver attached to its own private Air.
func New() *Driver {
	return NewAir().NewDriver()
}

func (d *Driver) Configure(band uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return radio.ErrClosed
	}
	d.band = band
	return nil
}

func (d *Driver) Band() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.band
}

func (d *Driver) Tx(data []byte) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return radio.ErrClosed
	}
	frame := append([]byte(nil), data...)
	d.txBuf.push(frame)
	band := d.band
	d.mu.Unlock()

	if d.air != nil {
		d.air.broadcast(d, band, frame)
	}
	return nil
}

func (d *Driver) Rx(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		d.mu.Lock()
		frame, ok := d.rxBuf.pop()
		closed := d.closed
		d.mu.Unlock()
		if ok {
			return append([]byte(nil), frame...), nil
		}
		if closed {
			return nil, radio.ErrClosed
		}

		select {
		case <-d.notify:
		case <-timer.C:
			return nil, radio.ErrTimeout
		}
	}
}

// Inject queues a frame as if it had been received.
func (d *Driver) Inject(data []byte) {
	d.mu.Lock()
	d.rxBuf.push(append([]byte(nil), data...))
	d.mu.Unlock()
	d.wake()
}

// Sent returns copies of the frames transmitted so far, oldest first.
func (d *Driver) Sent() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txBuf.snapshot()
}

func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	if d.air != nil {
		d.air.detach(d)
	}
	d.wake()
	return nil
}

func (d *Driver) wake() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

const ringCapacity = 64

// ringBuffer keeps the newest ringCapacity frames.
type ringBuffer struct {
	data       [ringCapacity][]byte
	head, tail int
	count      int
}

func (rb *ringBuffer) push(frame []byte) {
	if rb.count == ringCapacity {
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
	}
	rb.data[rb.tail] = frame
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
}

func (rb *ringBuffer) pop() ([]byte, bool) {
	if rb.count == 0 {
		return nil, false
	}
	frame := rb.data[rb.head]
	rb.data[rb.head] = nil
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return frame, true
}

func (rb *ringBuffer) snapshot() [][]byte {
	out := make([][]byte, 0, rb.count)
	for c, i := 0, rb.head; c < rb.count; c, i = c+1, (i+1)%ringCapacity {
		out = append(out, append([]byte(nil), rb.data[i]...))
	}
	return out
}
