// Package udp carries radio frames as UDP broadcast datagrams. Each band
// maps to its own port so stations on different bands never hear each other.
package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mcbrc/rcrx/radio"
)

const maxDatagram = 512

type Config struct {
	BasePort  int    `help:"UDP port of band 0; band N uses base-port+N" default:"47600" env:"RCRX_UDP_BASE_PORT"`
	Broadcast string `help:"Destination address for transmitted frames" default:"255.255.255.255" env:"RCRX_UDP_BROADCAST"`
	Bind      string `help:"Local address to listen on" default:"0.0.0.0" env:"RCRX_UDP_BIND"`
}

// Driver implements radio.Driver over UDP.
type Driver struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	conn   net.PacketConn
	dest   net.Addr
	closed bool
	buf    [maxDatagram]byte
}

func New(cfg Config, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{cfg: cfg, logger: logger}
}

// Configure rebinds the socket to the port of band.
func (d *Driver) Configure(band uint8) error {
	port := d.cfg.BasePort + int(band)
	lc := net.ListenConfig{Control: control}
	conn, err := lc.ListenPacket(context.Background(), "udp4", net.JoinHostPort(d.cfg.Bind, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen udp port %d: %w", port, err)
	}
	dest, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(d.cfg.Broadcast, strconv.Itoa(port)))
	if err != nil {
		_ = conn.Close()
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		_ = conn.Close()
		return radio.ErrClosed
	}
	if d.conn != nil {
		_ = d.conn.Close()
	}
	d.conn = conn
	d.dest = dest
	d.logger.Debug("UDP radio bound", "addr", conn.LocalAddr(), "dest", dest)
	return nil
}

func (d *Driver) current() (net.PacketConn, net.Addr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, nil, radio.ErrClosed
	}
	if d.conn == nil {
		return nil, nil, radio.ErrNotConfigured
	}
	return d.conn, d.dest, nil
}

func (d *Driver) Tx(data []byte) error {
	conn, dest, err := d.current()
	if err != nil {
		return err
	}
	_, err = conn.WriteTo(data, dest)
	return err
}

// Rx is meant to be called from a single goroutine.
func (d *Driver) Rx(timeout time.Duration) ([]byte, error) {
	conn, _, err := d.current()
	if err != nil {
		return nil, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	n, _, err := conn.ReadFrom(d.buf[:])
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, radio.ErrTimeout
		}
		if errors.Is(err, net.ErrClosed) {
			d.mu.Lock()
			closed := d.closed
			d.mu.Unlock()
			if closed {
				return nil, radio.ErrClosed
			}
			// rebound by Configure
			return nil, radio.ErrTimeout
		}
		return nil, err
	}
	return append([]byte(nil), d.buf[:n]...), nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
