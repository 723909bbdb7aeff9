package pairing

import "time"

const (
	DefaultWindow        = 10 * time.Second
	DefaultProbeInterval = 300 * time.Millisecond
)

// Config controls the pairing window.
type Config struct {
	Window                time.Duration `help:"How long the pairing window stays open" default:"10s" env:"RCRX_PAIRING_WINDOW"`
	ProbeInterval         time.Duration `help:"Interval between pairing probes while the window is open" default:"300ms" env:"RCRX_PAIRING_PROBE_INTERVAL"`
	AcceptWhenNeverPaired bool          `help:"Accept a transmitter announcement before pairing was ever requested" default:"true" env:"RCRX_PAIRING_ACCEPT_NEVER_PAIRED" negatable:""`
}

func DefaultConfig() Config {
	return Config{
		Window:                DefaultWindow,
		ProbeInterval:         DefaultProbeInterval,
		AcceptWhenNeverPaired: true,
	}
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	return c
}
