//go:build tinygo

package rfm69

import (
	"machine"
)

// tinygoPin wraps a machine.Pin to satisfy the Pin interface.
type tinygoPin struct {
	pin machine.Pin
}

func (p *tinygoPin) Out(l Level) error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.pin.Set(bool(l))
	return nil
}

func (p *tinygoPin) In(pull Pull) error {
	var mPull machine.PinMode
	switch pull {
	case PullUp:
		mPull = machine.PinInputPullup
	case PullDown:
		mPull = machine.PinInputPulldown
	default:
		mPull = machine.PinInput
	}
	p.pin.Configure(machine.PinConfig{Mode: mPull})
	return nil
}

func (p *tinygoPin) Read() Level {
	return Level(p.pin.Get())
}

func (p *tinygoPin) Watch(edge Edge, handler func()) error {
	var mEdge machine.PinChange
	switch edge {
	case RisingEdge:
		mEdge = machine.PinRising
	case FallingEdge:
		mEdge = machine.PinFalling
	case BothEdges:
		mEdge = machine.PinToggle
	default:
		return nil
	}

	return p.pin.SetInterrupt(mEdge, func(machine.Pin) {
		handler()
	})
}

func (p *tinygoPin) Unwatch() error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return nil
}

// tinygoSPI wraps a machine.SPI to satisfy the SPI interface.
type tinygoSPI struct {
	spi *machine.SPI
	cs  machine.Pin
}

func (s *tinygoSPI) Tx(w, r []byte) error {
	s.cs.Low()
	err := s.spi.Tx(w, r)
	s.cs.High()
	return err
}

// Config holds the configuration for the TinyGo adapter.
type Config struct {
	// SPI is the SPI bus to use.
	SPI *machine.SPI
	// CSPin is the Chip Select (CS) pin.
	CSPin machine.Pin
	// ResetPin drives the module's RESET line.
	ResetPin machine.Pin
	// Dio0Pin is wired to DIO0. Use machine.NoPin to fall back to polling.
	Dio0Pin machine.Pin
}

// New creates a Device for TinyGo systems from the pins and bus in c.
func New(c Config) *Device {
	c.CSPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	c.CSPin.High()

	resetWrapper := &tinygoPin{pin: c.ResetPin}

	var dio0Wrapper Pin
	if c.Dio0Pin != machine.NoPin {
		dio0Wrapper = &tinygoPin{pin: c.Dio0Pin}
	}

	spiWrapper := &tinygoSPI{spi: c.SPI, cs: c.CSPin}

	return NewDevice(spiWrapper, resetWrapper, dio0Wrapper, realDelayer{})
}
