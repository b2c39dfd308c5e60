//go:build !tinygo

package rfm69

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// realPin wraps a gpio.PinIO to satisfy the Pin interface.
type realPin struct {
	gpio.PinIO
	stopWatch chan struct{}
}

func (p *realPin) Out(l Level) error {
	if l == High {
		return p.PinIO.Out(gpio.High)
	}
	return p.PinIO.Out(gpio.Low)
}

func (p *realPin) In(pull Pull) error {
	var pPull gpio.Pull
	switch pull {
	case PullFloat:
		pPull = gpio.Float
	case PullDown:
		pPull = gpio.PullDown
	case PullUp:
		pPull = gpio.PullUp
	default:
		pPull = gpio.PullNoChange
	}
	return p.PinIO.In(pPull, gpio.NoEdge)
}

func (p *realPin) Read() Level {
	if p.PinIO.Read() == gpio.High {
		return High
	}
	return Low
}

func (p *realPin) Watch(edge Edge, handler func()) error {
	var pEdge gpio.Edge
	switch edge {
	case RisingEdge:
		pEdge = gpio.RisingEdge
	case FallingEdge:
		pEdge = gpio.FallingEdge
	case BothEdges:
		pEdge = gpio.BothEdges
	default:
		pEdge = gpio.NoEdge
	}

	if err := p.PinIO.In(gpio.PullUp, pEdge); err != nil {
		return err
	}

	p.stopWatch = make(chan struct{})

	go func() {
		for {
			if p.PinIO.WaitForEdge(-1) {
				select {
				case <-p.stopWatch:
					return
				default:
					handler()
				}
			} else {
				select {
				case <-p.stopWatch:
					return
				default:
				}
			}
		}
	}()
	return nil
}

func (p *realPin) Unwatch() error {
	if p.stopWatch != nil {
		close(p.stopWatch)
		p.stopWatch = nil
	}
	return p.PinIO.In(gpio.PullUp, gpio.NoEdge)
}

// Config holds the configuration for the Linux/periph.io adapter.
type Config struct {
	// ResetPin is the GPIO pin number (BCM numbering) driving the module's
	// RESET line. Defaults to 25 if not provided.
	ResetPin int
	// Dio0Pin is the GPIO pin number (BCM numbering) wired to DIO0. Optional;
	// if zero, Device falls back to polling the mode/IRQ status registers.
	Dio0Pin int
	// SpiBusPath is the path to the SPI bus (e.g. "/dev/spidev0.0").
	// Defaults to "/dev/spidev0.0" if not provided.
	SpiBusPath string
	// SpiClockHz is the SPI clock frequency in Hz. Defaults to 4000000 (4MHz)
	// if not provided; the chip's SPI interface tops out at 10MHz.
	SpiClockHz int
}

// periphPort bundles the periph.io SPI connection so it can be closed
// alongside the Device that wraps it.
type periphPort struct {
	port spi.PortCloser
}

func (p *periphPort) Close() error { return p.port.Close() }

// New opens the SPI bus and GPIO pins named in c via periph.io, and returns
// a Device wired to them. Close the returned closer to release the SPI port
// when done with the device.
func New(c Config) (*Device, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("rfm69: initialize periph.io host: %w", err)
	}

	if c.SpiBusPath == "" {
		c.SpiBusPath = "/dev/spidev0.0"
	}
	port, err := spireg.Open(c.SpiBusPath)
	if err != nil {
		return nil, nil, fmt.Errorf("rfm69: open spi port: %w", err)
	}

	if c.SpiClockHz == 0 {
		c.SpiClockHz = 4_000_000
	}
	conn, err := port.Connect(physic.Frequency(c.SpiClockHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("rfm69: connect spi: %w", err)
	}

	if c.ResetPin == 0 {
		c.ResetPin = 25
	}
	resetName := fmt.Sprintf("GPIO%d", c.ResetPin)
	realReset := gpioreg.ByName(resetName)
	if realReset == nil {
		port.Close()
		return nil, nil, fmt.Errorf("rfm69: open reset pin %s", resetName)
	}
	resetWrapper := &realPin{PinIO: realReset}

	var dio0Wrapper Pin
	if c.Dio0Pin != 0 {
		dio0Name := fmt.Sprintf("GPIO%d", c.Dio0Pin)
		realDio0 := gpioreg.ByName(dio0Name)
		if realDio0 == nil {
			port.Close()
			return nil, nil, fmt.Errorf("rfm69: open dio0 pin %s", dio0Name)
		}
		dio0Wrapper = &realPin{PinIO: realDio0}
	}

	spiWrapper := &periphSPI{conn: conn}
	dev := NewDevice(spiWrapper, resetWrapper, dio0Wrapper, realDelayer{})
	return dev, port.Close, nil
}

// periphSPI adapts a periph.io spi.Conn to the SPI interface.
type periphSPI struct {
	conn spi.Conn
}

func (s *periphSPI) Tx(w, r []byte) error {
	return s.conn.Tx(w, r)
}
