package rfm69

import (
	"errors"
	"fmt"
)

// fScale scales frequency-domain integer math by 1e6 for extra precision
// before truncating back to a register value.
const fScale uint64 = 1_000_000
const fosc uint64 = 32_000_000 * fScale
const fstep uint64 = fosc / 524_288 // FOSC / 2^19

// Sentinel errors returned by the low-level PHY operations. These are more
// specific than the flat TrxError set the MAC sees; Device.Send/Device.Recv
// collapse them via collapseDriverError at the Transceiver seam.
var (
	ErrVersionMismatch = errors.New("rfm69: unexpected version register content")
	ErrSyncSize        = errors.New("rfm69: sync word must be 1..8 bytes, or empty to clear")
	ErrSPI             = errors.New("rfm69: spi transaction failed")
	ErrResetPin        = errors.New("rfm69: reset pin error")
	ErrDio0Pin         = errors.New("rfm69: dio0 pin error")
)

// Device is the RFM69(CW) PHY driver: register-level state machine, FIFO
// framing, and mode transitions. It holds no goroutines of its own; calls
// block the caller's goroutine. Its methods take no context and cannot be
// cancelled: Send and Recv return only once the chip reports completion (or
// an SPI error occurs).
//
// Only one Send or Recv may be in flight at a time per Device — this is a
// caller discipline (single half-duplex radio), not internally enforced.
type Device struct {
	spi   SPI
	reset Pin
	dio0  Pin
	delay Delayer

	irqChan chan struct{}

	// Mode is the last mode this driver set. It does not necessarily reflect
	// the chip's actual mode if a Send or Recv failed partway through.
	Mode OpMode

	scratch [80]byte
}

// NewDevice returns a Device driving spi through reset and, optionally, dio0.
// dio0 may be nil; in that case Send/Recv poll IrqFlags1/2 directly instead
// of waiting on a hardware edge. delay may be nil to use a time.Sleep-backed
// default.
func NewDevice(spi SPI, reset Pin, dio0 Pin, delay Delayer) *Device {
	if delay == nil {
		delay = realDelayer{}
	}
	d := &Device{
		spi:   spi,
		reset: reset,
		dio0:  dio0,
		delay: delay,
		Mode:  OpModeStandby,
	}
	if dio0 != nil {
		d.irqChan = make(chan struct{}, 1)
		dio0.In(PullNoChange)
		dio0.Watch(RisingEdge, func() {
			select {
			case d.irqChan <- struct{}{}:
			default:
			}
		})
	}
	return d
}

// Reset pulses the reset pin and verifies the version register reads back
// the expected content.
func (d *Device) Reset() error {
	if err := d.reset.Out(High); err != nil {
		return fmt.Errorf("%w: %w", ErrResetPin, err)
	}
	d.delay.DelayMs(10)
	if err := d.reset.Out(Low); err != nil {
		return fmt.Errorf("%w: %w", ErrResetPin, err)
	}
	d.delay.DelayMs(10)

	globalLogger.Debug("reading version register")
	version, err := d.readRegister(regVersion)
	if err != nil {
		return err
	}
	if version != versionCheck {
		globalLogger.Error("version register mismatch")
		return fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrVersionMismatch, version, versionCheck)
	}
	globalLogger.Info("transceiver reset")
	return d.SetMode(OpModeSleep)
}

// SetMode writes OpMode and caches it on the Device.
func (d *Device) SetMode(mode OpMode) error {
	if err := d.writeRegister(regOpMode, uint8(mode)); err != nil {
		return err
	}
	d.Mode = mode
	return nil
}

// SetModulation writes DataModul.
func (d *Device) SetModulation(m Modulation) error {
	return d.writeRegister(regDataModul, m.value())
}

// SetBitRate sets the data bitrate in bits per second. There may be a small
// loss of precision, so the actual bitrate may be slightly off.
func (d *Device) SetBitRate(bps uint32) error {
	reg := uint16(fosc / (uint64(bps) * fScale))
	return d.writeRegisters(regBitrateMsb, []byte{byte(reg >> 8), byte(reg)})
}

// SetFrequency sets the carrier frequency in Hz. There may be a small loss
// of precision, so the actual frequency may be slightly off.
func (d *Device) SetFrequency(hz uint32) error {
	reg := uint32((uint64(hz) * fScale) / fstep)
	return d.writeRegisters(regFrfMsb, []byte{byte(reg >> 16), byte(reg >> 8), byte(reg)})
}

// SetFdev sets the FSK frequency deviation in Hz.
func (d *Device) SetFdev(hz uint32) error {
	reg := uint16((uint64(hz) * fScale) / fstep)
	return d.writeRegisters(regFdevMsb, []byte{byte(reg >> 8), byte(reg)})
}

// SetRxBw writes the RxBw register.
func (d *Device) SetRxBw(bw RxBw) error {
	return d.writeRegister(regRxBw, uint8(bw.DccCutoff)|bw.Freq.value())
}

// SetPreambleLength sets the preamble length in bytes.
func (d *Device) SetPreambleLength(length uint16) error {
	return d.writeRegisters(regPreambleMsb, []byte{byte(length >> 8), byte(length)})
}

// SetSync sets the sync word (up to 8 bytes). Passing an empty slice clears
// the sync-enable bit.
func (d *Device) SetSync(sync []byte) error {
	if len(sync) == 0 {
		return d.updateRegister(regSyncConfig, func(r uint8) uint8 { return r &^ 0x80 })
	}
	if len(sync) > 8 {
		return ErrSyncSize
	}
	reg := 0x80 | uint8(len(sync)-1)<<3
	if err := d.writeRegister(regSyncConfig, reg); err != nil {
		return err
	}
	return d.writeRegisters(regSyncValue1, sync)
}

// SetPacketConfig writes PacketConfig1/2.
func (d *Device) SetPacketConfig(c PacketConfig) error {
	var reg1 uint8
	var length uint8
	if c.Format.variable {
		reg1 |= 0x80
		length = c.Format.size
	} else {
		length = c.Format.size
	}
	var crcBit uint8
	if c.CRC {
		crcBit = 1 << 4
	}
	reg1 |= uint8(c.Dc) | uint8(c.Filtering) | crcBit
	if err := d.writeRegisters(regPacketConfig1, []byte{reg1, length}); err != nil {
		return err
	}
	var autoRestartBit uint8
	if c.AutoRxRestart {
		autoRestartBit = 1 << 1
	}
	reg2 := uint8(c.InterPacketRxDelay) | autoRestartBit
	return d.updateRegister(regPacketConfig2, func(r uint8) uint8 { return r&0x0d | reg2 })
}

// SetFifoMode writes FifoThresh.
func (d *Device) SetFifoMode(mode FifoMode) error {
	if mode.notEmpty {
		return d.updateRegister(regFifoThresh, func(r uint8) uint8 { return r | 0x80 })
	}
	return d.writeRegister(regFifoThresh, mode.level&0x7f)
}

// SetLna writes the Lna register, preserving bits 0x78.
func (d *Device) SetLna(lna LnaConfig) error {
	reg := uint8(lna.Zin) | uint8(lna.GainSelect)
	return d.updateRegister(regLna, func(r uint8) uint8 { return (r & 0x78) | reg })
}

// SetRssiThreshold writes RssiThresh.
func (d *Device) SetRssiThreshold(threshold uint8) error {
	return d.writeRegister(regRssiThresh, threshold)
}

// SetContinuousDagc writes TestDagc.
func (d *Device) SetContinuousDagc(cdagc ContinuousDagc) error {
	return d.writeRegister(regTestDagc, uint8(cdagc))
}

// IsModeReady reports whether IrqFlags1.ModeReady is set.
func (d *Device) IsModeReady() (bool, error) {
	reg, err := d.readRegister(regIrqFlags1)
	if err != nil {
		return false, err
	}
	return reg&uint8(IrqFlags1ModeReady) != 0, nil
}

// IsPacketSent reports whether IrqFlags2.PacketSent is set.
func (d *Device) IsPacketSent() (bool, error) {
	reg, err := d.readRegister(regIrqFlags2)
	if err != nil {
		return false, err
	}
	return reg&uint8(IrqFlags2PacketSent) != 0, nil
}

// IsPacketReady reports whether IrqFlags2.PayloadReady is set.
func (d *Device) IsPacketReady() (bool, error) {
	reg, err := d.readRegister(regIrqFlags2)
	if err != nil {
		return false, err
	}
	return reg&uint8(IrqFlags2PayloadReady) != 0, nil
}

func (d *Device) resetFifo() error {
	return d.writeRegister(regIrqFlags2, uint8(IrqFlags2FifoOverrun))
}

func (d *Device) readRSSI() (int16, error) {
	reg, err := d.readRegister(regRssiValue)
	if err != nil {
		return 0, err
	}
	return -int16(reg) >> 1, nil
}

func (d *Device) readRegister(reg register) (uint8, error) {
	d.scratch[0] = reg.addr() &^ 0x80
	d.scratch[1] = 0
	if err := d.spi.Tx(d.scratch[:2], d.scratch[:2]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSPI, err)
	}
	return d.scratch[1], nil
}

func (d *Device) writeRegister(reg register, val uint8) error {
	d.scratch[0] = reg.addr() | 0x80
	d.scratch[1] = val
	if err := d.spi.Tx(d.scratch[:2], d.scratch[:2]); err != nil {
		return fmt.Errorf("%w: %w", ErrSPI, err)
	}
	return nil
}

func (d *Device) updateRegister(reg register, f func(uint8) uint8) error {
	val, err := d.readRegister(reg)
	if err != nil {
		return err
	}
	return d.writeRegister(reg, f(val))
}

func (d *Device) writeRegisters(reg register, data []byte) error {
	d.scratch[0] = reg.addr() | 0x80
	copy(d.scratch[1:], data)
	n := 1 + len(data)
	if err := d.spi.Tx(d.scratch[:n], d.scratch[:n]); err != nil {
		return fmt.Errorf("%w: %w", ErrSPI, err)
	}
	return nil
}

func (d *Device) readRegisters(reg register, data []byte) error {
	d.scratch[0] = reg.addr() &^ 0x80
	n := 1 + len(data)
	for i := 1; i < n; i++ {
		d.scratch[i] = 0
	}
	if err := d.spi.Tx(d.scratch[:n], d.scratch[:n]); err != nil {
		return fmt.Errorf("%w: %w", ErrSPI, err)
	}
	copy(data, d.scratch[1:n])
	return nil
}

// ReadAllRegs reads back every known configuration/status register, starting
// at OpMode. Intended for diagnostics.
func (d *Device) ReadAllRegs() ([0x4f]byte, error) {
	var buf [0x4f]byte
	err := d.readRegisters(regOpMode, buf[:])
	return buf, err
}

// Send writes frame to the FIFO and transmits it, returning once the chip
// reports the packet as sent. It implements Transceiver.
func (d *Device) Send(frame *Frame) error {
	if err := d.send(frame); err != nil {
		return collapseDriverError(err)
	}
	return nil
}

func (d *Device) send(frame *Frame) error {
	if d.dio0 != nil {
		// DioMapping1 = 0x00 so DIO0 reflects PacketSent in Tx mode.
		if err := d.writeRegister(regDioMapping1, 0); err != nil {
			return err
		}
	}

	if err := d.SetMode(OpModeStandby); err != nil {
		return err
	}
	d.delay.DelayMs(1)

	// ModeReady does not reliably report ready if already in that mode; the
	// chip needs this poll even though the datasheet implies it shouldn't.
	for {
		ready, err := d.IsModeReady()
		if err != nil {
			return err
		}
		if ready {
			break
		}
		d.delay.DelayMs(500)
	}

	if err := d.resetFifo(); err != nil {
		return err
	}
	d.delay.DelayMs(1)

	var raw [66]byte
	n, err := frame.ToWire(raw[:])
	if err != nil {
		return err
	}
	if err := d.writeRegisters(regFifo, raw[:n]); err != nil {
		return err
	}

	if err := d.SetMode(OpModeTx); err != nil {
		return err
	}

	if d.dio0 != nil {
		<-d.irqChan
	} else {
		for {
			sent, err := d.IsPacketSent()
			if err != nil {
				return err
			}
			if sent {
				break
			}
		}
	}
	globalLogger.Debug("packet sent")

	return d.SetMode(OpModeStandby)
}

// Recv blocks until a complete frame is received. It implements Transceiver.
func (d *Device) Recv() (Frame, error) {
	f, err := d.recv()
	if err != nil {
		return Frame{}, collapseDriverError(err)
	}
	return f, nil
}

func (d *Device) recv() (Frame, error) {
	if d.dio0 != nil {
		// DioMapping1 = 0x40 so DIO0 reflects PayloadReady in Rx mode.
		if err := d.writeRegister(regDioMapping1, 0x40); err != nil {
			return Frame{}, err
		}
	}

	if err := d.SetMode(OpModeRx); err != nil {
		return Frame{}, err
	}

	if d.dio0 != nil {
		<-d.irqChan
	} else {
		for {
			ready, err := d.IsPacketReady()
			if err != nil {
				return Frame{}, err
			}
			if ready {
				break
			}
			d.delay.DelayUs(500)
		}
	}

	if err := d.SetMode(OpModeStandby); err != nil {
		return Frame{}, err
	}

	length, err := d.readRegister(regFifo)
	if err != nil {
		return Frame{}, err
	}
	var buf [66]byte
	if err := d.readRegisters(regFifo, buf[:length]); err != nil {
		return Frame{}, err
	}
	rssi, err := d.readRSSI()
	if err != nil {
		return Frame{}, err
	}
	globalLogger.Debug("packet received")

	return FromWire(length, buf[:length], rssi)
}

// collapseDriverError maps an internal PHY error to the flat TrxError set
// the Transceiver seam exposes.
func collapseDriverError(err error) error {
	switch {
	case errors.Is(err, ErrVersionMismatch):
		return ErrTrxNotFound
	case errors.Is(err, ErrResetPin):
		return ErrTrxReset
	case errors.Is(err, ErrSPI):
		return ErrTrxSpi
	case errors.Is(err, ErrDio0Pin):
		return ErrTrxGpio
	case errors.Is(err, ErrSyncSize):
		return ErrTrxConfig
	case errors.Is(err, errDataTooLong), errors.Is(err, errDataTooShort):
		return ErrTrxWrongPacketFormat
	default:
		return ErrTrxSpi
	}
}
