package rfm69

import (
	"bytes"
	"errors"
	"testing"
)

// mockSPI emulates just enough of the chip's register map and FIFO
// semantics to drive Device: indexed registers read/write through regs,
// while the FIFO register (address 0x00) behaves like a queue instead of
// an indexed byte. As on the chip, a write to IrqFlags2 only clears the
// FifoOverrun flag; the other IrqFlags2 bits are read-only.
type mockSPI struct {
	regs [0x80]byte
	fifo []byte
}

func (m *mockSPI) Tx(w, r []byte) error {
	addr := w[0]
	write := addr&0x80 != 0
	a := int(addr &^ 0x80)

	if a == 0x00 {
		if write {
			m.fifo = append(m.fifo, w[1:]...)
		} else {
			for i := 1; i < len(r); i++ {
				if len(m.fifo) == 0 {
					r[i] = 0
					continue
				}
				r[i] = m.fifo[0]
				m.fifo = m.fifo[1:]
			}
		}
		return nil
	}

	if write && a == int(regIrqFlags2) {
		m.regs[a] &^= w[1] & uint8(IrqFlags2FifoOverrun)
		return nil
	}

	if write {
		for i := 1; i < len(w); i++ {
			m.regs[(a+i-1)&0x7f] = w[i]
		}
	} else {
		for i := 1; i < len(r); i++ {
			r[i] = m.regs[(a+i-1)&0x7f]
		}
	}
	return nil
}

type mockPin struct {
	outs []Level
}

func (p *mockPin) Out(l Level) error        { p.outs = append(p.outs, l); return nil }
func (p *mockPin) In(Pull) error            { return nil }
func (p *mockPin) Read() Level              { return Low }
func (p *mockPin) Watch(Edge, func()) error { return nil }
func (p *mockPin) Unwatch() error           { return nil }

// noopDelayer skips real sleeps so poll loops in tests run instantly.
type noopDelayer struct{}

func (noopDelayer) DelayMs(uint32) {}
func (noopDelayer) DelayUs(uint32) {}

func newTestDevice(spi *mockSPI) (*Device, *mockPin) {
	reset := &mockPin{}
	dev := NewDevice(spi, reset, nil, noopDelayer{})
	return dev, reset
}

func TestResetSuccess(t *testing.T) {
	spi := &mockSPI{}
	spi.regs[regVersion] = versionCheck
	dev, reset := newTestDevice(spi)

	if err := dev.Reset(); err != nil {
		t.Fatalf("Reset() = %v, want nil", err)
	}
	if len(reset.outs) != 2 || reset.outs[0] != High || reset.outs[1] != Low {
		t.Fatalf("reset pin sequence = %v, want [High Low]", reset.outs)
	}
	if dev.Mode != OpModeSleep {
		t.Fatalf("Mode after Reset = %v, want OpModeSleep", dev.Mode)
	}
}

func TestResetVersionMismatch(t *testing.T) {
	spi := &mockSPI{}
	spi.regs[regVersion] = 0x00
	dev, _ := newTestDevice(spi)

	err := dev.Reset()
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("Reset() = %v, want ErrVersionMismatch", err)
	}
}

func TestSetFrequency(t *testing.T) {
	spi := &mockSPI{}
	dev, _ := newTestDevice(spi)

	if err := dev.SetFrequency(915_000_000); err != nil {
		t.Fatalf("SetFrequency() = %v", err)
	}
	got := []byte{spi.regs[regFrfMsb], spi.regs[regFrfMid], spi.regs[regFrfLsb]}
	want := []byte{0xe4, 0xc0, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("Frf registers = % x, want % x", got, want)
	}
}

func TestSetBitRate(t *testing.T) {
	spi := &mockSPI{}
	dev, _ := newTestDevice(spi)

	if err := dev.SetBitRate(55_555); err != nil {
		t.Fatalf("SetBitRate() = %v", err)
	}
	got := []byte{spi.regs[regBitrateMsb], spi.regs[regBitrateLsb]}
	want := []byte{0x02, 0x40}
	if !bytes.Equal(got, want) {
		t.Fatalf("Bitrate registers = % x, want % x", got, want)
	}
}

func TestSetFdev(t *testing.T) {
	spi := &mockSPI{}
	dev, _ := newTestDevice(spi)

	if err := dev.SetFdev(50_000); err != nil {
		t.Fatalf("SetFdev() = %v", err)
	}
	got := []byte{spi.regs[regFdevMsb], spi.regs[regFdevLsb]}
	want := []byte{0x03, 0x33}
	if !bytes.Equal(got, want) {
		t.Fatalf("Fdev registers = % x, want % x", got, want)
	}
}

func TestSetSyncRejectsOversizeWord(t *testing.T) {
	spi := &mockSPI{}
	dev, _ := newTestDevice(spi)

	err := dev.SetSync(make([]byte, 9))
	if !errors.Is(err, ErrSyncSize) {
		t.Fatalf("SetSync(9 bytes) = %v, want ErrSyncSize", err)
	}
}

func TestSetSyncClearsWithEmptySlice(t *testing.T) {
	spi := &mockSPI{}
	spi.regs[regSyncConfig] = 0x80 | (2 << 3)
	dev, _ := newTestDevice(spi)

	if err := dev.SetSync(nil); err != nil {
		t.Fatalf("SetSync(nil) = %v", err)
	}
	if spi.regs[regSyncConfig]&0x80 != 0 {
		t.Fatalf("sync-enable bit still set after SetSync(nil)")
	}
}

func TestSendReceiveRoundTrip(t *testing.T) {
	spi := &mockSPI{}
	spi.regs[regVersion] = versionCheck
	spi.regs[regIrqFlags1] = uint8(IrqFlags1ModeReady)
	spi.regs[regIrqFlags2] = uint8(IrqFlags2PacketSent) | uint8(IrqFlags2PayloadReady)
	dev, _ := newTestDevice(spi)

	if err := dev.Reset(); err != nil {
		t.Fatalf("Reset() = %v", err)
	}

	src := Unicast(1)
	dst := Unicast(2)
	frame, err := NewFrame(src, dst, Ack(1), []byte("hello"))
	if err != nil {
		t.Fatalf("NewFrame() = %v", err)
	}

	if err := dev.Send(&frame); err != nil {
		t.Fatalf("Send() = %v", err)
	}
	if dev.Mode != OpModeStandby {
		t.Fatalf("Mode after Send = %v, want OpModeStandby", dev.Mode)
	}

	// The FIFO is a shared queue in the mock; Send pushed the wire bytes
	// onto it, so Recv can pop the same bytes back off.
	got, err := dev.Recv()
	if err != nil {
		t.Fatalf("Recv() = %v", err)
	}
	if got.Src != src || got.Dst != dst || !bytes.Equal(got.Data(), frame.Data()) {
		t.Fatalf("Recv() = %s, want frame matching %s", &got, &frame)
	}
	if !got.HasRSSI() {
		t.Fatalf("Recv() frame missing RSSI")
	}
}

func TestSendCollapsesSPIError(t *testing.T) {
	spi := &failingSPI{err: errors.New("bus fault")}
	reset := &mockPin{}
	dev := NewDevice(spi, reset, nil, noopDelayer{})

	frame, _ := NewFrame(Unicast(1), Unicast(2), NoAck, nil)
	err := dev.Send(&frame)
	if !errors.Is(err, ErrTrxSpi) {
		t.Fatalf("Send() with failing bus = %v, want ErrTrxSpi", err)
	}
}

type failingSPI struct{ err error }

func (s *failingSPI) Tx(w, r []byte) error { return s.err }
