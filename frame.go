package rfm69

import "fmt"

// maxPayloadLen is the largest payload a Frame can carry: 66-byte FIFO minus
// the 4-byte link header (length + src + dst + flags) minus one byte of
// headroom the chip's variable-length mode reserves.
const maxPayloadLen = 61

// minWireLen is the smallest valid FIFO length byte: src + dst + flags with
// an empty payload.
const minWireLen = 3

// Frame is an owned, plain-value record: a link-layer header plus a
// fixed-capacity payload. No external references, no shared state, no heap
// allocation on the hot path.
type Frame struct {
	Src   Address
	Dst   Address
	Flags Flags

	data [maxPayloadLen]byte
	len  uint8

	// RSSI is populated only for frames produced by the PHY's receive path;
	// it carries received signal strength in dBm.
	RSSI    int16
	hasRSSI bool
}

// FrameError reports why a Frame could not be built or parsed.
type FrameError struct {
	msg string
}

func (e *FrameError) Error() string { return e.msg }

var (
	errDataTooLong  = &FrameError{"rfm69: frame payload too long"}
	errDataTooShort = &FrameError{"rfm69: wire data too short to be a valid frame"}
)

// NewFrame builds a Frame from its fields. It fails if data is longer than
// the 61-byte payload capacity.
func NewFrame(src, dst Address, flags Flags, data []byte) (Frame, error) {
	if len(data) > maxPayloadLen {
		return Frame{}, errDataTooLong
	}
	f := Frame{Src: src, Dst: dst, Flags: flags, len: uint8(len(data))}
	copy(f.data[:], data)
	return f, nil
}

// FromWire parses a Frame out of the FIFO contents. length is the FIFO
// length byte (excluding itself); raw holds at least length bytes starting
// with src/dst/flags. It fails if length is too short to hold a header.
func FromWire(length uint8, raw []byte, rssi int16) (Frame, error) {
	if length < minWireLen {
		return Frame{}, errDataTooShort
	}
	f := Frame{
		Src:     addressFromWire(raw[0]),
		Dst:     addressFromWire(raw[1]),
		Flags:   flagsFromWire(raw[2]),
		len:     length - minWireLen,
		RSSI:    rssi,
		hasRSSI: true,
	}
	copy(f.data[:], raw[minWireLen:length])
	return f, nil
}

// Data returns the frame's payload.
func (f *Frame) Data() []byte {
	return f.data[:f.len]
}

// HasRSSI reports whether RSSI was populated (true only for received
// frames).
func (f *Frame) HasRSSI() bool {
	return f.hasRSSI
}

// ToWire serializes the frame into raw, FIFO-length-byte first. raw must be
// at least len(Data())+4 bytes (the length byte, src, dst and flags, then the
// payload).
// It returns the number of bytes written.
func (f *Frame) ToWire(raw []byte) (int, error) {
	fifoLen := int(f.len) + minWireLen
	if len(raw) < fifoLen+1 {
		return 0, errDataTooLong
	}
	raw[0] = byte(fifoLen)
	raw[1] = f.Src.toWire()
	raw[2] = f.Dst.toWire()
	raw[3] = f.Flags.toWire()
	copy(raw[4:4+f.len], f.data[:f.len])
	return fifoLen + 1, nil
}

// IsAck reports whether this frame's flags are Ack(_).
func (f *Frame) IsAck() bool {
	return f.Flags.IsAck()
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame{src=%s dst=%s flags=%s len=%d}", f.Src, f.Dst, f.Flags, f.len)
}
