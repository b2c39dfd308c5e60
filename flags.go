package rfm69

import "fmt"

// Flags carries the MAC-level acknowledgement request for a frame. It is
// either None or Ack(r), where r is the number of send attempts (including
// the first) the sender will make while waiting for an ACK.
type Flags struct {
	ack     bool
	retries uint8
}

// NoAck marks a frame as not requesting acknowledgement.
var NoAck = Flags{}

// Ack marks a frame as requesting acknowledgement; SendPacket sends it up to
// retries times in all, the first attempt included. retries must be in 1..=3; callers that need a sentinel "this is an
// ACK reply, not a request" value use Ack(0).
func Ack(retries uint8) Flags {
	return Flags{ack: true, retries: retries}
}

// IsAck reports whether these are an Ack(_) variant (as opposed to None).
func (f Flags) IsAck() bool {
	return f.ack
}

// Retries returns the retry count for an Ack(_) variant.
func (f Flags) Retries() uint8 {
	return f.retries
}

func (f Flags) String() string {
	if !f.ack {
		return "none"
	}
	return fmt.Sprintf("ack(%d)", f.retries)
}

// flagsFromWire decodes a wire byte. 0 is None, 1..=3 is Ack(b); any other
// value collapses to None for forward compatibility with flag values this
// driver doesn't know about yet.
func flagsFromWire(b uint8) Flags {
	switch {
	case b == 0:
		return NoAck
	case b >= 1 && b <= 3:
		return Ack(b)
	default:
		return NoAck
	}
}

// toWire encodes flags as its single wire byte: None is 0, Ack(r) is r.
func (f Flags) toWire() uint8 {
	if !f.ack {
		return 0
	}
	return f.retries
}
