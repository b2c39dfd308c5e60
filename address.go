package rfm69

import "fmt"

// Address identifies a node on the radio network. The wire value 255 is
// reserved for Broadcast; every other value is a Unicast address.
type Address struct {
	broadcast bool
	unicast   uint8
}

// BroadcastAddr is the reserved address accepted by every node.
var BroadcastAddr = Address{broadcast: true}

// Unicast returns the address of a single node.
func Unicast(addr uint8) Address {
	return Address{unicast: addr}
}

// IsBroadcast reports whether this is the reserved broadcast address.
func (a Address) IsBroadcast() bool {
	return a.broadcast
}

// Value returns the unicast node address. It is meaningless when
// IsBroadcast() is true.
func (a Address) Value() uint8 {
	return a.unicast
}

func (a Address) String() string {
	if a.broadcast {
		return "broadcast"
	}
	return fmt.Sprintf("unicast(%d)", a.unicast)
}

// addressFromWire decodes a wire byte: 255 is Broadcast, anything else is
// Unicast(addr).
func addressFromWire(addr uint8) Address {
	if addr == 255 {
		return BroadcastAddr
	}
	return Unicast(addr)
}

// toWire encodes the address as its single wire byte.
func (a Address) toWire() uint8 {
	if a.broadcast {
		return 255
	}
	return a.unicast
}
