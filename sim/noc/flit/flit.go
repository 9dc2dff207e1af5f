package flit

import (
	"encoding/binary"
	"fmt"
	"log"
)

// Width is the number of bits carried per link transfer.
const Width = 64

// Flit is a single link transfer word. The first flit of every packet is a
// header flit; the rest are opaque payload.
type Flit uint64

// Header flits pack their fields into the low bytes of the word, matching a
// little-endian load of the on-wire byte order: byte 0 is the destination,
// byte 1 the source, byte 2 the packet length, bytes 3-7 reserved.
const (
	toShift     = 0
	fromShift   = 8
	lengthShift = 16
	fieldBits   = 8
	fieldMask   = (1 << fieldBits) - 1
)

// To extracts the destination address field, assuming f is a header flit.
func (f Flit) To() uint8 {
	return uint8((f >> toShift) & fieldMask)
}

// From extracts the source address field, assuming f is a header flit.
func (f Flit) From() uint8 {
	return uint8((f >> fromShift) & fieldMask)
}

// Length extracts the packet length field, assuming f is a header flit. The
// length counts every flit of the packet, header included, so a legal header
// never encodes zero.
func (f Flit) Length() uint8 {
	return uint8((f >> lengthShift) & fieldMask)
}

// Header assembles a header flit. Reserved bits are left zero.
func Header(to uint8, from uint8, length uint8) Flit {
	if length == 0 {
		log.Panicf("header flit cannot encode a zero-length packet (to=%d from=%d)", to, from)
	}
	return Flit(to)<<toShift | Flit(from)<<fromShift | Flit(length)<<lengthShift
}

func (f Flit) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// HeaderString renders the header field view of f for debug output.
func (f Flit) HeaderString() string {
	return fmt.Sprintf("dst=%d src=%d len=%d", f.To(), f.From(), f.Length())
}

// Bytes serializes f in wire order (little-endian).
func (f Flit) Bytes() []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(f))
	return b[:]
}

// FromBytes reassembles a flit from its wire order serialization.
func FromBytes(b []byte) Flit {
	if len(b) != 8 {
		log.Panicf("flit must be exactly 8 bytes, not %d", len(b))
	}
	return Flit(binary.LittleEndian.Uint64(b))
}
