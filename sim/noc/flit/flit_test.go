package flit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderFields(t *testing.T) {
	h := Header(23, 5, 3)
	assert.Equal(t, uint8(23), h.To())
	assert.Equal(t, uint8(5), h.From())
	assert.Equal(t, uint8(3), h.Length())
	assert.Equal(t, Flit(0x030517), h)
}

func TestHeaderWireOrder(t *testing.T) {
	// byte 0 carries the destination, byte 1 the source, byte 2 the length
	h := Header(0x17, 0x05, 0x03)
	assert.Equal(t, []byte{0x17, 0x05, 0x03, 0, 0, 0, 0, 0}, h.Bytes())
}

func TestPayloadRoundTrip(t *testing.T) {
	f := Flit(0xdeadbeefcafe1234)
	assert.Equal(t, f, FromBytes(f.Bytes()))
}

func TestZeroLengthHeaderRejected(t *testing.T) {
	assert.Panics(t, func() {
		Header(1, 2, 0)
	})
}

func TestShortFlitRejected(t *testing.T) {
	assert.Panics(t, func() {
		FromBytes([]byte{1, 2, 3})
	})
}

func TestReservedBitsIgnored(t *testing.T) {
	// field extraction must mask away the reserved bytes
	f := Flit(0xffffffffff030517)
	assert.Equal(t, uint8(0x17), f.To())
	assert.Equal(t, uint8(0x05), f.From())
	assert.Equal(t, uint8(0x03), f.Length())
}
