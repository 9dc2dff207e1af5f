package testpoint

import (
	"math/rand"
	"testing"

	"github.com/nocfab/nocsim/sim/noc/flit"
)

// RandPayload builds a complete packet: a header flit carrying the given
// addresses and total length, followed by length-1 random body flits.
func RandPayload(r *rand.Rand, to uint8, from uint8, length int) []flit.Flit {
	if length < 1 || length > 255 {
		panic("packet length must fit in the header length field")
	}
	packet := make([]flit.Flit, length)
	packet[0] = flit.Header(to, from, uint8(length))
	for i := 1; i < length; i++ {
		packet[i] = flit.Flit(r.Uint64())
	}
	return packet
}

func CompareFlits(actual []flit.Flit, expected []flit.Flit) (mismatches int, lengthOk bool) {
	for i := 0; i < len(actual) && i < len(expected); i++ {
		if actual[i] != expected[i] {
			mismatches += 1
		}
	}
	return mismatches, len(actual) == len(expected)
}

func AssertFlitsMatch(t *testing.T, actual []flit.Flit, expected []flit.Flit) {
	mismatches, lengthOk := CompareFlits(actual, expected)
	if !lengthOk {
		t.Errorf("Flit streams did not match: expected len=%d, found len=%d", len(expected), len(actual))
	}
	if mismatches != 0 {
		t.Errorf("Flit streams did not match: %d flits (out of %d) were mismatched", mismatches, len(expected))
	}
}
