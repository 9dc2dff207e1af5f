package packetbuf

import (
	"testing"

	"github.com/nocfab/nocsim/sim/noc/flit"
)

func TestRingIndexArithmetic(t *testing.T) {
	r := makeRing(8)
	if r.depth() != 8 {
		t.Errorf("wrong depth: %d", r.depth())
	}
	if r.wrap(8) != 0 || r.wrap(13) != 5 || r.wrap(7) != 7 {
		t.Error("wrap arithmetic broken")
	}
	if r.next(7) != 0 || r.next(0) != 1 {
		t.Error("next arithmetic broken")
	}
}

func TestRingRejectsBadDepth(t *testing.T) {
	for _, depth := range []int{0, -4, 3, 6, 100} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("depth %d should have been rejected", depth)
				}
			}()
			makeRing(depth)
		}()
	}
}

func TestRingWriteTakePeek(t *testing.T) {
	r := makeRing(4)
	r.write(2, flit.Flit(0xAB))
	if r.occupied() != 1 {
		t.Errorf("wrong occupancy: %d", r.occupied())
	}
	if r.peek(2) != flit.Flit(0xAB) {
		t.Error("peek returned wrong word")
	}
	if w := r.take(2); w != flit.Flit(0xAB) {
		t.Errorf("take returned wrong word: %v", w)
	}
	if r.occupied() != 0 {
		t.Error("slot not cleared after take")
	}
	// indexes past the end must land back in range
	r.write(6, flit.Flit(0xCD))
	if r.peek(2) != flit.Flit(0xCD) {
		t.Error("write did not wrap")
	}
}

func TestRingOverflowPanics(t *testing.T) {
	r := makeRing(4)
	r.write(1, flit.Flit(1))
	defer func() {
		if recover() == nil {
			t.Error("overwriting a live slot should panic")
		}
	}()
	r.write(1, flit.Flit(2))
}

func TestRingEmptyAccessPanics(t *testing.T) {
	r := makeRing(4)
	func() {
		defer func() {
			if recover() == nil {
				t.Error("taking an empty slot should panic")
			}
		}()
		r.take(0)
	}()
	func() {
		defer func() {
			if recover() == nil {
				t.Error("peeking an empty slot should panic")
			}
		}()
		r.peek(3)
	}()
}

func TestRingCloneIndependence(t *testing.T) {
	r := makeRing(4)
	r.write(0, flit.Flit(7))
	c := r.clone()
	c.write(1, flit.Flit(8))
	c.take(0)
	if r.occupied() != 1 {
		t.Error("mutating the clone leaked into the original")
	}
	if r.peek(0) != flit.Flit(7) {
		t.Error("original slot corrupted by clone mutation")
	}
	if c.occupied() != 1 || c.peek(1) != flit.Flit(8) {
		t.Error("clone did not retain its own mutations")
	}
}
