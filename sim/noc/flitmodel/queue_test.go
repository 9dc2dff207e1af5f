package flitmodel

import (
	"testing"
	"time"

	"github.com/nocfab/nocsim/sim/component"
	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/flit"
)

func TestQueueBackpressure(t *testing.T) {
	sim := component.MakeSimControllerSeeded(5, model.TimeZero)
	srcA, sinkA := FlitQueue(sim, 4)
	srcB, sinkB := FlitQueue(sim, 2)

	var seen []flit.Flit
	PatchLinks(sim, srcA, TapSink(sinkB, func(w flit.Flit) {
		seen = append(seen, w)
	}))

	for i := 1; i <= 4; i++ {
		sinkA.PutFlit(flit.Flit(i))
	}
	sim.Advance(model.TimeZero.Add(time.Millisecond))

	// only two fit downstream; the rest wait under backpressure
	if len(seen) != 2 {
		t.Fatalf("expected 2 pumped flits, saw %d", len(seen))
	}
	if srcA.HasFlitAvailable() != true {
		t.Error("upstream should retain the overflow")
	}

	if w := srcB.NextFlit(); w != flit.Flit(1) {
		t.Errorf("wrong first flit: %v", w)
	}
	if w := srcB.NextFlit(); w != flit.Flit(2) {
		t.Errorf("wrong second flit: %v", w)
	}
	sim.Advance(sim.Now().Add(time.Millisecond))

	if len(seen) != 4 {
		t.Fatalf("draining downstream should resume the pump, saw %d", len(seen))
	}
	if srcA.HasFlitAvailable() {
		t.Error("upstream should have drained completely")
	}
}

func TestQueueMisusePanics(t *testing.T) {
	sim := component.MakeSimControllerSeeded(6, model.TimeZero)
	src, sink := FlitQueue(sim, 1)

	sink.PutFlit(flit.Flit(9))
	func() {
		defer func() {
			if recover() == nil {
				t.Error("overfilling the queue should panic")
			}
		}()
		sink.PutFlit(flit.Flit(10))
	}()

	if src.NextFlit() != flit.Flit(9) {
		t.Error("wrong flit read back")
	}
	defer func() {
		if recover() == nil {
			t.Error("reading an empty queue should panic")
		}
	}()
	src.NextFlit()
}

func TestTapSourceObserves(t *testing.T) {
	sim := component.MakeSimControllerSeeded(7, model.TimeZero)
	src, sink := FlitQueue(sim, 2)
	var taps []flit.Flit
	tapped := TapSource(src, func(w flit.Flit) {
		taps = append(taps, w)
	})
	sink.PutFlit(flit.Flit(0x42))
	if !tapped.HasFlitAvailable() {
		t.Fatal("tap must forward availability")
	}
	if tapped.NextFlit() != flit.Flit(0x42) {
		t.Error("tap must forward the flit unchanged")
	}
	if len(taps) != 1 || taps[0] != flit.Flit(0x42) {
		t.Errorf("tap callback missed the flit: %v", taps)
	}
}
