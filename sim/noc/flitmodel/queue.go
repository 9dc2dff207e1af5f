package flitmodel

import (
	"log"

	"github.com/nocfab/nocsim/sim/component"
	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/flit"
)

// queue is a bounded flit FIFO decoupling a producer from a consumer; each
// end notifies the other through its dispatcher as space or data appears.
type queue struct {
	ctx model.SimContext

	buffered []flit.Flit
	capacity int

	writable *component.EventDispatcher
	readable *component.EventDispatcher
}

type queueSource queue
type queueSink queue

func (qs *queueSource) HasFlitAvailable() bool {
	return len(qs.buffered) > 0
}

func (qs *queueSource) NextFlit() flit.Flit {
	if len(qs.buffered) == 0 {
		log.Panicf("no flit available to read")
	}
	w := qs.buffered[0]
	qs.buffered = qs.buffered[1:]
	qs.writable.DispatchLater()
	return w
}

func (qs *queueSource) Subscribe(callback func()) (cancel func()) {
	return qs.readable.Subscribe(callback)
}

func (qk *queueSink) CanAcceptFlit() bool {
	return len(qk.buffered) < qk.capacity
}

func (qk *queueSink) PutFlit(w flit.Flit) {
	if len(qk.buffered) >= qk.capacity {
		log.Panicf("flit queue full at capacity %d", qk.capacity)
	}
	qk.buffered = append(qk.buffered, w)
	qk.readable.DispatchLater()
}

func (qk *queueSink) Subscribe(callback func()) (cancel func()) {
	return qk.writable.Subscribe(callback)
}

// FlitQueue builds a bounded FIFO and returns its two ends.
func FlitQueue(ctx model.SimContext, capacity int) (FlitSource, FlitSink) {
	q := &queue{
		ctx:      ctx,
		buffered: make([]flit.Flit, 0, capacity),
		capacity: capacity,
		writable: component.MakeEventDispatcher(ctx, "sim.noc.flitmodel.FlitQueue/Writable"),
		readable: component.MakeEventDispatcher(ctx, "sim.noc.flitmodel.FlitQueue/Readable"),
	}
	return (*queueSource)(q), (*queueSink)(q)
}
