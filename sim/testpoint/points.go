package testpoint

import (
	"github.com/nocfab/nocsim/sim/component"
	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/flit"
	"github.com/nocfab/nocsim/sim/noc/flitmodel"
)

// CollectorSink accepts every flit offered and keeps them for inspection.
type CollectorSink struct {
	component.NullEventSource
	Collected []flit.Flit
}

var _ flitmodel.FlitSink = &CollectorSink{}

func MakeCollectorSink(ctx model.SimContext) *CollectorSink {
	return &CollectorSink{}
}

func (cs *CollectorSink) CanAcceptFlit() bool {
	return true
}

func (cs *CollectorSink) PutFlit(w flit.Flit) {
	cs.Collected = append(cs.Collected, w)
}

func (cs *CollectorSink) Take() []flit.Flit {
	out := cs.Collected
	cs.Collected = nil
	return out
}

// ScriptedSource offers a preset sequence of flits.
type ScriptedSource struct {
	*component.EventDispatcher
	Ready []flit.Flit
}

var _ flitmodel.FlitSource = &ScriptedSource{}

func MakeScriptedSource(ctx model.SimContext, ready []flit.Flit) *ScriptedSource {
	return &ScriptedSource{
		EventDispatcher: component.MakeEventDispatcher(ctx, "sim.testpoint.ScriptedSource"),
		Ready:           ready,
	}
}

func (ss *ScriptedSource) HasFlitAvailable() bool {
	return len(ss.Ready) > 0
}

func (ss *ScriptedSource) NextFlit() flit.Flit {
	if len(ss.Ready) == 0 {
		panic("no flit available to read")
	}
	w := ss.Ready[0]
	ss.Ready = ss.Ready[1:]
	return w
}

func (ss *ScriptedSource) Refill(data []flit.Flit) {
	if !ss.IsConsumed() {
		panic("cannot refill non-empty testpoint")
	}
	ss.Ready = data
	ss.EventDispatcher.DispatchLater()
}

func (ss *ScriptedSource) IsConsumed() bool {
	return len(ss.Ready) == 0
}
