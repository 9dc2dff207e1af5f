package flitmodel

import (
	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/flit"
)

// at the flit level of abstraction, words move one at a time, and packet
// boundaries exist only in the header contents.

type FlitSource interface {
	model.EventSource
	HasFlitAvailable() bool
	NextFlit() flit.Flit
}

type FlitSink interface {
	model.EventSource
	CanAcceptFlit() bool
	PutFlit(w flit.Flit)
}

type FlitWire struct {
	Source FlitSource
	Sink   FlitSink
}
