package flitmodel

import (
	"github.com/nocfab/nocsim/sim/model"
)

// PatchLinks pumps flits from source into sink whenever both ends are ready.
func PatchLinks(ctx model.SimContext, source FlitSource, sink FlitSink) {
	pump := func() {
		for source.HasFlitAvailable() && sink.CanAcceptFlit() {
			sink.PutFlit(source.NextFlit())
		}
	}
	source.Subscribe(pump)
	sink.Subscribe(pump)
	ctx.Later("sim.noc.flitmodel.PatchLinks/Start", pump)
}

func PatchWires(ctx model.SimContext, left FlitWire, right FlitWire) {
	PatchLinks(ctx, left.Source, right.Sink)
	PatchLinks(ctx, right.Source, left.Sink)
}
