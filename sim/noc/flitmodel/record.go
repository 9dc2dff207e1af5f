package flitmodel

import (
	"github.com/nocfab/nocsim/sim/component"
	"github.com/nocfab/nocsim/sim/noc/flit"
)

func RecordSink(r *component.CSVByteRecorder, channel string, sink FlitSink) FlitSink {
	if r.IsRecording() {
		return TapSink(sink, func(w flit.Flit) {
			r.Record(channel, w.Bytes())
		})
	} else {
		return sink
	}
}

func RecordSource(r *component.CSVByteRecorder, channel string, source FlitSource) FlitSource {
	if r.IsRecording() {
		return TapSource(source, func(w flit.Flit) {
			r.Record(channel, w.Bytes())
		})
	} else {
		return source
	}
}

func RecordWire(r *component.CSVByteRecorder, channelSource, channelSink string, wire FlitWire) FlitWire {
	return FlitWire{
		Source: RecordSource(r, channelSource, wire.Source),
		Sink:   RecordSink(r, channelSink, wire.Sink),
	}
}
