package flitmodel

import "github.com/nocfab/nocsim/sim/noc/flit"

type tappedSink struct {
	FlitSink
	cb func(w flit.Flit)
}

func (t *tappedSink) PutFlit(w flit.Flit) {
	t.cb(w)
	t.FlitSink.PutFlit(w)
}

// TapSink observes every flit written through the sink.
func TapSink(sink FlitSink, cb func(w flit.Flit)) FlitSink {
	return &tappedSink{
		FlitSink: sink,
		cb:       cb,
	}
}

type tappedSource struct {
	FlitSource
	cb func(w flit.Flit)
}

func (t *tappedSource) NextFlit() flit.Flit {
	w := t.FlitSource.NextFlit()
	t.cb(w)
	return w
}

// TapSource observes every flit read through the source.
func TapSource(source FlitSource, cb func(w flit.Flit)) FlitSource {
	return &tappedSource{
		FlitSource: source,
		cb:         cb,
	}
}
