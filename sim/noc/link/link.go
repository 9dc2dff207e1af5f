package link

import (
	"fmt"
	"log"
	"time"

	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/flitmodel"
	"github.com/nocfab/nocsim/sim/noc/packetbuf"
)

// Feed supplies the input bundle for each clock edge. The previous edge's
// outputs are passed in so a feed can honor the control handshake: it must
// not offer a command unless ControlReady was asserted.
type Feed interface {
	NextInputs(last packetbuf.Outputs) packetbuf.Inputs
}

// Observer sees each committed clock edge: the sampled inputs, the registered
// outputs, and a read-only snapshot of the register state.
type Observer func(tick int64, now model.VirtualTime, in packetbuf.Inputs, out packetbuf.Outputs, state packetbuf.State)

type Config struct {
	Label  string
	Depth  int
	Period time.Duration

	// Verbose logs every state machine transition.
	Verbose bool
}

// Link hosts one packet buffer instance on the event loop, advancing it by
// one tick per clock period.
type Link struct {
	ctx    model.SimContext
	label  string
	period time.Duration

	buf  *packetbuf.Buffer
	feed Feed

	outSink   flitmodel.FlitSink
	observers []Observer

	tick        int64
	lastOutputs packetbuf.Outputs
	lastIngest  packetbuf.IngestState
	lastEgress  packetbuf.EgressState

	verbose bool
	started bool
	cancel  func()
}

func MakeLink(ctx model.SimContext, config Config, feed Feed) *Link {
	if feed == nil {
		panic("link requires a feed")
	}
	if config.Period <= 0 {
		log.Panicf("link period must be positive, not %v", config.Period)
	}
	label := config.Label
	if label == "" {
		label = "Link"
	}
	return &Link{
		ctx:    ctx,
		label:  label,
		period: config.Period,
		buf:    packetbuf.MakeBuffer(packetbuf.Config{Depth: config.Depth}),
		feed:   feed,

		verbose: config.Verbose,
	}
}

// AttachOutput connects the streamed flit output to a sink. The sink must
// always accept: the output bus has no backpressure, so a refusal panics.
func (l *Link) AttachOutput(sink flitmodel.FlitSink) {
	l.outSink = sink
}

func (l *Link) Observe(obs Observer) {
	l.observers = append(l.observers, obs)
}

func (l *Link) Debug(explanation string, args ...interface{}) {
	log.Printf("%v [%s] %s", l.ctx.Now(), l.label, fmt.Sprintf(explanation, args...))
}

func (l *Link) LastOutputs() packetbuf.Outputs {
	return l.lastOutputs
}

func (l *Link) Ticks() int64 {
	return l.tick
}

func (l *Link) Snapshot() packetbuf.State {
	return l.buf.Snapshot()
}

// Start schedules the first clock edge one period from now.
func (l *Link) Start() {
	if l.started {
		panic("link already started")
	}
	l.started = true
	l.schedule()
}

// Stop cancels the clock; no further edges run.
func (l *Link) Stop() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *Link) schedule() {
	l.cancel = l.ctx.SetTimer(l.ctx.Now().Add(l.period), "sim.noc.link.Link/Edge", l.edge)
}

func (l *Link) edge() {
	in := l.feed.NextInputs(l.lastOutputs)
	out := l.buf.Tick(in)
	state := l.buf.Snapshot()

	if l.verbose {
		if state.Ingest() != l.lastIngest {
			l.Debug("ingestion %v -> %v (%s)", l.lastIngest, state.Ingest(), state.Summary())
		}
		if state.Egress() != l.lastEgress {
			l.Debug("egress %v -> %v (%s)", l.lastEgress, state.Egress(), state.Summary())
		}
	}
	l.lastIngest = state.Ingest()
	l.lastEgress = state.Egress()

	if out.OutFlitValid && l.outSink != nil {
		if !l.outSink.CanAcceptFlit() {
			log.Panicf("%v [%s] output sink refused flit %v: the output bus cannot stall", l.ctx.Now(), l.label, out.OutFlit)
		}
		l.outSink.PutFlit(out.OutFlit)
	}

	for _, obs := range l.observers {
		obs(l.tick, l.ctx.Now(), in, out, state)
	}

	l.lastOutputs = out
	l.tick++
	l.schedule()
}

// Horizon returns the virtual time at which n further ticks will have run.
func (l *Link) Horizon(n int64) model.VirtualTime {
	return l.ctx.Now().Add(time.Duration(n) * l.period)
}
