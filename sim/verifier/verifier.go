package verifier

import (
	"fmt"
	"log"
	"time"

	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/packetbuf"
)

// ambientReqs are checked on every tick; violations are accumulated and
// retired in periodic validation windows.
var ambientReqs = []string{
	ReqCapacityBound,
	ReqCountsConsistent,
	ReqReadyConsistent,
	ReqCursorCoherence,
	ReqStreamTail,
	ReqFrontStable,
	ReqIdleStable,
}

type commandEpisode struct {
	stream    bool
	length    int
	emitted   int
	ticksLeft int
	to, from  uint8
	headerOK  bool
	complete  func(success bool)
}

func (e *commandEpisode) ok() bool {
	return e.headerOK && e.emitted == e.length
}

// LinkVerifier watches a link tick by tick and retires requirements against
// what the buffer actually did. Attach its Observe method to the link under
// test; it keeps its own shadow of command progress and nothing else, so a
// defect in the buffer's bookkeeping cannot hide from it.
type LinkVerifier struct {
	sim        model.SimContext
	rqt        *ReqTracker
	window     time.Duration
	violations map[string]int

	seeded    bool
	prevOut   packetbuf.Outputs
	prevState packetbuf.State
	episode   *commandEpisode
}

func MakeLinkVerifier(ctx model.SimContext, rqt *ReqTracker, window time.Duration) *LinkVerifier {
	if window <= 0 {
		window = time.Millisecond
	}
	v := &LinkVerifier{
		sim:        ctx,
		rqt:        rqt,
		window:     window,
		violations: map[string]int{},
	}
	v.startPeriodicValidation(map[string]int{})
	return v
}

// startPeriodicValidation opens one outstanding check per ambient requirement
// and retires them a window later, passing only if no new violations of that
// requirement were recorded in the meantime.
func (v *LinkVerifier) startPeriodicValidation(prev map[string]int) {
	completions := map[string]func(bool){}
	for _, req := range ambientReqs {
		completions[req] = v.rqt.Start(req)
	}
	v.sim.SetTimer(v.sim.Now().Add(v.window), "sim.verifier.LinkVerifier/Window", func() {
		current := map[string]int{}
		for _, req := range ambientReqs {
			current[req] = v.violations[req]
			completions[req](current[req] == prev[req])
		}
		v.startPeriodicValidation(current)
	})
}

func (v *LinkVerifier) violation(req string, format string, args ...interface{}) {
	v.violations[req] += 1
	log.Printf("%v [LinkVerifier] %s violated: %s", v.sim.Now(), req, fmt.Sprintf(format, args...))
}

func (v *LinkVerifier) closeEpisode(success bool) {
	if v.episode != nil && v.episode.complete != nil {
		v.episode.complete(success)
	}
	v.episode = nil
}

// Observe is a link observer; it must see every tick of exactly one link.
func (v *LinkVerifier) Observe(tick int64, now model.VirtualTime, in packetbuf.Inputs, out packetbuf.Outputs, state packetbuf.State) {
	if in.Reset {
		if out == (packetbuf.Outputs{}) {
			v.rqt.Immediate(ReqResetClears, true)
		} else {
			log.Printf("%v [LinkVerifier] outputs not cleared by reset: %+v", now, out)
			v.rqt.Immediate(ReqResetClears, false)
		}
		// an episode cut short by reset is not a drain failure; retire it
		// against what had been emitted so far
		if v.episode != nil {
			v.closeEpisode(v.episode.headerOK && v.episode.emitted <= v.episode.length)
		}
		v.prevOut, v.prevState = out, state
		v.seeded = true
		return
	}

	depth := state.Depth()
	if out.NFlits < 0 || out.NFlits > depth {
		v.violation(ReqCapacityBound, "flit count %d outside [0, %d]", out.NFlits, depth)
	}
	if out.NPackets < 0 || out.NPackets > out.NFlits {
		v.violation(ReqCountsConsistent, "packet count %d outside [0, %d]", out.NPackets, out.NFlits)
	}
	if out.PacketReady != (out.NPackets > 0) {
		v.violation(ReqCountsConsistent, "packet ready %v with %d packets", out.PacketReady, out.NPackets)
	}
	if out.PacketReady && out.PacketLength == 0 {
		v.violation(ReqCountsConsistent, "front packet advertises zero length")
	}
	if out.ControlReady && !out.PacketReady {
		v.violation(ReqReadyConsistent, "ready for command with no front packet")
	}
	if state.Flits() != out.NFlits {
		v.violation(ReqCursorCoherence, "state holds %d flits but output reports %d", state.Flits(), out.NFlits)
	}
	if ((state.WriteCursor()-state.ReadCursor())+depth)%depth != out.NFlits%depth {
		v.violation(ReqCursorCoherence, "cursors %d/%d disagree with flit count %d",
			state.WriteCursor(), state.ReadCursor(), out.NFlits)
	}

	if v.seeded && v.prevOut.ControlReady && in.ControlValid && (in.Stream || in.Drop) {
		length := int(v.prevOut.PacketLength)
		if length == 0 {
			v.violation(ReqCountsConsistent, "command accepted against a zero-length front packet")
		} else {
			v.episode = &commandEpisode{
				stream:    in.Stream,
				length:    length,
				ticksLeft: length,
				to:        v.prevOut.ToAddr,
				from:      v.prevOut.FromAddr,
				headerOK:  true,
			}
			if in.Stream {
				v.episode.complete = v.rqt.Start(ReqStreamExact)
			}
		}
	}

	if out.OutFlitValid {
		if v.episode != nil && v.episode.stream {
			if v.episode.emitted == 0 {
				w := out.OutFlit
				if w.To() != v.episode.to || w.From() != v.episode.from || int(w.Length()) != v.episode.length {
					log.Printf("%v [LinkVerifier] streamed header %s does not match advertised dst=%d src=%d len=%d",
						now, w.HeaderString(), v.episode.to, v.episode.from, v.episode.length)
					v.episode.headerOK = false
				}
			}
			v.episode.emitted += 1
		} else {
			v.violation(ReqStreamTail, "flit %v emitted with no stream in progress", out.OutFlit)
		}
	}

	episodeEnded := false
	if v.episode != nil {
		v.episode.ticksLeft -= 1
		if v.episode.ticksLeft == 0 {
			episodeEnded = true
			e := v.episode
			if e.stream && !e.ok() {
				log.Printf("%v [LinkVerifier] stream episode emitted %d of %d flits (header ok: %v)",
					now, e.emitted, e.length, e.headerOK)
			}
			v.closeEpisode(e.ok())
		}
	}

	if v.seeded {
		if v.prevOut.PacketReady && out.PacketReady && !episodeEnded {
			if out.ToAddr != v.prevOut.ToAddr || out.FromAddr != v.prevOut.FromAddr || out.PacketLength != v.prevOut.PacketLength {
				v.violation(ReqFrontStable, "front header moved from dst=%d src=%d len=%d to dst=%d src=%d len=%d",
					v.prevOut.ToAddr, v.prevOut.FromAddr, v.prevOut.PacketLength,
					out.ToAddr, out.FromAddr, out.PacketLength)
			}
		}
		// the tick that re-arms the egress machine after a completion race
		// changes ControlReady without any stimulus, which is expected
		arming := v.prevState.Egress() == packetbuf.EgressIdle && v.prevState.Packets() > 0
		if in == (packetbuf.Inputs{}) && v.episode == nil && !episodeEnded && !arming {
			if out != v.prevOut {
				v.violation(ReqIdleStable, "outputs changed on an idle tick: %+v -> %+v", v.prevOut, out)
			}
		}
	}

	v.prevOut, v.prevState = out, state
	v.seeded = true
}
