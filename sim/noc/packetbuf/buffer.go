package packetbuf

import (
	"fmt"
	"log"

	"github.com/nocfab/nocsim/sim/noc/flit"
)

// DefaultDepth is the slot count used when the config leaves it zero.
const DefaultDepth = 256

type Config struct {
	// Depth is the flit capacity of the store; must be a power of two.
	Depth int
}

func (c Config) depth() int {
	if c.Depth == 0 {
		return DefaultDepth
	}
	return c.Depth
}

// Inputs is the bundle sampled on one clock edge.
type Inputs struct {
	Flit      flit.Flit
	FlitValid bool

	// Reset overrides everything else this tick.
	Reset bool

	// A command is sampled only while the previous tick reported
	// ControlReady; exactly one of Drop or Stream selects the action.
	ControlValid bool
	Drop         bool
	Stream       bool
}

// Outputs is the registered external view after one clock edge.
type Outputs struct {
	// ControlReady announces that a command offered on the next tick will be
	// sampled.
	ControlReady bool

	// PacketReady asserts from the moment the front packet's header flit is
	// ingested until that packet has fully drained; while it holds, the
	// address and length fields below project that header.
	PacketReady  bool
	ToAddr       uint8
	FromAddr     uint8
	PacketLength uint8

	NPackets int
	NFlits   int

	// OutFlit carries one streamed flit per tick while OutFlitValid holds;
	// dumped flits are discarded without ever asserting it.
	OutFlit      flit.Flit
	OutFlitValid bool
}

// State carries every register of the buffer between ticks. Values are
// snapshots: Advance never mutates its argument, so a caller may retain any
// State and later resume or replay from it.
type State struct {
	store ring

	ingest IngestState
	egress EgressState

	writeCursor int
	readCursor  int

	// packetHead tracks where the packet currently being ingested starts;
	// drainHead tracks where the packet currently being drained starts.
	// They differ whenever ingestion runs ahead of egress.
	packetHead int
	drainHead  int

	packets int // complete-or-in-progress packets not yet fully drained
	flits   int // occupied slots

	recvCount  int // flits received of the packet being ingested
	recvLength int // length claimed by that packet's header

	// header caches the front packet's header flit; the address and length
	// outputs are pure projections of it and are never stored separately.
	header      flit.Flit
	headerValid bool

	outFlit  flit.Flit
	outValid bool
}

func MakeState(cfg Config) State {
	return State{
		store: makeRing(cfg.depth()),
	}
}

func (s State) Depth() int { return s.store.depth() }

func (s State) Ingest() IngestState { return s.ingest }

func (s State) Egress() EgressState { return s.egress }

func (s State) WriteCursor() int { return s.writeCursor }

func (s State) ReadCursor() int { return s.readCursor }

func (s State) PacketHead() int { return s.packetHead }

func (s State) Packets() int { return s.packets }

func (s State) Flits() int { return s.flits }

// FrontHeader returns the cached front packet header, if one is addressable.
func (s State) FrontHeader() (flit.Flit, bool) {
	return s.header, s.headerValid
}

func (s State) Summary() string {
	return fmt.Sprintf("ingest=%v egress=%v wc=%d rc=%d head=%d packets=%d flits=%d",
		s.ingest, s.egress, s.writeCursor, s.readCursor, s.packetHead, s.packets, s.flits)
}

// outputs projects the registered output view of a committed state.
func (s State) outputs() Outputs {
	o := Outputs{
		ControlReady: s.egress == EgressReady,
		PacketReady:  s.headerValid,
		NPackets:     s.packets,
		NFlits:       s.flits,
		OutFlit:      s.outFlit,
		OutFlitValid: s.outValid,
	}
	if s.headerValid {
		o.ToAddr = s.header.To()
		o.FromAddr = s.header.From()
		o.PacketLength = s.header.Length()
	}
	return o
}

// Advance computes one clock edge: both machines read the prev snapshot,
// their effects are merged, and the committed state plus its registered
// outputs are returned together. Precondition violations (overflow, body
// overrun, malformed headers or commands) panic rather than corrupt state.
func Advance(prev State, in Inputs) (Outputs, State) {
	if in.Reset {
		// unconditional: both machines to initial state, store cleared,
		// every output deasserted; a concurrently offered flit is lost
		next := MakeState(Config{Depth: prev.store.depth()})
		return next.outputs(), next
	}

	next := prev
	next.store = prev.store.clone()
	next.outFlit = 0
	next.outValid = false

	// --- ingestion machine ---

	startedPacket := false
	if in.FlitValid {
		if prev.ingest == IngestIdle {
			// the arriving flit is a header: delimit the new packet
			length := int(in.Flit.Length())
			if length == 0 {
				log.Panicf("malformed header flit %v: zero packet length (%s)", in.Flit, in.Flit.HeaderString())
			}
			if length > prev.store.depth() {
				log.Panicf("malformed header flit %v: length %d exceeds buffer depth %d", in.Flit, length, prev.store.depth())
			}
			next.packetHead = prev.writeCursor
			next.recvLength = length
			next.recvCount = 1
			next.packets = prev.packets + 1
			startedPacket = true
		} else {
			next.recvCount = prev.recvCount + 1
			if next.recvCount > prev.recvLength {
				log.Panicf("body overrun: flit %v arrived after the final flit of a length-%d packet (head=%d)",
					in.Flit, prev.recvLength, prev.packetHead)
			}
		}
		next.store.write(prev.writeCursor, in.Flit)
		next.writeCursor = next.store.next(prev.writeCursor)
		next.flits = next.flits + 1
	}

	switch prev.ingest {
	case IngestIdle:
		if in.FlitValid {
			next.ingest = IngestHeader
		}
	case IngestHeader:
		// the header was consumed the tick it arrived, so always move on,
		// whether or not a body flit landed this tick
		next.ingest = IngestBody
	case IngestBody:
		if next.recvCount >= next.recvLength {
			next.ingest = IngestIdle
		}
	default:
		log.Panicf("invalid ingestion state: %v", prev.ingest)
	}

	// --- control/egress machine ---

	switch prev.egress {
	case EgressIdle:
		// a packet became addressable: either one was already buffered, or
		// its header is on the input bus right now
		if prev.packets > 0 || in.FlitValid {
			next.egress = EgressReady
		}
	case EgressReady:
		if in.ControlValid {
			if in.Drop && in.Stream {
				log.Panicf("malformed command: drop and stream asserted together (%s)", prev.Summary())
			}
			if in.Stream {
				// first flit of the response is produced this same tick
				next.egress = EgressStreaming
				next.drainHead = prev.readCursor
				drainOne(&prev, &next, in, true)
			} else if in.Drop {
				next.egress = EgressDumping
				next.drainHead = prev.readCursor
				drainOne(&prev, &next, in, false)
			}
			// neither intent set: treated as no command this tick
		}
	case EgressStreaming:
		drainOne(&prev, &next, in, true)
	case EgressDumping:
		drainOne(&prev, &next, in, false)
	default:
		log.Panicf("invalid egress state: %v", prev.egress)
	}

	// a packet arriving into an empty buffer becomes the front immediately
	if startedPacket && prev.packets == 0 {
		next.header = in.Flit
		next.headerValid = true
	}

	next.CheckInvariants()
	return next.outputs(), next
}

// drainOne removes the flit at the read cursor, emitting it when stream is
// set and discarding it otherwise, then runs the packet boundary test.
func drainOne(prev *State, next *State, in Inputs, stream bool) {
	w := next.store.take(prev.readCursor)
	next.readCursor = next.store.next(prev.readCursor)
	next.flits = next.flits - 1
	if stream {
		next.outFlit = w
		next.outValid = true
	}

	// boundary test: has the cursor advanced past the final slot of the
	// packet being drained?
	length := int(prev.header.Length())
	if next.readCursor != next.store.wrap(next.drainHead+length) {
		return
	}

	// front packet fully drained
	next.packets = next.packets - 1
	if prev.packets-1 > 0 {
		// another packet was already buffered: its header sits exactly at
		// the advanced read cursor
		next.egress = EgressReady
		next.header = next.store.peek(next.readCursor)
		next.headerValid = true
	} else if in.FlitValid && prev.ingest == IngestIdle {
		// race: a new packet's header arrived on the very tick the last
		// buffered packet drained; it becomes the front via the input bus,
		// and the machine re-arms through IDLE on the next tick
		next.egress = EgressIdle
		next.header = in.Flit
		next.headerValid = true
	} else {
		next.egress = EgressIdle
		next.headerValid = false
	}
}

// CheckInvariants panics unless the committed state is coherent.
func (s State) CheckInvariants() {
	depth := s.store.depth()
	if s.flits < 0 || s.flits > depth {
		log.Panicf("flit count %d outside buffer capacity %d", s.flits, depth)
	}
	if got := s.store.occupied(); got != s.flits {
		log.Panicf("flit count %d disagrees with store occupancy %d", s.flits, got)
	}
	if (s.writeCursor-s.readCursor+depth)&(depth-1) != s.flits&(depth-1) {
		log.Panicf("cursors incoherent: wc=%d rc=%d flits=%d depth=%d", s.writeCursor, s.readCursor, s.flits, depth)
	}
	if s.packets < 0 || s.packets > s.flits {
		log.Panicf("packet count %d incoherent with flit count %d", s.packets, s.flits)
	}
	if s.headerValid != (s.packets > 0) {
		log.Panicf("front header validity %v incoherent with packet count %d", s.headerValid, s.packets)
	}
	if s.ingest > IngestBody {
		log.Panicf("invalid ingestion state: %v", s.ingest)
	}
	if s.egress > EgressDumping {
		log.Panicf("invalid egress state: %v", s.egress)
	}
	if s.ingest != IngestIdle {
		if s.recvLength < 1 || s.recvLength > depth {
			log.Panicf("ingestion length register %d out of range", s.recvLength)
		}
		if s.recvCount < 1 || s.recvCount > s.recvLength {
			log.Panicf("ingestion count register %d out of range for length %d", s.recvCount, s.recvLength)
		}
		if s.store.wrap(s.packetHead+s.recvCount) != s.writeCursor {
			log.Panicf("ingestion head %d incoherent with write cursor %d after %d flits", s.packetHead, s.writeCursor, s.recvCount)
		}
	}
	if (s.egress == EgressReady || s.egress == EgressStreaming || s.egress == EgressDumping) && !s.headerValid {
		log.Panicf("egress state %v without an addressable front packet", s.egress)
	}
	if (s.egress == EgressIdle || s.egress == EgressReady) && s.packets > 0 {
		if s.store.peek(s.readCursor) != s.header {
			log.Panicf("read cursor %d does not point at the front header %v", s.readCursor, s.header)
		}
	}
}

// Buffer wraps a State for callers advancing tick by tick.
type Buffer struct {
	state State
}

func MakeBuffer(cfg Config) *Buffer {
	return &Buffer{state: MakeState(cfg)}
}

func (b *Buffer) Tick(in Inputs) Outputs {
	out, next := Advance(b.state, in)
	b.state = next
	return out
}

// Snapshot returns the current register state; treat it as read-only.
func (b *Buffer) Snapshot() State {
	return b.state
}
