package vectors

import (
	"log"
	"math/rand"

	"github.com/nocfab/nocsim/sim/noc/flit"
	"github.com/nocfab/nocsim/sim/noc/packetbuf"
)

type GeneratorConfig struct {
	// Depth must match the buffer under test; the generator uses it to avoid
	// offering a packet the buffer has no room for.
	Depth int
	// MinLength and MaxLength bound generated packet sizes in flits,
	// header included. Defaults: 1 and min(8, Depth).
	MinLength int
	MaxLength int
	// StallPercent is the per-tick chance to withhold the next flit of the
	// packet currently being fed.
	StallPercent int
	// CommandPercent is the per-tick chance to issue a command when the
	// buffer is ready and the front packet has fully arrived.
	CommandPercent int
	// DropPercent is the portion of issued commands that dump instead of
	// stream.
	DropPercent int
	// MaxPackets stops the feed after this many packets; zero means no
	// limit.
	MaxPackets int
}

type GeneratorStats struct {
	Started  int
	Streamed int
	Dropped  int
}

type pendingPacket struct {
	complete bool
}

// Generator produces random but contract-respecting traffic: it never offers
// a command while the buffer is not ready, never commands a packet whose tail
// has not arrived, keeps the mandatory idle ticks after short packets, and
// never feeds a packet that would overflow the store. Sequences are fully
// determined by the seed and the output history, so a trial replays exactly.
type Generator struct {
	r       *rand.Rand
	cfg     GeneratorConfig
	current []flit.Flit
	index   int
	gap     int
	queue   []*pendingPacket
	stats   GeneratorStats
}

func MakeGenerator(r *rand.Rand, cfg GeneratorConfig) *Generator {
	if cfg.Depth == 0 {
		cfg.Depth = packetbuf.DefaultDepth
	}
	if cfg.MinLength == 0 {
		cfg.MinLength = 1
	}
	if cfg.MaxLength == 0 {
		cfg.MaxLength = 8
		if cfg.MaxLength > cfg.Depth {
			cfg.MaxLength = cfg.Depth
		}
	}
	if cfg.MinLength < 1 || cfg.MinLength > cfg.MaxLength || cfg.MaxLength > cfg.Depth || cfg.MaxLength > 255 {
		log.Panicf("invalid generator lengths: min=%d max=%d depth=%d", cfg.MinLength, cfg.MaxLength, cfg.Depth)
	}
	for _, pct := range []int{cfg.StallPercent, cfg.CommandPercent, cfg.DropPercent} {
		if pct < 0 || pct > 100 {
			log.Panicf("percentage out of range: %d", pct)
		}
	}
	return &Generator{r: r, cfg: cfg}
}

func (g *Generator) NextInputs(last packetbuf.Outputs) packetbuf.Inputs {
	var in packetbuf.Inputs
	if g.current != nil {
		if g.r.Intn(100) >= g.cfg.StallPercent {
			in.Flit = g.current[g.index]
			in.FlitValid = true
			if g.index == 0 {
				g.queue = append(g.queue, &pendingPacket{})
			}
			g.index++
			if g.index == len(g.current) {
				g.queue[len(g.queue)-1].complete = true
				g.gap = requiredSpacing(len(g.current))
				g.current, g.index = nil, 0
			}
		}
	} else if g.gap > 0 {
		g.gap--
	} else if g.cfg.MaxPackets == 0 || g.stats.Started < g.cfg.MaxPackets {
		length := g.cfg.MinLength + g.r.Intn(g.cfg.MaxLength-g.cfg.MinLength+1)
		// Outputs lag the feed by a tick, but only drains can have happened
		// in between, so this bound errs on the safe side.
		if last.NFlits+length <= g.cfg.Depth {
			words := make([]flit.Flit, 1, length)
			words[0] = flit.Header(uint8(g.r.Intn(256)), uint8(g.r.Intn(256)), uint8(length))
			for i := 1; i < length; i++ {
				words = append(words, flit.Flit(g.r.Uint64()))
			}
			g.current = words
			g.stats.Started++
		}
	}
	if last.ControlReady && len(g.queue) > 0 && g.queue[0].complete && g.r.Intn(100) < g.cfg.CommandPercent {
		in.ControlValid = true
		g.queue = g.queue[1:]
		if g.r.Intn(100) < g.cfg.DropPercent {
			in.Drop = true
			g.stats.Dropped++
		} else {
			in.Stream = true
			g.stats.Streamed++
		}
	}
	return in
}

func (g *Generator) Stats() GeneratorStats {
	return g.stats
}

// Outstanding counts packets fed (or being fed) but not yet commanded.
func (g *Generator) Outstanding() int {
	n := len(g.queue)
	if g.current != nil && g.index == 0 {
		n++
	}
	return n
}

// Done reports whether the generator has hit its packet limit and every
// generated packet has been commanded and drained.
func (g *Generator) Done(last packetbuf.Outputs) bool {
	return g.cfg.MaxPackets > 0 && g.stats.Started >= g.cfg.MaxPackets &&
		g.current == nil && len(g.queue) == 0 && last.NPackets == 0
}
