package packetbuf

import (
	"log"

	"github.com/nocfab/nocsim/sim/noc/flit"
)

// slot pairs a buffered word with its occupancy bit.
type slot struct {
	word  flit.Flit
	valid bool
}

// ring is the backing circular flit store. The capacity is a power of two so
// that cursor wraparound is a mask; every index computation happens here, and
// every access checks the occupancy bit, so cursor bugs and overflow surface
// as panics instead of silently recycling live data.
type ring struct {
	slots []slot
	mask  int
}

func makeRing(depth int) ring {
	if depth <= 0 || depth&(depth-1) != 0 {
		log.Panicf("ring depth must be a positive power of two, not %d", depth)
	}
	return ring{
		slots: make([]slot, depth),
		mask:  depth - 1,
	}
}

func (r ring) depth() int {
	return len(r.slots)
}

// wrap reduces an index that may have run past the end back into range.
func (r ring) wrap(index int) int {
	if index < 0 {
		panic("negative ring index")
	}
	return index & r.mask
}

// next is the slot following index, wrapped.
func (r ring) next(index int) int {
	return (index + 1) & r.mask
}

// write stores a flit into an empty slot. Writing a slot that still holds an
// undrained flit is a buffer overflow.
func (r ring) write(index int, w flit.Flit) {
	index = r.wrap(index)
	if r.slots[index].valid {
		log.Panicf("buffer overflow: slot %d still holds undrained flit %v", index, r.slots[index].word)
	}
	r.slots[index] = slot{word: w, valid: true}
}

// take drains the flit in an occupied slot, marking it empty.
func (r ring) take(index int) flit.Flit {
	index = r.wrap(index)
	if !r.slots[index].valid {
		log.Panicf("draining empty slot %d: read cursor ran ahead of ingestion", index)
	}
	w := r.slots[index].word
	r.slots[index] = slot{}
	return w
}

// peek reads an occupied slot without draining it.
func (r ring) peek(index int) flit.Flit {
	index = r.wrap(index)
	if !r.slots[index].valid {
		log.Panicf("peeking empty slot %d", index)
	}
	return r.slots[index].word
}

// occupied counts the slots currently holding flits.
func (r ring) occupied() int {
	count := 0
	for _, s := range r.slots {
		if s.valid {
			count++
		}
	}
	return count
}

// clone copies the store so one tick's writes never alias the previous
// tick's snapshot.
func (r ring) clone() ring {
	slots := make([]slot, len(r.slots))
	copy(slots, r.slots)
	return ring{slots: slots, mask: r.mask}
}
