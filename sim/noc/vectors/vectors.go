package vectors

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/nocfab/nocsim/sim/noc/flit"
	"github.com/nocfab/nocsim/sim/noc/packetbuf"
)

// Script is a fixed, ordered sequence of per-tick input bundles. Once the
// steps run out it keeps supplying idle ticks, so a link can run past the
// scripted portion without special handling.
type Script struct {
	steps []packetbuf.Inputs
	next  int
}

func MakeScript(steps []packetbuf.Inputs) *Script {
	return &Script{steps: steps}
}

func (s *Script) NextInputs(last packetbuf.Outputs) packetbuf.Inputs {
	if s.next >= len(s.steps) {
		return packetbuf.Inputs{}
	}
	in := s.steps[s.next]
	s.next++
	return in
}

func (s *Script) Exhausted() bool {
	return s.next >= len(s.steps)
}

func (s *Script) Len() int {
	return len(s.steps)
}

func (s *Script) Rewind() {
	s.next = 0
}

// Steps exposes the underlying bundles; treat them as read-only.
func (s *Script) Steps() []packetbuf.Inputs {
	return s.steps
}

// requiredSpacing is how many idle ticks the ingestion machine needs after a
// packet's last flit before the next header may arrive. Packets of three or
// more flits chain back-to-back; shorter ones leave the machine mid-walk.
func requiredSpacing(length int) int {
	switch length {
	case 1:
		return 2
	case 2:
		return 1
	default:
		return 0
	}
}

// Builder composes input scripts tick by tick, inserting the ingestion
// spacing that short packets require so hand-built scenarios cannot violate
// the feed contract by accident.
type Builder struct {
	steps []packetbuf.Inputs
}

func (b *Builder) Idle(n int) *Builder {
	for i := 0; i < n; i++ {
		b.steps = append(b.steps, packetbuf.Inputs{})
	}
	return b
}

func (b *Builder) Feed(w flit.Flit) *Builder {
	b.steps = append(b.steps, packetbuf.Inputs{Flit: w, FlitValid: true})
	return b
}

// Packet feeds a whole packet back-to-back, then pads with the idle ticks
// the ingestion machine needs before the next header.
func (b *Builder) Packet(words ...flit.Flit) *Builder {
	if len(words) == 0 {
		panic("packet must contain at least a header flit")
	}
	if int(words[0].Length()) != len(words) {
		log.Panicf("header %s disagrees with actual packet size %d", words[0].HeaderString(), len(words))
	}
	for _, w := range words {
		b.Feed(w)
	}
	return b.Idle(requiredSpacing(len(words)))
}

func (b *Builder) Stream() *Builder {
	b.steps = append(b.steps, packetbuf.Inputs{ControlValid: true, Stream: true})
	return b
}

func (b *Builder) Drop() *Builder {
	b.steps = append(b.steps, packetbuf.Inputs{ControlValid: true, Drop: true})
	return b
}

func (b *Builder) Reset() *Builder {
	b.steps = append(b.steps, packetbuf.Inputs{Reset: true})
	return b
}

func (b *Builder) Build() *Script {
	return MakeScript(b.steps)
}

var csvHeader = []string{"tick", "reset", "flit_valid", "flit", "control_valid", "drop", "stream"}

func formatBit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBit(field string) (bool, error) {
	switch field {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, errors.Errorf("invalid bit field %q", field)
	}
}

// Save writes the script in its CSV interchange form.
func Save(path string, s *Script) (re error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating vector file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			re = multierror.Append(re, err)
		}
	}()
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing vector header")
	}
	for i, in := range s.steps {
		row := []string{
			strconv.Itoa(i),
			formatBit(in.Reset),
			formatBit(in.FlitValid),
			fmt.Sprintf("%016x", uint64(in.Flit)),
			formatBit(in.ControlValid),
			formatBit(in.Drop),
			formatBit(in.Stream),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "writing vector row %d", i)
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flushing vector file")
}

// Load reads a script back from its CSV interchange form.
func Load(path string) (_ *Script, re error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening vector file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			re = multierror.Append(re, err)
		}
	}()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing vector file %q", path)
	}
	if len(rows) < 1 {
		return nil, errors.New("vector file has no header row")
	}
	if len(rows[0]) != len(csvHeader) {
		return nil, errors.Errorf("invalid vector header: %v", rows[0])
	}
	for i, name := range csvHeader {
		if rows[0][i] != name {
			return nil, errors.Errorf("invalid vector header column %d: %q", i, rows[0][i])
		}
	}

	steps := make([]packetbuf.Inputs, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if len(row) != len(csvHeader) {
			return nil, errors.Errorf("line %d: expected %d fields, got %d", line, len(csvHeader), len(row))
		}
		tick, err := strconv.Atoi(row[0])
		if err != nil || tick != i {
			return nil, errors.Errorf("line %d: tick column must count up from 0, got %q", line, row[0])
		}
		var in packetbuf.Inputs
		if in.Reset, err = parseBit(row[1]); err != nil {
			return nil, errors.Wrapf(err, "line %d: reset", line)
		}
		if in.FlitValid, err = parseBit(row[2]); err != nil {
			return nil, errors.Wrapf(err, "line %d: flit_valid", line)
		}
		word, err := strconv.ParseUint(row[3], 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: flit", line)
		}
		in.Flit = flit.Flit(word)
		if in.ControlValid, err = parseBit(row[4]); err != nil {
			return nil, errors.Wrapf(err, "line %d: control_valid", line)
		}
		if in.Drop, err = parseBit(row[5]); err != nil {
			return nil, errors.Wrapf(err, "line %d: drop", line)
		}
		if in.Stream, err = parseBit(row[6]); err != nil {
			return nil, errors.Wrapf(err, "line %d: stream", line)
		}
		steps = append(steps, in)
	}
	return MakeScript(steps), nil
}
