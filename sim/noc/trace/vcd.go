package trace

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/flit"
	"github.com/nocfab/nocsim/sim/noc/packetbuf"
)

type vcdSignal struct {
	name  string
	width int
}

// one entry per column produced by vcdValues, in the same order
var vcdSignals = []vcdSignal{
	{"reset", 1},
	{"flit_valid", 1},
	{"flit", flit.Width},
	{"control_valid", 1},
	{"drop", 1},
	{"stream", 1},
	{"control_ready", 1},
	{"packet_ready", 1},
	{"to_addr", 8},
	{"from_addr", 8},
	{"packet_length", 8},
	{"npackets", 16},
	{"nflits", 16},
	{"out_valid", 1},
	{"out_flit", flit.Width},
	{"ingest_state", 2},
	{"egress_state", 2},
	{"write_cursor", 16},
	{"read_cursor", 16},
}

func vcdValues(in packetbuf.Inputs, out packetbuf.Outputs, state packetbuf.State) []uint64 {
	b := func(v bool) uint64 {
		if v {
			return 1
		}
		return 0
	}
	return []uint64{
		b(in.Reset),
		b(in.FlitValid),
		uint64(in.Flit),
		b(in.ControlValid),
		b(in.Drop),
		b(in.Stream),
		b(out.ControlReady),
		b(out.PacketReady),
		uint64(out.ToAddr),
		uint64(out.FromAddr),
		uint64(out.PacketLength),
		uint64(out.NPackets),
		uint64(out.NFlits),
		b(out.OutFlitValid),
		uint64(out.OutFlit),
		uint64(state.Ingest()),
		uint64(state.Egress()),
		uint64(state.WriteCursor()),
		uint64(state.ReadCursor()),
	}
}

// identifier codes start at '!' per the VCD character set
func vcdID(index int) byte {
	return byte('!' + index)
}

// VCDWriter dumps the link's pin-level activity as a value change dump, for
// inspection in an ordinary waveform viewer. Only signals that changed are
// written at each timestamp. Attach its Observe method to a link.
type VCDWriter struct {
	f    *os.File
	w    *bufio.Writer
	last []uint64
}

func MakeVCDWriter(path string, scope string) (*VCDWriter, error) {
	if scope == "" {
		scope = "link"
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating waveform file")
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "$version nocsim $end\n")
	fmt.Fprintf(w, "$timescale 1ns $end\n")
	fmt.Fprintf(w, "$scope module %s $end\n", scope)
	for i, sig := range vcdSignals {
		fmt.Fprintf(w, "$var wire %d %c %s $end\n", sig.width, vcdID(i), sig.name)
	}
	fmt.Fprintf(w, "$upscope $end\n")
	fmt.Fprintf(w, "$enddefinitions $end\n")
	fmt.Fprintf(w, "$dumpvars\n")
	for i, sig := range vcdSignals {
		if sig.width == 1 {
			fmt.Fprintf(w, "x%c\n", vcdID(i))
		} else {
			fmt.Fprintf(w, "bx %c\n", vcdID(i))
		}
	}
	fmt.Fprintf(w, "$end\n")
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "writing waveform preamble")
	}
	return &VCDWriter{f: f, w: w}, nil
}

func (v *VCDWriter) Observe(tick int64, now model.VirtualTime, in packetbuf.Inputs, out packetbuf.Outputs, state packetbuf.State) {
	values := vcdValues(in, out, state)
	wroteStamp := false
	for i, value := range values {
		if v.last != nil && v.last[i] == value {
			continue
		}
		if !wroteStamp {
			fmt.Fprintf(v.w, "#%d\n", now.Nanoseconds())
			wroteStamp = true
		}
		if vcdSignals[i].width == 1 {
			fmt.Fprintf(v.w, "%d%c\n", value, vcdID(i))
		} else {
			fmt.Fprintf(v.w, "b%s %c\n", strconv.FormatUint(value, 2), vcdID(i))
		}
	}
	v.last = values
}

func (v *VCDWriter) Close() (re error) {
	if err := v.w.Flush(); err != nil {
		re = multierror.Append(re, err)
	}
	if err := v.f.Close(); err != nil {
		re = multierror.Append(re, err)
	}
	return re
}
