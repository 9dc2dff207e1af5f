package trace

import (
	"encoding/csv"
	"log"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/flit"
	"github.com/nocfab/nocsim/sim/noc/packetbuf"
)

// Sample is one tick of a link trace: the inputs presented on the edge, the
// registered outputs after it, and the visible pieces of internal state.
type Sample struct {
	Tick        int64
	Now         model.VirtualTime
	In          packetbuf.Inputs
	Out         packetbuf.Outputs
	Ingest      packetbuf.IngestState
	Egress      packetbuf.EgressState
	WriteCursor int
	ReadCursor  int
}

var csvHeader = []string{
	"tick", "ns",
	"reset", "flit_valid", "flit", "control_valid", "drop", "stream",
	"control_ready", "packet_ready", "to", "from", "length", "npackets", "nflits", "out_valid", "out_flit",
	"ingest", "egress", "write_cursor", "read_cursor",
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// CSVWriter records one row per tick. Attach its Observe method to a link.
type CSVWriter struct {
	f *os.File
	w *csv.Writer
}

func MakeCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating trace file")
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "writing trace header")
	}
	return &CSVWriter{f: f, w: w}, nil
}

func (c *CSVWriter) Observe(tick int64, now model.VirtualTime, in packetbuf.Inputs, out packetbuf.Outputs, state packetbuf.State) {
	err := c.w.Write([]string{
		strconv.FormatInt(tick, 10),
		strconv.FormatUint(now.Nanoseconds(), 10),
		bit(in.Reset),
		bit(in.FlitValid),
		strconv.FormatUint(uint64(in.Flit), 16),
		bit(in.ControlValid),
		bit(in.Drop),
		bit(in.Stream),
		bit(out.ControlReady),
		bit(out.PacketReady),
		strconv.Itoa(int(out.ToAddr)),
		strconv.Itoa(int(out.FromAddr)),
		strconv.Itoa(int(out.PacketLength)),
		strconv.Itoa(out.NPackets),
		strconv.Itoa(out.NFlits),
		bit(out.OutFlitValid),
		strconv.FormatUint(uint64(out.OutFlit), 16),
		strconv.Itoa(int(state.Ingest())),
		strconv.Itoa(int(state.Egress())),
		strconv.Itoa(state.WriteCursor()),
		strconv.Itoa(state.ReadCursor()),
	})
	c.w.Flush()
	if err == nil {
		err = c.w.Error()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func (c *CSVWriter) Close() (re error) {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		re = multierror.Append(re, err)
	}
	if err := c.f.Close(); err != nil {
		re = multierror.Append(re, err)
	}
	return re
}

// LoadCSV reads a trace back for offline analysis and plotting.
func LoadCSV(path string) (_ []Sample, re error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening trace")
	}
	defer func() {
		if err := f.Close(); err != nil {
			re = multierror.Append(re, err)
		}
	}()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing trace %q", path)
	}
	if len(rows) < 1 {
		return nil, errors.New("trace has no header row")
	}
	if len(rows[0]) != len(csvHeader) {
		return nil, errors.Errorf("invalid trace header: %v", rows[0])
	}
	for i, name := range csvHeader {
		if rows[0][i] != name {
			return nil, errors.Errorf("invalid trace header column %d: %q", i, rows[0][i])
		}
	}
	samples := make([]Sample, 0, len(rows)-1)
	for i, row := range rows[1:] {
		s, err := parseSample(row)
		if err != nil {
			return nil, errors.Wrapf(err, "trace line %d", i+2)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseSample(row []string) (Sample, error) {
	var s Sample
	if len(row) != len(csvHeader) {
		return s, errors.Errorf("expected %d fields, got %d", len(csvHeader), len(row))
	}
	var err error
	if s.Tick, err = strconv.ParseInt(row[0], 10, 64); err != nil {
		return s, errors.Wrap(err, "tick")
	}
	ns, err := strconv.ParseUint(row[1], 10, 64)
	if err != nil {
		return s, errors.Wrap(err, "ns")
	}
	now, ok := model.FromNanoseconds(ns)
	if !ok {
		return s, errors.Errorf("invalid timestamp: %v", row[1])
	}
	s.Now = now

	bits := map[int]*bool{
		2: &s.In.Reset, 3: &s.In.FlitValid, 5: &s.In.ControlValid, 6: &s.In.Drop, 7: &s.In.Stream,
		8: &s.Out.ControlReady, 9: &s.Out.PacketReady, 15: &s.Out.OutFlitValid,
	}
	for col, dest := range bits {
		if *dest, err = strconv.ParseBool(row[col]); err != nil {
			return s, errors.Wrap(err, csvHeader[col])
		}
	}
	words := map[int]*flit.Flit{4: &s.In.Flit, 16: &s.Out.OutFlit}
	for col, dest := range words {
		w, err := strconv.ParseUint(row[col], 16, 64)
		if err != nil {
			return s, errors.Wrap(err, csvHeader[col])
		}
		*dest = flit.Flit(w)
	}
	bytes := map[int]*uint8{10: &s.Out.ToAddr, 11: &s.Out.FromAddr, 12: &s.Out.PacketLength}
	for col, dest := range bytes {
		v, err := strconv.ParseUint(row[col], 10, 8)
		if err != nil {
			return s, errors.Wrap(err, csvHeader[col])
		}
		*dest = uint8(v)
	}
	counts := map[int]*int{13: &s.Out.NPackets, 14: &s.Out.NFlits, 19: &s.WriteCursor, 20: &s.ReadCursor}
	for col, dest := range counts {
		if *dest, err = strconv.Atoi(row[col]); err != nil {
			return s, errors.Wrap(err, csvHeader[col])
		}
	}
	ingest, err := strconv.ParseUint(row[17], 10, 8)
	if err != nil {
		return s, errors.Wrap(err, "ingest")
	}
	s.Ingest = packetbuf.IngestState(ingest)
	egress, err := strconv.ParseUint(row[18], 10, 8)
	if err != nil {
		return s, errors.Wrap(err, "egress")
	}
	s.Egress = packetbuf.EgressState(egress)
	return s, nil
}
