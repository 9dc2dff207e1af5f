package trace

import (
	"io/ioutil"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/flit"
	"github.com/nocfab/nocsim/sim/noc/packetbuf"
)

func sampleSteps() []packetbuf.Inputs {
	return []packetbuf.Inputs{
		{Flit: flit.Header(23, 5, 3), FlitValid: true},
		{Flit: flit.Flit(0xdeadbeef), FlitValid: true},
		{Flit: flit.Flit(0x1020304050607080), FlitValid: true},
		{ControlValid: true, Stream: true},
		{},
		{},
		{ControlValid: true, Drop: true},
		{Reset: true},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	w, err := MakeCSVWriter(path)
	if err != nil {
		t.Fatal(err)
	}

	buf := packetbuf.MakeBuffer(packetbuf.Config{Depth: 8})
	period := time.Microsecond
	var want []Sample
	for i, in := range sampleSteps() {
		out := buf.Tick(in)
		state := buf.Snapshot()
		now := model.TimeZero.Add(time.Duration(i+1) * period)
		w.Observe(int64(i), now, in, out, state)
		want = append(want, Sample{
			Tick:        int64(i),
			Now:         now,
			In:          in,
			Out:         out,
			Ingest:      state.Ingest(),
			Egress:      state.Egress(),
			WriteCursor: state.WriteCursor(),
			ReadCursor:  state.ReadCursor(),
		})
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("trace did not survive the round trip:\nwant %v\ngot  %v", want, got)
	}
}

func TestLoadCSVRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"bad header", "tick,ns\n"},
		{"short row", strings.Join(csvHeader, ",") + "\n1,1000\n"},
	}
	for _, c := range cases {
		path := filepath.Join(t.TempDir(), "trace.csv")
		if err := ioutil.WriteFile(path, []byte(c.body), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadCSV(path); err == nil {
			t.Errorf("case %q: expected load error", c.name)
		}
	}
}

func TestVCDEmitsOnlyOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.vcd")
	w, err := MakeVCDWriter(path, "dut")
	if err != nil {
		t.Fatal(err)
	}

	buf := packetbuf.MakeBuffer(packetbuf.Config{Depth: 8})
	steps := []packetbuf.Inputs{
		{Flit: flit.Header(1, 2, 2), FlitValid: true},
		{Flit: flit.Flit(0x77), FlitValid: true},
		{},
		{},
	}
	for i, in := range steps {
		out := buf.Tick(in)
		w.Observe(int64(i), model.TimeZero.Add(time.Duration(i+1)*time.Microsecond), in, out, buf.Snapshot())
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		"$timescale 1ns $end",
		"$scope module dut $end",
		"$var wire 64 # flit $end",
		"$var wire 1 ! reset $end",
		"$dumpvars",
		"#1000\n",
		"#3000\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("waveform output missing %q", want)
		}
	}
	// the fourth tick repeats the third exactly, so no timestamp is written
	if strings.Contains(text, "#4000") {
		t.Errorf("waveform output contains a timestamp with no value changes:\n%s", text)
	}
}
