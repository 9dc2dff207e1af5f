package vectors

import (
	"io/ioutil"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocfab/nocsim/sim/noc/flit"
	"github.com/nocfab/nocsim/sim/noc/packetbuf"
)

func TestBuilderInsertsShortPacketSpacing(t *testing.T) {
	s := new(Builder).
		Packet(flit.Header(1, 2, 1)).
		Packet(flit.Header(3, 4, 2), flit.Flit(0x1111)).
		Packet(flit.Header(5, 6, 3), flit.Flit(0x2222), flit.Flit(0x3333)).
		Build()

	valid := make([]bool, 0, s.Len())
	for _, in := range s.Steps() {
		valid = append(valid, in.FlitValid)
	}
	// one-flit packet, two idles; two-flit packet, one idle; three-flit
	// packet chains with no idle at all
	assert.Equal(t, []bool{
		true, false, false,
		true, true, false,
		true, true, true,
	}, valid)
}

func TestBuilderRejectsMismatchedHeader(t *testing.T) {
	defer func() {
		assert.NotNil(t, recover(), "expected panic for header/word count mismatch")
	}()
	new(Builder).Packet(flit.Header(1, 2, 5), flit.Flit(7))
}

func TestScriptExhaustion(t *testing.T) {
	s := new(Builder).Feed(flit.Header(9, 9, 1)).Stream().Build()
	require.Equal(t, 2, s.Len())

	assert.False(t, s.Exhausted())
	in := s.NextInputs(packetbuf.Outputs{})
	assert.True(t, in.FlitValid)
	in = s.NextInputs(packetbuf.Outputs{})
	assert.True(t, in.ControlValid)
	assert.True(t, s.Exhausted())

	// past the end, the script keeps the link idle
	assert.Equal(t, packetbuf.Inputs{}, s.NextInputs(packetbuf.Outputs{}))
	assert.True(t, s.Exhausted())

	s.Rewind()
	assert.False(t, s.Exhausted())
	assert.True(t, s.NextInputs(packetbuf.Outputs{}).FlitValid)
}

func TestScriptRoundTrip(t *testing.T) {
	original := new(Builder).
		Reset().
		Packet(flit.Header(23, 5, 3), flit.Flit(0x123456789abcdef0), flit.Flit(0xfedcba9876543210)).
		Stream().
		Idle(3).
		Packet(flit.Header(78, 9, 1)).
		Drop().
		Build()

	path := filepath.Join(t.TempDir(), "vectors.csv")
	require.NoError(t, Save(path, original))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original.Steps(), loaded.Steps())
}

func TestLoadRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad header", "tick,reset\n"},
		{"renamed column", "tick,reset,flit_valid,word,control_valid,drop,stream\n"},
		{"bad bit", "tick,reset,flit_valid,flit,control_valid,drop,stream\n0,2,0,0000000000000000,0,0,0\n"},
		{"bad hex", "tick,reset,flit_valid,flit,control_valid,drop,stream\n0,0,1,zzzz,0,0,0\n"},
		{"tick gap", "tick,reset,flit_valid,flit,control_valid,drop,stream\n5,0,0,0000000000000000,0,0,0\n"},
	}
	for _, c := range cases {
		path := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, ioutil.WriteFile(path, []byte(c.body), 0644))
		_, err := Load(path)
		assert.Error(t, err, "case %q should fail to load", c.name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.csv"))
	assert.Error(t, err)
}

func runGenerator(t *testing.T, seed int64, cfg GeneratorConfig) ([]flit.Flit, GeneratorStats) {
	g := MakeGenerator(rand.New(rand.NewSource(seed)), cfg)
	buf := packetbuf.MakeBuffer(packetbuf.Config{Depth: cfg.Depth})
	var last packetbuf.Outputs
	var emitted []flit.Flit
	for tick := 0; tick < 20000; tick++ {
		last = buf.Tick(g.NextInputs(last))
		if last.OutFlitValid {
			emitted = append(emitted, last.OutFlit)
		}
		if g.Done(last) {
			return emitted, g.Stats()
		}
	}
	t.Fatalf("generator did not finish: stats=%+v outstanding=%d", g.Stats(), g.Outstanding())
	return nil, GeneratorStats{}
}

func TestGeneratorRespectsBufferContract(t *testing.T) {
	cfg := GeneratorConfig{
		Depth:          16,
		MinLength:      1,
		MaxLength:      6,
		StallPercent:   25,
		CommandPercent: 60,
		DropPercent:    30,
		MaxPackets:     50,
	}
	for _, seed := range []int64{1, 42, 99} {
		emitted, stats := runGenerator(t, seed, cfg)
		assert.Equal(t, 50, stats.Started, "seed %d", seed)
		assert.Equal(t, 50, stats.Streamed+stats.Dropped, "seed %d", seed)
		if stats.Streamed > 0 {
			assert.NotEmpty(t, emitted, "seed %d", seed)
		}
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	cfg := GeneratorConfig{
		Depth:          32,
		MaxLength:      5,
		StallPercent:   10,
		CommandPercent: 40,
		DropPercent:    20,
		MaxPackets:     30,
	}
	first, firstStats := runGenerator(t, 1337, cfg)
	second, secondStats := runGenerator(t, 1337, cfg)
	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)
}

func TestGeneratorConfigValidation(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	assert.Panics(t, func() {
		MakeGenerator(r, GeneratorConfig{Depth: 4, MinLength: 5, MaxLength: 6})
	})
	assert.Panics(t, func() {
		MakeGenerator(r, GeneratorConfig{Depth: 16, CommandPercent: 150})
	})
}
