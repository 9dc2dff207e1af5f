// Package trial runs one complete link simulation: a seeded traffic
// generator feeding a link, with the verifier watching every tick and
// optional trace capture on the side.
package trial

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/nocfab/nocsim/sim/component"
	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/link"
	"github.com/nocfab/nocsim/sim/noc/packetbuf"
	"github.com/nocfab/nocsim/sim/noc/trace"
	"github.com/nocfab/nocsim/sim/noc/vectors"
	"github.com/nocfab/nocsim/sim/testpoint"
	"github.com/nocfab/nocsim/sim/verifier"
)

type Options struct {
	Label  string
	Depth  int
	Period time.Duration
	Seed   int64
	Ticks  int64

	MinLength      int
	MaxLength      int
	StallPercent   int
	CommandPercent int
	DropPercent    int
	MaxPackets     int

	TracePath  string
	VCDPath    string
	ReqLogPath string
	Window     time.Duration
	Verbose    bool
}

func (opt Options) withDefaults() Options {
	if opt.Label == "" {
		opt.Label = "L0"
	}
	if opt.Depth == 0 {
		opt.Depth = packetbuf.DefaultDepth
	}
	if opt.Period == 0 {
		opt.Period = 10 * time.Microsecond
	}
	if opt.Ticks == 0 {
		opt.Ticks = 100000
	}
	if opt.CommandPercent == 0 {
		opt.CommandPercent = 50
	}
	if opt.Window == 0 {
		opt.Window = time.Millisecond
	}
	return opt
}

type Result struct {
	Label       string
	Seed        int64
	Depth       int
	Ticks       int64
	SimTime     time.Duration
	WallTime    time.Duration
	Started     int
	Streamed    int
	Dropped     int
	Delivered   int
	Failed      bool
	Successes   int
	Outstanding int
	Explanation string
}

// Run executes a single trial to completion and reports what happened.
func Run(opt Options) (res Result, re error) {
	opt = opt.withDefaults()

	sim := component.MakeSimControllerSeeded(opt.Seed, model.TimeZero)
	rqt := verifier.MakeReqTracker(sim)
	if opt.ReqLogPath != "" {
		rqt.LogToPath(opt.ReqLogPath)
	}
	watch := verifier.MakeLinkVerifier(sim, rqt, opt.Window)

	gen := vectors.MakeGenerator(sim.Rand(), vectors.GeneratorConfig{
		Depth:          opt.Depth,
		MinLength:      opt.MinLength,
		MaxLength:      opt.MaxLength,
		StallPercent:   opt.StallPercent,
		CommandPercent: opt.CommandPercent,
		DropPercent:    opt.DropPercent,
		MaxPackets:     opt.MaxPackets,
	})

	l := link.MakeLink(sim, link.Config{
		Label:   opt.Label,
		Depth:   opt.Depth,
		Period:  opt.Period,
		Verbose: opt.Verbose,
	}, gen)
	collector := testpoint.MakeCollectorSink(sim)
	l.AttachOutput(collector)
	l.Observe(watch.Observe)

	if opt.TracePath != "" {
		tw, err := trace.MakeCSVWriter(opt.TracePath)
		if err != nil {
			return Result{}, errors.Wrap(err, "opening trace output")
		}
		defer func() {
			if err := tw.Close(); err != nil {
				re = multierror.Append(re, err)
			}
		}()
		l.Observe(tw.Observe)
	}
	if opt.VCDPath != "" {
		vw, err := trace.MakeVCDWriter(opt.VCDPath, opt.Label)
		if err != nil {
			return Result{}, errors.Wrap(err, "opening waveform output")
		}
		defer func() {
			if err := vw.Close(); err != nil {
				re = multierror.Append(re, err)
			}
		}()
		l.Observe(vw.Observe)
	}

	l.Start()
	wallStart := time.Now()
	sim.Advance(l.Horizon(opt.Ticks))
	wallElapsed := time.Since(wallStart)

	stats := gen.Stats()
	return Result{
		Label:       opt.Label,
		Seed:        opt.Seed,
		Depth:       opt.Depth,
		Ticks:       l.Ticks(),
		SimTime:     sim.Now().Since(model.TimeZero),
		WallTime:    wallElapsed,
		Started:     stats.Started,
		Streamed:    stats.Streamed,
		Dropped:     stats.Dropped,
		Delivered:   len(collector.Take()),
		Failed:      rqt.Failed(),
		Successes:   rqt.CountSuccesses(),
		Outstanding: rqt.Outstanding(),
		Explanation: rqt.Explain(),
	}, nil
}
