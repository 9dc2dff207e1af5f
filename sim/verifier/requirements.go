package verifier

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/nocfab/nocsim/sim/component"
	"github.com/nocfab/nocsim/sim/model"
)

// "Command tick" refers to the tick on which a stream or dump command is
// sampled while the buffer reports itself ready. "Episode" refers to that tick
// and the following ticks during which the commanded packet drains.

const (
	// ReqCapacityBound requires:
	// The reported flit count shall never be negative, and shall never exceed
	// the configured buffer depth.
	ReqCapacityBound = "ReqCapacityBound"
	// ReqCountsConsistent requires:
	// The packet count shall stay within [0, flit count], the packet-ready
	// indication shall be asserted exactly when the packet count is nonzero,
	// and an exposed front header shall never claim a zero length.
	ReqCountsConsistent = "ReqCountsConsistent"
	// ReqReadyConsistent requires:
	// The buffer shall not report itself ready for a command without also
	// exposing a front packet.
	ReqReadyConsistent = "ReqReadyConsistent"
	// ReqCursorCoherence requires:
	// The distance from read cursor to write cursor around the ring shall
	// agree with the reported flit count, modulo the buffer depth.
	ReqCursorCoherence = "ReqCursorCoherence"
	// ReqStreamExact requires:
	// Each stream command's episode shall emit exactly as many flits as the
	// front header promised, starting with a flit carrying the advertised
	// destination, source, and length fields.
	ReqStreamExact = "ReqStreamExact"
	// ReqStreamTail requires:
	// The buffer shall not emit any flit outside a stream episode; in
	// particular, dump episodes and idle ticks shall emit nothing.
	ReqStreamTail = "ReqStreamTail"
	// ReqFrontStable requires:
	// The advertised front header fields shall not change while a front
	// packet remains exposed, except on the tick that retires it.
	ReqFrontStable = "ReqFrontStable"
	// ReqIdleStable requires:
	// A tick with no stimulus and no episode in progress shall leave every
	// output unchanged.
	ReqIdleStable = "ReqIdleStable"
	// ReqResetClears requires:
	// A tick with reset asserted shall drive every output to zero, regardless
	// of any other stimulus or any episode in progress.
	ReqResetClears = "ReqResetClears"
)

var requirements = []string{
	ReqCapacityBound,
	ReqCountsConsistent,
	ReqReadyConsistent,
	ReqCursorCoherence,
	ReqStreamExact,
	ReqStreamTail,
	ReqFrontStable,
	ReqIdleStable,
	ReqResetClears,
}

type ReqTracker struct {
	sim         model.SimContext
	outstanding map[string]int
	succeeded   map[string]int
	failed      map[string]int
	disp        *component.EventDispatcher
	logFile     io.Closer
	logFileCSV  *csv.Writer
}

func (rt *ReqTracker) Subscribe(callback func()) (cancel func()) {
	return rt.disp.Subscribe(callback)
}

func assertReq(req string) {
	for _, check := range requirements {
		if check == req {
			return
		}
	}
	panic("not a valid requirement: " + req)
}

// Start opens an outstanding check; the returned completion retires it.
func (rt *ReqTracker) Start(req string) (complete func(success bool)) {
	assertReq(req)
	origTime := rt.sim.Now().Nanoseconds()
	rt.log("BEGIN", strconv.FormatUint(origTime, 10), req)
	rt.outstanding[req] += 1
	var done bool
	return func(success bool) {
		if done {
			panic("cannot complete twice")
		}
		endTime := rt.sim.Now().Nanoseconds()
		rt.log("RETIRE", strconv.FormatUint(origTime, 10), strconv.FormatUint(endTime, 10), req)
		rt.outstanding[req] -= 1
		rt.Immediate(req, success)
		done = true
	}
}

func (rt *ReqTracker) Immediate(req string, success bool) {
	assertReq(req)
	if success {
		rt.log("SUCCEED", strconv.FormatUint(rt.sim.Now().Nanoseconds(), 10), req)
		rt.succeeded[req] += 1
	} else {
		rt.log("FAIL", strconv.FormatUint(rt.sim.Now().Nanoseconds(), 10), req)
		rt.failed[req] += 1
	}
	rt.disp.DispatchLater()
}

func (rt *ReqTracker) Failed() bool {
	for _, v := range rt.failed {
		if v > 0 {
			return true
		}
	}
	return false
}

func (rt *ReqTracker) CountSuccesses() (n int) {
	for _, c := range rt.succeeded {
		n += c
	}
	return n
}

func (rt *ReqTracker) Outstanding() (n int) {
	for _, c := range rt.outstanding {
		n += c
	}
	return n
}

func leftPad(x string, width int) string {
	if len(x) < width {
		return strings.Repeat(" ", width-len(x)) + x
	} else {
		return x
	}
}

func (rt *ReqTracker) Explain() string {
	lines := []string{"Requirements tracked:"}
	maxReqLen := 1
	for _, req := range requirements {
		if len(req) > maxReqLen {
			maxReqLen = len(req)
		}
	}
	for _, req := range requirements {
		line := fmt.Sprintf(
			"  [%s] Succeeded: %5d, Failed: %5d, Outstanding: %5d",
			leftPad(req, maxReqLen), rt.succeeded[req], rt.failed[req], rt.outstanding[req])
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (rt *ReqTracker) log(parts ...string) {
	if rt.logFile != nil {
		err := rt.logFileCSV.Write(parts)
		if err == nil {
			rt.logFileCSV.Flush()
			err = rt.logFileCSV.Error()
		}
		if err != nil {
			log.Printf("Logging error: %v", err)
			err = rt.logFile.Close()
			if err != nil {
				log.Printf("Logfile closing error: %v", err)
			}
			rt.logFile = nil
			rt.logFileCSV = nil
		}
	}
}

func (rt *ReqTracker) LogToPath(outputPath string) {
	if rt.logFile != nil {
		panic("already set up for logging")
	}
	f, err := os.Create(outputPath)
	if err != nil {
		panic(err)
	}
	rt.logFile = f
	rt.logFileCSV = csv.NewWriter(f)
	rt.log(append([]string{"REQUIREMENTS"}, requirements...)...)
}

func MakeReqTracker(ctx model.SimContext) *ReqTracker {
	return &ReqTracker{
		sim:         ctx,
		outstanding: map[string]int{},
		succeeded:   map[string]int{},
		failed:      map[string]int{},
		disp:        component.MakeEventDispatcher(ctx, "sim.verifier.ReqTracker"),
	}
}
