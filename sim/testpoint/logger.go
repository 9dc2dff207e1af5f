package testpoint

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nocfab/nocsim/sim/component"
	"github.com/nocfab/nocsim/sim/model"
	"github.com/nocfab/nocsim/sim/noc/flit"
	"github.com/nocfab/nocsim/sim/noc/flitmodel"
)

// Logger is a flit sink that prints traffic in coalesced batches, so that a
// burst of flits shows up as one log line instead of dozens.
type Logger struct {
	ctx model.SimContext
	*component.EventDispatcher
	chs              string
	name             string
	flushTimerCancel func()
	flushDelay       time.Duration
}

var _ flitmodel.FlitSink = &Logger{}

func (l *Logger) CanAcceptFlit() bool {
	return true
}

func (l *Logger) PutFlit(w flit.Flit) {
	if l.flushTimerCancel != nil {
		l.flushTimerCancel()
		l.flushTimerCancel = nil
	}
	l.chs += fmt.Sprintf("%v ", w)
	if len(l.chs) >= 100 {
		l.flush()
	}
	if len(l.chs) > 0 {
		l.flushTimerCancel = l.ctx.SetTimer(l.ctx.Now().Add(l.flushDelay), "sim.testpoint.Logger/Flush", func() {
			l.flush()
		})
	}
}

func (l *Logger) flush() {
	log.Printf("%v [%s] FLITS: %s\n", l.ctx.Now(), l.name, strings.TrimRight(l.chs, " "))
	l.chs = ""
}

func MakeLogger(ctx model.SimContext, name string, flushDelay time.Duration) flitmodel.FlitSink {
	return &Logger{
		ctx:             ctx,
		EventDispatcher: component.MakeEventDispatcher(ctx, "sim.testpoint.Logger"),
		name:            name,
		flushDelay:      flushDelay,
	}
}
