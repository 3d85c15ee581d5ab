package loadgen

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Kind is a synthetic task kind
type Kind string

const (
	// KindNoop returns immediately
	KindNoop Kind = "noop"
	// KindSleep sleeps for the configured duration
	KindSleep Kind = "sleep"
	// KindSpin keeps a CPU busy for the configured duration
	KindSpin Kind = "spin"
)

// Kinds lists the supported task kinds
var Kinds = []Kind{KindNoop, KindSleep, KindSpin}

// ParseKind converts a string to a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown task kind %q (expected noop, sleep or spin)", s)
}

// probe is a synthetic task that records how often and in which order it ran
type probe struct {
	kind     Kind
	duration time.Duration

	// ledger is shared by every probe of one run
	ledger *ledger

	// enqueued is set by the producer once the pool accepted the probe
	enqueued bool

	runs     atomic.Int32
	startPos atomic.Int64
}

// Run implements executor.Task
func (p *probe) Run() {
	p.startPos.Store(p.ledger.started.Add(1))
	p.runs.Add(1)

	switch p.kind {
	case KindSleep:
		time.Sleep(p.duration)
	case KindSpin:
		spin(p.duration)
	}

	p.ledger.executed.Add(1)
}

// spin busy-loops until d has elapsed
func spin(d time.Duration) {
	deadline := time.Now().Add(d)
	x := uint64(1)
	for time.Now().Before(deadline) {
		for i := 0; i < 1000; i++ {
			x = x*6364136223846793005 + 1442695040888963407
		}
	}
	sink.Store(x)
}

// sink keeps the spin loop from being optimized away
var sink atomic.Uint64

// ledger counts executions across all probes of a run
type ledger struct {
	started  atomic.Int64
	executed atomic.Int64
}
