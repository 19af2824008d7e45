package lib

import (
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// DebugEnvVar turns diagnostic output on when set to "1". It is read once,
// the first time DefaultTracer is called.
const DebugEnvVar = "FILESCAN_DEBUG"

const (
	slowReadThreshold = 50 * time.Millisecond
	slowItemThreshold = 100 * time.Millisecond
)

// Tracer writes timing and counter diagnostics to stderr when enabled. All
// methods are no-ops on a nil or disabled tracer, so instrumented code paths
// cost nothing in normal runs. Diagnostics never touch result data.
type Tracer struct {
	enabled bool
}

var (
	tracerOnce    sync.Once
	defaultTracer *Tracer
)

// DefaultTracer returns the process-wide tracer, gated by DebugEnvVar. The
// environment is consulted once; later changes have no effect.
func DefaultTracer() *Tracer {
	tracerOnce.Do(func() {
		defaultTracer = NewTracer(os.Getenv(DebugEnvVar) == "1")
	})
	return defaultTracer
}

// NewTracer returns a tracer with an explicit on/off state, independent of
// the environment. Used by tests and embedding callers.
func NewTracer(enabled bool) *Tracer {
	return &Tracer{enabled: enabled}
}

// Enabled reports whether diagnostics are being emitted.
func (t *Tracer) Enabled() bool {
	return t != nil && t.enabled
}

// Tracef writes one diagnostic line.
func (t *Tracer) Tracef(format string, args ...interface{}) {
	if !t.Enabled() {
		return
	}
	fmt.Fprintf(os.Stderr, "[scan] "+format+"\n", args...)
}

// SlowRead reports a single chunk read that crossed the slow-read threshold.
func (t *Tracer) SlowRead(path string, bytes int, elapsed time.Duration) {
	if !t.Enabled() || elapsed < slowReadThreshold {
		return
	}
	t.Tracef("slow read: %s from %s in %s", humanize.Bytes(uint64(bytes)), path, elapsed)
}

// HashDone reports per-file hash timing for large files and slow items,
// including read count and throughput.
func (t *Tracer) HashDone(path string, bytes int64, reads int, elapsed time.Duration) {
	if !t.Enabled() {
		return
	}
	if bytes <= initialChunkSize && elapsed < slowItemThreshold {
		return
	}
	perSec := float64(bytes) / math.Max(elapsed.Seconds(), 1e-9)
	t.Tracef("hash: %s (%s) in %s, %d reads, %s/s",
		path, humanize.Bytes(uint64(bytes)), elapsed, reads, humanize.Bytes(uint64(perSec)))
}

// SlowItem reports one scheduled work item that crossed the slow-item
// threshold.
func (t *Tracer) SlowItem(path string, elapsed time.Duration) {
	if !t.Enabled() || elapsed < slowItemThreshold {
		return
	}
	t.Tracef("slow item: %s took %s", path, elapsed)
}

// WorkerUtilization tracks per-worker activity and reports what percentage of
// workers were active over a sliding window of ticks. Workers call
// Poke(workerIdx) as they complete work; a single progress goroutine calls
// Tick() each interval.
type WorkerUtilization struct {
	hits        []int32
	history     [][]int32
	windowTicks int
}

// NewWorkerUtilization creates a tracker for numWorkers keeping windowTicks
// snapshots (10 ticks at a 100ms interval is about one second of history).
func NewWorkerUtilization(numWorkers, windowTicks int) *WorkerUtilization {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if windowTicks <= 0 {
		windowTicks = 10
	}
	return &WorkerUtilization{
		hits:        make([]int32, numWorkers),
		windowTicks: windowTicks,
	}
}

// Poke records activity for a worker. Safe from any goroutine; out-of-range
// indexes are ignored.
func (u *WorkerUtilization) Poke(workerIdx int) {
	if u == nil || workerIdx < 0 || workerIdx >= len(u.hits) {
		return
	}
	atomic.AddInt32(&u.hits[workerIdx], 1)
}

// Tick snapshots current hits and returns the percentage of workers active
// since the oldest snapshot in the window, rounded up. Call from one
// goroutine only.
func (u *WorkerUtilization) Tick() int {
	n := len(u.hits)
	if n == 0 {
		return 0
	}
	current := make([]int32, n)
	for i := range u.hits {
		current[i] = atomic.LoadInt32(&u.hits[i])
	}
	u.history = append(u.history, current)
	if len(u.history) > u.windowTicks {
		u.history = u.history[1:]
	}
	active := 0
	if len(u.history) >= 2 {
		oldest := u.history[0]
		for i := range current {
			if current[i] > oldest[i] {
				active++
			}
		}
	} else {
		for _, c := range current {
			if c > 0 {
				active++
			}
		}
	}
	return int(math.Ceil(100.0 * float64(active) / float64(n)))
}
