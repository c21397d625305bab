// Package wheel provides a deterministic, in-memory lockstep.Timing
// implementation: a min-heap of scheduled events driven by a virtual
// cycle counter, suitable for the simulation harness and for tests that
// need reproducible event ordering without a real emulation core behind
// each node.
package wheel

import (
	"container/heap"

	"github.com/openemu/lockstep"
)

// entry is one pending fire in the wheel's min-heap, ordered by the
// absolute cycle it is due.
type entry struct {
	due   int64
	seq   uint64
	event *lockstep.Event
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(*entry))
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// MinHeapTiming is a lockstep.Timing implementation backed by a
// container/heap min-heap and a monotonically advancing virtual cycle
// counter. It is single-threaded: a session built on it must serialize
// access to each node's wheel the way a real per-instance emulation
// thread would (one wheel per attached node, never shared).
type MinHeapTiming struct {
	now      int64
	seq      uint64
	h        entryHeap
	pending  map[*lockstep.Event]*entry
	earlyHit bool
}

// New returns an empty wheel positioned at cycle 0.
func New() *MinHeapTiming {
	return &MinHeapTiming{pending: make(map[*lockstep.Event]*entry)}
}

// Schedule implements lockstep.Timing.
func (w *MinHeapTiming) Schedule(ev *lockstep.Event, cyclesFromNow int32) {
	w.Deschedule(ev)
	e := &entry{due: w.now + int64(cyclesFromNow), seq: w.seq, event: ev}
	w.seq++
	w.pending[ev] = e
	heap.Push(&w.h, e)
}

// Deschedule implements lockstep.Timing.
func (w *MinHeapTiming) Deschedule(ev *lockstep.Event) {
	e, ok := w.pending[ev]
	if !ok {
		return
	}
	delete(w.pending, ev)
	for i, other := range w.h {
		if other == e {
			heap.Remove(&w.h, i)
			break
		}
	}
}

// IsScheduled implements lockstep.Timing.
func (w *MinHeapTiming) IsScheduled(ev *lockstep.Event) bool {
	_, ok := w.pending[ev]
	return ok
}

// RequestEarlyExit implements lockstep.Timing. It records the request so
// Run's caller can observe it via TookEarlyExit; the wheel's own Run loop
// does not stop early on it, matching the real emulation loop's behaviour
// of finishing the current slice before yielding.
func (w *MinHeapTiming) RequestEarlyExit() {
	w.earlyHit = true
}

// TookEarlyExit reports, and clears, whether RequestEarlyExit was called
// since the last call to TookEarlyExit.
func (w *MinHeapTiming) TookEarlyExit() bool {
	v := w.earlyHit
	w.earlyHit = false
	return v
}

// Now returns the wheel's current virtual cycle position.
func (w *MinHeapTiming) Now() int64 { return w.now }

// Empty reports whether the wheel has no pending events.
func (w *MinHeapTiming) Empty() bool { return len(w.h) == 0 }

// Advance pops and fires the single next-due event, advancing now to its
// due cycle first, and reports the cycle it fired at. It panics if the
// wheel is empty; callers should check Empty first.
func (w *MinHeapTiming) Advance() int64 {
	e := heap.Pop(&w.h).(*entry)
	delete(w.pending, e.event)
	late := int32(0)
	if w.now < e.due {
		w.now = e.due
	} else {
		late = int32(w.now - e.due)
	}
	e.event.Callback(late)
	return w.now
}

// Run drives the wheel until it goes empty or n events have fired,
// whichever comes first. It returns the number of events actually fired.
func (w *MinHeapTiming) Run(n int) int {
	fired := 0
	for fired < n && !w.Empty() {
		w.Advance()
		fired++
	}
	return fired
}
