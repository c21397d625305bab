// Package lockstephist records the snapshot history of a running
// session and, on a panic, dumps it to a file so the run can be replayed
// offline for debugging. It is the lockstep analogue of a message-history
// network recorder: instead of capturing a transcript of messages
// exchanged between machines, it captures a transcript of
// lockstep.Snapshot states observed across a session's lifetime.
package lockstephist

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/event"
	"github.com/renproject/surge"

	"github.com/openemu/lockstep"
	"github.com/openemu/lockstep/session"
)

// Recorder accumulates a session's snapshot history and can dump it to
// disk. Recording is opt-in (via SetCapture) since every snapshot taken
// locks the session's coordinator.
type Recorder struct {
	capture bool
	history []lockstep.Snapshot

	sub event.Subscription
	ch  chan session.PhaseEvent
}

// NewRecorder creates a Recorder. Call Watch to start capturing a
// session's phase transitions.
func NewRecorder() *Recorder {
	return &Recorder{ch: make(chan session.PhaseEvent, 64)}
}

// SetCapture toggles whether Watch's snapshot loop actually records
// history. Disabling it after a Watch is in progress stops further
// snapshots from being appended without tearing down the subscription.
func (r *Recorder) SetCapture(b bool) {
	r.capture = b
}

// Watch subscribes to s's phase-transition feed and appends a snapshot of
// s's coordinator each time the phase changes, for as long as capture is
// enabled. The returned stop function must be called to release the
// subscription.
func (r *Recorder) Watch(s *session.Session) (stop func()) {
	r.sub = s.SubscribePhase(r.ch)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-r.ch:
				if r.capture {
					r.history = append(r.history, s.Shared().Snapshot())
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		r.sub.Unsubscribe()
		close(done)
	}
}

// History returns the snapshots recorded so far.
func (r *Recorder) History() []lockstep.Snapshot {
	return r.history
}

// Dump writes the recorded history to filename as a sequence of
// surge-marshaled snapshots, prefixed with a count. It is intended to be
// called from a recover()-based defer, mirroring how a host would
// preserve state leading up to a crash for later replay.
func (r *Recorder) Dump(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("lockstephist: creating dump file: %w", err)
	}
	defer file.Close()

	size := 4
	for _, snap := range r.history {
		size += snap.SizeHint()
	}
	out := make([]byte, size)

	tail, rem, err := surge.MarshalU32(uint32(len(r.history)), out, size)
	if err != nil {
		return fmt.Errorf("lockstephist: marshaling history length: %w", err)
	}
	for i, snap := range r.history {
		tail, rem, err = snap.Marshal(tail, rem)
		if err != nil {
			return fmt.Errorf("lockstephist: marshaling snapshot %d: %w", i, err)
		}
	}
	if _, err := file.Write(out); err != nil {
		return fmt.Errorf("lockstephist: writing dump file: %w", err)
	}
	return nil
}

// DumpOnPanic recovers a panic in progress, writes the recorded history
// to filename, and re-panics so the caller's own crash handling still
// runs. Call it as `defer rec.DumpOnPanic("panic.dump")` at the top of a
// goroutine driving a Session.
func (r *Recorder) DumpOnPanic(filename string) {
	if p := recover(); p != nil {
		if err := r.Dump(filename); err != nil {
			fmt.Fprintf(os.Stderr, "lockstephist: dump after panic failed: %v\n", err)
		}
		panic(p)
	}
}

// Load reads a dump file written by Dump and returns the snapshot
// history it contains.
func Load(filename string) ([]lockstep.Snapshot, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("lockstephist: reading dump file: %w", err)
	}

	var count uint32
	buf, rem, err := surge.UnmarshalU32(&count, bs, len(bs))
	if err != nil {
		return nil, fmt.Errorf("lockstephist: unmarshaling history length: %w", err)
	}

	history := make([]lockstep.Snapshot, count)
	for i := range history {
		buf, rem, err = history[i].Unmarshal(buf, rem)
		if err != nil {
			return nil, fmt.Errorf("lockstephist: unmarshaling snapshot %d: %w", i, err)
		}
	}
	_ = rem
	return history, nil
}
