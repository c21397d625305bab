package lockstephist

import "github.com/openemu/lockstep"

// Debugger steps through a loaded snapshot history one entry at a time,
// the lockstep analogue of stepping through a recorded message history.
type Debugger struct {
	history []lockstep.Snapshot
	pos     int
}

// NewDebugger loads the dump file at path and returns a Debugger
// positioned before its first snapshot.
func NewDebugger(path string) (*Debugger, error) {
	history, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Debugger{history: history}, nil
}

// Len returns the number of snapshots in the loaded history.
func (d *Debugger) Len() int { return len(d.history) }

// Done reports whether every snapshot has been stepped through.
func (d *Debugger) Done() bool { return d.pos >= len(d.history) }

// Step returns the next snapshot in the history and advances the
// debugger's position. It panics if Done already reports true.
func (d *Debugger) Step() lockstep.Snapshot {
	if d.Done() {
		panic("lockstephist: Step called with no snapshots remaining")
	}
	s := d.history[d.pos]
	d.pos++
	return s
}

// Reset rewinds the debugger to the first snapshot.
func (d *Debugger) Reset() { d.pos = 0 }
