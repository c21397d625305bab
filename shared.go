package lockstep

import "sync"

// SharedLockstep is the rendezvous object for one multiplayer session. It
// holds the global transfer phase, the roster of attached nodes, the
// shared receive buffers, and the host-thread wait/signal primitive (a
// single mutex shared by every attached node's event-processing callback).
//
// SharedLockstep owns all per-node storage; a Node is a handle into that
// storage (parent + id), not a second owner of it, so there is no
// ownership cycle between SharedLockstep and its nodes.
type SharedLockstep struct {
	mu       sync.Mutex
	bridge   Bridge
	protocol Protocol

	attached int
	players  [MaxParticipants]*Node

	phase          Phase
	transferCycles int32

	multiRecv     [MaxParticipants]uint16
	normalRecv    [MaxParticipants]uint32
	attachedMulti int
}

// NewSharedLockstep creates a session rendezvous object bound to the given
// Bridge, driving the primary MultiplayerProtocol variant. The Bridge is
// expected to honour the lock discipline documented on Bridge.Wait:
// releasing SharedLockstep's mutex (via Mutex) before parking a thread, and
// reacquiring it before returning.
func NewSharedLockstep(bridge Bridge) *SharedLockstep {
	return NewSharedLockstepProtocol(bridge, MultiplayerProtocol{})
}

// NewSharedLockstepProtocol is NewSharedLockstep with an explicit Protocol,
// letting the predecessor console's LegacyProtocol reuse this same roster,
// cycle-bank, and bridge machinery.
func NewSharedLockstepProtocol(bridge Bridge, protocol Protocol) *SharedLockstep {
	sl := &SharedLockstep{bridge: bridge, protocol: protocol}
	for i := range sl.multiRecv {
		sl.multiRecv[i] = RecvSentinelMulti
	}
	return sl
}

// Mutex returns the coordinator's mutual-exclusion lock. Bridge
// implementations that park a thread must release this lock before
// parking and reacquire it before Wait returns (a sync.Cond built on this
// mutex does exactly that).
func (sl *SharedLockstep) Mutex() *sync.Mutex { return &sl.mu }

// BindBridge replaces the coordinator's Bridge. It exists for callers
// whose Bridge implementation must be constructed from this coordinator's
// own Mutex (the usual case, per the lock-discipline note on Mutex) and so
// cannot be built before the SharedLockstep it will serve. It must be
// called before any node attaches.
func (sl *SharedLockstep) BindBridge(bridge Bridge) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.bridge = bridge
}

// Phase returns the current global transfer phase.
func (sl *SharedLockstep) Phase() Phase {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.phase
}

// Attached returns the number of currently registered nodes.
func (sl *SharedLockstep) Attached() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.attached
}

// Ready reports whether every attached node is loaded in MULTI mode, i.e.
// whether a transfer can be started.
func (sl *SharedLockstep) Ready() bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.attachedMulti == sl.attached
}

// NewNode allocates and attaches a new node to this session, assigning it
// the next free roster slot. It fails with ErrRosterFull once the
// protocol's participant limit is reached (four for MultiplayerProtocol,
// two for LegacyProtocol). A freshly attached node begins at PhaseIdle; phase is
// untouched by attach.
func (sl *SharedLockstep) NewNode(guest GuestIO, timing Timing) (*Node, error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.attached >= sl.protocol.ParticipantLimit() {
		return nil, ErrRosterFull
	}

	n := &Node{
		parent: sl,
		id:     sl.attached,
		guest:  guest,
		timing: timing,
	}
	n.event = Event{Name: "lockstep node", Callback: n.processEvent}
	sl.players[sl.attached] = n
	sl.attached++
	return n, nil
}

// Detach removes node from the roster, shifting higher-indexed entries
// down by one and rewriting their id to match their new slot. The caller
// must have already called node.Unload if a transfer may be in flight;
// Detach does not itself synchronize with one.
func (sl *SharedLockstep) Detach(node *Node) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	idx := -1
	for i := 0; i < sl.attached; i++ {
		if sl.players[i] == node {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNodeNotAttached
	}

	for i := idx + 1; i < sl.attached; i++ {
		sl.players[i-1] = sl.players[i]
		sl.players[i-1].id = i - 1
	}
	sl.attached--
	sl.players[sl.attached] = nil
	return nil
}

// loadedMask returns the bitmask of currently-attached slave ids (1..3)
// whose mode matches want.
func (sl *SharedLockstep) loadedMask(want Mode) uint8 {
	var mask uint8
	for i := 1; i < sl.attached; i++ {
		if sl.players[i].mode == want {
			mask |= 1 << uint(i)
		}
	}
	return mask
}
