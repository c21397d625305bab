// Package session wires a lockstep.SharedLockstep, its attached nodes, a
// hostbridge.CondBridge, and one wheel.MinHeapTiming per instance into a
// runnable multi-instance session, the way a host application embedding
// this coordinator would. It adds the two concerns the core lockstep
// package deliberately leaves out: structured logging of phase
// transitions and attach/detach churn, and a pub/sub feed so other parts
// of a host (a UI, a recorder) can observe them.
package session

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/openemu/lockstep"
	"github.com/openemu/lockstep/hostbridge"
	"github.com/openemu/lockstep/wheel"
)

// PhaseEvent is published whenever a session's observed phase changes.
type PhaseEvent struct {
	From, To lockstep.Phase
}

// AttachEvent is published whenever an instance attaches to or detaches
// from a session.
type AttachEvent struct {
	ID        int
	Attached  bool
	Remaining int
}

// Instance is one attached emulator instance's handle into a Session: its
// lockstep driver node, its own timing wheel, and the guest register file
// it drives.
type Instance struct {
	Node  *lockstep.Node
	Wheel *wheel.MinHeapTiming
	Guest lockstep.GuestIO
}

// Session wires together a SharedLockstep rendezvous, the CondBridge that
// backs its HostBridge contract, and the instances attached to it. It is
// the concrete "host thread wrapper" collaborator the coordinator's
// design leaves abstract.
type Session struct {
	mu        sync.Mutex
	log       log.Logger
	shared    *lockstep.SharedLockstep
	bridge    *hostbridge.CondBridge
	instances []*Instance
	lastPhase lockstep.Phase

	phaseFeed  event.Feed
	attachFeed event.Feed
	scope      event.SubscriptionScope
}

// New creates an empty session driving the given protocol (pass
// lockstep.MultiplayerProtocol{} for the primary 4-player link, or
// lockstep.LegacyProtocol{} for the 2-player predecessor-console link).
func New(protocol lockstep.Protocol, logger log.Logger) *Session {
	if logger == nil {
		logger = log.New("module", "lockstep/session")
	}
	s := &Session{log: logger}

	// The bridge must be built from the coordinator's own mutex (see
	// SharedLockstep.Mutex), so construction happens in two steps: make the
	// coordinator with a placeholder bridge, then bind the real one built
	// from its Mutex.
	placeholder := hostbridge.New(&sync.Mutex{})
	s.shared = lockstep.NewSharedLockstepProtocol(placeholder, protocol)
	s.bridge = hostbridge.New(s.shared.Mutex())
	s.shared.BindBridge(s.bridge)
	return s
}

// Shared returns the underlying coordinator, for callers that need direct
// access (e.g. to take a Snapshot).
func (s *Session) Shared() *lockstep.SharedLockstep { return s.shared }

// SubscribePhase registers ch to receive a PhaseEvent each time the
// session's phase changes. The returned Subscription must be closed by
// the caller, or tracked via the session's lifetime by discarding it and
// letting Close unwind every subscription at once.
func (s *Session) SubscribePhase(ch chan<- PhaseEvent) event.Subscription {
	return s.scope.Track(s.phaseFeed.Subscribe(ch))
}

// SubscribeAttach registers ch to receive an AttachEvent on every attach
// and detach.
func (s *Session) SubscribeAttach(ch chan<- AttachEvent) event.Subscription {
	return s.scope.Track(s.attachFeed.Subscribe(ch))
}

// Close unsubscribes every listener registered through this session.
func (s *Session) Close() {
	s.scope.Close()
}

// Attach creates a new instance in the given serial mode, attaches it to
// the session's roster, and schedules its first event. The returned
// Instance's Wheel must be driven (via Advance/Run) for the instance to
// make progress.
func (s *Session) Attach(guest lockstep.GuestIO, mode lockstep.Mode) (*Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := wheel.New()
	node, err := s.shared.NewNode(guest, w)
	if err != nil {
		return nil, fmt.Errorf("session: attach: %w", err)
	}
	node.Load(mode)

	inst := &Instance{Node: node, Wheel: w, Guest: guest}
	s.instances = append(s.instances, inst)

	s.log.Info("instance attached", "id", node.ID(), "mode", mode, "attached", s.shared.Attached())
	s.attachFeed.Send(AttachEvent{ID: node.ID(), Attached: true, Remaining: s.shared.Attached()})
	return inst, nil
}

// Detach unloads and removes inst from the session's roster.
func (s *Session) Detach(inst *Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := inst.Node.ID()
	inst.Node.Unload()
	if err := s.shared.Detach(inst.Node); err != nil {
		return fmt.Errorf("session: detach: %w", err)
	}
	for i, other := range s.instances {
		if other == inst {
			s.instances = append(s.instances[:i], s.instances[i+1:]...)
			break
		}
	}

	s.log.Info("instance detached", "id", id, "attached", s.shared.Attached())
	s.attachFeed.Send(AttachEvent{ID: id, Attached: false, Remaining: s.shared.Attached()})
	return nil
}

// Advance fires the next due event on every attached instance's wheel
// that has one pending, in round-robin order, and reports any phase
// transition observed afterward on the session's feed. It returns the
// number of events fired across all instances.
func (s *Session) Advance() int {
	s.mu.Lock()
	instances := make([]*Instance, len(s.instances))
	copy(instances, s.instances)
	before := s.shared.Phase()
	s.mu.Unlock()

	fired := 0
	for _, inst := range instances {
		if !inst.Wheel.Empty() {
			inst.Wheel.Advance()
			fired++
		}
	}

	after := s.shared.Phase()
	if after != before {
		s.log.Debug("phase transition", "from", before, "to", after)
		s.phaseFeed.Send(PhaseEvent{From: before, To: after})
	}
	return fired
}

// Run drives Advance in a loop until every attached instance's wheel is
// empty, or maxEvents total events have fired, whichever comes first. It
// returns the total number of events fired.
func (s *Session) Run(maxEvents int) int {
	total := 0
	for total < maxEvents {
		n := s.Advance()
		if n == 0 {
			break
		}
		total += n
	}
	return total
}
