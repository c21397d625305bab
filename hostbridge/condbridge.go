// Package hostbridge provides a default, production-usable
// lockstep.Bridge implementation built on a condition variable shared with
// the coordinator's own mutex, plus a cycle bank per slave.
//
// A lockstep.Bridge.Wait call happens while the caller holds
// SharedLockstep's mutex; the lock-discipline contract requires that the
// bridge release that lock before parking a thread and reacquire it
// before returning. A sync.Cond built on the same *sync.Mutex does exactly
// that, which is why CondBridge is constructed from the coordinator's
// own Mutex rather than rolling its own.
package hostbridge

import (
	"sync"

	"github.com/openemu/lockstep"
	"github.com/openemu/lockstep/cyclebank"
)

// CondBridge is the reference lockstep.Bridge implementation for
// single-process, multi-goroutine sessions: each attached emulator
// instance runs on its own goroutine, and CondBridge parks/wakes those
// goroutines with a sync.Cond built on the coordinator's own mutex.
type CondBridge struct {
	mu   *sync.Mutex
	cond *sync.Cond

	waiting  [lockstep.MaxParticipants]bool
	unloaded [lockstep.MaxParticipants]bool
	banks    [lockstep.MaxParticipants]cyclebank.Bank
}

// New constructs a CondBridge bound to mu, the same mutex the
// lockstep.SharedLockstep this bridge serves exposes via its Mutex method.
func New(mu *sync.Mutex) *CondBridge {
	return &CondBridge{mu: mu, cond: sync.NewCond(mu)}
}

// Signal implements lockstep.Bridge. The caller must hold mu.
func (b *CondBridge) Signal(mask uint8) bool {
	woke := false
	for i := 0; i < lockstep.MaxParticipants; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		if b.waiting[i] {
			b.waiting[i] = false
			woke = true
		}
	}
	if woke {
		b.cond.Broadcast()
	}
	return woke
}

// Wait implements lockstep.Bridge. The caller must hold mu; Wait releases
// it for the duration of the park (via sync.Cond.Wait) and reacquires it
// before returning.
func (b *CondBridge) Wait(mask uint8) bool {
	if mask == 0 {
		return true
	}
	for i := 0; i < lockstep.MaxParticipants; i++ {
		if mask&(1<<uint(i)) != 0 {
			b.waiting[i] = true
		}
	}
	for b.anyWaiting(mask) {
		if b.anyUnloaded(mask) {
			// A node we were waiting on unloaded mid-wait; unload already
			// cleared the relevant waiting bits via Unload/Signal, but
			// guard here too in case of a racing detach.
			return true
		}
		b.cond.Wait()
	}
	return true
}

func (b *CondBridge) anyWaiting(mask uint8) bool {
	for i := 0; i < lockstep.MaxParticipants; i++ {
		if mask&(1<<uint(i)) != 0 && b.waiting[i] {
			return true
		}
	}
	return false
}

func (b *CondBridge) anyUnloaded(mask uint8) bool {
	for i := 0; i < lockstep.MaxParticipants; i++ {
		if mask&(1<<uint(i)) != 0 && b.unloaded[i] {
			return true
		}
	}
	return false
}

// AddCycles implements lockstep.Bridge. id == 0 credits every slave. A
// negative cycles is a programmer error; cyclebank.Bank.Add panics with a
// FatalError wrapping lockstep.ErrNegativeCycles.
func (b *CondBridge) AddCycles(id int, cycles int32) {
	if id == 0 {
		for i := 1; i < lockstep.MaxParticipants; i++ {
			b.banks[i].Add(cycles)
		}
		return
	}
	b.banks[id].Add(cycles)
}

// UseCycles implements lockstep.Bridge.
func (b *CondBridge) UseCycles(id int, cycles int32) int32 {
	return b.banks[id].Use(cycles)
}

// UnusedCycles implements lockstep.Bridge.
func (b *CondBridge) UnusedCycles(id int) int32 {
	return b.banks[id].Unused()
}

// Unload implements lockstep.Bridge: it wakes the unloading node's own
// thread if parked and zeroes its posted cycles.
func (b *CondBridge) Unload(id int) {
	b.unloaded[id] = true
	b.waiting[id] = false
	b.banks[id].Reset()
	b.cond.Broadcast()
}
