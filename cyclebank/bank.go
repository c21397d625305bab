// Package cyclebank implements the per-slave cycle-credit accounting used
// by a lockstep host bridge: the producer/consumer relationship between a
// master, which posts cycles as it advances, and a slave, which debits
// them as it runs and blocks once its balance is exhausted.
package cyclebank

import (
	"sync/atomic"

	"github.com/openemu/lockstep"
)

// Bank is a slave's accrued budget of emulated cycles it is permitted to
// run before it must block. It is safe for concurrent use by the thread
// that posts credit (the master, via Add) and the thread that spends it
// (the slave, via Use/Unused).
type Bank struct {
	posted int64
}

// Add credits n cycles to the bank. A negative n is a programmer error and
// panics with a FatalError wrapping ErrNegativeCycles.
func (b *Bank) Add(n int32) {
	if n < 0 {
		panic(&lockstep.FatalError{Op: "cyclebank.Add", Err: lockstep.ErrNegativeCycles})
	}
	atomic.AddInt64(&b.posted, int64(n))
}

// Use debits n cycles from the bank and returns the remaining balance,
// which may be zero or negative once the slave has outrun its credit.
func (b *Bank) Use(n int32) int32 {
	return int32(atomic.AddInt64(&b.posted, -int64(n)))
}

// Unused reads the current balance without side effect.
func (b *Bank) Unused() int32 {
	return int32(atomic.LoadInt64(&b.posted))
}

// Reset zeroes the balance, used when a node unloads or a fresh session
// begins.
func (b *Bank) Reset() {
	atomic.StoreInt64(&b.posted, 0)
}

// Exhausted reports whether the bank's balance is at or below zero, i.e.
// whether its owner must block before making further progress.
func (b *Bank) Exhausted() bool {
	return b.Unused() <= 0
}
