package lockstep_test

import "github.com/openemu/lockstep"

// fakeGuest is a minimal lockstep.GuestIO backed by plain fields, used
// across the suite in place of a real memory-mapped register file.
type fakeGuest struct {
	sioCnt  uint16
	baud    uint8
	mltSend uint16
	multi   [lockstep.MaxParticipants]uint16
	data8   uint16
	data32  uint32
	rcnt    uint8
	idleSO  bool
	si      bool
	irqs    int
}

func newFakeGuest(baud uint8) *fakeGuest {
	g := &fakeGuest{baud: baud}
	for i := range g.multi {
		g.multi[i] = lockstep.RecvSentinelMulti
	}
	return g
}

func (g *fakeGuest) raiseStart() { g.sioCnt |= lockstep.ControlStartBit }

func (g *fakeGuest) SIOCNT() uint16 { return g.sioCnt }
func (g *fakeGuest) Ready() bool    { return g.sioCnt&lockstep.ControlReadyBit != 0 }
func (g *fakeGuest) SetReady(ready bool) {
	if ready {
		g.sioCnt |= lockstep.ControlReadyBit
	} else {
		g.sioCnt &^= lockstep.ControlReadyBit
	}
}
func (g *fakeGuest) Baud() uint8                        { return g.baud }
func (g *fakeGuest) IRQEnabled() bool                   { return g.sioCnt&lockstep.ControlIRQEnableBit != 0 }
func (g *fakeGuest) SIOMLTSend() uint16                 { return g.mltSend }
func (g *fakeGuest) SetSIOMULTI(slot int, value uint16) { g.multi[slot] = value }
func (g *fakeGuest) SetBusy(busy bool) {
	if busy {
		g.sioCnt |= lockstep.ControlStartBit
	} else {
		g.sioCnt &^= lockstep.ControlStartBit
	}
}
func (g *fakeGuest) SetMultiID(id int) {
	g.sioCnt &^= lockstep.ControlIDMask
	g.sioCnt |= uint16(id) << lockstep.ControlIDShift
}
func (g *fakeGuest) SIOData8() uint16         { return g.data8 }
func (g *fakeGuest) SetSIOData8(value uint16) { g.data8 = value }
func (g *fakeGuest) SIOData32() uint32        { return g.data32 }
func (g *fakeGuest) SetSIOData32(value uint32) { g.data32 = value }
func (g *fakeGuest) SetRCNT(bits uint8)   { g.rcnt |= bits }
func (g *fakeGuest) ClearRCNT(bits uint8) { g.rcnt &^= bits }
func (g *fakeGuest) IdleSO() bool         { return g.idleSO }
func (g *fakeGuest) SetSI(si bool)        { g.si = si }
func (g *fakeGuest) ClearStart()          { g.sioCnt &^= lockstep.ControlStartBit }
func (g *fakeGuest) RaiseSerialIRQ()      { g.irqs++ }

// fakeTiming is a lockstep.Timing that holds at most one pending event in
// plain fields instead of a real min-heap, sufficient for driving a single
// node deterministically in a test without pulling in the wheel package.
type fakeTiming struct {
	due      int32
	hasEvent bool
	event    *lockstep.Event
	exited   bool
}

func (t *fakeTiming) Schedule(ev *lockstep.Event, cyclesFromNow int32) {
	t.event = ev
	t.due = cyclesFromNow
	t.hasEvent = true
}
func (t *fakeTiming) Deschedule(ev *lockstep.Event) {
	if t.event == ev {
		t.hasEvent = false
	}
}
func (t *fakeTiming) IsScheduled(ev *lockstep.Event) bool { return t.hasEvent && t.event == ev }
func (t *fakeTiming) RequestEarlyExit()                  { t.exited = true }

// fire invokes the pending event's callback, if any, as though cyclesLate
// cycles passed since it was scheduled.
func (t *fakeTiming) fire(cyclesLate int32) {
	if !t.hasEvent {
		return
	}
	ev := t.event
	t.hasEvent = false
	ev.Callback(cyclesLate)
}

// fakeBridge is a lockstep.Bridge that never actually parks a thread: Wait
// records the awaited bits in waiting and returns immediately, and Signal
// clears them. It is only valid in single-threaded tests that drive every
// node's fakeTiming by hand in a fixed order; the harness holds the master
// back while waiting is non-zero, standing in for a parked thread.
type fakeBridge struct {
	posted  [lockstep.MaxParticipants]int32
	waiting uint8
}

func (b *fakeBridge) Signal(mask uint8) bool {
	woke := b.waiting&mask != 0
	b.waiting &^= mask
	return woke
}
func (b *fakeBridge) Wait(mask uint8) bool {
	b.waiting |= mask
	return true
}
func (b *fakeBridge) AddCycles(id int, cycles int32) {
	if cycles < 0 {
		panic("fakeBridge: negative cycle credit")
	}
	if id == 0 {
		for i := 1; i < lockstep.MaxParticipants; i++ {
			b.posted[i] += cycles
		}
		return
	}
	b.posted[id] += cycles
}
func (b *fakeBridge) UseCycles(id int, cycles int32) int32 {
	b.posted[id] -= cycles
	return b.posted[id]
}
func (b *fakeBridge) UnusedCycles(id int) int32 { return b.posted[id] }
func (b *fakeBridge) Unload(id int)             { b.posted[id] = 0 }
