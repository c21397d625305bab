package main

import "github.com/openemu/lockstep"

// simGuest is a bare-bones lockstep.GuestIO backed by plain fields instead
// of a real memory-mapped register file, enough to drive a simulated
// session from a scenario file and inspect the result afterward.
type simGuest struct {
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

func newSimGuest(baud uint8, send uint32) *simGuest {
	g := &simGuest{baud: baud, mltSend: uint16(send), data32: send}
	for i := range g.multi {
		g.multi[i] = lockstep.RecvSentinelMulti
	}
	return g
}

// Start marks this guest ready to transfer. A real guest sets its own
// ready bit before the master ever raises START; the master's actual
// transfer kick-off goes through the driver node's write-register hooks
// (see startMaster in main.go), since that is the only path that moves
// the coordinator out of PhaseIdle.
func (g *simGuest) Start() {
	g.sioCnt |= lockstep.ControlReadyBit
}

func (g *simGuest) SIOCNT() uint16        { return g.sioCnt }
func (g *simGuest) Ready() bool           { return g.sioCnt&lockstep.ControlReadyBit != 0 }
func (g *simGuest) SetReady(ready bool) {
	if ready {
		g.sioCnt |= lockstep.ControlReadyBit
	} else {
		g.sioCnt &^= lockstep.ControlReadyBit
	}
}
func (g *simGuest) Baud() uint8          { return g.baud }
func (g *simGuest) IRQEnabled() bool     { return g.sioCnt&lockstep.ControlIRQEnableBit != 0 }
func (g *simGuest) SIOMLTSend() uint16   { return g.mltSend }
func (g *simGuest) SetSIOMULTI(slot int, value uint16) { g.multi[slot] = value }
func (g *simGuest) SetBusy(busy bool) {
	if busy {
		g.sioCnt |= lockstep.ControlStartBit
	} else {
		g.sioCnt &^= lockstep.ControlStartBit
	}
}
func (g *simGuest) SetMultiID(id int) {
	g.sioCnt &^= lockstep.ControlIDMask
	g.sioCnt |= uint16(id) << lockstep.ControlIDShift
}
func (g *simGuest) SIOData8() uint16        { return g.data8 }
func (g *simGuest) SetSIOData8(value uint16) { g.data8 = value }
func (g *simGuest) SIOData32() uint32        { return g.data32 }
func (g *simGuest) SetSIOData32(value uint32) { g.data32 = value }
func (g *simGuest) SetRCNT(bits uint8)   { g.rcnt |= bits }
func (g *simGuest) ClearRCNT(bits uint8) { g.rcnt &^= bits }
func (g *simGuest) IdleSO() bool         { return g.idleSO }
func (g *simGuest) SetSI(si bool)        { g.si = si }
func (g *simGuest) ClearStart()          { g.sioCnt &^= lockstep.ControlStartBit }
func (g *simGuest) RaiseSerialIRQ()      { g.irqs++ }
