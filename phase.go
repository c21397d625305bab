package lockstep

// Protocol factors the cycle-budget and participant-limit knobs that
// differ between the primary four-player/32-bit-normal variant and the
// predecessor console's simpler point-to-point link protocol, so both
// share the same master/slave update procedures, CycleBank, and Bridge
// machinery.
type Protocol interface {
	// Name identifies the protocol for logging/diagnostics.
	Name() string
	// ParticipantLimit is the maximum number of nodes this protocol
	// allows in one session (<= MaxParticipants).
	ParticipantLimit() int
	// CyclesForTransfer returns the total emulated-cycle budget for a
	// multiplayer-style transfer given the baud rate and attached count.
	CyclesForTransfer(baud uint8, attached int) int32
}

// MultiplayerProtocol is the primary four-player multiplayer + 32-bit
// normal variant fully specified by this package.
type MultiplayerProtocol struct{}

func (MultiplayerProtocol) Name() string           { return "multiplayer" }
func (MultiplayerProtocol) ParticipantLimit() int   { return MaxParticipants }
func (MultiplayerProtocol) CyclesForTransfer(baud uint8, attached int) int32 {
	return CyclesPerTransfer(baud, attached)
}

// legacyCyclesPerBaud is the predecessor console's link-cable transfer
// length, keyed only by baud rate: its wire protocol is always strictly
// point to point.
var legacyCyclesPerBaud = [4]int32{4096, 2048, 1024, 512}

// LegacyProtocol is the predecessor handheld console's simpler
// two-participant serial link. It shares this package's CycleBank and
// Bridge machinery but caps the roster at two nodes and uses a flatter
// cycle table with no participant-count dimension.
type LegacyProtocol struct{}

func (LegacyProtocol) Name() string         { return "legacy-link" }
func (LegacyProtocol) ParticipantLimit() int { return 2 }
func (LegacyProtocol) CyclesForTransfer(baud uint8, _ int) int32 {
	return legacyCyclesPerBaud[baud&0x3]
}

// masterUpdate is invoked from the master node's scheduled event. It reads
// the shared phase and dispatches the transition table, returning the
// number of cycles to the next event (0 if the master must block).
// Callers must hold the parent SharedLockstep's mutex.
func (n *Node) masterUpdate() int32 {
	p := n.parent
	needsToWait := false

	switch p.phase {
	case PhaseIdle:
		n.nextEvent += LockstepIncrement
		n.guest.SetReady(p.attachedMulti == p.attached)

	case PhaseStarting:
		n.transferFinished = false
		switch n.mode {
		case ModeMulti:
			p.multiRecv[0] = n.guest.SIOMLTSend()
		case ModeNormal8:
			p.normalRecv[0] = uint32(n.guest.SIOData8() & 0xFF)
		case ModeNormal32:
			p.normalRecv[0] = n.guest.SIOData32()
		}
		for i := 0; i < MaxParticipants; i++ {
			n.guest.SetSIOMULTI(i, RecvSentinelMulti)
		}
		for i := 1; i < MaxParticipants; i++ {
			p.multiRecv[i] = RecvSentinelMulti
		}
		needsToWait = true
		p.phase = PhaseStarted
		n.nextEvent += 512

	case PhaseStarted:
		n.nextEvent += 512
		p.phase = PhaseFinishing

	case PhaseFinishing:
		n.nextEvent += p.transferCycles - 1024
		needsToWait = true
		p.phase = PhaseFinished

	case PhaseFinished:
		n.finishTransfer()
		n.nextEvent += LockstepIncrement
		p.phase = PhaseIdle
	}

	mask := p.loadedMask(n.mode)
	if mask != 0 {
		if needsToWait {
			if !p.bridge.Wait(mask) {
				panic(&FatalError{Op: "Wait", Err: ErrWaitFailed})
			}
		} else {
			p.bridge.Signal(mask)
		}
	}
	p.bridge.AddCycles(0, n.eventDiff)

	if needsToWait {
		return 0
	}
	return n.nextEvent
}

// slaveUpdate is invoked from each slave's scheduled event. Callers must
// hold the parent SharedLockstep's mutex.
func (n *Node) slaveUpdate() int32 {
	p := n.parent
	n.guest.SetReady(p.attachedMulti == p.attached)

	signal := false
	switch p.phase {
	case PhaseIdle:
		if !n.guest.Ready() {
			p.bridge.AddCycles(n.id, LockstepIncrement)
		}

	case PhaseStarting, PhaseFinishing:
		// No-op for a slave; its cycle budget naturally drains and it
		// will block at the next phase that needs its contribution.

	case PhaseStarted:
		if p.bridge.UnusedCycles(n.id) > n.eventDiff {
			break
		}
		n.transferFinished = false
		switch n.mode {
		case ModeMulti:
			n.guest.ClearRCNT(1)
			p.multiRecv[n.id] = n.guest.SIOMLTSend()
			for i := 0; i < MaxParticipants; i++ {
				n.guest.SetSIOMULTI(i, RecvSentinelMulti)
			}
			n.guest.SetBusy(true)
		case ModeNormal8:
			p.multiRecv[n.id] = RecvSentinelMulti
			p.normalRecv[n.id] = uint32(n.guest.SIOData8() & 0xFF)
		case ModeNormal32:
			p.multiRecv[n.id] = RecvSentinelMulti
			p.normalRecv[n.id] = n.guest.SIOData32()
		default:
			p.multiRecv[n.id] = RecvSentinelMulti
		}
		signal = true

	case PhaseFinished:
		if p.bridge.UnusedCycles(n.id) > n.eventDiff {
			break
		}
		n.finishTransfer()
		signal = true
	}

	if signal {
		p.bridge.Signal(1 << uint(n.id))
	}
	return 0
}

// finishTransfer materializes the transfer outcome into this node's guest
// memory. It is idempotent per transfer, guarded by transferFinished, and
// always safe to call even when no transfer is in flight (for example from
// Unload). Callers must hold the parent SharedLockstep's mutex.
func (n *Node) finishTransfer() {
	if n.transferFinished {
		return
	}
	p := n.parent

	switch n.mode {
	case ModeMulti:
		for i := 0; i < MaxParticipants; i++ {
			n.guest.SetSIOMULTI(i, p.multiRecv[i])
		}
		n.guest.SetRCNT(1)
		n.guest.SetBusy(false)
		n.guest.SetMultiID(n.id)
		if n.guest.IRQEnabled() {
			n.guest.RaiseSerialIRQ()
		}

	case ModeNormal8:
		n.guest.ClearStart()
		if n.id > 0 {
			upstream := p.players[n.id-1]
			n.guest.SetSI(upstream.guest.IdleSO())
			n.guest.SetSIOData8(uint16(p.normalRecv[n.id-1] & 0xFF))
		} else {
			n.guest.SetSIOData8(0xFFFF)
		}
		if n.guest.IRQEnabled() {
			n.guest.RaiseSerialIRQ()
		}

	case ModeNormal32:
		n.guest.ClearStart()
		if n.id > 0 {
			upstream := p.players[n.id-1]
			n.guest.SetSI(upstream.guest.IdleSO())
			n.guest.SetSIOData32(p.normalRecv[n.id-1])
		} else {
			n.guest.SetSIOData32(RecvSentinelNormal)
		}
		if n.guest.IRQEnabled() {
			n.guest.RaiseSerialIRQ()
		}
	}

	n.transferFinished = true
}
