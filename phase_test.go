package lockstep_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/openemu/lockstep"
)

// harness wires a SharedLockstep with a non-blocking fakeBridge and one
// fakeGuest/fakeTiming pair per participant, and drives every participant's
// pending event to completion round-robin. It mirrors what session.Session
// does with a real CondBridge and wheel.MinHeapTiming, but deterministically
// and without goroutines.
type harness struct {
	shared  *lockstep.SharedLockstep
	bridge  *fakeBridge
	nodes   []*lockstep.Node
	guests  []*fakeGuest
	timings []*fakeTiming
}

func newHarness(protocol lockstep.Protocol, baud uint8, modes ...lockstep.Mode) *harness {
	h := &harness{bridge: &fakeBridge{}}
	h.shared = lockstep.NewSharedLockstepProtocol(h.bridge, protocol)
	for _, mode := range modes {
		guest := newFakeGuest(baud)
		timing := &fakeTiming{}
		node, err := h.shared.NewNode(guest, timing)
		Expect(err).NotTo(HaveOccurred())
		node.Load(mode)
		h.nodes = append(h.nodes, node)
		h.guests = append(h.guests, guest)
		h.timings = append(h.timings, timing)
	}
	return h
}

// pump fires every participant's pending event, round-robin, until rounds
// iterations have elapsed or nothing is scheduled anywhere. The master is
// skipped while it is waiting on slaves that have not yet signalled.
func (h *harness) pump(rounds int) {
	for r := 0; r < rounds; r++ {
		anyScheduled := false
		for i, t := range h.timings {
			if i == 0 && h.bridge.waiting != 0 {
				anyScheduled = true
				continue
			}
			if t.hasEvent {
				anyScheduled = true
				t.fire(0)
			}
		}
		if !anyScheduled {
			return
		}
	}
}

var _ = Describe("SharedLockstep", func() {
	Describe("roster management", func() {
		It("rejects a fifth attach with ErrRosterFull", func() {
			sl := lockstep.NewSharedLockstep(&fakeBridge{})
			for i := 0; i < lockstep.MaxParticipants; i++ {
				_, err := sl.NewNode(newFakeGuest(0), &fakeTiming{})
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := sl.NewNode(newFakeGuest(0), &fakeTiming{})
			Expect(err).To(MatchError(lockstep.ErrRosterFull))
		})

		It("reports Ready only once every attached node is loaded MULTI", func() {
			sl := lockstep.NewSharedLockstep(&fakeBridge{})
			n1, err := sl.NewNode(newFakeGuest(0), &fakeTiming{})
			Expect(err).NotTo(HaveOccurred())
			n2, err := sl.NewNode(newFakeGuest(0), &fakeTiming{})
			Expect(err).NotTo(HaveOccurred())

			n1.Load(lockstep.ModeMulti)
			Expect(sl.Ready()).To(BeFalse())
			n2.Load(lockstep.ModeMulti)
			Expect(sl.Ready()).To(BeTrue())
		})

		It("renumbers the roster on detach", func() {
			sl := lockstep.NewSharedLockstep(&fakeBridge{})
			n1, _ := sl.NewNode(newFakeGuest(0), &fakeTiming{})
			n2, _ := sl.NewNode(newFakeGuest(0), &fakeTiming{})
			n1.Load(lockstep.ModeMulti)
			n2.Load(lockstep.ModeMulti)

			Expect(n2.ID()).To(Equal(1))
			Expect(sl.Detach(n1)).To(Succeed())
			Expect(n2.ID()).To(Equal(0))
			Expect(n2.IsMaster()).To(BeTrue())
		})
	})

	Describe("a two-player MULTI transfer", func() {
		It("delivers both contributions to both participants and raises the ready/id/busy state", func() {
			h := newHarness(lockstep.MultiplayerProtocol{}, 3, lockstep.ModeMulti, lockstep.ModeMulti)
			master, slave := h.nodes[0], h.nodes[1]
			masterGuest, slaveGuest := h.guests[0], h.guests[1]

			// Bring both nodes through an idle tick so the ready bit latches,
			// then the master's guest writes SIOMLT_SEND and raises START.
			h.pump(4)
			Expect(masterGuest.Ready()).To(BeTrue())

			masterGuest.mltSend = 0xABCD
			slaveGuest.mltSend = 0x1234
			newCnt := master.MultiWriteRegister(lockstep.RegSIOCNT, masterGuest.sioCnt|lockstep.ControlStartBit)
			masterGuest.sioCnt = newCnt
			Expect(h.shared.Phase()).To(Equal(lockstep.PhaseStarting))

			h.pump(600)
			Expect(h.shared.Phase()).To(Equal(lockstep.PhaseIdle))

			Expect(masterGuest.multi[0]).To(Equal(uint16(0xABCD)))
			Expect(masterGuest.multi[1]).To(Equal(uint16(0x1234)))
			Expect(slaveGuest.multi[0]).To(Equal(uint16(0xABCD)))
			Expect(slaveGuest.multi[1]).To(Equal(uint16(0x1234)))

			Expect(masterGuest.sioCnt & lockstep.ControlStartBit).To(BeZero())
			Expect(slaveGuest.rcnt & 1).To(Equal(uint8(1)))
			Expect((slaveGuest.sioCnt >> lockstep.ControlIDShift) & 0x3).To(Equal(uint16(1)))
		})
	})

	Describe("a two-player NORMAL_32 transfer", func() {
		It("round-trips the master's data word to the slave", func() {
			h := newHarness(lockstep.MultiplayerProtocol{}, 0, lockstep.ModeNormal32, lockstep.ModeNormal32)
			master := h.nodes[0]
			masterGuest, slaveGuest := h.guests[0], h.guests[1]

			masterGuest.data32 = 0xBEEFDEAD
			newCnt := master.NormalWriteRegister(lockstep.RegSIOCNT, lockstep.ControlStartBit|lockstep.ControlInternalClockBit)
			masterGuest.sioCnt = newCnt
			Expect(h.shared.Phase()).To(Equal(lockstep.PhaseStarting))

			h.pump(600)
			Expect(h.shared.Phase()).To(Equal(lockstep.PhaseIdle))

			Expect(slaveGuest.data32).To(Equal(uint32(0xBEEFDEAD)))
			Expect(masterGuest.data32).To(Equal(lockstep.RecvSentinelNormal))
		})
	})

	Describe("Unload mid-transfer", func() {
		It("returns the session to Idle and credits the slaves' cycle banks so they never wedge", func() {
			h := newHarness(lockstep.MultiplayerProtocol{}, 3, lockstep.ModeMulti, lockstep.ModeMulti, lockstep.ModeMulti)
			master := h.nodes[0]
			h.pump(4)

			newCnt := master.MultiWriteRegister(lockstep.RegSIOCNT, h.guests[0].sioCnt|lockstep.ControlStartBit)
			h.guests[0].sioCnt = newCnt
			Expect(h.shared.Phase()).To(Equal(lockstep.PhaseStarting))

			before1, before2 := h.bridge.posted[1], h.bridge.posted[2]
			master.Unload()
			Expect(h.shared.Phase()).To(Equal(lockstep.PhaseIdle))
			Expect(h.bridge.posted[1]).To(BeNumerically(">", before1))
			Expect(h.bridge.posted[2]).To(BeNumerically(">", before2))
		})
	})
})
