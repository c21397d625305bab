package lockstep_test

import (
	"testing"

	"github.com/openemu/lockstep"
)

func TestSnapshotMarshalUnmarshalRoundTrip(t *testing.T) {
	snap := lockstep.Snapshot{
		Attached:       3,
		AttachedMulti:  2,
		Phase:          lockstep.PhaseFinishing,
		TransferCycles: 1536,
		Modes: [lockstep.MaxParticipants]lockstep.Mode{
			lockstep.ModeMulti, lockstep.ModeNormal32, lockstep.ModeNormal8, lockstep.ModeOther,
		},
		MultiRecv: [lockstep.MaxParticipants]uint16{
			0xABCD, 0x1234, lockstep.RecvSentinelMulti, lockstep.RecvSentinelMulti,
		},
		NormalRecv: [lockstep.MaxParticipants]uint32{
			0xBEEFDEAD, lockstep.RecvSentinelNormal, 0, 0,
		},
	}

	size := snap.SizeHint()
	buf := make([]byte, size)
	_, rem, err := snap.Marshal(buf, size)
	if err != nil {
		t.Fatalf("Marshal returned unexpected error: %v", err)
	}
	if rem != 0 {
		t.Fatalf("expected rem == 0 after marshaling a fully-sized buffer, got %d", rem)
	}

	var got lockstep.Snapshot
	_, rem, err = got.Unmarshal(buf, len(buf))
	if err != nil {
		t.Fatalf("Unmarshal returned unexpected error: %v", err)
	}
	if rem != 0 {
		t.Fatalf("expected rem == 0 after unmarshaling a fully-sized buffer, got %d", rem)
	}

	if got != snap {
		t.Fatalf("round-tripped snapshot does not match original:\n got  %+v\n want %+v", got, snap)
	}
}

func TestSnapshotMarshalTooSmallRemErrors(t *testing.T) {
	snap := lockstep.Snapshot{
		Attached: 2,
		Phase:    lockstep.PhaseStarting,
	}

	size := snap.SizeHint()
	buf := make([]byte, size)
	for rem := 0; rem < size; rem++ {
		if _, _, err := snap.Marshal(buf, rem); err == nil {
			t.Fatalf("expected Marshal with rem=%d (< SizeHint %d) to error", rem, size)
		}
	}
}

func TestSnapshotUnmarshalTooSmallRemErrors(t *testing.T) {
	snap := lockstep.Snapshot{
		Attached: 2,
		Phase:    lockstep.PhaseStarted,
	}

	size := snap.SizeHint()
	buf := make([]byte, size)
	if _, _, err := snap.Marshal(buf, size); err != nil {
		t.Fatalf("Marshal returned unexpected error: %v", err)
	}

	var got lockstep.Snapshot
	for rem := 0; rem < size; rem++ {
		if _, _, err := got.Unmarshal(buf, rem); err == nil {
			t.Fatalf("expected Unmarshal with rem=%d (< SizeHint %d) to error", rem, size)
		}
	}
}
