package lockstep

import (
	"fmt"

	"github.com/renproject/surge"
)

// Snapshot is a point-in-time, marshalable capture of a SharedLockstep's
// state, used by lockstephist to dump the state leading up to a panic so a
// session can be replayed offline.
type Snapshot struct {
	Attached      uint8
	AttachedMulti uint8
	Phase         Phase
	TransferCycles int32
	Modes         [MaxParticipants]Mode
	MultiRecv     [MaxParticipants]uint16
	NormalRecv    [MaxParticipants]uint32
}

// Snapshot captures the current state of sl. Safe to call concurrently
// with normal operation.
func (sl *SharedLockstep) Snapshot() Snapshot {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	s := Snapshot{
		Attached:       uint8(sl.attached),
		AttachedMulti:  uint8(sl.attachedMulti),
		Phase:          sl.phase,
		TransferCycles: sl.transferCycles,
		MultiRecv:      sl.multiRecv,
		NormalRecv:     sl.normalRecv,
	}
	for i := 0; i < sl.attached; i++ {
		s.Modes[i] = sl.players[i].mode
	}
	return s
}

// SizeHint implements the surge.SizeHinter interface.
func (s Snapshot) SizeHint() int {
	return surge.SizeHint(s.Attached) +
		surge.SizeHint(s.AttachedMulti) +
		surge.SizeHint(uint8(s.Phase)) +
		surge.SizeHint(s.TransferCycles) +
		MaxParticipants*surge.SizeHint(uint8(0)) +
		surge.SizeHint(s.MultiRecv) +
		surge.SizeHint(s.NormalRecv)
}

// Marshal implements the surge.Marshaler interface.
func (s Snapshot) Marshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.MarshalU8(s.Attached, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling attached: %v", err)
	}
	buf, rem, err = surge.MarshalU8(s.AttachedMulti, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling attachedMulti: %v", err)
	}
	buf, rem, err = surge.MarshalU8(uint8(s.Phase), buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling phase: %v", err)
	}
	buf, rem, err = surge.MarshalI32(s.TransferCycles, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling transferCycles: %v", err)
	}
	for i := range s.Modes {
		buf, rem, err = surge.MarshalU8(uint8(s.Modes[i]), buf, rem)
		if err != nil {
			return buf, rem, fmt.Errorf("marshaling modes[%d]: %v", i, err)
		}
	}
	buf, rem, err = surge.Marshal(s.MultiRecv, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling multiRecv: %v", err)
	}
	buf, rem, err = surge.Marshal(s.NormalRecv, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("marshaling normalRecv: %v", err)
	}
	return buf, rem, nil
}

// Unmarshal implements the surge.Unmarshaler interface.
func (s *Snapshot) Unmarshal(buf []byte, rem int) ([]byte, int, error) {
	buf, rem, err := surge.UnmarshalU8(&s.Attached, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling attached: %v", err)
	}
	buf, rem, err = surge.UnmarshalU8(&s.AttachedMulti, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling attachedMulti: %v", err)
	}
	var phase uint8
	buf, rem, err = surge.UnmarshalU8(&phase, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling phase: %v", err)
	}
	s.Phase = Phase(phase)
	buf, rem, err = surge.UnmarshalI32(&s.TransferCycles, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling transferCycles: %v", err)
	}
	for i := range s.Modes {
		var m uint8
		buf, rem, err = surge.UnmarshalU8(&m, buf, rem)
		if err != nil {
			return buf, rem, fmt.Errorf("unmarshaling modes[%d]: %v", i, err)
		}
		s.Modes[i] = Mode(m)
	}
	buf, rem, err = surge.Unmarshal(&s.MultiRecv, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling multiRecv: %v", err)
	}
	buf, rem, err = surge.Unmarshal(&s.NormalRecv, buf, rem)
	if err != nil {
		return buf, rem, fmt.Errorf("unmarshaling normalRecv: %v", err)
	}
	return buf, rem, nil
}
