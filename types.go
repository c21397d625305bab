package lockstep

import "fmt"

// MaxParticipants is the hard ceiling on attached nodes in a single
// lockstep session: one master plus three slaves.
const MaxParticipants = 4

// LockstepIncrement is the number of emulated cycles the master or an
// unready slave advances per idle re-evaluation.
const LockstepIncrement int32 = 2000

// RecvSentinelMulti marks a multiplayer receive slot that has not yet been
// contributed to the current transfer.
const RecvSentinelMulti uint16 = 0xFFFF

// RecvSentinelNormal is written into a master's own 32-bit data register on
// transfer completion (the master has no upstream node to receive from).
const RecvSentinelNormal uint32 = 0xFFFFFFFF

// Phase is the global transfer phase shared by every attached node.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseStarting
	PhaseStarted
	PhaseFinishing
	PhaseFinished
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseStarting:
		return "Starting"
	case PhaseStarted:
		return "Started"
	case PhaseFinishing:
		return "Finishing"
	case PhaseFinished:
		return "Finished"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Mode is the serial mode a node has configured on its guest control
// register.
type Mode uint8

const (
	// ModeOther covers any guest-configured serial mode this coordinator
	// does not drive (UART passthrough, general-purpose, JOY BUS, ...).
	// Nodes in ModeOther do not participate in transfers.
	ModeOther Mode = iota
	ModeMulti
	ModeNormal8
	ModeNormal32
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeMulti:
		return "Multi"
	case ModeNormal8:
		return "Normal8"
	case ModeNormal32:
		return "Normal32"
	default:
		return "Other"
	}
}

// Guest control-register bit layout, as described for this coordinator.
const (
	ControlStartBit      uint16 = 1 << 7  // START/BUSY
	ControlSlaveBit      uint16 = 1 << 0  // multiplayer: 0 = master, 1 = slave
	ControlReadyBit      uint16 = 1 << 3  // multiplayer: all slots loaded & MULTI
	ControlErrorBit      uint16 = 1 << 6  // multiplayer: transfer error latch
	ControlIRQEnableBit  uint16 = 1 << 14 // serial-complete interrupt enable
	ControlIDShift       uint16 = 4
	ControlIDMask        uint16 = 0x3 << ControlIDShift
	controlMultiWritable uint16 = 0xFF83
	controlMultiReadOnly uint16 = 0x00FC

	controlNormalWritable   uint16 = 0xFF8B
	ControlInternalClockBit uint16 = 1 << 0 // normal mode: 1 = this side is the clock source
	ControlFrequencyBit     uint16 = 1 << 1 // normal mode: 1 = high frequency (256kHz / 1024 divisor)
	normalSelfLoopSIBit     uint16 = 1 << 2 // master always reports si=1
	cpuFrequencyHz          int32  = 16777216 // ARM7TDMI clock, 2^24 Hz
	normalFreqLowDivisor    int32  = 8192
	normalFreqHighDivisor   int32  = 1024
)

// cyclesPerTransfer[baud][attached] is the total number of emulated cycles
// a multiplayer transfer consumes end to end, keyed by the baud rate field
// (0-3, slowest to fastest) and the number of attached participants (2-4).
// Indices 0 and 1 are unused placeholders; a transfer never has fewer than
// two participants.
var cyclesPerTransfer = [4][MaxParticipants + 1]int32{
	{0, 0, 2304, 1792, 1536},
	{0, 0, 1088, 832, 704},
	{0, 0, 576, 448, 384},
	{0, 0, 320, 256, 224},
}

// CyclesPerTransfer returns the total transfer cycle budget for the given
// baud rate (0-3) and attached participant count (2-4).
func CyclesPerTransfer(baud uint8, attached int) int32 {
	if baud > 3 || attached < 2 || attached > MaxParticipants {
		return 0
	}
	return cyclesPerTransfer[baud][attached]
}

// NormalTransferCycles returns the fixed cycle budget for a 32-bit (or
// 8-bit) normal-mode transfer, selected by the frequency bit of the control
// register write that started it.
func NormalTransferCycles(highFrequency bool) int32 {
	if highFrequency {
		return cpuFrequencyHz / normalFreqHighDivisor
	}
	return cpuFrequencyHz / normalFreqLowDivisor
}
