package lockstep

// GuestIO is the interface this coordinator needs from the guest
// memory-mapped I/O region. The region itself, and interrupt delivery, are
// out of scope for this package; only the register accesses the protocol
// touches are named here. Raw read access (SIOCNT) is available for the
// bit-level masking the driver hooks perform on guest writes (the hooks
// return the masked value rather than writing it back); the narrower
// accessors below are for state the phase machine
// pushes into guest memory outside of a direct register write (for
// example, refreshing the ready bit once per idle tick).
type GuestIO interface {
	// SIOCNT returns the current raw value of the serial control
	// register, used to preserve read-only bits across a guest write.
	SIOCNT() uint16

	// Ready reports the multiplayer "ready" bit: whether every attached
	// node is loaded in MULTI mode.
	Ready() bool
	// SetReady pushes a refreshed ready bit into guest memory.
	SetReady(ready bool)

	// Baud returns the configured baud-rate field (0-3).
	Baud() uint8

	// IRQEnabled reports whether the guest has enabled the serial
	// interrupt.
	IRQEnabled() bool

	// SIOMLTSend returns the current value of this node's multiplayer
	// send register.
	SIOMLTSend() uint16
	// SetSIOMULTI writes the receive register for participant slot i
	// (0-3) as observed by this node.
	SetSIOMULTI(slot int, value uint16)

	// SetBusy sets or clears the multiplayer busy/start-in-progress bit.
	SetBusy(busy bool)
	// SetMultiID stamps the guest-reported multiplayer participant id.
	SetMultiID(id int)

	// SIOData8 / SetSIOData8 access the 8-bit normal-mode data register.
	// The underlying memory cell is 16 bits wide (only the low byte is
	// guest-meaningful); callers mask with 0xFF for data and pass 0xFFFF
	// for the "no data" sentinel.
	SIOData8() uint16
	SetSIOData8(value uint16)

	// SIOData32 / SetSIOData32 access the 32-bit normal-mode data
	// register (the two 16-bit halves, combined/split by the caller).
	SIOData32() uint32
	SetSIOData32(value uint32)

	// SetRCNT ORs bits into the external-line state register; ClearRCNT
	// clears them.
	SetRCNT(bits uint8)
	ClearRCNT(bits uint8)

	// IdleSO reports this guest's idle SO line state. NORMAL_8/NORMAL_32
	// finish reads it from the upstream node's guest to compute the
	// downstream node's SI bit.
	IdleSO() bool
	// SetSI pushes the computed SI bit into guest memory.
	SetSI(si bool)
	// ClearStart clears the normal-mode start/busy bit on transfer
	// completion.
	ClearStart()

	// RaiseSerialIRQ requests interrupt delivery for a completed
	// transfer. The caller only invokes this when IRQEnabled is true.
	RaiseSerialIRQ()
}

// RegSIOCNT and the other register addresses are the offsets passed to
// Node's write-register hooks; their exact numeric values are whatever the
// embedder's memory map uses; these symbolic names are what this package
// compares address against.
type RegisterAddress = uint32

const (
	RegSIOCNT RegisterAddress = iota
	RegSIOMLTSend
	RegSIOData8
	RegSIOData32Lo
	RegSIOData32Hi
)
