// Package lockstep implements a lockstep serial I/O coordinator for
// multi-instance handheld console emulation. Multiple emulator instances,
// each running on its own host thread at its own wall-clock rate, attach to
// a shared SharedLockstep and exchange serial data as if physically cabled
// together: every cross-instance transfer is observed by all participants
// at the same emulated instant, with guest-visible timing that is bit exact
// regardless of host scheduling.
//
// The package is organised the way a single protocol in this family usually
// is: one exported type per concern (SharedLockstep, Node, the Protocol
// phase machine, the register masks and cycle tables) living together in
// one package, rather than split across many tiny packages. External
// collaborators -- the CPU core, the per-instance timing wheel, guest
// memory, interrupt delivery, and the host threading model -- are named
// only through the interfaces this package needs from them (Timing,
// GuestIO, Bridge).
package lockstep
