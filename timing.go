package lockstep

// Timing is the interface this coordinator needs from an instance's
// per-thread timing wheel: a min-heap of scheduled events that invokes a
// callback at an emulated cycle. The wheel itself, and its relationship to
// the rest of the emulated instance, are out of scope for this package.
type Timing interface {
	// Schedule arranges for ev's callback to fire cyclesFromNow emulated
	// cycles in the future, descheduling any existing pending fire for ev
	// first.
	Schedule(ev *Event, cyclesFromNow int32)

	// Deschedule cancels ev's pending fire, if any.
	Deschedule(ev *Event)

	// IsScheduled reports whether ev currently has a pending fire.
	IsScheduled(ev *Event) bool

	// RequestEarlyExit asks the owning instance's emulation loop to yield
	// promptly, used when a node has no useful cycle budget left to run.
	RequestEarlyExit()
}

// EventCallback is invoked by a Timing implementation when a scheduled
// Event fires. cyclesLate is the number of emulated cycles the wheel ran
// past the event's originally scheduled time before dispatching it.
type EventCallback func(cyclesLate int32)

// Event is a handle into an instance's timing wheel. The coordinator
// schedules exactly one Event per attached node, registered on load and
// descheduled on unload.
type Event struct {
	Name     string
	Callback EventCallback
}
