package instance

import "time"

// Delegate receives the life cycle events of instances
type Delegate interface {
	// OnInstanceCreated is called after an instance is registered, on the goroutine creating it
	OnInstanceCreated(inst *Instance)
	// OnInstanceUpdate is called once per tick on the scheduler goroutine
	OnInstanceUpdate(inst *Instance, now time.Time, dt time.Duration)
	// OnInstanceDestroy is called after an instance is unregistered
	OnInstanceDestroy(inst *Instance)
}

// DefaultDelegate does nothing. Embed it to implement only some of the hooks.
type DefaultDelegate struct{}

// OnInstanceCreated does nothing
func (DefaultDelegate) OnInstanceCreated(inst *Instance) {}

// OnInstanceUpdate does nothing
func (DefaultDelegate) OnInstanceUpdate(inst *Instance, now time.Time, dt time.Duration) {}

// OnInstanceDestroy does nothing
func (DefaultDelegate) OnInstanceDestroy(inst *Instance) {}
