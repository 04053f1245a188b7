package gwvar

import "expvar"

// Bool is a boolean published at /debug/vars
type Bool struct {
	val *expvar.Int
}

// NewBool publishes a new Bool of name
func NewBool(name string) *Bool {
	return &Bool{
		val: expvar.NewInt(name),
	}
}

func (b *Bool) Value() bool {
	return b.val.Value() > 0
}

func (b *Bool) Set(v bool) {
	if v {
		b.val.Set(1)
	} else {
		b.val.Set(0)
	}
}

var (
	// IsSchedulerRunning is true while a scheduler is running
	IsSchedulerRunning = NewBool("IsSchedulerRunning")
	// InstanceCount is the number of live instances
	InstanceCount = expvar.NewInt("InstanceCount")
	// TickCount is the number of update passes of all schedulers
	TickCount = expvar.NewInt("TickCount")
)
