package gwutils

import "github.com/xiaonanln/tilespace/engine/gwlog"

// RunPanicless calls a function panic-freely
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		err := recover()
		if err != nil {
			gwlog.TraceError("%p panic: %v", f, err)
			paniced = true
		}
	}()

	f()
	return
}

// CatchPanic runs f and returns the recovered value, or nil if f returned normally
func CatchPanic(f func()) (err interface{}) {
	defer func() {
		err = recover()
	}()

	f()
	return
}
