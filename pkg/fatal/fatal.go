// Package fatal owns the process-wide fatal-failure hook slot.
//
// The slot holds at most one Handler. It is written only at library
// install/uninstall boundaries, which the hosting program serializes
// relative to normal execution, and it is read lock-free from the fatal
// path, which may run on any goroutine at any time with no advance
// notice.
package fatal

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
)

// Handler is invoked immediately before the process would terminate due
// to an unrecovered failure. Implementations must not return control to
// normal execution: the contract is diagnose, then terminate.
type Handler interface {
	OnFatal()
}

// slotValue wraps the handler so atomic.Value always stores a single
// concrete type, including the empty (no hook registered) state.
type slotValue struct {
	h Handler
}

var slot atomic.Value

// Current returns the registered fatal handler, or nil when no hook is
// registered.
func Current() Handler {
	if v := slot.Load(); v != nil {
		return v.(slotValue).h
	}
	return nil
}

// Set registers h as the process-wide fatal handler. Passing nil clears
// the slot. Set is intended for library load/unload boundaries only.
func Set(h Handler) {
	slot.Store(slotValue{h: h})
}

// Crash reports v as an unrecoverable failure and terminates the
// process. The registered handler, if any, is dispatched first; the
// handler is expected to terminate on its own, but Crash aborts
// regardless in case it returns. Crash never returns.
func Crash(v any) {
	if h := Current(); h != nil {
		h.OnFatal()
	}

	// No handler registered, or it returned against its contract.
	// Approximate the runtime's default fatal output, then abort.
	buf := make([]byte, 64<<10)
	n := runtime.Stack(buf, false)
	fmt.Fprintf(os.Stderr, "fatal error: %v\n\n%s\n", v, buf[:n])
	Abort()
}

// HandleCrash routes an unrecovered panic into the fatal path. Defer it
// first in every goroutine whose failure must go through the installed
// hook:
//
//	go func() {
//		defer fatal.HandleCrash()
//		work()
//	}()
func HandleCrash() {
	if r := recover(); r != nil {
		Crash(r)
	}
}
