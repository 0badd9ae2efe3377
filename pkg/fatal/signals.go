package fatal

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// fatalSignals are the signals raised by native code when it crashes in
// a way the Go runtime does not translate into a panic, e.g. inside a
// cgo call into a ggml kernel.
var fatalSignals = []os.Signal{
	syscall.SIGSEGV,
	syscall.SIGBUS,
	syscall.SIGABRT,
	syscall.SIGFPE,
	syscall.SIGILL,
}

// TrapSignals routes fatal signals from native code into the fatal
// dispatch, so a crash below the Go runtime produces the same
// diagnostics as an unrecovered panic. Call it once, after the hook is
// installed.
func TrapSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, fatalSignals...)

	go func() {
		sig := <-ch
		// Restore default dispositions so the termination path ends the
		// process even if the handler chain misbehaves.
		signal.Reset(fatalSignals...)
		if s, ok := sig.(syscall.Signal); ok {
			Crash(fmt.Sprintf("fatal signal %s", SignalName(s)))
		} else {
			Crash(fmt.Sprintf("fatal signal %v", sig))
		}
	}()
}

// SignalName returns the conventional name for a fatal signal number.
func SignalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGSEGV:
		return "SIGSEGV"
	case syscall.SIGBUS:
		return "SIGBUS"
	case syscall.SIGABRT:
		return "SIGABRT"
	case syscall.SIGFPE:
		return "SIGFPE"
	case syscall.SIGILL:
		return "SIGILL"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGQUIT:
		return "SIGQUIT"
	default:
		return fmt.Sprintf("SIG%d", sig)
	}
}
