package fatal

import (
	"os"
	"os/signal"
	"syscall"
)

// Abort terminates the process abnormally and never returns. The
// SIGABRT disposition is reset to its default before re-raising so the
// kernel produces the usual abort behavior, including a core dump where
// enabled. If the signal somehow fails to kill the process, exit with
// the conventional 128+SIGABRT status.
func Abort() {
	signal.Reset(syscall.SIGABRT)
	_ = syscall.Kill(syscall.Getpid(), syscall.SIGABRT)
	os.Exit(128 + int(syscall.SIGABRT))
}
