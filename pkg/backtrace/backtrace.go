// Package backtrace captures fatal-failure diagnostics: all-goroutine
// stack dumps written to an observable sink, plus optional persisted
// crash reports for post-mortem tooling.
package backtrace

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// stackBufSize bounds the captured dump across all goroutines.
const stackBufSize = 1 << 20

// Snapshot describes the host at reporter construction time. It is
// collected once, up front, so the fatal path never queries the system.
type Snapshot struct {
	Hostname string `json:"hostname,omitempty"`
	Platform string `json:"platform,omitempty"`
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	CPUs     int    `json:"cpus"`
	RAMBytes uint64 `json:"ram_bytes,omitempty"`
	PID      int    `json:"pid"`
}

func collectSnapshot() Snapshot {
	snap := Snapshot{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		CPUs: runtime.NumCPU(),
		PID:  os.Getpid(),
	}

	// Host details are nice to have in a report but never worth failing
	// over.
	if info, err := host.Info(); err == nil {
		snap.Hostname = info.Hostname
		snap.Platform = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.RAMBytes = vm.Total
	}

	return snap
}

// Reporter writes fatal-failure backtraces to a sink. The stack buffer
// and host snapshot are prepared at construction because Report runs
// when the process is already dying and must not depend on subsystems
// that may be in a corrupted state.
type Reporter struct {
	out   io.Writer
	buf   []byte
	snap  Snapshot
	store *Store
}

// NewReporter creates a reporter that writes to stderr.
func NewReporter() *Reporter {
	return &Reporter{
		out:  os.Stderr,
		buf:  make([]byte, stackBufSize),
		snap: collectSnapshot(),
	}
}

// SetOutput redirects the diagnostic sink.
func (r *Reporter) SetOutput(w io.Writer) {
	r.out = w
}

// SetStore enables best-effort persistence of each report.
func (r *Reporter) SetStore(s *Store) {
	r.store = s
}

// Snapshot returns the host details collected at construction.
func (r *Reporter) Snapshot() Snapshot {
	return r.snap
}

// Report emits the current all-goroutine backtrace. It never signals
// failure to the caller: write errors are ignored and the persisted
// report is best effort, because the caller is the fatal path and has
// nothing left to do with an error.
func (r *Reporter) Report() {
	n := runtime.Stack(r.buf, true)
	stack := r.buf[:n]
	now := time.Now()

	fmt.Fprintf(r.out, "\n==== fatal failure ====\n")
	fmt.Fprintf(r.out, "time: %s\n", now.Format(time.RFC3339))
	if r.snap.Hostname != "" {
		fmt.Fprintf(r.out, "host: %s (%s)\n", r.snap.Hostname, r.snap.Platform)
	}
	fmt.Fprintf(r.out, "runtime: %s/%s, %d cpus, pid %d\n\n", r.snap.OS, r.snap.Arch, r.snap.CPUs, r.snap.PID)
	_, _ = r.out.Write(stack)
	fmt.Fprintf(r.out, "\n==== end fatal failure ====\n")

	if r.store != nil {
		if path, err := r.store.Write(now, r.snap, stack); err == nil {
			fmt.Fprintf(r.out, "crash report written: %s\n", path)
		}
	}
}
