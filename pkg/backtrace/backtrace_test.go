package backtrace

import (
	"bytes"
	"strings"
	"testing"
)

func TestReporterWritesStack(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter()
	r.SetOutput(&buf)

	r.Report()

	out := buf.String()
	if !strings.Contains(out, "goroutine") {
		t.Error("report should contain goroutine stacks")
	}
	if !strings.Contains(out, "fatal failure") {
		t.Error("report should carry the fatal failure banner")
	}
	if !strings.Contains(out, "pid") {
		t.Error("report should carry the process snapshot line")
	}
}

func TestReporterIsRepeatable(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter()
	r.SetOutput(&buf)

	// The hook may fire more than once per install; the preallocated
	// buffer must survive reuse.
	r.Report()
	first := buf.Len()
	r.Report()

	if buf.Len() <= first {
		t.Error("second report produced no output")
	}
}

func TestReporterPersistsToStore(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	var buf bytes.Buffer
	r := NewReporter()
	r.SetOutput(&buf)
	r.SetStore(store)

	r.Report()

	reports, err := store.List()
	if err != nil {
		t.Fatalf("failed to list reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 persisted report, got %d", len(reports))
	}
	if !strings.Contains(reports[0].Stack, "goroutine") {
		t.Error("persisted report should contain the stack dump")
	}
	if !strings.Contains(buf.String(), "crash report written") {
		t.Error("sink output should mention the persisted report path")
	}
}

func TestSnapshotBasics(t *testing.T) {
	snap := NewReporter().Snapshot()
	if snap.OS == "" || snap.Arch == "" {
		t.Error("snapshot should record OS and architecture")
	}
	if snap.CPUs <= 0 {
		t.Errorf("snapshot should record a positive cpu count, got %d", snap.CPUs)
	}
	if snap.PID <= 0 {
		t.Errorf("snapshot should record the pid, got %d", snap.PID)
	}
}
