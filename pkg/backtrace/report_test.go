package backtrace

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testSnapshot() Snapshot {
	return Snapshot{Hostname: "testhost", OS: "linux", Arch: "amd64", CPUs: 8, PID: 1234}
}

func TestStoreWriteAndList(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ts := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	path, err := store.Write(ts, testSnapshot(), []byte("goroutine 1 [running]:\nmain.main()"))
	if err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}

	// Second, later report.
	if _, err := store.Write(ts.Add(time.Minute), testSnapshot(), []byte("goroutine 7 [running]:")); err != nil {
		t.Fatalf("failed to write second report: %v", err)
	}

	reports, err := store.List()
	if err != nil {
		t.Fatalf("failed to list reports: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if !reports[0].Timestamp.After(reports[1].Timestamp) {
		t.Error("reports should be sorted newest first")
	}
	if reports[1].Host.Hostname != "testhost" {
		t.Errorf("host snapshot not preserved, got %q", reports[1].Host.Hostname)
	}
}

func TestStoreLoadByIDAndPrefix(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ts := time.Now()
	if _, err := store.Write(ts, testSnapshot(), []byte("stack")); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}

	reports, err := store.List()
	if err != nil || len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d (err %v)", len(reports), err)
	}
	id := reports[0].ID

	rep, err := store.Load(id)
	if err != nil {
		t.Fatalf("failed to load by full ID: %v", err)
	}
	if rep.ID != id {
		t.Errorf("loaded wrong report: %s", rep.ID)
	}

	rep, err = store.Load(id[:8])
	if err != nil {
		t.Fatalf("failed to load by ID prefix: %v", err)
	}
	if rep.ID != id {
		t.Errorf("prefix load returned wrong report: %s", rep.ID)
	}

	if _, err := store.Load("ffffffff-0000"); err == nil {
		t.Error("loading an unknown ID should fail")
	}
}

func TestStoreListSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if _, err := store.Write(time.Now(), testSnapshot(), []byte("stack")); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "crash-bogus.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to plant corrupt file: %v", err)
	}

	reports, err := store.List()
	if err != nil {
		t.Fatalf("listing should not fail on a corrupt file: %v", err)
	}
	if len(reports) != 1 {
		t.Errorf("corrupt file should be skipped, got %d reports", len(reports))
	}
}
