package backtrace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	systemReportDir = "/var/log/ggmltrace/reports"
	localReportDir  = "crashreports"
)

// Report is one persisted crash record.
type Report struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Host      Snapshot  `json:"host"`
	Stack     string    `json:"stack"`
}

// Store persists crash reports as flat JSON files, one per fatal event.
type Store struct {
	dir string
}

// DefaultDir returns the report directory, preferring the system
// location and falling back to a local one when it is not writable.
func DefaultDir() string {
	if isWritable(systemReportDir) {
		return systemReportDir
	}
	return localReportDir
}

// NewStore opens (creating if needed) a report store in dir. An empty
// dir selects DefaultDir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory reports are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Write persists one crash report and returns its file path.
func (s *Store) Write(ts time.Time, snap Snapshot, stack []byte) (string, error) {
	rep := Report{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Host:      snap,
		Stack:     string(stack),
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal crash report: %w", err)
	}

	name := fmt.Sprintf("crash-%s-%s.json", ts.Format("20060102-150405"), rep.ID[:8])
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write crash report %s: %w", path, err)
	}

	return path, nil
}

// List returns all stored reports, newest first. Files that fail to
// parse are skipped rather than failing the whole listing.
func (s *Store) List() ([]Report, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read report directory %s: %w", s.dir, err)
	}

	var reports []Report
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "crash-") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var rep Report
		if err := json.Unmarshal(data, &rep); err != nil {
			continue
		}
		reports = append(reports, rep)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Timestamp.After(reports[j].Timestamp)
	})
	return reports, nil
}

// Load returns the report whose ID matches id, accepting a unique
// prefix of at least eight characters.
func (s *Store) Load(id string) (*Report, error) {
	reports, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range reports {
		if reports[i].ID == id || (len(id) >= 8 && strings.HasPrefix(reports[i].ID, id)) {
			return &reports[i], nil
		}
	}
	return nil, fmt.Errorf("crash report %s not found", id)
}

// isWritable checks whether reports can be created under path.
func isWritable(path string) bool {
	if err := os.MkdirAll(path, 0755); err != nil {
		return false
	}
	testFile := filepath.Join(path, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(testFile)
	return true
}
