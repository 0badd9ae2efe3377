// Package diag exposes a diagnostics HTTP endpoint for long-lived host
// applications: live goroutine dumps, stored crash reports, and
// Prometheus metrics.
package diag

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psantana5/ggmltrace/pkg/backtrace"
	"github.com/psantana5/ggmltrace/pkg/logging"
)

// Server serves the diagnostics routes. It reads crash reports from the
// store; it never writes them.
type Server struct {
	store     *backtrace.Store
	log       *logging.Logger
	startTime time.Time
	registry  *prometheus.Registry
}

// NewServer creates a diagnostics server. hookInstalled reflects
// whether the termination hook owns the fatal-hook slot in this
// process.
func NewServer(store *backtrace.Store, hookInstalled bool, log *logging.Logger) *Server {
	s := &Server{
		store:     store,
		log:       log,
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
	}

	installed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ggmltrace_hook_installed",
		Help: "Whether the termination hook currently owns the fatal-hook slot (1 = installed)",
	})
	if hookInstalled {
		installed.Set(1)
	}

	reportCount := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ggmltrace_crash_reports",
		Help: "Number of persisted crash reports in the report directory",
	}, func() float64 {
		reports, err := s.store.List()
		if err != nil {
			return 0
		}
		return float64(len(reports))
	})

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ggmltrace_uptime_seconds",
		Help: "Time since the diagnostics server started",
	}, func() float64 {
		return time.Since(s.startTime).Seconds()
	})

	s.registry.MustRegister(installed)
	s.registry.MustRegister(reportCount)
	s.registry.MustRegister(uptime)

	return s
}

// Router returns the diagnostics routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/debug/stack", s.handleStack).Methods("GET")
	r.HandleFunc("/debug/reports", s.handleReports).Methods("GET")
	r.HandleFunc("/debug/reports/{id}", s.handleReport).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// handleStack dumps the stacks of all live goroutines.
func (s *Server) handleStack(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf[:n])
}

// reportSummary is the listing entry; the full stack is only returned
// for a single report.
type reportSummary struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Hostname  string    `json:"hostname,omitempty"`
	StackSize int       `json:"stack_size"`
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.List()
	if err != nil {
		s.log.Error("Failed to list crash reports", map[string]interface{}{"error": err.Error()})
		http.Error(w, "failed to list crash reports", http.StatusInternalServerError)
		return
	}

	summaries := make([]reportSummary, 0, len(reports))
	for _, rep := range reports {
		summaries = append(summaries, reportSummary{
			ID:        rep.ID,
			Timestamp: rep.Timestamp,
			Hostname:  rep.Host.Hostname,
			StackSize: len(rep.Stack),
		})
	}

	writeJSON(w, map[string]interface{}{
		"reports": summaries,
		"count":   len(summaries),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rep, err := s.store.Load(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, rep)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
