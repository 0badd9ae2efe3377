// Package hook installs the process termination hook that emits a
// backtrace on fatal failures.
//
// A Manager owns a single forward-then-back lifecycle: install at
// library load, uninstall at unload. Between the two the hook body may
// run on any goroutine, any number of times, and always ends in process
// termination. Installation is a deliberate no-op when the host opts
// out via the GGML_NO_BACKTRACE environment variable, and a redundant
// install while another manager still holds the slot degenerates to a
// no-op as well, so reload cycles never duplicate the handler chain.
package hook

import (
	"os"

	"github.com/psantana5/ggmltrace/pkg/fatal"
)

// OptOutEnv disables installation entirely when set (any value). It is
// the escape hatch for embedding applications that want full control of
// fatal-failure behavior.
const OptOutEnv = "GGML_NO_BACKTRACE"

// Reporter emits a diagnostic dump of the current call stacks to an
// observable sink. The hook swallows anything Report raises so a broken
// reporter cannot mask the original failure, but reporters should fail
// quietly on their own.
type Reporter interface {
	Report()
}

// Registry abstracts the process fatal-hook slot: read the currently
// registered handler, replace it. A nil handler is the "no hook
// registered" sentinel.
type Registry interface {
	Current() fatal.Handler
	Set(h fatal.Handler)
}

// processRegistry is the real slot owned by pkg/fatal.
type processRegistry struct{}

func (processRegistry) Current() fatal.Handler { return fatal.Current() }
func (processRegistry) Set(h fatal.Handler)    { fatal.Set(h) }

// handler is the callback object placed in the slot. It is a distinct
// pointer type so slot ownership is recognizable by identity: the
// uninstall guard compares pointers, and the install guard recognizes
// any handler of this type as already-installed.
type handler struct {
	reporter  Reporter
	prev      fatal.Handler
	terminate func()
}

// OnFatal is the hook body: emit the backtrace, invoke the previously
// registered handler exactly once, then force abnormal termination in
// case that handler returned. It must never return control to normal
// execution, takes no locks, and starts no goroutines; it runs when the
// process is already in a fatal condition.
func (h *handler) OnFatal() {
	h.report()
	if h.prev != nil {
		h.prev.OnFatal()
	}
	h.terminate()
}

// report isolates the reporter so a panic inside it cannot mask the
// original fatal condition.
func (h *handler) report() {
	defer func() {
		_ = recover()
	}()
	h.reporter.Report()
}

// Manager owns the install/uninstall lifecycle of the termination hook.
// Construct exactly one per library load and uninstall it exactly once
// on unload. Both operations rely on the hosting program serializing
// load and unload relative to normal execution; neither takes a lock.
type Manager struct {
	registry  Registry
	own       *handler
	installed bool
}

// New creates a manager and immediately attempts installation. When
// OptOutEnv is set the slot is left untouched and no previous handler
// is recorded. Installation cannot fail observably; a missing
// environment variable simply means "not opted out".
func New(reporter Reporter) *Manager {
	_, optOut := os.LookupEnv(OptOutEnv)
	return newManager(reporter, processRegistry{}, fatal.Abort, optOut)
}

func newManager(reporter Reporter, reg Registry, terminate func(), optOut bool) *Manager {
	m := &Manager{registry: reg}
	if optOut {
		return m
	}

	cur := reg.Current()
	if _, ours := cur.(*handler); ours {
		// A live manager already holds the slot (a reload racing with
		// an existing instance). Installing again would duplicate the
		// chain, so do nothing; this manager stays uninstalled.
		return m
	}

	m.own = &handler{reporter: reporter, prev: cur, terminate: terminate}
	reg.Set(m.own)
	m.installed = true
	return m
}

// Installed reports whether this manager placed its handler in the
// slot. False after opt-out, after a redundant install, or after
// Uninstall.
func (m *Manager) Installed() bool {
	return m.installed
}

// Uninstall restores the previously registered handler, but only if the
// slot still holds this manager's own hook. If another party replaced
// the hook after installation, restoring would clobber that
// registration, so nothing is done.
func (m *Manager) Uninstall() {
	if !m.installed {
		return
	}
	if m.registry.Current() == m.own {
		m.registry.Set(m.own.prev)
	}
	m.installed = false
}
