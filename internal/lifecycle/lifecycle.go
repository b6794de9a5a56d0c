// Package lifecycle installs, reloads, and removes the persistent background
// agents through the per-user service supervisor. Install always rewrites the
// unit definition and reloads unconditionally, so repeated calls converge to
// exactly one running instance with the latest configuration.
package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zulandar/roundhouse/internal/supervisor"
)

// Unit states as reported by Status.
const (
	StateNotInstalled = "not-installed"
	StateStopped      = "installed-stopped"
	StateRunning      = "installed-running"
)

// Unit describes one background agent.
type Unit struct {
	Label      string   // reverse-DNS supervisor label
	Args       []string // program arguments, absolute binary path first
	LogPath    string   // stdout log file
	ErrLogPath string   // stderr log file
	KeepAlive  bool     // restart on exit (long-lived daemons)
	RunAtLoad  bool     // start once at login (one-shot restorers)
}

func (u Unit) validate() error {
	if u.Label == "" {
		return fmt.Errorf("lifecycle: unit label is required")
	}
	if len(u.Args) == 0 {
		return fmt.Errorf("lifecycle: unit %s has no command", u.Label)
	}
	return nil
}

// Manager writes unit definitions into Dir and drives the supervisor.
type Manager struct {
	dir string
	sup supervisor.Supervisor
}

// NewManager returns a Manager writing definitions into dir. A nil sup uses
// supervisor.Default.
func NewManager(dir string, sup supervisor.Supervisor) *Manager {
	if sup == nil {
		sup = supervisor.Default
	}
	return &Manager{dir: dir, sup: sup}
}

// DefinitionPath returns where the unit's definition file lives.
func (m *Manager) DefinitionPath(u Unit) string {
	return filepath.Join(m.dir, u.Label+".plist")
}

// Install writes (or overwrites) the unit definition, then unloads and
// reloads it unconditionally. No check-then-act: the unload-then-load
// sequencing is the idempotency guarantee, and it also makes reinstalling
// the required way to pick up changed configuration.
func (m *Manager) Install(u Unit) error {
	if err := u.validate(); err != nil {
		return err
	}
	path := m.DefinitionPath(u)
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("lifecycle: mkdir %s: %w", m.dir, err)
	}
	if err := os.WriteFile(path, renderPlist(u), 0o644); err != nil {
		return fmt.Errorf("lifecycle: write %s: %w", path, err)
	}

	if m.sup.IsLoaded(u.Label) {
		// A corrupt supervisor entry is treated as not installed; the
		// bootstrap below overwrites whatever state was left behind.
		_ = m.sup.Bootout(u.Label)
	}
	if err := m.sup.Bootstrap(path); err != nil {
		return fmt.Errorf("lifecycle: install %s: %w", u.Label, err)
	}
	return nil
}

// Uninstall unloads the unit if loaded and removes its definition. An
// already-absent unit is not an error.
func (m *Manager) Uninstall(u Unit) error {
	if err := u.validate(); err != nil {
		return err
	}
	if m.sup.IsLoaded(u.Label) {
		if err := m.sup.Bootout(u.Label); err != nil {
			return fmt.Errorf("lifecycle: uninstall %s: %w", u.Label, err)
		}
	}
	if err := os.Remove(m.DefinitionPath(u)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lifecycle: remove %s: %w", m.DefinitionPath(u), err)
	}
	return nil
}

// Status reports the unit's state from the supervisor and the definition
// file. This is the source of truth the doctor checks consume.
func (m *Manager) Status(u Unit) string {
	loaded := m.sup.IsLoaded(u.Label)
	if !loaded {
		if _, err := os.Stat(m.DefinitionPath(u)); err != nil {
			return StateNotInstalled
		}
		return StateStopped
	}
	if m.sup.IsRunning(u.Label) {
		return StateRunning
	}
	return StateStopped
}

// UnitState adapts Status to the probe layer's unit query shape.
func (m *Manager) UnitState(u Unit) (running bool, detail string) {
	state := m.Status(u)
	return state == StateRunning, state
}
