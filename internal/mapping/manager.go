// Package mapping owns the chord -> application bindings, persists them and
// keeps global hotkey registrations in step with them.
package mapping

import (
	"github.com/rs/zerolog"
)

type Config struct {
	Path     string
	Registry Registry
	Launcher Launcher
	Logger   zerolog.Logger
}

// Manager is the API the presentation layer drives. It does not restart
// registrations on mutation; callers cycle Stop and Start themselves.
type Manager struct {
	store *Store
	ctrl  *Controller
	log   zerolog.Logger
}

// New creates a Manager and loads the mappings file. The returned Manager
// is always usable: a non-nil error reports a failed initial load, in which
// case the manager starts out empty.
func New(cfg Config) (*Manager, error) {
	m := &Manager{
		store: NewStore(cfg.Path),
		ctrl:  NewController(cfg.Registry, cfg.Launcher, cfg.Logger),
		log:   cfg.Logger,
	}
	return m, m.Load()
}

func (m *Manager) Add(chord, target string) error {
	if err := m.store.Add(chord, target); err != nil {
		m.log.Error().Err(err).Str("chord", chord).Msg("Failed to add mapping")
		return err
	}
	m.log.Info().Str("chord", chord).Str("target", target).Msg("Added mapping")
	return nil
}

func (m *Manager) Remove(chord string) error {
	if err := m.store.Remove(chord); err != nil {
		m.log.Error().Err(err).Str("chord", chord).Msg("Failed to remove mapping")
		return err
	}
	m.log.Info().Str("chord", chord).Msg("Removed mapping")
	return nil
}

// ListAll returns a copy of every binding.
func (m *Manager) ListAll() map[string]string {
	return m.store.Snapshot()
}

// Start registers every current binding. See Controller.Start.
func (m *Manager) Start() ([]Outcome, error) {
	return m.ctrl.Start(m.store.Snapshot())
}

func (m *Manager) Stop() error {
	_, err := m.ctrl.Stop()
	return err
}

func (m *Manager) IsActive() bool {
	return m.ctrl.IsActive()
}

// Registered returns the chords currently registered with the registry.
func (m *Manager) Registered() []string {
	return m.ctrl.Registered()
}

// RestoreAll stops mapping, forgets every binding and persists the empty set.
func (m *Manager) RestoreAll() error {
	if err := m.Stop(); err != nil {
		return err
	}
	m.store.Clear()
	if err := m.Persist(); err != nil {
		return err
	}
	m.log.Info().Msg("Restored all keys to original mappings")
	return nil
}

func (m *Manager) Persist() error {
	if err := m.store.Persist(); err != nil {
		m.log.Error().Err(err).Str("path", m.store.Path()).Msg("Failed to save mappings")
		return err
	}
	m.log.Info().Int("count", m.store.Len()).Msg("Saved key mappings")
	return nil
}

func (m *Manager) Load() error {
	if err := m.store.Load(); err != nil {
		m.log.Error().Err(err).Str("path", m.store.Path()).Msg("Failed to load mappings")
		return err
	}
	m.log.Info().Int("count", m.store.Len()).Msg("Loaded key mappings")
	return nil
}

// Path returns the mappings file location.
func (m *Manager) Path() string {
	return m.store.Path()
}
