// Package hotkey registers process-wide hotkeys described by chord strings
// such as "ctrl+shift+n".
package hotkey

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
)

type registration struct {
	chord string
	hk    *hotkey.Hotkey
	done  chan struct{}
}

// Manager registers global hotkeys and runs one listener goroutine per chord.
type Manager struct {
	log zerolog.Logger

	mu sync.Mutex
	// entries is keyed by chordID, so "Ctrl+A" and "ctrl+a" collide.
	entries map[string]*registration
}

// New creates a hotkey manager with nothing registered.
func New(log zerolog.Logger) *Manager {
	return &Manager{
		log:     log,
		entries: make(map[string]*registration),
	}
}

// Register grabs chord system-wide and calls callback on every key press.
// callback runs on a listener goroutine, never on the caller's.
func (m *Manager) Register(chord string, callback func()) error {
	mods, key, err := ParseChord(chord)
	if err != nil {
		return err
	}
	id, err := chordID(chord)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[id]; ok {
		return fmt.Errorf("hotkey %q is already registered as %q", chord, existing.chord)
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey %q: %w", chord, err)
	}

	r := &registration{chord: chord, hk: hk, done: make(chan struct{})}
	m.entries[id] = r
	go m.listen(chord, r, callback)
	return nil
}

func (m *Manager) listen(chord string, r *registration, callback func()) {
	keydown := r.hk.Keydown()
	for {
		select {
		case <-r.done:
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			m.log.Debug().Str("chord", chord).Msg("Hotkey pressed")
			callback()
		}
	}
}

// Unregister releases chord and stops its listener.
func (m *Manager) Unregister(chord string) error {
	id, err := chordID(chord)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unregisterLocked(id, chord)
}

func (m *Manager) unregisterLocked(id, chord string) error {
	r, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("hotkey %q is not registered", chord)
	}
	delete(m.entries, id)
	close(r.done)

	if err := r.hk.Unregister(); err != nil {
		return fmt.Errorf("unregister hotkey %q: %w", r.chord, err)
	}
	return nil
}

// Close releases every registered hotkey.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for id, r := range m.entries {
		if err := m.unregisterLocked(id, r.chord); err != nil {
			m.log.Warn().Err(err).Str("chord", r.chord).Msg("Failed to release hotkey")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
