package mapping

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Registry registers process-wide hotkeys. hotkey.Manager is the real
// implementation.
type Registry interface {
	Register(chord string, callback func()) error
	Unregister(chord string) error
}

// Launcher starts the application bound to a chord. Launch must not block.
type Launcher interface {
	Launch(target string)
}

// Outcome reports what happened to one chord during Start or Stop.
// Err is nil when the chord was handled successfully.
type Outcome struct {
	Chord string
	Err   error
}

// Controller keeps registry registrations in step with a set of bindings.
type Controller struct {
	registry Registry
	launcher Launcher
	log      zerolog.Logger

	mu         sync.Mutex
	active     bool
	registered []string
}

// NewController creates a stopped controller.
func NewController(registry Registry, launcher Launcher, log zerolog.Logger) *Controller {
	return &Controller{
		registry: registry,
		launcher: launcher,
		log:      log,
	}
}

// Start registers every binding. A chord that fails to register is logged,
// reported in the outcomes and skipped; the controller still becomes active.
func (c *Controller) Start(bindings map[string]string) ([]Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		c.log.Warn().Msg("Key mapping is already active")
		return nil, ErrAlreadyActive
	}
	if c.registry == nil {
		return nil, ErrNoRegistry
	}

	chords := make([]string, 0, len(bindings))
	for chord := range bindings {
		chords = append(chords, chord)
	}
	slices.Sort(chords)

	outcomes := make([]Outcome, 0, len(chords))
	for _, chord := range chords {
		target := bindings[chord]
		err := c.registry.Register(chord, c.handler(chord, target))
		if err != nil {
			err = fmt.Errorf("%w: %q: %w", ErrRegistration, chord, err)
			c.log.Error().Err(err).Str("chord", chord).Msg("Failed to register hotkey")
		} else {
			c.registered = append(c.registered, chord)
			c.log.Info().Str("chord", chord).Str("target", target).Msg("Registered hotkey")
		}
		outcomes = append(outcomes, Outcome{Chord: chord, Err: err})
	}

	c.active = true
	c.log.Info().Int("registered", len(c.registered)).Int("bindings", len(chords)).Msg("Key mapping started")
	return outcomes, nil
}

// Stop unregisters every tracked chord, tolerating individual failures.
// Stopping an inactive controller succeeds trivially.
func (c *Controller) Stop() ([]Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active && len(c.registered) == 0 {
		return nil, nil
	}
	if c.registry == nil {
		return nil, ErrNoRegistry
	}

	outcomes := make([]Outcome, 0, len(c.registered))
	for _, chord := range c.registered {
		err := c.registry.Unregister(chord)
		if err != nil {
			c.log.Warn().Err(err).Str("chord", chord).Msg("Failed to remove hotkey")
		}
		outcomes = append(outcomes, Outcome{Chord: chord, Err: err})
	}

	wasActive := c.active
	c.registered = nil
	c.active = false
	if wasActive {
		c.log.Info().Msg("Key mapping stopped")
	}
	return outcomes, nil
}

// IsActive reports whether the controller is started.
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Registered returns the chords currently registered, sorted.
func (c *Controller) Registered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.registered)
}

func (c *Controller) handler(chord, target string) func() {
	return func() {
		c.log.Debug().Str("chord", chord).Msg("Hotkey triggered")
		if c.launcher != nil {
			c.launcher.Launch(target)
		}
	}
}
