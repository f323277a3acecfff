package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/petems/key-mapper/internal/config"
	"github.com/petems/key-mapper/internal/mapping"
	"github.com/rs/zerolog"
)

// ErrNoMappings is returned by StartMapping when there is nothing to register.
var ErrNoMappings = errors.New("no key mappings configured")

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetActive(registered, total int)
	SetStopped()
	SetError(err error)
	MappingsChanged(mappings map[string]string)
}

// Mapper is the mapping lifecycle API the app drives. *mapping.Manager
// implements it.
type Mapper interface {
	Add(chord, target string) error
	Remove(chord string) error
	ListAll() map[string]string
	Start() ([]mapping.Outcome, error)
	Stop() error
	IsActive() bool
	RestoreAll() error
	Persist() error
	Load() error
	Path() string
}

type Config struct {
	Mapper        Mapper
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

// App applies user actions to the mapper: every mutation is persisted and,
// while mapping is active, registrations are cycled to match.
type App struct {
	mapper Mapper
	cfg    *config.Config
	log    zerolog.Logger
	status StatusUpdater

	mu sync.Mutex
}

func New(cfg Config) *App {
	return &App{
		mapper: cfg.Mapper,
		cfg:    cfg.Config,
		log:    cfg.Logger,
		status: cfg.StatusUpdater,
	}
}

// SetStatusUpdater sets the status sink (for circular dependency resolution)
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

// AddMapping binds chord to target, saves, and re-registers if active.
func (a *App) AddMapping(chord, target string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	chord = strings.TrimSpace(chord)
	target = strings.TrimSpace(target)
	if err := a.mapper.Add(chord, target); err != nil {
		return a.failLocked(fmt.Errorf("add mapping %q: %w", chord, err))
	}
	return a.commitLocked()
}

// DeleteMapping removes chord, saves, and re-registers if active.
func (a *App) DeleteMapping(chord string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.mapper.Remove(chord); err != nil {
		return a.failLocked(fmt.Errorf("delete mapping %q: %w", chord, err))
	}
	return a.commitLocked()
}

// AddFromText parses "<chord> <path>" and adds the mapping. The chord may
// not contain whitespace; the path may.
func (a *App) AddFromText(text string) error {
	chord, target, err := ParseBindingText(text)
	if err != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.failLocked(err)
	}
	return a.AddMapping(chord, target)
}

// ParseBindingText splits "<chord> <path>" at the first run of whitespace.
func ParseBindingText(text string) (chord, target string, err error) {
	text = strings.TrimSpace(text)
	i := strings.IndexAny(text, " \t\r\n")
	if i < 0 {
		return "", "", fmt.Errorf("expected \"<chord> <path>\", got %q", text)
	}
	chord = text[:i]
	target = strings.TrimSpace(text[i:])
	target = strings.Trim(target, `"`)
	if target == "" {
		return "", "", fmt.Errorf("missing application path in %q", text)
	}
	return chord, target, nil
}

// StartMapping registers every mapping.
func (a *App) StartMapping() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.mapper.ListAll()) == 0 {
		return a.failLocked(ErrNoMappings)
	}
	return a.startLocked()
}

// Autostart starts mapping when start_on_launch is set and mappings exist.
func (a *App) Autostart() error {
	if a.cfg == nil || !a.cfg.StartOnLaunch {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.mapper.ListAll()) == 0 {
		a.log.Info().Msg("No key mappings, not starting on launch")
		return nil
	}
	return a.startLocked()
}

// StopMapping releases every registered hotkey.
func (a *App) StopMapping() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.mapper.Stop(); err != nil {
		return a.failLocked(fmt.Errorf("stop mapping: %w", err))
	}
	if a.status != nil {
		a.status.SetStopped()
	}
	return nil
}

// RestoreOriginal stops mapping and forgets every mapping.
func (a *App) RestoreOriginal() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.mapper.RestoreAll(); err != nil {
		return a.failLocked(fmt.Errorf("restore original mappings: %w", err))
	}
	if a.status != nil {
		a.status.SetStopped()
		a.status.MappingsChanged(a.mapper.ListAll())
	}
	return nil
}

// Reload re-reads the mappings file and re-registers if active.
func (a *App) Reload() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.mapper.Load(); err != nil {
		return a.failLocked(fmt.Errorf("reload mappings: %w", err))
	}
	if a.status != nil {
		a.status.MappingsChanged(a.mapper.ListAll())
	}
	return a.resyncLocked()
}

// Mappings returns a copy of the current mappings.
func (a *App) Mappings() map[string]string {
	return a.mapper.ListAll()
}

func (a *App) IsActive() bool {
	return a.mapper.IsActive()
}

// MappingsPath returns where mappings are stored.
func (a *App) MappingsPath() string {
	return a.mapper.Path()
}

// Shutdown releases hotkeys before the process exits.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.mapper.IsActive() {
		return nil
	}
	a.log.Info().Msg("Releasing hotkeys")
	return a.mapper.Stop()
}

func (a *App) commitLocked() error {
	if err := a.mapper.Persist(); err != nil {
		return a.failLocked(fmt.Errorf("save mappings: %w", err))
	}
	if a.status != nil {
		a.status.MappingsChanged(a.mapper.ListAll())
	}
	return a.resyncLocked()
}

// resyncLocked cycles registrations so they match the current mappings.
func (a *App) resyncLocked() error {
	if !a.mapper.IsActive() {
		return nil
	}
	if err := a.mapper.Stop(); err != nil {
		return a.failLocked(fmt.Errorf("stop mapping: %w", err))
	}
	return a.startLocked()
}

func (a *App) startLocked() error {
	outcomes, err := a.mapper.Start()
	if err != nil {
		return a.failLocked(fmt.Errorf("start mapping: %w", err))
	}

	registered := 0
	for _, o := range outcomes {
		if o.Err == nil {
			registered++
		}
	}
	if registered < len(outcomes) {
		a.log.Warn().Int("failed", len(outcomes)-registered).Msg("Some hotkeys could not be registered")
	}
	if a.status != nil {
		a.status.SetActive(registered, len(outcomes))
	}
	return nil
}

// failLocked reports err once to the user and returns it.
func (a *App) failLocked(err error) error {
	a.log.Error().Err(err).Msg("Key mapper action failed")
	if a.status != nil {
		a.status.SetError(err)
	}
	return err
}
