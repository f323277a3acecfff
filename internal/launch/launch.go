// Package launch starts the application bound to a hotkey without blocking
// the caller.
package launch

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/petems/key-mapper/internal/config"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// DefaultSuffixes are the extensions spawned directly when none are configured.
var DefaultSuffixes = []string{".exe"}

type Launcher struct {
	log      zerolog.Logger
	suffixes []string

	spawn func(target string) error
	open  func(target string) error

	wg sync.WaitGroup
}

// New creates a launcher. Targets whose suffix matches cfg.ExecutableSuffixes
// are spawned as detached processes; everything else is handed to the OS
// default handler.
func New(cfg config.LaunchConfig, log zerolog.Logger) *Launcher {
	suffixes := make([]string, 0, len(cfg.ExecutableSuffixes))
	for _, s := range cfg.ExecutableSuffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		suffixes = append(suffixes, s)
	}
	if len(suffixes) == 0 {
		suffixes = append(suffixes, DefaultSuffixes...)
	}

	return &Launcher{
		log:      log,
		suffixes: suffixes,
		spawn:    spawnDetached,
		open:     browser.OpenFile,
	}
}

// Launch starts target in the background. Errors are logged, never returned.
func (l *Launcher) Launch(target string) {
	id := uuid.NewString()
	l.wg.Add(1)
	go l.run(id, target)
}

// Wait blocks until every dispatched launch has been handed to the OS.
func (l *Launcher) Wait() {
	l.wg.Wait()
}

// IsExecutable reports whether target is spawned directly rather than opened.
func (l *Launcher) IsExecutable(target string) bool {
	lower := strings.ToLower(target)
	for _, s := range l.suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func (l *Launcher) run(id, target string) {
	defer l.wg.Done()
	log := l.log.With().Str("launch_id", id).Str("target", target).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Launch panicked")
		}
	}()

	log.Info().Msg("Launching application")

	var err error
	if l.IsExecutable(target) {
		err = l.spawn(target)
	} else {
		err = l.open(target)
	}
	if err != nil {
		log.Error().Err(err).Msg("Error launching application")
	}
}

func spawnDetached(target string) error {
	cmd := exec.Command(target)
	cmd.Dir = filepath.Dir(target)
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", target, err)
	}
	// Reap the child so it does not linger as a zombie.
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
