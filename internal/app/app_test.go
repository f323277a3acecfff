package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/petems/key-mapper/internal/config"
	"github.com/petems/key-mapper/internal/mapping"
	"github.com/rs/zerolog"
)

// Mock implementations for testing
type mockRegistry struct {
	mu     sync.Mutex
	chords map[string]bool
}

func (m *mockRegistry) Register(chord string, callback func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if chord == "bad" {
		return errors.New("unsupported key")
	}
	m.chords[chord] = true
	return nil
}

func (m *mockRegistry) Unregister(chord string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chords, chord)
	return nil
}

func (m *mockRegistry) registered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for c := range m.chords {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

type mockLauncher struct{}

func (mockLauncher) Launch(string) {}

type mockStatus struct {
	active     int
	total      int
	stopped    int
	errs       []error
	lastChange map[string]string
}

func (s *mockStatus) SetActive(registered, total int) {
	s.active = registered
	s.total = total
}

func (s *mockStatus) SetStopped() { s.stopped++ }

func (s *mockStatus) SetError(err error) { s.errs = append(s.errs, err) }

func (s *mockStatus) MappingsChanged(m map[string]string) { s.lastChange = m }

type fixture struct {
	app    *App
	mapper *mapping.Manager
	reg    *mockRegistry
	status *mockStatus
	dir    string
	target string
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	dir := t.TempDir()
	target := filepath.Join(dir, "notepad.exe")
	if err := os.WriteFile(target, []byte("test"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := &mockRegistry{chords: make(map[string]bool)}
	mapper, err := mapping.New(mapping.Config{
		Path:     filepath.Join(dir, "key_mappings.json"),
		Registry: reg,
		Launcher: mockLauncher{},
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("mapping.New: %v", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	status := &mockStatus{}
	a := New(Config{
		Mapper:        mapper,
		Config:        cfg,
		Logger:        zerolog.Nop(),
		StatusUpdater: status,
	})
	return &fixture{app: a, mapper: mapper, reg: reg, status: status, dir: dir, target: target}
}

func TestAddMappingPersists(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.app.AddMapping("ctrl+shift+n", f.target); err != nil {
		t.Fatalf("AddMapping: %v", err)
	}
	if f.status.lastChange["ctrl+shift+n"] != f.target {
		t.Errorf("status not told about new mapping: %v", f.status.lastChange)
	}

	// A fresh manager sees the saved mapping.
	reloaded, err := mapping.New(mapping.Config{Path: f.mapper.Path(), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ListAll()["ctrl+shift+n"] != f.target {
		t.Errorf("mapping was not persisted: %v", reloaded.ListAll())
	}
}

func TestAddMappingWhileActiveResyncs(t *testing.T) {
	f := newFixture(t, nil)
	f.app.AddMapping("ctrl+a", f.target)
	if err := f.app.StartMapping(); err != nil {
		t.Fatalf("StartMapping: %v", err)
	}

	if err := f.app.AddMapping("ctrl+b", f.target); err != nil {
		t.Fatalf("AddMapping: %v", err)
	}
	if got := f.reg.registered(); !slices.Equal(got, []string{"ctrl+a", "ctrl+b"}) {
		t.Errorf("expected both chords registered, got %v", got)
	}

	if err := f.app.DeleteMapping("ctrl+a"); err != nil {
		t.Fatalf("DeleteMapping: %v", err)
	}
	if got := f.reg.registered(); !slices.Equal(got, []string{"ctrl+b"}) {
		t.Errorf("expected only ctrl+b registered, got %v", got)
	}
	if !f.app.IsActive() {
		t.Error("mapping should stay active across mutations")
	}
}

func TestAddMappingWhileStoppedDoesNotRegister(t *testing.T) {
	f := newFixture(t, nil)

	f.app.AddMapping("ctrl+a", f.target)
	if got := f.reg.registered(); len(got) != 0 {
		t.Errorf("nothing should be registered while stopped, got %v", got)
	}
}

func TestAddMappingInvalidTargetReportsOnce(t *testing.T) {
	f := newFixture(t, nil)

	err := f.app.AddMapping("ctrl+a", filepath.Join(f.dir, "missing.exe"))
	if !errors.Is(err, mapping.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if len(f.status.errs) != 1 {
		t.Errorf("expected exactly one notification, got %d", len(f.status.errs))
	}
}

func TestDeleteUnknownMapping(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.app.DeleteMapping("ctrl+z"); !errors.Is(err, mapping.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartMappingRequiresMappings(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.app.StartMapping(); !errors.Is(err, ErrNoMappings) {
		t.Fatalf("expected ErrNoMappings, got %v", err)
	}
	if f.app.IsActive() {
		t.Error("should not be active")
	}
}

func TestStartMappingPartialFailureIsNotAnError(t *testing.T) {
	f := newFixture(t, nil)
	f.app.AddMapping("ctrl+a", f.target)
	f.app.AddMapping("bad", f.target)

	if err := f.app.StartMapping(); err != nil {
		t.Fatalf("StartMapping: %v", err)
	}
	if f.status.active != 1 || f.status.total != 2 {
		t.Errorf("expected 1 of 2 registered, got %d of %d", f.status.active, f.status.total)
	}
	if len(f.status.errs) != 0 {
		t.Errorf("per-chord failures should not be surfaced, got %v", f.status.errs)
	}
}

func TestStartMappingTwice(t *testing.T) {
	f := newFixture(t, nil)
	f.app.AddMapping("ctrl+a", f.target)
	f.app.StartMapping()

	if err := f.app.StartMapping(); !errors.Is(err, mapping.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestRestoreOriginal(t *testing.T) {
	f := newFixture(t, nil)
	f.app.AddMapping("ctrl+a", f.target)
	f.app.AddMapping("ctrl+b", f.target)
	f.app.StartMapping()

	if err := f.app.RestoreOriginal(); err != nil {
		t.Fatalf("RestoreOriginal: %v", err)
	}
	if f.app.IsActive() || len(f.app.Mappings()) != 0 {
		t.Error("expected stopped with no mappings")
	}
	if got := f.reg.registered(); len(got) != 0 {
		t.Errorf("expected hotkeys released, got %v", got)
	}
}

func TestReloadPicksUpFileChanges(t *testing.T) {
	f := newFixture(t, nil)
	f.app.AddMapping("ctrl+a", f.target)
	f.app.StartMapping()

	content := `{"mappings": {"ctrl+r": "` + filepath.ToSlash(f.target) + `"}, "original_mappings": {"ctrl+r": null}}`
	if err := os.WriteFile(f.app.MappingsPath(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := f.app.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := f.reg.registered(); !slices.Equal(got, []string{"ctrl+r"}) {
		t.Errorf("expected registrations to follow the file, got %v", got)
	}
}

func TestReloadMalformedKeepsMappings(t *testing.T) {
	f := newFixture(t, nil)
	f.app.AddMapping("ctrl+a", f.target)

	if err := os.WriteFile(f.app.MappingsPath(), []byte("invalid json{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.app.Reload(); !errors.Is(err, mapping.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if len(f.app.Mappings()) != 1 {
		t.Error("a failed reload should keep the current mappings")
	}
}

func TestAutostart(t *testing.T) {
	cfg := config.Default()
	cfg.StartOnLaunch = true
	f := newFixture(t, cfg)

	// Nothing to start yet.
	if err := f.app.Autostart(); err != nil || f.app.IsActive() {
		t.Fatalf("Autostart with no mappings: err=%v active=%v", err, f.app.IsActive())
	}

	f.app.AddMapping("ctrl+a", f.target)
	if err := f.app.Autostart(); err != nil {
		t.Fatalf("Autostart: %v", err)
	}
	if !f.app.IsActive() {
		t.Error("expected active after autostart")
	}
}

func TestAutostartDisabled(t *testing.T) {
	f := newFixture(t, nil)
	f.app.AddMapping("ctrl+a", f.target)

	if err := f.app.Autostart(); err != nil {
		t.Fatalf("Autostart: %v", err)
	}
	if f.app.IsActive() {
		t.Error("autostart should be off by default")
	}
}

func TestShutdownReleasesHotkeys(t *testing.T) {
	f := newFixture(t, nil)
	f.app.AddMapping("ctrl+a", f.target)
	f.app.StartMapping()

	if err := f.app.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if f.app.IsActive() || len(f.reg.registered()) != 0 {
		t.Error("expected hotkeys released on shutdown")
	}
}

func TestAddFromText(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.app.AddFromText("  ctrl+shift+n   " + f.target + "\n"); err != nil {
		t.Fatalf("AddFromText: %v", err)
	}
	if f.app.Mappings()["ctrl+shift+n"] != f.target {
		t.Errorf("unexpected mappings: %v", f.app.Mappings())
	}

	if err := f.app.AddFromText("ctrl+shift+n"); err == nil {
		t.Error("expected error for text without a path")
	}
	if len(f.status.errs) != 1 {
		t.Errorf("expected one notification for bad text, got %d", len(f.status.errs))
	}
}

func TestParseBindingText(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantChord  string
		wantTarget string
		wantErr    bool
	}{
		{"simple", "ctrl+a /usr/bin/app", "ctrl+a", "/usr/bin/app", false},
		{"path with spaces", `ctrl+shift+n C:\Program Files\App\app.exe`, "ctrl+shift+n", `C:\Program Files\App\app.exe`, false},
		{"quoted path", `alt+f1 "C:\Program Files\App\app.exe"`, "alt+f1", `C:\Program Files\App\app.exe`, false},
		{"tab separated", "ctrl+b\t/opt/b", "ctrl+b", "/opt/b", false},
		{"chord only", "ctrl+a", "", "", true},
		{"empty", "   ", "", "", true},
		{"empty quotes", `ctrl+a ""`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chord, target, err := ParseBindingText(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBindingText(%q) err = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if chord != tt.wantChord || target != tt.wantTarget {
				t.Errorf("got (%q, %q), want (%q, %q)", chord, target, tt.wantChord, tt.wantTarget)
			}
		})
	}
}
