package launch

import (
	"errors"
	"os/exec"
	"runtime"
	"sync"
	"testing"

	"github.com/petems/key-mapper/internal/config"
	"github.com/rs/zerolog"
)

type recorder struct {
	mu      sync.Mutex
	spawned []string
	opened  []string
	err     error
}

func (r *recorder) spawn(target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spawned = append(r.spawned, target)
	return r.err
}

func (r *recorder) open(target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, target)
	return r.err
}

func newTestLauncher(cfg config.LaunchConfig, rec *recorder) *Launcher {
	l := New(cfg, zerolog.Nop())
	l.spawn = rec.spawn
	l.open = rec.open
	return l
}

func TestIsExecutable(t *testing.T) {
	l := New(config.LaunchConfig{}, zerolog.Nop())

	tests := []struct {
		target string
		want   bool
	}{
		{`C:\Windows\System32\notepad.exe`, true},
		{`C:\Tools\APP.EXE`, true},
		{`C:\Users\me\Desktop\Editor.lnk`, false},
		{"/home/me/notes.txt", false},
		{"/usr/bin/exe", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := l.IsExecutable(tt.target); got != tt.want {
				t.Errorf("IsExecutable(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestConfiguredSuffixesAreNormalized(t *testing.T) {
	l := New(config.LaunchConfig{ExecutableSuffixes: []string{"BAT", " .Cmd ", ""}}, zerolog.Nop())

	if !l.IsExecutable(`C:\scripts\build.bat`) {
		t.Error("expected .bat to be executable")
	}
	if !l.IsExecutable(`C:\scripts\build.CMD`) {
		t.Error("expected .cmd to be executable")
	}
	if l.IsExecutable(`C:\apps\tool.exe`) {
		t.Error("configured suffixes replace the default list")
	}
}

func TestLaunchDispatch(t *testing.T) {
	rec := &recorder{}
	l := newTestLauncher(config.LaunchConfig{}, rec)

	l.Launch(`C:\Windows\System32\Notepad.EXE`)
	l.Launch(`C:\Users\me\Desktop\Editor.lnk`)
	l.Launch("/home/me/report.pdf")
	l.Wait()

	if len(rec.spawned) != 1 || rec.spawned[0] != `C:\Windows\System32\Notepad.EXE` {
		t.Errorf("unexpected spawned targets: %v", rec.spawned)
	}
	if len(rec.opened) != 2 {
		t.Errorf("expected 2 opened targets, got %v", rec.opened)
	}
}

func TestLaunchSwallowsErrors(t *testing.T) {
	rec := &recorder{err: errors.New("no associated handler")}
	l := newTestLauncher(config.LaunchConfig{}, rec)

	l.Launch("/missing/app.exe")
	l.Launch("/missing/file.txt")
	l.Wait()

	if len(rec.spawned) != 1 || len(rec.opened) != 1 {
		t.Errorf("expected both launches attempted, got spawned=%v opened=%v", rec.spawned, rec.opened)
	}
}

func TestLaunchRecoversPanic(t *testing.T) {
	l := New(config.LaunchConfig{}, zerolog.Nop())
	l.open = func(string) error { panic("handler exploded") }

	l.Launch("/home/me/notes.txt")
	l.Wait()
}

func TestSpawnDetachedMissingBinary(t *testing.T) {
	if err := spawnDetached("/definitely/not/here.exe"); err == nil {
		t.Error("expected an error for a missing binary")
	}
}

func TestSpawnDetached(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX binary")
	}
	path, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	if err := spawnDetached(path); err != nil {
		t.Fatalf("spawnDetached(%s): %v", path, err)
	}
}
