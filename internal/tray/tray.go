package tray

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/petems/key-mapper/internal/app"
	"github.com/petems/key-mapper/internal/logging"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

type UI struct {
	app     *app.App
	version string
	commit  string
	log     zerolog.Logger

	mu          sync.Mutex
	status      string
	detail      string
	removeItems []*removeItem

	// Menu items
	mStatus   *systray.MenuItem
	mStart    *systray.MenuItem
	mStop     *systray.MenuItem
	mMappings *systray.MenuItem
}

// removeItem is a pooled "Remove <chord>" submenu entry. systray cannot
// delete items, so unused entries are hidden and reused.
type removeItem struct {
	item  *systray.MenuItem
	chord string
}

func New(application *app.App, log zerolog.Logger, version, commit string) *UI {
	return &UI{
		app:     application,
		version: version,
		commit:  commit,
		log:     log,
		status:  "stopped",
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// Status update methods for the app to call

func (u *UI) SetActive(registered, total int) {
	u.setStatus("active", fmt.Sprintf("%d/%d hotkeys", registered, total))
}

func (u *UI) SetStopped() {
	u.setStatus("stopped", "")
}

func (u *UI) SetError(err error) {
	u.log.Warn().Err(err).Msg("Showing error in tray")
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.mStatus == nil {
		return
	}
	// The status line keeps the running state; only the title flags the failure.
	systray.SetTitle(titleFor("error"))
	systray.SetTooltip(err.Error())
}

func (u *UI) MappingsChanged(mappings map[string]string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.mMappings == nil {
		return
	}
	u.rebuildMappingsLocked(mappings)
}

func (u *UI) Run(ctx context.Context) error {
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTooltip("Launch applications with global hotkeys")

	u.mu.Lock()
	u.mStatus = systray.AddMenuItem(statusLine("stopped", ""), "")
	u.mStatus.Disable()
	systray.AddSeparator()

	u.mStart = systray.AddMenuItem("Start Mapping", "Register all hotkeys")
	u.mStop = systray.AddMenuItem("Stop Mapping", "Release all hotkeys")
	mRestore := systray.AddMenuItem("Restore Original", "Remove every mapping")
	systray.AddSeparator()

	u.mMappings = systray.AddMenuItem("Mappings", "Current key mappings")
	mAdd := systray.AddMenuItem("Add Mapping from Clipboard", "Clipboard text: <chord> <application path>")
	mCopy := systray.AddMenuItem("Copy Mappings", "Copy mappings as JSON")
	mReload := systray.AddMenuItem("Reload Mappings", "Re-read the mappings file")
	mOpen := systray.AddMenuItem("Open Mappings File", u.app.MappingsPath())
	systray.AddSeparator()

	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About Key Mapper")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.rebuildMappingsLocked(u.app.Mappings())
	u.mu.Unlock()

	if u.app.IsActive() {
		u.setStatus("active", "")
	} else {
		u.setStatus("stopped", "")
	}

	go u.handleEvents(mRestore, mAdd, mCopy, mReload, mOpen, mLogs, mAbout, mQuit)
	go u.autostart()
}

func (u *UI) autostart() {
	if err := u.app.Autostart(); err != nil {
		u.log.Error().Err(err).Msg("Failed to start mapping on launch")
	}
}

func (u *UI) handleEvents(mRestore, mAdd, mCopy, mReload, mOpen, mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStart.ClickedCh:
			u.app.StartMapping()
		case <-u.mStop.ClickedCh:
			u.app.StopMapping()
		case <-mRestore.ClickedCh:
			u.app.RestoreOriginal()
		case <-mAdd.ClickedCh:
			u.addFromClipboard()
		case <-mCopy.ClickedCh:
			u.copyMappings()
		case <-mReload.ClickedCh:
			u.app.Reload()
		case <-mOpen.ClickedCh:
			u.openFile(u.app.MappingsPath())
		case <-mLogs.ClickedCh:
			u.openFile(logging.LogPath())
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// rebuildMappingsLocked shows one remove entry per mapping, sorted by chord.
func (u *UI) rebuildMappingsLocked(mappings map[string]string) {
	chords := sortedChords(mappings)

	for i, chord := range chords {
		if i == len(u.removeItems) {
			ri := &removeItem{item: u.mMappings.AddSubMenuItem("", "Remove this mapping")}
			u.removeItems = append(u.removeItems, ri)
			go u.watchRemove(ri)
		}
		ri := u.removeItems[i]
		ri.chord = chord
		ri.item.SetTitle(mappingLabel(chord, mappings[chord]))
		ri.item.SetTooltip(mappings[chord])
		ri.item.Show()
	}
	for _, ri := range u.removeItems[len(chords):] {
		ri.chord = ""
		ri.item.Hide()
	}

	u.mMappings.SetTitle(fmt.Sprintf("Mappings (%d)", len(chords)))
}

func (u *UI) watchRemove(ri *removeItem) {
	for range ri.item.ClickedCh {
		u.mu.Lock()
		chord := ri.chord
		u.mu.Unlock()
		u.app.DeleteMapping(chord)
	}
}

func (u *UI) addFromClipboard() {
	text, err := clipboard.ReadAll()
	if err != nil {
		u.SetError(fmt.Errorf("read clipboard: %w", err))
		return
	}
	u.app.AddFromText(text)
}

func (u *UI) copyMappings() {
	data, err := json.MarshalIndent(u.app.Mappings(), "", "  ")
	if err != nil {
		u.SetError(err)
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		u.SetError(fmt.Errorf("write clipboard: %w", err))
		return
	}
	u.log.Info().Msg("Copied mappings to clipboard")
}

func (u *UI) openFile(path string) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		u.log.Warn().Str("path", path).Msg("Nothing to open yet")
		return
	}
	if err := browser.OpenFile(path); err != nil {
		u.SetError(fmt.Errorf("open %s: %w", path, err))
	}
}

func (u *UI) showAbout() {
	u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("Key Mapper: launch applications with global hotkeys")
	systray.SetTooltip(fmt.Sprintf("Key Mapper %s (%s)", u.version, u.commit))
}

func (u *UI) onExit() {
	if err := u.app.Shutdown(context.Background()); err != nil {
		u.log.Error().Err(err).Msg("Shutdown error")
	}
}

func (u *UI) setStatus(status, detail string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.status = status
	u.detail = detail
	if u.mStatus == nil {
		return
	}

	systray.SetTitle(titleFor(status))
	u.mStatus.SetTitle(statusLine(status, detail))
	if status == "active" {
		u.mStart.Disable()
		u.mStop.Enable()
	} else {
		u.mStart.Enable()
		u.mStop.Disable()
	}
}

// titleFor sets the tray title with keyboard emoji and status indicator
func titleFor(status string) string {
	return fmt.Sprintf("⌨️ %s", emojiForStatus(status))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "active":
		return "🟢" // Green - hotkeys registered
	case "stopped":
		return "🔴" // Red - not listening
	case "error":
		return "⚪️" // White - last action failed
	default:
		return "🔴"
	}
}

func statusLine(status, detail string) string {
	line := "Status: Stopped"
	if status == "active" {
		line = "Status: Active"
	}
	if detail != "" {
		line += " (" + detail + ")"
	}
	return line
}

func mappingLabel(chord, target string) string {
	if chord == "" {
		chord = "(empty)"
	}
	return fmt.Sprintf("Remove %s → %s", chord, filepath.Base(target))
}

func sortedChords(mappings map[string]string) []string {
	chords := make([]string, 0, len(mappings))
	for c := range mappings {
		chords = append(chords, c)
	}
	slices.Sort(chords)
	return chords
}
