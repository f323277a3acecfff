package hotkey

import (
	"fmt"
	"slices"
	"strings"

	"golang.design/x/hotkey"
)

// ParseChord converts a chord such as "ctrl+shift+n" into modifiers and a
// key. Matching is case-insensitive; the last "+" separated part is the key.
func ParseChord(chord string) ([]hotkey.Modifier, hotkey.Key, error) {
	chord = strings.ToLower(strings.TrimSpace(chord))
	if chord == "" {
		return nil, 0, fmt.Errorf("empty hotkey")
	}

	parts := strings.Split(chord, "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil, 0, fmt.Errorf("malformed hotkey %q", chord)
		}
	}

	keyName := parts[len(parts)-1]
	key, ok := keyMap[keyName]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported key: %q", keyName)
	}

	var mods []hotkey.Modifier
	for _, name := range parts[:len(parts)-1] {
		mod, ok := modMap[name]
		if !ok {
			return nil, 0, fmt.Errorf("unknown modifier: %q (available: ctrl, shift, alt, super)", name)
		}
		mods = append(mods, mod)
	}

	return mods, key, nil
}

// chordID identifies the physical key combination behind chord, so chords
// that differ only in case, spacing or modifier order share an ID.
func chordID(chord string) (string, error) {
	mods, key, err := ParseChord(chord)
	if err != nil {
		return "", err
	}
	slices.Sort(mods)
	mods = slices.Compact(mods)

	var b strings.Builder
	for _, mod := range mods {
		fmt.Fprintf(&b, "%d+", mod)
	}
	fmt.Fprintf(&b, "%d", key)
	return b.String(), nil
}

var keyMap = map[string]hotkey.Key{
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
	"f13": hotkey.KeyF13, "f14": hotkey.KeyF14, "f15": hotkey.KeyF15, "f16": hotkey.KeyF16,
	"f17": hotkey.KeyF17, "f18": hotkey.KeyF18, "f19": hotkey.KeyF19, "f20": hotkey.KeyF20,
	"space":  hotkey.KeySpace,
	"enter":  hotkey.KeyReturn,
	"return": hotkey.KeyReturn,
	"esc":    hotkey.KeyEscape,
	"escape": hotkey.KeyEscape,
	"tab":    hotkey.KeyTab,
	"delete": hotkey.KeyDelete,
	"del":    hotkey.KeyDelete,
	"left":   hotkey.KeyLeft,
	"right":  hotkey.KeyRight,
	"up":     hotkey.KeyUp,
	"down":   hotkey.KeyDown,
}
