//go:build !darwin

package permissions

// EnsurePermissions is a no-op on non-macOS platforms; X11 and Win32
// hotkey registration need no user grant.
func EnsurePermissions() error {
	return nil
}
