//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework ApplicationServices -framework Cocoa
#import <ApplicationServices/ApplicationServices.h>
#import <Cocoa/Cocoa.h>

int checkAccessibilityPermission(int prompt) {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: prompt ? @YES : @NO};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

import "errors"

// ErrAccessibility is returned when the process may not observe global key events.
var ErrAccessibility = errors.New("accessibility permission not granted: enable it in System Settings → Privacy & Security → Accessibility")

// CheckAccessibility reports whether global hotkeys can be delivered to us.
// With prompt set, macOS shows its permission dialog when access is missing.
func CheckAccessibility(prompt bool) bool {
	p := C.int(0)
	if prompt {
		p = 1
	}
	return C.checkAccessibilityPermission(p) == 1
}

// EnsurePermissions checks the accessibility permission, prompting once.
func EnsurePermissions() error {
	if !CheckAccessibility(true) {
		return ErrAccessibility
	}
	return nil
}
