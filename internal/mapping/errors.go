package mapping

import "errors"

var (
	// ErrInvalidTarget is returned by Add when the target path does not exist.
	ErrInvalidTarget = errors.New("application path does not exist")
	// ErrNotFound is returned by Remove for an unknown chord.
	ErrNotFound = errors.New("key mapping not found")
	// ErrAlreadyActive is returned by Start when mappings are already registered.
	ErrAlreadyActive = errors.New("key mapping is already active")
	// ErrIO wraps failures reading or writing the mappings file.
	ErrIO = errors.New("mappings file i/o failed")
	// ErrParse is returned by Load when the mappings file is not valid JSON.
	ErrParse = errors.New("mappings file is malformed")
	// ErrRegistration marks a single chord that could not be registered.
	ErrRegistration = errors.New("hotkey registration failed")
	// ErrNoRegistry is returned when the controller has no hotkey registry.
	ErrNoRegistry = errors.New("no hotkey registry configured")
)
