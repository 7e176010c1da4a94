// Package flags provides read-only feature flags for optional subsystems.
// Unknown flags read as disabled.
package flags

import (
	"maps"

	"github.com/zjrosen/panesync/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagFileListAnnotation enables marking canvas documents in file listings.
	FlagFileListAnnotation = "file-list-annotation"

	// FlagSaveJournal records successful saves in the sqlite journal.
	FlagSaveJournal = "save-journal"

	// FlagStyleDiffLog logs a patch of harvested style changes at debug level.
	FlagStyleDiffLog = "style-diff-log"
)

// Defaults returns the flag values used when the config file does not
// mention a flag.
func Defaults() map[string]bool {
	return map[string]bool{
		FlagFileListAnnotation: false,
		FlagSaveJournal:        true,
		FlagStyleDiffLog:       false,
	}
}

// Registry holds feature flag state loaded from configuration.
// Flags are read-only after initialization.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map layered over Defaults().
func New(flags map[string]bool) *Registry {
	merged := Defaults()
	maps.Copy(merged, flags)
	r := &Registry{flags: merged}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(flags), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags (safe default).
// Returns false when called on nil registry (nil-safe).
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags (for debugging/logging).
// Returns an empty map if the registry is nil.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}
