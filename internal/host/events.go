package host

// EventKind names a structured UI event emitted by the presentation layer.
type EventKind string

const (
	EventThemeChanged    EventKind = "theme-changed"
	EventOverlayAppeared EventKind = "overlay-appeared"
	EventDrawerToggled   EventKind = "drawer-toggled"
	EventFileListChanged EventKind = "file-list-changed"
)

// UIEvent is one presentation-layer event. Only the fields for its Kind
// are set.
type UIEvent struct {
	Kind   EventKind
	Window WindowID

	// EventThemeChanged
	Theme Theme

	// EventOverlayAppeared: one record per batched child insertion.
	Records []MutationRecord

	// EventDrawerToggled
	Drawer string
	Hidden bool

	// EventFileListChanged: entries rendered since the last event.
	Entries []FileEntry
}

// MutationRecord describes one batched insertion under the window body.
type MutationRecord struct {
	AddedNodes int
}

// FileEntry is one rendered entry of a file listing.
type FileEntry struct {
	Path string
}

// Subscription is an active UI-event observation.
type Subscription interface {
	Unsubscribe()
}

// UIEvents is the presentation layer's event source.
type UIEvents interface {
	Observe(kind EventKind, fn func(UIEvent)) (Subscription, error)
}

// FileList is the file listing the annotation watcher decorates.
type FileList interface {
	Entries() []FileEntry
	SetMarker(path string, marked bool)
}
