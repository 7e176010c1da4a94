package testutil

import "github.com/zjrosen/panesync/internal/host"

// viewData holds the configuration of a view to be created.
type viewData struct {
	pane     host.PaneID
	window   host.WindowID
	path     string
	dirty    bool
	saveErr  error
	hasError bool
	fixed    bool
	theme    host.Theme
}

func defaultView(pane host.PaneID, path string) viewData {
	return viewData{
		pane:   pane,
		window: DefaultWindow,
		path:   path,
		theme:  host.ThemeLight,
	}
}

// ViewOption configures a view added with Builder.WithView.
type ViewOption func(*viewData)

// InWindow places the view in window id (created if missing).
func InWindow(id host.WindowID) ViewOption {
	return func(v *viewData) { v.window = id }
}

// Dirty starts the view with unsaved edits.
func Dirty() ViewOption {
	return func(v *viewData) { v.dirty = true }
}

// SaveError makes every save of the view fail with err.
func SaveError(err error) ViewOption {
	return func(v *viewData) { v.saveErr = err }
}

// Errored reports the view as being in an error state.
func Errored() ViewOption {
	return func(v *viewData) { v.hasError = true }
}

// Theme sets the view's initial theme.
func Theme(t host.Theme) ViewOption {
	return func(v *viewData) { v.theme = t }
}

// FixedBackground makes the view's background independent of the host
// theme.
func FixedBackground() ViewOption {
	return func(v *viewData) { v.fixed = true }
}
