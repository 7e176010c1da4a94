package simhost

import (
	"maps"
	"sync"

	"github.com/zjrosen/panesync/internal/host"
)

// palette is the host stylesheet every window starts from.
var palette = map[host.Theme]map[string]string{
	host.ThemeLight: {
		"--background-primary":         "#ffffff",
		"--background-primary-alt":     "#fafafa",
		"--background-secondary":       "rgb(246, 246, 246)",
		"--background-secondary-alt":   "#e3e3e3",
		"--background-modifier-border": "#dddddd",
		"--background-modifier-hover":  "rgba(0, 0, 0, 0.075)",
		"--text-normal":                "#222222",
		"--text-muted":                 "#5c5c5c",
		"--text-faint":                 "#ababab",
		"--text-accent":                "#705dcf",
		"--text-on-accent":             "#ffffff",
		"--text-selection":             "rgba(204, 230, 255, 0.99)",
		"--interactive-normal":         "#f2f3f5",
		"--interactive-hover":          "#e9e9e9",
		"--interactive-accent":         "#7b6cd9",
		"--interactive-accent-hover":   "#8273e6",
		"--font-text":                  "Inter, sans-serif",
		"--font-interface":             "Inter, sans-serif",
		"--font-monospace":             "Menlo, monospace",
		"--radius-m":                   "8px",
		"font-size":                    "16px",
	},
	host.ThemeDark: {
		"--background-primary":         "#1e1e1e",
		"--background-primary-alt":     "#242424",
		"--background-secondary":       "rgb(38, 38, 38)",
		"--background-secondary-alt":   "#363636",
		"--background-modifier-border": "#333333",
		"--background-modifier-hover":  "rgba(255, 255, 255, 0.075)",
		"--text-normal":                "#dadada",
		"--text-muted":                 "#999999",
		"--text-faint":                 "#666666",
		"--text-accent":                "#8a5cf5",
		"--text-on-accent":             "#ffffff",
		"--text-selection":             "rgba(23, 48, 77, 0.99)",
		"--interactive-normal":         "#2a2a2a",
		"--interactive-hover":          "#303030",
		"--interactive-accent":         "#7f6df2",
		"--interactive-accent-hover":   "#8875ff",
		"--font-text":                  "Inter, sans-serif",
		"--font-interface":             "Inter, sans-serif",
		"--font-monospace":             "Menlo, monospace",
		"--radius-m":                   "8px",
		"font-size":                    "16px",
	},
}

// Background returns the primary background of theme.
func Background(theme host.Theme) string {
	return palette[theme]["--background-primary"]
}

// Window is a simulated top-level window.
type Window struct {
	id host.WindowID

	mu        sync.Mutex
	nodes     map[string]string
	overrides map[host.Theme]map[string]string
}

var _ host.Window = (*Window)(nil)

func newWindow(id host.WindowID) *Window {
	return &Window{
		id:    id,
		nodes: make(map[string]string),
		overrides: map[host.Theme]map[string]string{
			host.ThemeLight: {},
			host.ThemeDark:  {},
		},
	}
}

func (w *Window) ID() host.WindowID { return w.id }

// SetVariable overrides one stylesheet value, the way a host theme
// update would.
func (w *Window) SetVariable(theme host.Theme, name, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.overrides[theme][name] = value
}

func (w *Window) UpsertStyleNode(id, css string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nodes[id] = css
	return nil
}

func (w *Window) RemoveStyleNode(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.nodes, id)
	return nil
}

func (w *Window) StyleNodes() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.nodes)
}

func (w *Window) NewRenderSurface() (host.RenderSurface, error) {
	return &surface{window: w, theme: host.ThemeLight}, nil
}

func (w *Window) value(theme host.Theme, property string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v, ok := w.overrides[theme][property]; ok {
		return v
	}
	return palette[theme][property]
}

type surface struct {
	window *Window
	theme  host.Theme
}

func (s *surface) SetTheme(theme host.Theme) { s.theme = theme }

func (s *surface) Computed(property string) string {
	return s.window.value(s.theme, property)
}

func (s *surface) Close() {}
