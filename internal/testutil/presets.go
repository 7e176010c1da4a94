package testutil

import "github.com/zjrosen/panesync/internal/host"

// LightVariables are the computed values every fixture window reports
// under the light theme once WithStyleVariables is used.
var LightVariables = map[string]string{
	"--background-primary":   "#FFFFFF",
	"--background-secondary": "rgb(246, 246, 246)",
	"--text-normal":          "#222222",
	"--text-muted":           "#5c5c5c",
	"--text-accent":          "#705dcf",
	"--interactive-accent":   "#7b6cd9",
	"--font-text":            "Inter, sans-serif",
	"--font-monospace":       "Menlo, monospace",
	"font-size":              "16px",
}

// DarkVariables are the dark-theme counterparts of LightVariables.
var DarkVariables = map[string]string{
	"--background-primary":   "#1E1E1E",
	"--background-secondary": "rgb(38, 38, 38)",
	"--text-normal":          "#dadada",
	"--text-muted":           "#999999",
	"--text-accent":          "#8a5cf5",
	"--interactive-accent":   "#7f6df2",
	"--font-text":            "Inter, sans-serif",
	"--font-monospace":       "Menlo, monospace",
	"font-size":              "16px",
}

// WithStyleVariables makes every window report LightVariables and
// DarkVariables from its render surfaces.
func (b *Builder) WithStyleVariables() *Builder {
	b.variables = true
	return b
}

// WithSplitCanvas adds a canvas pane p1 and a text pane p2 on the same
// file, the layout behind cross-mode switches.
func (b *Builder) WithSplitCanvas(path string) *Builder {
	return b.
		WithView("p1", path).
		WithTextPane("p2", path)
}

// WithTwoWindows adds a second window "popout" with its own canvas pane.
//
// Structure:
//
//	main:   p1 (canvas, a.md)
//	popout: p3 (canvas, b.md)
func (b *Builder) WithTwoWindows() *Builder {
	return b.
		WithView("p1", "a.md").
		WithView("p3", "b.md", InWindow(host.WindowID("popout")))
}
