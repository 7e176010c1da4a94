// Package markdown renders text panes for the terminal host.
package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/zjrosen/panesync/internal/host"
)

// noMarginStyle removes glamour's document margins so the pane border sits
// right against the text.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer caches one glamour renderer per theme and width.
type Renderer struct {
	mu        sync.Mutex
	renderers map[key]*glamour.TermRenderer
}

type key struct {
	theme host.Theme
	width int
}

// New creates an empty renderer cache.
func New() *Renderer {
	return &Renderer{renderers: make(map[key]*glamour.TermRenderer)}
}

// Render renders body wrapped at width in the glamour style matching theme.
// The fixed style path keeps glamour from querying the terminal.
func (r *Renderer) Render(body string, theme host.Theme, width int) (string, error) {
	tr, err := r.get(theme, width)
	if err != nil {
		return "", err
	}
	out, err := tr.Render(body)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

func (r *Renderer) get(theme host.Theme, width int) (*glamour.TermRenderer, error) {
	k := key{theme: theme, width: max(width, 10)}
	r.mu.Lock()
	defer r.mu.Unlock()
	if tr, ok := r.renderers[k]; ok {
		return tr, nil
	}
	style := "dark"
	if theme == host.ThemeLight {
		style = "light"
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(k.width),
	)
	if err != nil {
		return nil, err
	}
	r.renderers[k] = tr
	return tr, nil
}
