package simhost

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/storage"
)

// Canvas is a simulated canvas view: the document body as a list of cards.
type Canvas struct {
	store  *storage.Store
	pane   host.PaneID
	window host.WindowID

	mu           sync.Mutex
	path         string
	front        []byte
	cards        []string
	edits        int
	dirty        bool
	live         host.LiveState
	calibrations int
	linkFlushes  int
}

var _ host.CanvasView = (*Canvas)(nil)

func newCanvas(ctx context.Context, store *storage.Store, pane host.PaneID, window host.WindowID, path string, theme host.Theme) *Canvas {
	c := &Canvas{
		store:  store,
		pane:   pane,
		window: window,
		path:   path,
		live:   host.LiveState{Theme: theme, Background: Background(theme), TracksHostTheme: true},
	}
	if err := c.load(ctx); err != nil {
		c.live.HasError = true
	}
	return c
}

func (c *Canvas) PaneID() host.PaneID     { return c.pane }
func (c *Canvas) WindowID() host.WindowID { return c.window }

func (c *Canvas) FilePath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

func (c *Canvas) setPath(path string) {
	c.mu.Lock()
	c.path = path
	c.mu.Unlock()
}

func (c *Canvas) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Cards returns the card texts.
func (c *Canvas) Cards() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cards)
}

// AddCard appends a card and marks the canvas dirty.
func (c *Canvas) AddCard(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards = append(c.cards, text)
	c.edits++
	c.dirty = true
}

// LinkFlushes returns the number of saves that rewrote links.
func (c *Canvas) LinkFlushes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.linkFlushes
}

// Calibrations returns the number of Calibrate calls.
func (c *Canvas) Calibrations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calibrations
}

func (c *Canvas) Save(ctx context.Context, flushLinks bool) error {
	c.mu.Lock()
	path, edits := c.path, c.edits
	data := render(c.front, c.cards)
	c.mu.Unlock()

	if err := c.store.Write(ctx, path, data); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.edits == edits {
		c.dirty = false
	}
	if flushLinks {
		c.linkFlushes++
	}
	return nil
}

func (c *Canvas) Reload(ctx context.Context, force bool) error {
	c.mu.Lock()
	keep := c.dirty && !force
	c.mu.Unlock()
	if keep {
		return nil
	}
	return c.load(ctx)
}

func (c *Canvas) load(ctx context.Context) error {
	path := c.FilePath()
	data, err := c.store.Read(ctx, path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	front, body := storage.SplitFrontmatter(data)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.front = front
	c.cards = parseCards(body)
	c.dirty = false
	c.live.HasError = false
	return nil
}

func (c *Canvas) LiveState() host.LiveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

func (c *Canvas) ApplyTheme(theme host.Theme) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live.Theme = theme
	c.live.Background = Background(theme)
	return c.live.Background, nil
}

func (c *Canvas) Calibrate() {
	c.mu.Lock()
	c.calibrations++
	c.mu.Unlock()
}

func parseCards(body []byte) []string {
	var cards []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cards = append(cards, strings.TrimPrefix(line, "- "))
	}
	return cards
}

func render(front []byte, cards []string) []byte {
	var b bytes.Buffer
	if front != nil {
		b.WriteString("---\n")
		b.Write(front)
		b.WriteString("---\n")
	}
	for _, card := range cards {
		b.WriteString("- ")
		b.WriteString(card)
		b.WriteByte('\n')
	}
	return b.Bytes()
}
