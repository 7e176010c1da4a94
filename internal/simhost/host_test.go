package simhost

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/storage"
)

func newHost(t *testing.T, files map[string]string) *Host {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	store, err := storage.New(config.StorageConfig{Root: root, MetadataTTL: time.Minute})
	require.NoError(t, err)
	return New(store)
}

const canvasDoc = "---\ncanvas-plugin: parsed\n---\n- first\n- second\n"

func TestOpenPane_HookDecidesType(t *testing.T) {
	h := newHost(t, map[string]string{"a.md": canvasDoc, "notes.md": "# Notes\n"})
	ctx := context.Background()

	var opened []host.PaneID
	h.SetCallbacks(Callbacks{ViewOpened: func(_ context.Context, v host.CanvasView) { opened = append(opened, v.PaneID()) }})
	unregister := h.OnBeforePaneStateChange(func(_ host.PaneID, next host.PaneState) host.PaneState {
		if h.Store().IsCanvas(ctx, next.FilePath) {
			next.Type = host.ViewTypeCanvas
		}
		return next
	})
	defer unregister()

	p1, err := h.OpenPane(ctx, MainWindow, "a.md")
	require.NoError(t, err)
	p2, err := h.OpenPane(ctx, MainWindow, "notes.md")
	require.NoError(t, err)

	state, _ := h.PaneState(p1)
	require.Equal(t, host.ViewTypeCanvas, state.Type)
	state, _ = h.PaneState(p2)
	require.Equal(t, host.ViewTypeText, state.Type)
	require.Equal(t, []host.PaneID{p1}, opened)

	c, ok := h.Canvas(p1)
	require.True(t, ok)
	require.Equal(t, []string{"first", "second"}, c.Cards())

	panes := h.Panes()
	require.Len(t, panes, 2)
	require.Equal(t, p1, panes[0].ID)
}

func TestSetPaneState_DemotionClosesCanvas(t *testing.T) {
	h := newHost(t, map[string]string{"a.md": canvasDoc})
	ctx := context.Background()
	var closed []host.PaneID
	h.SetCallbacks(Callbacks{ViewClosed: func(p host.PaneID) { closed = append(closed, p) }})

	p1, err := h.OpenPane(ctx, MainWindow, "a.md")
	require.NoError(t, err)
	require.NoError(t, h.SetPaneState(ctx, p1, host.PaneState{Type: host.ViewTypeCanvas, FilePath: "a.md"}))
	c, _ := h.Canvas(p1)

	// Same file in canvas mode keeps the view.
	require.NoError(t, h.SetPaneState(ctx, p1, host.PaneState{Type: host.ViewTypeCanvas, FilePath: "a.md"}))
	same, _ := h.Canvas(p1)
	require.Same(t, c, same)

	require.NoError(t, h.SetPaneState(ctx, p1, host.PaneState{Type: host.ViewTypeText, FilePath: "a.md"}))
	_, ok := h.Canvas(p1)
	require.False(t, ok)
	require.Equal(t, []host.PaneID{p1}, closed)

	require.ErrorIs(t, h.SetPaneState(ctx, "missing", host.PaneState{}), host.ErrPaneNotFound)
}

func TestCanvas_SavePreservesFrontmatter(t *testing.T) {
	h := newHost(t, map[string]string{"a.md": canvasDoc})
	ctx := context.Background()
	p1, err := h.OpenPane(ctx, MainWindow, "a.md")
	require.NoError(t, err)
	require.NoError(t, h.SetPaneState(ctx, p1, host.PaneState{Type: host.ViewTypeCanvas, FilePath: "a.md"}))
	c, _ := h.Canvas(p1)

	c.AddCard("third")
	require.True(t, c.IsDirty())
	require.NoError(t, c.Save(ctx, true))
	require.False(t, c.IsDirty())
	require.Equal(t, 1, c.LinkFlushes())

	data, err := h.Store().Read(ctx, "a.md")
	require.NoError(t, err)
	require.Equal(t, canvasDoc+"- third\n", string(data))
	require.True(t, h.Store().IsCanvas(ctx, "a.md"))
}

func TestCanvas_ReloadKeepsDirtyBufferUnlessForced(t *testing.T) {
	h := newHost(t, map[string]string{"a.md": canvasDoc})
	ctx := context.Background()
	p1, _ := h.OpenPane(ctx, MainWindow, "a.md")
	require.NoError(t, h.SetPaneState(ctx, p1, host.PaneState{Type: host.ViewTypeCanvas, FilePath: "a.md"}))
	c, _ := h.Canvas(p1)

	c.AddCard("local")
	require.NoError(t, h.Store().Write(ctx, "a.md", []byte("- remote\n")))

	require.NoError(t, c.Reload(ctx, false))
	require.Equal(t, []string{"first", "second", "local"}, c.Cards())

	require.NoError(t, c.Reload(ctx, true))
	require.Equal(t, []string{"remote"}, c.Cards())
	require.False(t, c.IsDirty())
}

func TestCanvas_MissingFileIsErrored(t *testing.T) {
	h := newHost(t, nil)
	ctx := context.Background()
	p1, err := h.OpenPane(ctx, MainWindow, "gone.md")
	require.NoError(t, err)
	require.NoError(t, h.SetPaneState(ctx, p1, host.PaneState{Type: host.ViewTypeCanvas, FilePath: "gone.md"}))
	c, _ := h.Canvas(p1)
	require.True(t, c.LiveState().HasError)
}

func TestSaveText_SuppressedAndPreservesFrontmatter(t *testing.T) {
	h := newHost(t, map[string]string{"a.md": canvasDoc})
	ctx := context.Background()

	suppress := true
	h.SetCallbacks(Callbacks{SuppressTextSave: func(string) bool { return suppress }})
	require.ErrorIs(t, h.SaveText(ctx, "a.md", "- typed\n"), ErrSuppressed)

	suppress = false
	require.NoError(t, h.SaveText(ctx, "a.md", "- typed\n"))
	data, err := h.Store().Read(ctx, "a.md")
	require.NoError(t, err)
	require.Equal(t, "---\ncanvas-plugin: parsed\n---\n- typed\n", string(data))
}

func TestWindows_OpenCloseAndSurfaces(t *testing.T) {
	h := newHost(t, map[string]string{"a.md": "x\n"})
	ctx := context.Background()

	w := h.OpenWindow()
	require.Len(t, h.Windows(), 2)
	require.Equal(t, MainWindow, h.PrimaryWindow().ID())

	p, err := h.OpenPane(ctx, w.ID(), "a.md")
	require.NoError(t, err)
	_, err = h.OpenPane(ctx, "nope", "a.md")
	require.Error(t, err)

	w.SetVariable(host.ThemeDark, "--text-normal", "#eeeeee")
	s, err := w.NewRenderSurface()
	require.NoError(t, err)
	require.Equal(t, "#222222", s.Computed("--text-normal"))
	s.SetTheme(host.ThemeDark)
	require.Equal(t, "#eeeeee", s.Computed("--text-normal"))
	s.Close()

	closed, ok := h.CloseWindow(w.ID())
	require.True(t, ok)
	require.Equal(t, []host.PaneID{p}, closed)
	require.False(t, h.HasPane(p))

	_, ok = h.CloseWindow(MainWindow)
	require.False(t, ok)
}

func TestEvents_ObserveAndUnsubscribe(t *testing.T) {
	h := newHost(t, map[string]string{"a.md": canvasDoc, "b.md": "plain\n"})

	var got []host.UIEvent
	sub, err := h.Observe(host.EventThemeChanged, func(ev host.UIEvent) { got = append(got, ev) })
	require.NoError(t, err)
	_, err = h.Observe(host.EventDrawerToggled, func(ev host.UIEvent) { got = append(got, ev) })
	require.NoError(t, err)

	h.SetTheme(host.ThemeDark)
	require.True(t, h.ToggleDrawer(MainWindow))
	require.False(t, h.ToggleDrawer(MainWindow))
	require.Len(t, got, 3)
	require.Equal(t, host.ThemeDark, got[0].Theme)
	require.True(t, got[1].Hidden)

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.Zero(t, h.Observers(host.EventThemeChanged))
	h.SetTheme(host.ThemeLight)
	require.Len(t, got, 3)

	require.Equal(t, []host.FileEntry{{Path: "a.md"}, {Path: "b.md"}}, h.Entries())
	h.SetMarker("a.md", true)
	require.True(t, h.Marked("a.md"))
	h.SetMarker("a.md", false)
	require.False(t, h.Marked("a.md"))
}

func TestChain_FrontFirstDispatch(t *testing.T) {
	h := newHost(t, nil)
	var ran []string
	handler := func(name string) host.KeyHandler {
		return host.KeyHandler{Keys: []string{"ctrl+s"}, Run: func() bool {
			ran = append(ran, name)
			return true
		}}
	}
	first, _ := h.RegisterFront(handler("first"))
	_, _ = h.RegisterFront(handler("second"))

	require.True(t, h.Dispatch("ctrl+s"))
	require.Equal(t, []string{"second"}, ran)
	require.Len(t, h.Handlers(), 2)

	h.Unregister(first)
	require.Len(t, h.Handlers(), 1)
	require.False(t, h.Dispatch("ctrl+q"))
}
