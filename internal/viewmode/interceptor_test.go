package viewmode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/host"
)

type probe bool

func (p *probe) TearingDown() bool { return bool(*p) }

type hookWorkspace struct {
	host.Workspace
	hook host.PaneStateHook
}

func (w *hookWorkspace) OnBeforePaneStateChange(hook host.PaneStateHook) func() {
	w.hook = hook
	return func() { w.hook = nil }
}

func newInterceptor(t *testing.T, shutting *probe, paths ...string) (*Interceptor, *Registry, *core.Context) {
	t.Helper()
	ctx := core.NewContext(config.Defaults())
	t.Cleanup(ctx.Close)
	r := NewRegistry(ctx, canvasPaths(paths...))
	return NewInterceptor(ctx, r, shutting), r, ctx
}

func TestIntercept_PromotesCanvasDocument(t *testing.T) {
	var shutting probe
	i, _, ctx := newInterceptor(t, &shutting, "drawing.md")
	modes := ctx.Notifications.Subscribe(context.Background(), core.ModeChanged)

	got := i.Intercept("p1", host.PaneState{Type: host.ViewTypeText, FilePath: "drawing.md"})
	require.Equal(t, host.ViewTypeCanvas, got.Type)

	event := <-modes
	require.Equal(t, host.PaneID("p1"), event.Payload.Pane)
	require.Equal(t, host.ViewTypeCanvas, event.Payload.Mode)
}

func TestIntercept_LeavesPlainDocuments(t *testing.T) {
	var shutting probe
	i, r, _ := newInterceptor(t, &shutting)
	r.Set("p1", CanvasForced)

	got := i.Intercept("p1", host.PaneState{Type: host.ViewTypeText, FilePath: "notes.md"})
	require.Equal(t, host.ViewTypeText, got.Type)
}

func TestIntercept_HonoursMarkdownForced(t *testing.T) {
	var shutting probe
	i, r, _ := newInterceptor(t, &shutting, "drawing.md")
	r.Set("p1", MarkdownForced)

	got := i.Intercept("p1", host.PaneState{Type: host.ViewTypeText, FilePath: "drawing.md"})
	require.Equal(t, host.ViewTypeText, got.Type)

	got = i.Intercept("p1", host.PaneState{Type: host.ViewTypeCanvas, FilePath: "drawing.md"})
	require.Equal(t, host.ViewTypeText, got.Type, "canvas request in a markdown-forced pane is demoted")
}

func TestIntercept_ExplicitCanvasKeptForUnpinnedPane(t *testing.T) {
	var shutting probe
	i, r, ctx := newInterceptor(t, &shutting)
	modes := ctx.Notifications.Subscribe(context.Background(), core.ModeChanged)

	got := i.Intercept("p1", host.PaneState{Type: host.ViewTypeCanvas, FilePath: "notes.md"})
	require.Equal(t, host.ViewTypeCanvas, got.Type)
	require.Equal(t, StateUnknown, r.State("p1"))
	require.Empty(t, modes)

	r.Set("p2", CanvasForced)
	got = i.Intercept("p2", host.PaneState{Type: host.ViewTypeCanvas, FilePath: "notes.md"})
	require.Equal(t, host.ViewTypeCanvas, got.Type)
}

func TestIntercept_OneShotDemotesExplicitCanvas(t *testing.T) {
	var shutting probe
	i, r, _ := newInterceptor(t, &shutting)
	r.SetOneShot("other.md")

	got := i.Intercept("p1", host.PaneState{Type: host.ViewTypeCanvas, FilePath: "notes.md"})
	require.Equal(t, host.ViewTypeCanvas, got.Type, "one-shot for another path is left armed")

	r.SetOneShot("notes.md")
	got = i.Intercept("p1", host.PaneState{Type: host.ViewTypeCanvas, FilePath: "notes.md"})
	require.Equal(t, host.ViewTypeText, got.Type)
	_, pending := r.PendingOneShot()
	require.False(t, pending)
}

func TestIntercept_OneShotDemotesCanvasOnce(t *testing.T) {
	var shutting probe
	i, r, _ := newInterceptor(t, &shutting, "drawing.md")
	r.SetOneShot("drawing.md")

	got := i.Intercept("p1", host.PaneState{Type: host.ViewTypeText, FilePath: "drawing.md"})
	require.Equal(t, host.ViewTypeText, got.Type)

	got = i.Intercept("p1", host.PaneState{Type: host.ViewTypeText, FilePath: "drawing.md"})
	require.Equal(t, host.ViewTypeCanvas, got.Type)
}

func TestIntercept_NeverForcesCanvasDuringShutdown(t *testing.T) {
	shutting := probe(true)
	i, r, _ := newInterceptor(t, &shutting, "drawing.md")
	r.Set("p1", CanvasForced)

	got := i.Intercept("p1", host.PaneState{Type: host.ViewTypeText, FilePath: "drawing.md"})
	require.Equal(t, host.ViewTypeText, got.Type)
}

func TestIntercept_EmptyPath(t *testing.T) {
	var shutting probe
	i, _, _ := newInterceptor(t, &shutting)

	next := host.PaneState{Type: host.ViewTypeEmpty}
	require.Equal(t, next, i.Intercept("p1", next))
}

func TestInstallUninstall(t *testing.T) {
	var shutting probe
	i, _, _ := newInterceptor(t, &shutting, "drawing.md")
	ws := &hookWorkspace{}

	i.Install(ws)
	require.NotNil(t, ws.hook)
	got := ws.hook("p1", host.PaneState{Type: host.ViewTypeText, FilePath: "drawing.md"})
	require.Equal(t, host.ViewTypeCanvas, got.Type)

	i.Uninstall()
	require.Nil(t, ws.hook)
	i.Uninstall()
}
