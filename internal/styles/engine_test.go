package styles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/panesync/internal/clock"
	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/core"
	"github.com/zjrosen/panesync/internal/flags"
	"github.com/zjrosen/panesync/internal/host"
	"github.com/zjrosen/panesync/internal/testutil"
)

func newEngine(t *testing.T, f *testutil.Fixture, mutate ...func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.Defaults()
	for _, m := range mutate {
		m(&cfg)
	}
	ctx := core.NewContext(cfg, core.WithClock(clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))))
	t.Cleanup(ctx.Close)
	return New(ctx, f.Workspace)
}

func TestHarvest_ComposesBothThemes(t *testing.T) {
	f := testutil.NewBuilder(t).WithStyleVariables().Build()
	e := newEngine(t, f)

	snap, err := e.Harvest(context.Background())
	require.NoError(t, err)

	require.Contains(t, snap.Light, LightSelector+" {\n")
	require.Contains(t, snap.Light, "--background-primary: #ffffff;")
	require.Contains(t, snap.Light, "--background-secondary: #f6f6f6;")
	require.Contains(t, snap.Dark, DarkSelector+" {\n")
	require.Contains(t, snap.Dark, "--background-primary: #1e1e1e;")
	require.Contains(t, snap.Dark, "--panesync-font-unit: 16px;")
	require.Equal(t, 16.0, snap.FontUnit)
	require.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), snap.HarvestedAt)

	primary := f.Window(t, testutil.DefaultWindow)
	require.Equal(t, 1, primary.SurfacesOpened())
	require.Zero(t, primary.SurfacesOpen(), "surface closed after harvest")
}

// After a harvest every open window holds exactly the two harvested
// blocks, and a window opened later receives them without a re-harvest.
func TestRefresh_BroadcastsToEveryWindow(t *testing.T) {
	f := testutil.NewBuilder(t).WithTwoWindows().WithStyleVariables().Build()
	e := newEngine(t, f)

	require.NoError(t, e.Refresh(context.Background()))
	snap := e.Snapshot()

	for _, w := range f.Windows {
		require.Equal(t, map[string]string{LightNodeID: snap.Light, DarkNodeID: snap.Dark}, w.StyleNodes())
	}

	late := testutil.NewWindow("late")
	f.Workspace.AddWindow(late)
	require.True(t, e.WindowOpened(late))

	require.Equal(t, map[string]string{LightNodeID: snap.Light, DarkNodeID: snap.Dark}, late.StyleNodes())
	require.Equal(t, 1, e.Harvests())
	require.Zero(t, late.SurfacesOpened())
}

func TestHarvest_UnparsableFontSize(t *testing.T) {
	f := testutil.NewBuilder(t).WithStyleVariables().Build()
	f.Window(t, testutil.DefaultWindow).SetVar(host.ThemeLight, "font-size", "calc(1em + banana)")
	e := newEngine(t, f)

	snap, err := e.Harvest(context.Background())
	require.NoError(t, err)
	require.Equal(t, DefaultFontUnit, snap.FontUnit)
	require.Contains(t, snap.Light, "--panesync-font-unit: 16px;")
}

func TestHarvest_NonFiniteFontSize(t *testing.T) {
	for _, size := range []string{"NaNpx", "+Inf", "infpx"} {
		t.Run(size, func(t *testing.T) {
			f := testutil.NewBuilder(t).WithStyleVariables().Build()
			f.Window(t, testutil.DefaultWindow).SetVar(host.ThemeLight, "font-size", size)
			e := newEngine(t, f)

			snap, err := e.Harvest(context.Background())
			require.NoError(t, err)
			require.Equal(t, DefaultFontUnit, snap.FontUnit)
			require.NotContains(t, snap.Light, "NaN")
			require.NotContains(t, snap.Dark, "Inf")
			require.Contains(t, snap.Dark, "--panesync-font-unit: 16px;")
		})
	}
}

func TestHarvest_CoalescesConcurrentRequests(t *testing.T) {
	f := testutil.NewBuilder(t).WithStyleVariables().Build()
	primary := f.Window(t, testutil.DefaultWindow)
	release := primary.BlockSurfaces()
	e := newEngine(t, f)

	var wg sync.WaitGroup
	results := make([]Snapshot, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = e.Harvest(context.Background())
	}()

	require.Eventually(t, func() bool { return primary.Waiting() == 1 }, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = e.Harvest(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, primary.Waiting(), "second request joined the first")
	release()
	wg.Wait()

	require.Equal(t, 1, primary.SurfacesOpened())
	require.Equal(t, 1, e.Harvests())
	require.Equal(t, results[0].Light, results[1].Light)
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	f := testutil.NewBuilder(t).WithStyleVariables().Build()
	e := newEngine(t, f)
	require.NoError(t, e.Refresh(context.Background()))
	before := e.Snapshot()

	primary := f.Window(t, testutil.DefaultWindow)
	boom := errors.New("window detached")
	primary.SetSurfaceError(boom)
	primary.SetVar(host.ThemeLight, "--text-normal", "#000000")
	upserts := primary.Upserts()

	err := e.Refresh(context.Background())
	require.ErrorIs(t, err, ErrHarvest)
	require.ErrorIs(t, err, boom)
	require.Equal(t, before, e.Snapshot())
	require.Equal(t, upserts, primary.Upserts(), "broadcast skipped")
}

func TestHarvest_NoVariables(t *testing.T) {
	f := testutil.NewBuilder(t).Build()
	e := newEngine(t, f)

	_, err := e.Harvest(context.Background())
	require.ErrorIs(t, err, ErrNoVariables)
	require.False(t, e.Broadcast())
}

func TestHarvest_NoPrimaryWindow(t *testing.T) {
	e := newEngine(t, &testutil.Fixture{Workspace: testutil.NewWorkspace()})

	_, err := e.Harvest(context.Background())
	require.ErrorIs(t, err, ErrNoPrimaryWindow)
}

func TestHarvest_ConfiguredAllowList(t *testing.T) {
	f := testutil.NewBuilder(t).WithStyleVariables().Build()
	e := newEngine(t, f, func(c *config.Config) {
		c.Styles.Variables = []string{"--text-accent"}
	})

	snap, err := e.Harvest(context.Background())
	require.NoError(t, err)
	require.Contains(t, snap.Light, "--text-accent: #705dcf;")
	require.NotContains(t, snap.Light, "--text-normal")
}

func TestHarvest_LogsDiffWhenFlagEnabled(t *testing.T) {
	f := testutil.NewBuilder(t).WithStyleVariables().Build()
	e := newEngine(t, f, func(c *config.Config) {
		c.Flags = map[string]bool{flags.FlagStyleDiffLog: true}
	})

	_, err := e.Harvest(context.Background())
	require.NoError(t, err)
	require.Empty(t, e.LastDiff(), "first harvest has nothing to diff against")

	f.Window(t, testutil.DefaultWindow).SetVar(host.ThemeDark, "--text-normal", "#eeeeee")
	_, err = e.Harvest(context.Background())
	require.NoError(t, err)
	require.Contains(t, e.LastDiff(), "eeeeee")
}

func TestTeardown_RemovesEveryNode(t *testing.T) {
	f := testutil.NewBuilder(t).WithTwoWindows().WithStyleVariables().Build()
	e := newEngine(t, f)
	require.NoError(t, e.Refresh(context.Background()))

	e.Teardown()
	for _, w := range f.Windows {
		require.Empty(t, w.StyleNodes())
		require.False(t, e.Bound(w.ID()))
	}
}

func TestWindowClosed_DropsBinding(t *testing.T) {
	f := testutil.NewBuilder(t).WithTwoWindows().WithStyleVariables().Build()
	e := newEngine(t, f)
	require.NoError(t, e.Refresh(context.Background()))

	e.WindowClosed("popout")
	require.False(t, e.Bound("popout"))

	e.Teardown()
	require.NotEmpty(t, f.Window(t, "popout").StyleNodes(), "closed windows are not touched")
}
