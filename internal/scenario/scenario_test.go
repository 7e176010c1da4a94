package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/core"
)

const canvasDoc = "---\ncanvas-plugin: parsed\n---\n- first\n"

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.Root = t.TempDir()
	cfg.Journal.Enabled = false
	return cfg
}

func run(t *testing.T, doc string) *Result {
	t.Helper()
	sc, err := Parse([]byte(doc))
	require.NoError(t, err)
	res, err := Run(context.Background(), sc, testConfig(t))
	require.NoError(t, err)
	return res
}

func recordsOf(res *Result, kind string) []Record {
	var out []Record
	for _, r := range res.Records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"two actions", "steps:\n  - focus: p1\n    edit: p1\n", "exactly one action, got 2"},
		{"no action", "steps:\n  - {}\n", "exactly one action, got 0"},
		{"unknown pane", "steps:\n  - edit: p9\n", `unknown pane "p9"`},
		{"unknown window", "steps:\n  - close_window: w1\n", `unknown window "w1"`},
		{"open without path", "steps:\n  - open: {pane: p1}\n", "open needs pane and path"},
		{"bad theme", "steps:\n  - theme: sepia\n", "theme must be light or dark"},
		{"bad yaml", "steps: [", "parsing scenario"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParse_Durations(t *testing.T) {
	sc, err := Parse([]byte("steps:\n  - window: w1\n  - open: {pane: p1, path: a.md, window: w1}\n  - advance: 1m30s\n"))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, 90*time.Second, sc.Steps[2].Advance)
	assert.Equal(t, "advance 1m30s", sc.Steps[2].Describe())
	assert.Equal(t, "open a.md as p1 in w1", sc.Steps[1].Describe())
	assert.Equal(t, "window w1", sc.Steps[0].Describe())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: demo\nsteps:\n  - restyle: true\n"), 0o600))

	sc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", sc.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "reading scenario")
}

func TestRun_AutosaveAfterInterval(t *testing.T) {
	res := run(t, `
files:
  a.md: |
    ---
    canvas-plugin: parsed
    ---
    - first
steps:
  - open: {pane: p1, path: a.md}
  - focus: p1
  - edit: p1
  - advance: 14s
  - advance: 2s
`)

	saves := recordsOf(res, string(core.SaveCompleted))
	require.Len(t, saves, 1)
	assert.Equal(t, 5, saves[0].Step, "nothing saves before the interval elapses")
	assert.Equal(t, "p1", saves[0].Pane)
	assert.Equal(t, 15*time.Second, saves[0].At)
	assert.Equal(t, canvasDoc+"- card 2\n", res.Files["a.md"])
}

func TestRun_ToggleNotifiesModeChange(t *testing.T) {
	res := run(t, `
files:
  notes.md: "# Notes\n"
steps:
  - open: {pane: p1, path: notes.md}
  - toggle: p1
  - toggle: p1
`)

	modes := recordsOf(res, string(core.ModeChanged))
	require.Len(t, modes, 2)
	assert.Equal(t, "mode=canvas", modes[0].Detail)
	assert.Equal(t, "mode=markdown", modes[1].Detail)
	assert.Equal(t, "p1", modes[0].Pane)
}

func TestRun_CrossModeSuppressesCompetingTextSave(t *testing.T) {
	res := run(t, `
files:
  notes.md: "# Notes\n"
steps:
  - open: {pane: p1, path: notes.md}
  - open: {pane: p2, path: notes.md}
  - focus: p1
  - toggle: p2
  - edit: p1
  - advance: 5s
  - edit: p1
`)

	suppressed := recordsOf(res, KindTextSaveSuppressed)
	require.Len(t, suppressed, 1)
	assert.Equal(t, 5, suppressed[0].Step)
	assert.Equal(t, "p1", suppressed[0].Pane)
	assert.Equal(t, "# Notes\n- note +5s\n", res.Files["notes.md"])
}

func TestRun_UnhandledKeyIsRecorded(t *testing.T) {
	res := run(t, `
files:
  notes.md: "# Notes\n"
steps:
  - open: {pane: p1, path: notes.md}
  - focus: p1
  - key: ctrl+e
`)

	keys := recordsOf(res, KindKeyUnhandled)
	require.Len(t, keys, 1)
	assert.Equal(t, "ctrl+e", keys[0].Detail)
}

func TestRun_CanvasScopeTogglesOnHotkey(t *testing.T) {
	res := run(t, `
files:
  a.md: |
    ---
    canvas-plugin: parsed
    ---
    - first
steps:
  - open: {pane: p1, path: a.md}
  - focus: p1
  - key: ctrl+e
`)

	assert.Empty(t, recordsOf(res, KindKeyUnhandled))
	modes := recordsOf(res, string(core.ModeChanged))
	require.Len(t, modes, 1)
	assert.Equal(t, "mode=markdown", modes[0].Detail)
}

func TestRun_RenameAndDelete(t *testing.T) {
	res := run(t, `
files:
  a.md: |
    ---
    canvas-plugin: parsed
    ---
    - first
  b.md: "# B\n"
steps:
  - open: {pane: p1, path: a.md}
  - rename: {from: a.md, to: moved.md}
  - delete: b.md
`)

	assert.Contains(t, res.Files, "moved.md")
	assert.NotContains(t, res.Files, "a.md")
	assert.NotContains(t, res.Files, "b.md")
	refresh := recordsOf(res, string(core.EmbedRefreshRequested))
	require.Len(t, refresh, 2)
	assert.Equal(t, "moved.md", refresh[0].Path)
	assert.Equal(t, "b.md", refresh[1].Path)
}

func TestRun_ExternalModifyReloadsCleanView(t *testing.T) {
	res := run(t, `
files:
  a.md: |
    ---
    canvas-plugin: parsed
    ---
    - first
steps:
  - open: {pane: p1, path: a.md}
  - modify:
      path: a.md
      content: |
        ---
        canvas-plugin: parsed
        ---
        - first
        - second
`)

	reloads := recordsOf(res, "reloaded")
	require.Len(t, reloads, 1)
	assert.Equal(t, "views=1", reloads[0].Detail)
}

func TestRun_TeardownClearsAutosaveTimers(t *testing.T) {
	res := run(t, `
files:
  a.md: |
    ---
    canvas-plugin: parsed
    ---
    - first
steps:
  - open: {pane: p1, path: a.md}
  - focus: p1
  - edit: p1
  - teardown: true
  - advance: 1m
`)

	assert.Equal(t, canvasDoc, res.Files["a.md"])
	assert.Empty(t, recordsOf(res, string(core.SaveCompleted)))
}

func TestRun_StepErrorStopsReplay(t *testing.T) {
	sc, err := Parse([]byte("steps:\n  - rename: {from: missing.md, to: x.md}\n  - restyle: true\n"))
	require.NoError(t, err)

	_, err = Run(context.Background(), sc, testConfig(t))
	require.ErrorContains(t, err, "step 1 (rename missing.md to x.md)")
}

func TestRun_WindowsAndStyles(t *testing.T) {
	res := run(t, `
files:
  a.md: |
    ---
    canvas-plugin: parsed
    ---
    - first
steps:
  - window: w1
  - open: {pane: p1, path: a.md, window: w1}
  - theme: dark
  - restyle: true
  - close_window: w1
`)
	assert.Contains(t, res.Files, "a.md")
}

func TestRecord_String(t *testing.T) {
	r := Record{Step: 3, At: 2 * time.Second, Kind: "save.completed", Pane: "p1", Path: "a.md", Detail: "rev=1"}
	assert.Equal(t, "#3 +2s save.completed pane=p1 path=a.md rev=1", r.String())
}
