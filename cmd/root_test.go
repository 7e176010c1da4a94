package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/session"
)

const autosaveScenario = `name: autosave
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
  - advance: 20s
`

// execute runs the root command with args against an isolated config file.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, debug = "", false
		replayShowFiles, replayDir, replayVerbose = false, "", false
		configForce = false
		openPaths = nil
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func tempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReplay_PrintsRecords(t *testing.T) {
	out, err := execute(t, "replay", writeScenario(t, autosaveScenario),
		"--config", tempConfig(t, "journal:\n  enabled: false\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "#4 +15s save.completed pane=p1 path=a.md rev=1")
	assert.NotContains(t, out, "== a.md ==")
}

func TestReplay_FilesAndDir(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "replay", writeScenario(t, autosaveScenario),
		"--config", tempConfig(t, ""), "--files", "--dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "== a.md ==\n---\ncanvas-plugin: parsed\n---\n- first\n- card 2\n")
	data, err := os.ReadFile(filepath.Join(dir, "a.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "- card 2")
}

func TestReplay_UsesConfiguredTiming(t *testing.T) {
	out, err := execute(t, "replay", writeScenario(t, autosaveScenario),
		"--config", tempConfig(t, "autosave:\n  interval: 5s\njournal:\n  enabled: false\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "+5s save.completed")
}

func TestReplay_Errors(t *testing.T) {
	_, err := execute(t, "replay", filepath.Join(t.TempDir(), "missing.yaml"), "--config", tempConfig(t, ""))
	require.ErrorContains(t, err, "reading scenario")

	_, err = execute(t, "replay", writeScenario(t, "steps:\n  - edit: nobody\n"), "--config", tempConfig(t, ""))
	require.ErrorContains(t, err, `unknown pane "nobody"`)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfgPath := tempConfig(t, "")

	out, err := execute(t, "config", "init", path, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfigTemplate(), string(data))

	_, err = execute(t, "config", "init", path, "--config", cfgPath)
	require.ErrorContains(t, err, "already exists")

	_, err = execute(t, "config", "init", path, "--force", "--config", cfgPath)
	require.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	out, err := execute(t, "config", "show", "--config", tempConfig(t, "device: compact\ntiming:\n  save_echo: 2s\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "device: compact")
	assert.Contains(t, out, "save_echo: 2s")
	assert.Contains(t, out, "reload_delay: 2s", "unset keys keep their defaults")
	assert.Contains(t, out, "save-journal: true")
}

func TestConfigWatchers(t *testing.T) {
	path := tempConfig(t, "device: compact\n")

	_, err := execute(t, "config", "watchers", "--drawer=false", "--file-list", "--config", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "device: compact")
	assert.Contains(t, string(data), "drawer: false")
	assert.Contains(t, string(data), "file_list: true")
	assert.Contains(t, string(data), "theme: true")
}

func TestFlagsSetAndList(t *testing.T) {
	path := tempConfig(t, "")

	out, err := execute(t, "flags", "set", "save-journal", "false", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "save-journal = false")

	out, err = execute(t, "flags", "--config", path)
	require.NoError(t, err)
	assert.Regexp(t, `save-journal\s+false`, out)
	assert.Regexp(t, `file-list-annotation\s+false`, out)
}

func TestFlagsSet_Rejects(t *testing.T) {
	path := tempConfig(t, "")

	_, err := execute(t, "flags", "set", "warp-drive", "true", "--config", path)
	require.ErrorContains(t, err, `unknown flag "warp-drive"`)

	_, err = execute(t, "flags", "set", "save-journal", "maybe", "--config", path)
	require.ErrorContains(t, err, "true or false")
}

func TestResolveRoot(t *testing.T) {
	dir := t.TempDir()

	root, err := resolveRoot(config.Config{}, []string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	root, err = resolveRoot(config.Config{Storage: config.StorageConfig{Root: dir}}, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	wd, err := os.Getwd()
	require.NoError(t, err)
	root, err = resolveRoot(config.Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, wd, root)
}

func TestOpenInitialPanes(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.md", "b.md", "c.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("# "+name+"\n"), 0o600))
	}
	cfg := config.Defaults()
	cfg.Storage.Root = root
	cfg.Journal.Enabled = false

	ctx := context.Background()
	sess, err := session.Open(ctx, cfg, session.Options{})
	require.NoError(t, err)
	defer func() { _ = sess.Close(ctx) }()

	require.NoError(t, openInitialPanes(ctx, sess, nil))
	panes := sess.Host.Panes()
	require.Len(t, panes, defaultPaneCount)
	assert.Equal(t, "a.md", panes[0].State.FilePath)
	assert.Equal(t, "b.md", panes[1].State.FilePath)

	require.NoError(t, openInitialPanes(ctx, sess, []string{"c.md"}))
	assert.Len(t, sess.Host.Panes(), 3)

	require.Error(t, openInitialPanes(ctx, sess, []string{"missing.md"}))
}
