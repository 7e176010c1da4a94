package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestSaveWatchers_CreatesNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	err := SaveWatchers(path, WatchersConfig{Theme: true, FileList: true})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "watchers:")
	require.Contains(t, string(data), "file_list: true")
	require.Contains(t, string(data), "modal: false")
}

func TestSaveWatchers_PreservesOtherConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	initial := `# keep me
device: compact
watchers:
  theme: true
  modal: true
autosave:
  interval: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o644))

	require.NoError(t, SaveWatchers(path, WatchersConfig{Modal: false, Drawer: true}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# keep me")
	require.Contains(t, string(data), "device: compact")
	require.Contains(t, string(data), "interval: 30s")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	require.False(t, cfg.Watchers.Modal)
	require.True(t, cfg.Watchers.Drawer)
}

func TestSaveFlag_CreatesAndUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(DefaultConfigTemplate()), 0o644))

	require.NoError(t, SaveFlag(path, "file-list-annotation", true))
	require.NoError(t, SaveFlag(path, "brand-new", true))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	require.True(t, cfg.Flags["file-list-annotation"])
	require.True(t, cfg.Flags["brand-new"])
}

func TestSaveFlag_RejectsNonMappingRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- a\n- b\n"), 0o644))

	require.Error(t, SaveFlag(path, "x", true))
}
