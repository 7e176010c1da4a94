package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Valid(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestAutosaveInterval_ByDevice(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, 15*time.Second, cfg.AutosaveInterval())

	cfg.Device = DeviceCompact
	require.True(t, cfg.Compact())
	require.Equal(t, 10*time.Second, cfg.AutosaveInterval())
}

func TestValidate_UnknownDevice(t *testing.T) {
	cfg := Defaults()
	cfg.Device = "tablet"
	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "device")
}

func TestValidate_ZeroTiming(t *testing.T) {
	cfg := Defaults()
	cfg.Timing.ReloadDelay = 0
	cfg.Timing.CrossModeSwitch = 0
	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "timing.reload_delay")
	require.Contains(t, err.Error(), "timing.cross_mode_switch")
}

func TestValidate_AutosaveDisabledSkipsIntervals(t *testing.T) {
	cfg := Defaults()
	cfg.Autosave.Enabled = false
	cfg.Autosave.Interval = 0
	require.NoError(t, Validate(cfg))
}

func TestValidate_StyleVariables(t *testing.T) {
	cfg := Defaults()
	cfg.Styles.Variables = []string{"--text-normal", "color"}
	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"color"`)
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(TracingConfig{Enabled: false, Exporter: "bogus"}))
	require.NoError(t, ValidateTracing(TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 0.5}))
	require.Error(t, ValidateTracing(TracingConfig{Enabled: true, Exporter: "bogus"}))
	require.Error(t, ValidateTracing(TracingConfig{Enabled: true, Exporter: "otlp", SampleRate: 2}))
}

func TestSaveShortcutIsModS(t *testing.T) {
	for shortcut, want := range map[string]bool{
		"mod+s":    true,
		"Ctrl+S":   true,
		"cmd + s":  true,
		"ctrl+alt": false,
		"":         false,
		"alt+s":    false,
	} {
		require.Equal(t, want, HotkeysConfig{SaveShortcut: shortcut}.SaveShortcutIsModS(), shortcut)
	}
}

func TestJournalPath(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Root = "/vault"
	require.Equal(t, filepath.Join("/vault", ".panesync", "journal.db"), cfg.JournalPath())

	cfg.Journal.Path = "/tmp/j.db"
	require.Equal(t, "/tmp/j.db", cfg.JournalPath())
}

func TestDefaultConfigTemplate_MatchesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(DefaultConfigTemplate())))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	defaults := Defaults()
	require.Equal(t, defaults.Device, cfg.Device)
	require.Equal(t, defaults.Autosave, cfg.Autosave)
	require.Equal(t, defaults.Timing, cfg.Timing)
	require.Equal(t, defaults.Hotkeys, cfg.Hotkeys)
	require.Equal(t, defaults.Watchers, cfg.Watchers)
	require.Equal(t, defaults.Storage.MetadataTTL, cfg.Storage.MetadataTTL)
	require.False(t, cfg.Flags["file-list-annotation"])
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))
}
