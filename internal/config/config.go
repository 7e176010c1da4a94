// Package config provides configuration types and defaults for panesync.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/panesync/internal/log"
)

// Device classes select autosave defaults and the drawer watcher.
const (
	DeviceFull    = "full"
	DeviceCompact = "compact"
)

// Config holds all configuration options for panesync.
type Config struct {
	Device   string          `mapstructure:"device"` // "full" (default) or "compact"
	Autosave AutosaveConfig  `mapstructure:"autosave"`
	Timing   TimingConfig    `mapstructure:"timing"`
	Hotkeys  HotkeysConfig   `mapstructure:"hotkeys"`
	Watchers WatchersConfig  `mapstructure:"watchers"`
	Styles   StylesConfig    `mapstructure:"styles"`
	Storage  StorageConfig   `mapstructure:"storage"`
	Journal  JournalConfig   `mapstructure:"journal"`
	Tracing  TracingConfig   `mapstructure:"tracing"`
	Flags    map[string]bool `mapstructure:"flags"`
}

// AutosaveConfig configures the per-view autosave timers.
type AutosaveConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Interval        time.Duration `mapstructure:"interval"`         // full-size devices
	CompactInterval time.Duration `mapstructure:"compact_interval"` // compact devices
}

// TimingConfig holds the coordination delays and suppression windows.
type TimingConfig struct {
	ReloadDelay     time.Duration `mapstructure:"reload_delay"`
	RecentSwitch    time.Duration `mapstructure:"recent_switch"`
	CrossModeSwitch time.Duration `mapstructure:"cross_mode_switch"`
	ThemeSettle     time.Duration `mapstructure:"theme_settle"`
	SaveEcho        time.Duration `mapstructure:"save_echo"` // ignore file-modified events this soon after our own save
}

// HotkeysConfig configures the canvas hotkey scope.
type HotkeysConfig struct {
	// SaveShortcut is the host's configured save shortcut. The canvas save
	// override is only installed when it is "mod+s", "ctrl+s" or "cmd+s".
	SaveShortcut string `mapstructure:"save_shortcut"`
}

// WatchersConfig enables the individual UI-event watchers.
type WatchersConfig struct {
	Theme    bool `mapstructure:"theme"`
	Modal    bool `mapstructure:"modal"`
	Drawer   bool `mapstructure:"drawer"`    // only effective on compact devices
	FileList bool `mapstructure:"file_list"` // also requires the file-list-annotation flag
}

// StylesConfig configures style harvesting.
type StylesConfig struct {
	// Variables overrides the harvested allow-list. Empty uses the default.
	Variables []string `mapstructure:"variables"`
}

// StorageConfig configures the filesystem storage.
type StorageConfig struct {
	Root        string        `mapstructure:"root"`
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"`
}

// JournalConfig configures the sqlite save journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // default: <storage root>/.panesync/journal.db
}

// TracingConfig holds OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"`      // "none", "file", "stdout", "otlp"
	FilePath     string  `mapstructure:"file_path"`     // for "file"
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"` // for "otlp"
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Compact reports whether the device class is compact.
func (c Config) Compact() bool {
	return c.Device == DeviceCompact
}

// AutosaveInterval returns the interval for the configured device class.
func (c Config) AutosaveInterval() time.Duration {
	if c.Compact() {
		return c.Autosave.CompactInterval
	}
	return c.Autosave.Interval
}

// JournalPath returns the journal path, derived from the storage root when
// not configured.
func (c Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	root := c.Storage.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(root, ".panesync", "journal.db")
}

// SaveShortcutIsModS reports whether the configured save shortcut is the
// platform modifier plus "s".
func (h HotkeysConfig) SaveShortcutIsModS() bool {
	switch strings.ToLower(strings.ReplaceAll(h.SaveShortcut, " ", "")) {
	case "mod+s", "ctrl+s", "cmd+s":
		return true
	default:
		return false
	}
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Device: DeviceFull,
		Autosave: AutosaveConfig{
			Enabled:         true,
			Interval:        15 * time.Second,
			CompactInterval: 10 * time.Second,
		},
		Timing: TimingConfig{
			ReloadDelay:     2 * time.Second,
			RecentSwitch:    time.Second,
			CrossModeSwitch: 3 * time.Second,
			ThemeSettle:     50 * time.Millisecond,
			SaveEcho:        time.Second,
		},
		Hotkeys: HotkeysConfig{
			SaveShortcut: "mod+s",
		},
		Watchers: WatchersConfig{
			Theme:    true,
			Modal:    true,
			Drawer:   true,
			FileList: false,
		},
		Storage: StorageConfig{
			MetadataTTL: 5 * time.Minute,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks the configuration for errors.
// Zero suppression windows and delays are rejected.
func Validate(c Config) error {
	var errs []error

	switch c.Device {
	case "", DeviceFull, DeviceCompact:
	default:
		errs = append(errs, fmt.Errorf("device must be %q or %q, got %q", DeviceFull, DeviceCompact, c.Device))
	}

	if c.Autosave.Enabled {
		if c.Autosave.Interval <= 0 {
			errs = append(errs, errors.New("autosave.interval must be positive"))
		}
		if c.Autosave.CompactInterval <= 0 {
			errs = append(errs, errors.New("autosave.compact_interval must be positive"))
		}
	}

	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"timing.reload_delay", c.Timing.ReloadDelay},
		{"timing.recent_switch", c.Timing.RecentSwitch},
		{"timing.cross_mode_switch", c.Timing.CrossModeSwitch},
	} {
		if d.val <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.name))
		}
	}
	if c.Timing.ThemeSettle < 0 {
		errs = append(errs, errors.New("timing.theme_settle must not be negative"))
	}

	for i, v := range c.Styles.Variables {
		if !strings.HasPrefix(v, "--") {
			errs = append(errs, fmt.Errorf("styles.variables[%d]: %q is not a custom property", i, v))
		}
	}

	if err := ValidateTracing(c.Tracing); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(t TracingConfig) error {
	if !t.Enabled {
		return nil
	}
	switch t.Exporter {
	case "", "none", "stdout", "otlp":
	case "file":
		if t.FilePath == "" && DefaultTracesFilePath() == "" {
			return errors.New("tracing.file_path is required for the file exporter")
		}
	default:
		return fmt.Errorf("tracing.exporter %q is not one of none, file, stdout, otlp", t.Exporter)
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1], got %v", t.SampleRate)
	}
	return nil
}

// DefaultTracesFilePath returns ~/.config/panesync/traces/traces.jsonl or
// an empty string if the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "panesync", "traces", "traces.jsonl")
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# panesync configuration

# Device class: "full" or "compact". Compact devices use the shorter
# autosave interval and enable the drawer watcher.
device: full

autosave:
  enabled: true
  interval: 15s          # full-size devices
  compact_interval: 10s  # compact devices

timing:
  reload_delay: 2s       # delay before reloading resources after a pane switch
  recent_switch: 1s      # suppress duplicate side effects after a switch
  cross_mode_switch: 3s  # suppress competing saves after text -> canvas in another pane
  theme_settle: 50ms     # wait before re-theming after a theme toggle
  save_echo: 1s          # ignore file-modified events right after our own save

hotkeys:
  save_shortcut: mod+s

watchers:
  theme: true
  modal: true
  drawer: true
  file_list: false       # also requires flags.file-list-annotation

# styles:
#   variables: ["--background-primary", "--text-normal"]

storage:
  # root: /path/to/vault
  metadata_ttl: 5m

journal:
  enabled: true
  # path: /path/to/journal.db

# tracing:
#   enabled: true
#   exporter: file
#   file_path: ~/.config/panesync/traces/traces.jsonl

flags:
  file-list-annotation: false
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
