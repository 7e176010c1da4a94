package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/log"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const localConfigPath = ".panesync/config.yaml"

var (
	version  = "dev"
	cfgFile  string
	debug    bool
	cfg      config.Config
	logClose func()
)

var rootCmd = &cobra.Command{
	Use:   "panesync",
	Short: "Keep canvas and text panes of the same documents in sync",
	Long: `panesync coordinates canvas and text views of markdown documents across
panes and windows: it autosaves, saves on focus changes, reloads after
external edits and broadcasts theme styles into popout windows.

Run without a subcommand to open the terminal workspace in the current
directory.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logClose != nil {
			logClose()
			logClose = nil
		}
	},
	Args: cobra.MaximumNArgs(1),
	RunE: runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .panesync/config.yaml, then ~/.config/panesync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"write debug logs to debug.log (also PANESYNC_DEBUG=1)")
}

func initConfig() {
	viper.Reset()
	setDefaults(config.Defaults())
	viper.SetEnvPrefix("panesync")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .panesync/config.yaml (current directory)
		// 2. ~/.config/panesync/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "panesync"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// Missing config files are fine; everything has a default.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "panesync: reading config: %v\n", err)
		}
	}

	cfg = config.Defaults()
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "panesync: decoding config: %v\n", err)
	}
}

// setDefaults registers every default with viper so environment variables
// and partial config files layer over them.
func setDefaults(d config.Config) {
	viper.SetDefault("device", d.Device)
	viper.SetDefault("autosave.enabled", d.Autosave.Enabled)
	viper.SetDefault("autosave.interval", d.Autosave.Interval)
	viper.SetDefault("autosave.compact_interval", d.Autosave.CompactInterval)
	viper.SetDefault("timing.reload_delay", d.Timing.ReloadDelay)
	viper.SetDefault("timing.recent_switch", d.Timing.RecentSwitch)
	viper.SetDefault("timing.cross_mode_switch", d.Timing.CrossModeSwitch)
	viper.SetDefault("timing.theme_settle", d.Timing.ThemeSettle)
	viper.SetDefault("timing.save_echo", d.Timing.SaveEcho)
	viper.SetDefault("hotkeys.save_shortcut", d.Hotkeys.SaveShortcut)
	viper.SetDefault("watchers.theme", d.Watchers.Theme)
	viper.SetDefault("watchers.modal", d.Watchers.Modal)
	viper.SetDefault("watchers.drawer", d.Watchers.Drawer)
	viper.SetDefault("watchers.file_list", d.Watchers.FileList)
	viper.SetDefault("storage.metadata_ttl", d.Storage.MetadataTTL)
	viper.SetDefault("journal.enabled", d.Journal.Enabled)
	viper.SetDefault("tracing.enabled", d.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", d.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

func setupLogging(*cobra.Command, []string) error {
	if !debug && os.Getenv("PANESYNC_DEBUG") == "" {
		return nil
	}
	closeFn, err := log.Init("debug.log")
	if err != nil {
		return fmt.Errorf("initializing debug log: %w", err)
	}
	logClose = closeFn
	debug = true
	log.Info(log.CatConfig, "Debug logging enabled", "config", viper.ConfigFileUsed())
	return nil
}

// configPath returns the file config writes go to: the loaded config file,
// or the local default.
func configPath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	return localConfigPath
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
