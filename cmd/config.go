package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/flags"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration file",
	Long: `Write the commented default configuration to path
(default: .panesync/config.yaml). Existing files are kept unless --force.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := localConfigPath
		if len(args) > 0 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := yaml.Marshal(effectiveConfig(cfg))
		if err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var configWatchersCmd = &cobra.Command{
	Use:   "watchers",
	Short: "Enable or disable individual UI-event watchers in the config file",
	Long: `Enable or disable UI-event watchers. Watchers not named keep their
current value.

Example:
  panesync config watchers --drawer=false --file-list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cfg.Watchers
		fs := cmd.Flags()
		for name, dst := range map[string]*bool{
			"theme":     &w.Theme,
			"modal":     &w.Modal,
			"drawer":    &w.Drawer,
			"file-list": &w.FileList,
		} {
			if fs.Changed(name) {
				v, _ := fs.GetBool(name)
				*dst = v
			}
		}
		path := configPath()
		if err := config.SaveWatchers(path, w); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "theme=%t modal=%t drawer=%t file_list=%t (%s)\n",
			w.Theme, w.Modal, w.Drawer, w.FileList, path)
		return nil
	},
}

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "List feature flags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		all := flags.New(cfg.Flags).All()
		names := make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%-22s %t\n", name, all[name])
		}
		return nil
	},
}

var flagsSetCmd = &cobra.Command{
	Use:   "set <flag> <true|false>",
	Short: "Enable or disable a feature flag in the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, known := flags.Defaults()[name]; !known {
			return fmt.Errorf("unknown flag %q", name)
		}
		enabled, err := strconv.ParseBool(args[1])
		if err != nil {
			return errors.New("value must be true or false")
		}
		path := configPath()
		if err := config.SaveFlag(path, name, enabled); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %t (%s)\n", name, enabled, path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	for _, name := range []string{"theme", "modal", "drawer", "file-list"} {
		configWatchersCmd.Flags().Bool(name, false, "enable the "+name+" watcher")
	}
	configCmd.AddCommand(configInitCmd, configShowCmd, configWatchersCmd)
	flagsCmd.AddCommand(flagsSetCmd)
	rootCmd.AddCommand(configCmd, flagsCmd)
}

// effectiveConfig is the config as YAML would spell it, with durations as
// strings and flags merged over their defaults.
func effectiveConfig(c config.Config) map[string]any {
	return map[string]any{
		"device": c.Device,
		"autosave": map[string]any{
			"enabled":          c.Autosave.Enabled,
			"interval":         c.Autosave.Interval.String(),
			"compact_interval": c.Autosave.CompactInterval.String(),
		},
		"timing": map[string]any{
			"reload_delay":      c.Timing.ReloadDelay.String(),
			"recent_switch":     c.Timing.RecentSwitch.String(),
			"cross_mode_switch": c.Timing.CrossModeSwitch.String(),
			"theme_settle":      c.Timing.ThemeSettle.String(),
			"save_echo":         c.Timing.SaveEcho.String(),
		},
		"hotkeys": map[string]any{"save_shortcut": c.Hotkeys.SaveShortcut},
		"watchers": map[string]any{
			"theme":     c.Watchers.Theme,
			"modal":     c.Watchers.Modal,
			"drawer":    c.Watchers.Drawer,
			"file_list": c.Watchers.FileList,
		},
		"storage": map[string]any{
			"root":         c.Storage.Root,
			"metadata_ttl": c.Storage.MetadataTTL.String(),
		},
		"journal": map[string]any{
			"enabled": c.Journal.Enabled,
			"path":    c.JournalPath(),
		},
		"tracing": map[string]any{
			"enabled":  c.Tracing.Enabled,
			"exporter": c.Tracing.Exporter,
		},
		"flags": flags.New(c.Flags).All(),
	}
}
