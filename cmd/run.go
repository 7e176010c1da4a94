package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/panesync/internal/app"
	"github.com/zjrosen/panesync/internal/config"
	"github.com/zjrosen/panesync/internal/session"
	"github.com/zjrosen/panesync/internal/simhost"
)

// defaultPaneCount is how many documents open when --open is not given.
const defaultPaneCount = 2

var openPaths []string

var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Open the terminal workspace over a directory of markdown documents",
	Long: `Open the terminal workspace over dir (default: the configured storage
root, or the current directory).

Documents whose frontmatter carries "canvas-plugin: parsed" open as canvas
views; everything else opens as text. External edits are picked up by the
file watcher.

Examples:
  panesync run
  panesync run ~/vault --open board.md --open notes.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApp,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().StringArrayVarP(&openPaths, "open", "o", nil,
			"document to open in a pane, relative to the root (repeatable)")
	}
	rootCmd.AddCommand(runCmd)
}

// resolveRoot picks the storage root: the argument, then the config, then
// the current directory.
func resolveRoot(c config.Config, args []string) (string, error) {
	root := c.Storage.Root
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		root = wd
	}
	return filepath.Abs(root)
}

func runApp(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(cfg, args)
	if err != nil {
		return err
	}
	runCfg := cfg
	runCfg.Storage.Root = root
	if err := config.Validate(runCfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sess, err := session.Open(ctx, runCfg, session.Options{Watch: true})
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}

	if err := openInitialPanes(ctx, sess, openPaths); err != nil {
		_ = sess.Close(ctx)
		return err
	}

	model := app.New(ctx, sess, debug)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()

	model.Close()
	if closeErr := sess.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// openInitialPanes opens paths, or the first documents under the root when
// paths is empty.
func openInitialPanes(ctx context.Context, sess *session.Session, paths []string) error {
	if len(paths) == 0 {
		docs, err := sess.Store.List(ctx)
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}
		paths = docs[:min(len(docs), defaultPaneCount)]
	}
	for _, p := range paths {
		if _, err := sess.Store.Read(ctx, p); err != nil {
			return fmt.Errorf("opening %s: %w", p, err)
		}
		if _, err := sess.OpenPane(ctx, simhost.MainWindow, p); err != nil {
			return fmt.Errorf("opening %s: %w", p, err)
		}
	}
	return nil
}
