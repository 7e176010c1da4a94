package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zjrosen/panesync/internal/log"
	"github.com/zjrosen/panesync/internal/scenario"
)

var (
	replayShowFiles bool
	replayDir       string
	replayVerbose   bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml>",
	Short: "Replay a scripted session against the engine and print what happened",
	Long: `Replay a scenario file on a fake clock and print one line per
notification, suppressed text save or unhandled key.

The scenario's files are written to a scratch directory (or --dir) before
the first step runs.

Example scenario:

  files:
    board.md: |
      ---
      canvas-plugin: parsed
      ---
      - first
  steps:
    - open: {pane: p1, path: board.md}
    - focus: p1
    - edit: p1
    - advance: 20s`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayShowFiles, "files", false, "print every document after the run")
	replayCmd.Flags().StringVar(&replayDir, "dir", "", "directory to replay in (default: a scratch directory that is removed afterwards)")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "log engine activity to stderr")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	if replayVerbose {
		log.InitWriter(cmd.ErrOrStderr())
	}

	dir := replayDir
	if dir == "" {
		dir, err = os.MkdirTemp("", "panesync-replay-*")
		if err != nil {
			return fmt.Errorf("creating scratch directory: %w", err)
		}
		defer func() { _ = os.RemoveAll(dir) }()
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	runCfg := cfg
	runCfg.Storage.Root = dir
	res, err := scenario.Run(cmd.Context(), sc, runCfg)
	if res != nil {
		out := cmd.OutOrStdout()
		for _, r := range res.Records {
			fmt.Fprintln(out, r.String())
		}
		if replayShowFiles {
			names := make([]string, 0, len(res.Files))
			for name := range res.Files {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				fmt.Fprintf(out, "\n== %s ==\n%s", name, res.Files[name])
			}
		}
	}
	return err
}
