package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/rsmlwatch/internal/build"
	"github.com/mschirtzinger/rsmlwatch/internal/ui"
	"github.com/mschirtzinger/rsmlwatch/internal/vfs"
)

var buildCmd = &cobra.Command{
	Use:   "build <input>",
	Short: "Compile every style sheet once",
	Long: `Compile every .rsml file under the input directory and exit.

Stale artifacts whose source no longer exists are removed. Sheets that fail
to compile are reported and keep their previous artifact.

Example usage:
  rsml build src                  # Write artifacts next to the sources
  rsml build src -o out           # Mirror the tree into out/
  rsml build src --luaurc .luaurc # Use an explicit alias configuration`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := prepare(cmd, args)
		if err != nil {
			fail(err)
		}
		defer s.close()

		s.announce("Building")
		stats, err := runBuild(s)
		if err != nil {
			s.close()
			fail(err)
		}
		printSummary(s, stats)
	},
}

// runBuild performs one full pass over the input.
func runBuild(s *session) (build.Stats, error) {
	fsys, err := vfs.NewOS()
	if err != nil {
		return build.Stats{}, err
	}
	defer fsys.Close()

	ctx, err := s.newContext(fsys, nil)
	if err != nil {
		return build.Stats{}, err
	}
	if err := ctx.Initialize(); err != nil {
		return ctx.Stats(), err
	}
	return ctx.Stats(), nil
}

func printSummary(s *session, stats build.Stats) {
	summary := fmt.Sprintf("Built %d artifact(s), removed %d", stats.Compiled, stats.Removed)
	fmt.Fprintln(s.stdout, ui.RenderPass(summary))
	if stats.Failed > 0 {
		fmt.Fprintln(s.stdout, ui.RenderWarn(fmt.Sprintf("%d sheet(s) failed to compile", stats.Failed)))
	}
}

func init() {
	addBuildFlags(buildCmd)
	rootCmd.AddCommand(buildCmd)
}
