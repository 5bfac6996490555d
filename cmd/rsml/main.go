package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rsml",
	Short: "Incremental compiler for RSML style sheets",
	Long: `rsml compiles .rsml style sheets into .model.json StyleSheet instances
that Rojo can sync into a place.

Sheets may derive from other sheets, directly or through aliases declared in
a .luaurc file. In watch mode rsml keeps track of those relationships and
rebuilds exactly the sheets affected by each change.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.Version = Version

	if err := rootCmd.Execute(); err != nil {
		fail(err)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to a rotated file instead of stderr")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().String("color", "auto", "Colorize output (auto|on|off)")
}

// addBuildFlags registers the flags shared by build and watch.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output directory (default: next to the sources)")
	cmd.Flags().String("luaurc", "", "Alias configuration file (default: discovered)")
	cmd.Flags().StringSlice("ignore", nil, "Glob of paths to skip, relative to the input (repeatable)")
}
