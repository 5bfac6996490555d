package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/mschirtzinger/rsmlwatch/internal/ui"
)

// Set with -ldflags "-X main.Version=v1.2.3 -X main.Commit=abc123".
var (
	Version = "v0.4.0"
	Commit  = ""
)

type versionPayload struct {
	Tool    string `json:"tool"`
	Version string `json:"version"`
	Release bool   `json:"release"`
	Commit  string `json:"commit,omitempty"`
	Go      string `json:"go"`
}

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(versionFormat)
		switch format {
		case "pretty", "json":
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}

		payload := collectVersion(Version, Commit)
		if format == "json" {
			return renderVersionJSON(cmd.OutOrStdout(), payload)
		}
		renderVersionPretty(cmd.OutOrStdout(), payload)
		return nil
	},
}

// collectVersion normalizes version to canonical semver. A version that is
// not valid semver is reported as a development build.
func collectVersion(version, commit string) versionPayload {
	p := versionPayload{Tool: "rsml", Version: version, Commit: commit, Go: runtime.Version()}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if semver.IsValid(version) {
		p.Version = semver.Canonical(version)
		p.Release = semver.Prerelease(version) == "" && semver.Build(version) == ""
	}
	return p
}

func renderVersionJSON(w io.Writer, p versionPayload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func renderVersionPretty(w io.Writer, p versionPayload) {
	fmt.Fprintf(w, "%s %s", ui.RenderAccent(p.Tool), p.Version)
	if !p.Release {
		fmt.Fprint(w, ui.RenderWarn(" (development build)"))
	}
	fmt.Fprintln(w)
	if p.Commit != "" {
		fmt.Fprintf(w, "commit %s\n", p.Commit)
	}
	fmt.Fprintf(w, "built with %s\n", p.Go)
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "Output format (pretty|json)")
	rootCmd.AddCommand(versionCmd)
}
