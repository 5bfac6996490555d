package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/rsmlwatch/internal/aliases"
	"github.com/mschirtzinger/rsmlwatch/internal/build"
	"github.com/mschirtzinger/rsmlwatch/internal/config"
	"github.com/mschirtzinger/rsmlwatch/internal/logging"
	"github.com/mschirtzinger/rsmlwatch/internal/pathutil"
	"github.com/mschirtzinger/rsmlwatch/internal/ui"
	"github.com/mschirtzinger/rsmlwatch/internal/vfs"
)

// session is the resolved state shared by build and watch.
type session struct {
	settings *config.Settings
	input    string
	output   string
	luaurc   aliases.Source

	logs   *logging.Output
	logw   io.Writer
	stdout io.Writer
}

// prepare validates the command line and loads settings. It performs no
// writes, so a configuration error leaves the file system untouched.
func prepare(cmd *cobra.Command, args []string) (*session, error) {
	input, err := pathutil.Resolve(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", build.ErrInputMissing, args[0])
	}
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", build.ErrInputMissing, input)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", build.ErrNotDirectory, input)
	}

	settings, err := config.Load(input, cmd.Flags())
	if err != nil {
		return nil, err
	}

	var output string
	if settings.Output != "" {
		output, err = filepath.Abs(settings.Output)
		if err != nil {
			return nil, fmt.Errorf("invalid output directory %s: %w", settings.Output, err)
		}
		if info, err := os.Stat(output); err == nil && !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", build.ErrNotDirectory, output)
		}
	}

	luaurc, err := aliases.Locate(input, settings.Luaurc)
	if err != nil {
		return nil, err
	}

	s := &session{
		settings: settings,
		input:    input,
		output:   output,
		luaurc:   luaurc,
		logs:     logging.Open(settings.LogFile),
		stdout:   cmd.OutOrStdout(),
	}
	// A log file receives everything; --quiet only silences stderr.
	s.logw = s.logs
	if settings.LogFile == "" {
		s.logw = logging.Quiet(s.logs, settings.Quiet)
	}
	if settings.Quiet {
		s.stdout = io.Discard
	}

	ui.Setup(ui.UseColor(settings.Color, os.Stdout))
	return s, nil
}

// outputRoot is where artifacts go.
func (s *session) outputRoot() string {
	if s.output == "" {
		return s.input
	}
	return s.output
}

func (s *session) newContext(fsys vfs.FS, observer build.Observer) (*build.Context, error) {
	return build.New(build.Options{
		InputRoot:  s.input,
		OutputRoot: s.output,
		ConfigPath: s.luaurc.Path,
		Ignore:     s.settings.Ignore,
		FS:         fsys,
		Logger:     logging.New("build", s.logw),
		Observer:   observer,
	})
}

// announce prints the roots and where the alias configuration came from.
func (s *session) announce(verb string) {
	fmt.Fprintf(s.stdout, "%s %s -> %s\n", ui.RenderAccent(verb), ui.RenderPath(s.input), ui.RenderPath(s.outputRoot()))

	switch s.luaurc.Origin {
	case aliases.OriginExplicit:
		fmt.Fprintf(s.stdout, "Using alias configuration %s\n", ui.RenderPath(s.luaurc.Path))
	case aliases.OriginDiscovered:
		fmt.Fprintf(s.stdout, "Found alias configuration %s\n", ui.RenderPath(s.luaurc.Path))
	default:
		fmt.Fprintln(s.stdout, ui.RenderWarn("No alias configuration found, aliases are disabled"))
	}
	if s.settings.File != "" {
		fmt.Fprintf(s.stdout, "Loaded settings from %s\n", ui.RenderPath(s.settings.File))
	}
}

func (s *session) close() {
	_ = s.logs.Close()
}

// fail prints err and exits with status 1.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
	os.Exit(1)
}
