package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/rsmlwatch/internal/build"
	"github.com/mschirtzinger/rsmlwatch/internal/config"
	"github.com/mschirtzinger/rsmlwatch/internal/logging"
	"github.com/mschirtzinger/rsmlwatch/internal/notify"
	"github.com/mschirtzinger/rsmlwatch/internal/pathutil"
	"github.com/mschirtzinger/rsmlwatch/internal/ui"
	"github.com/mschirtzinger/rsmlwatch/internal/vfs"
	"github.com/mschirtzinger/rsmlwatch/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <input>",
	Short: "Compile style sheets and rebuild them as they change",
	Long: `Compile every .rsml file under the input directory, then keep watching it.

Each change rebuilds the edited sheet and every sheet that derives from it,
directly or transitively. Editing the alias configuration rebuilds exactly
the sheets that used an alias whose target changed. Deleting a sheet or a
directory removes the corresponding artifacts.

With --serve, a WebSocket endpoint sends one message per rebuild:
- hello: The roots and totals so far, sent on connect
- rebuild: The artifacts written and removed, the sheets that failed and
  the aliases that changed during one pass

Example usage:
  rsml watch src                       # Write artifacts next to the sources
  rsml watch src -o out                # Mirror the tree into out/
  rsml watch src --serve localhost:7878

Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := prepare(cmd, args)
		if err != nil {
			fail(err)
		}
		defer s.close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := runWatch(ctx, s); err != nil {
			s.close()
			fail(err)
		}
	},
}

// runWatch builds the tree, registers the watches and processes events
// until ctx is cancelled or the event source closes.
func runWatch(ctx context.Context, s *session) error {
	fsys, err := vfs.NewOS()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsys.Close()

	observers := build.Multi{consoleObserver{w: s.stdout, input: s.input}}

	var server *notify.Server
	if s.settings.Serve != "" {
		server = notify.NewServer(&notify.Config{
			Addr:   s.settings.Serve,
			Logger: logging.New("notify", s.logw),
		})
		observers = append(observers, notify.NewNotifier(server, s.input, s.outputRoot()))
		if err := server.Start(); err != nil {
			return err
		}
		defer server.Stop()
	}

	bc, err := s.newContext(fsys, observers)
	if err != nil {
		return err
	}

	s.announce("Watching")
	if server != nil {
		fmt.Fprintf(s.stdout, "Notifications on %s\n", ui.RenderPath("ws://"+server.Addr()+"/ws"))
	}

	if err := bc.Initialize(); err != nil {
		return err
	}
	printSummary(s, bc.Stats())

	// Register after the initial build; its own writes never reach the queue.
	if err := fsys.Watch(s.input); err != nil {
		return err
	}
	if path := s.luaurc.Path; path != "" && !pathutil.HasPrefix(path, s.input) {
		if err := fsys.Watch(path); err != nil {
			return err
		}
	}

	w, err := watch.New(fsys, bc, &watch.Config{
		Settle: s.settings.Settle,
		Logger: logging.New("watch", s.logw),
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.stdout, "Press Ctrl+C to stop...")

	done := make(chan error, 1)
	go func() { done <- w.Wait() }()

	select {
	case <-ctx.Done():
		fmt.Fprintln(s.stdout, "\nShutting down...")
		err = w.Stop()
	case err = <-done:
	}
	printWatchSummary(s, w)
	return err
}

func printWatchSummary(s *session, w *watch.Watcher) {
	fmt.Fprintf(s.stdout, "Handled %d event(s), ignored %d during startup\n", w.Handled(), w.Dropped())
	if n := w.Failed(); n > 0 {
		fmt.Fprintln(s.stdout, ui.RenderWarn(fmt.Sprintf("%d event(s) failed", n)))
	}
	if n := w.Resynced(); n > 0 {
		fmt.Fprintln(s.stdout, ui.RenderWarn(fmt.Sprintf("Rebuilt everything %d time(s) after lost events", n)))
	}
}

// consoleObserver prints compile failures so they stand out from the log.
type consoleObserver struct {
	build.NopObserver
	w     io.Writer
	input string
}

func (o consoleObserver) CompileFailed(src string, err error) {
	rel, ok := pathutil.Relative(src, o.input)
	if !ok {
		rel = src
	}
	fmt.Fprintf(o.w, "%s %s: %v\n", ui.RenderFail("✗"), ui.RenderPath(rel), err)
}

func init() {
	addBuildFlags(watchCmd)
	watchCmd.Flags().Duration(config.KeySettle, watch.DefaultSettle, "Ignore events for this long after the initial build")
	watchCmd.Flags().String(config.KeyServe, "", "Serve rebuild notifications over WebSocket on this address")
	rootCmd.AddCommand(watchCmd)
}
