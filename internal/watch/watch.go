// Package watch runs the background loop that feeds file system events to
// the build orchestrator.
//
// The loop owns the orchestrator once started. It drains the event stream
// in delivery order, one event at a time, so the orchestrator never sees
// concurrent calls. Events arriving during a short settle window after
// Start are dropped: they are echoes of the artifacts written by the
// initial build.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mschirtzinger/rsmlwatch/internal/vfs"
)

// ErrSourceClosed is returned by Wait when the event source closed its
// channels. It is the only way the loop ends on its own.
var ErrSourceClosed = errors.New("event source closed")

// DefaultSettle is how long events are ignored after Start.
const DefaultSettle = 200 * time.Millisecond

// Source delivers file system events.
type Source interface {
	Events() <-chan vfs.Event
	Errors() <-chan error
}

// Handler consumes events. *build.Context implements it.
type Handler interface {
	HandleEvent(ev vfs.Event) error
	// Resync rebuilds everything after the source reported lost events.
	Resync() error
}

// Config holds configuration for the watcher.
type Config struct {
	// Settle is the window after Start during which events are dropped.
	Settle time.Duration

	// Logger for watcher activity
	Logger *log.Logger

	// Now is the clock used for the settle window.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settle: DefaultSettle,
		Logger: log.New(os.Stderr, "[watch] ", log.LstdFlags),
		Now:    time.Now,
	}
}

// Watcher forwards events from a Source to a Handler on one goroutine.
type Watcher struct {
	source  Source
	handler Handler
	config  *Config

	// shutdown holds at most one pending stop request.
	shutdown chan struct{}

	mu      sync.Mutex
	group   *errgroup.Group
	started bool

	handled  atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
	resynced atomic.Int64
}

// New creates a Watcher. A nil config uses DefaultConfig; zero fields of a
// partial config fall back to the defaults.
func New(source Source, handler Handler, config *Config) (*Watcher, error) {
	if source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if config.Settle < 0 {
		config.Settle = 0
	}

	return &Watcher{
		source:   source,
		handler:  handler,
		config:   config,
		shutdown: make(chan struct{}, 1),
	}, nil
}

// Start launches the loop. It returns immediately; the loop runs until
// Stop is called, ctx is cancelled or the source closes its channels.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher already started")
	}
	w.started = true

	var g *errgroup.Group
	g, ctx = errgroup.WithContext(ctx)
	w.group = g

	settleUntil := w.config.Now().Add(w.config.Settle)
	g.Go(func() error {
		return w.loop(ctx, settleUntil)
	})
	return nil
}

// Stop asks the loop to finish and waits for it. It never blocks on the
// request itself and may be called more than once.
func (w *Watcher) Stop() error {
	select {
	case w.shutdown <- struct{}{}:
	default:
	}
	return w.Wait()
}

// Wait blocks until the loop has exited and returns why it did. A loop
// ended by Stop or by cancelling the context returns nil.
func (w *Watcher) Wait() error {
	w.mu.Lock()
	g := w.group
	w.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}

// Handled returns how many events were passed to the handler.
func (w *Watcher) Handled() int64 { return w.handled.Load() }

// Dropped returns how many events fell inside the settle window.
func (w *Watcher) Dropped() int64 { return w.dropped.Load() }

// Failed returns how many events made the handler return an error.
func (w *Watcher) Failed() int64 { return w.failed.Load() }

// Resynced returns how many full rebuilds lost events triggered.
func (w *Watcher) Resynced() int64 { return w.resynced.Load() }

func (w *Watcher) loop(ctx context.Context, settleUntil time.Time) error {
	logger := w.config.Logger
	events := w.source.Events()
	errs := w.source.Errors()

	for {
		select {
		case <-w.shutdown:
			logger.Println("Watcher stopped")
			return nil

		case <-ctx.Done():
			logger.Println("Watcher cancelled")
			return nil

		case ev, ok := <-events:
			if !ok {
				logger.Println("Event stream closed")
				return ErrSourceClosed
			}

			if w.config.Now().Before(settleUntil) {
				w.dropped.Add(1)
				continue
			}

			w.handled.Add(1)
			if err := w.handler.HandleEvent(ev); err != nil {
				// The pass is lost but the next edit gets a fresh one.
				w.failed.Add(1)
				logger.Printf("Error handling %s %s: %v", ev.Op, ev.Path, err)
			}

		case err, ok := <-errs:
			if !ok {
				logger.Println("Error stream closed")
				return ErrSourceClosed
			}
			if errors.Is(err, vfs.ErrOverflow) {
				logger.Printf("Events were lost, rebuilding everything: %v", err)
				w.resynced.Add(1)
				if err := w.handler.Resync(); err != nil {
					logger.Printf("Error rebuilding: %v", err)
				}
				continue
			}
			// Source errors are transient; the stream keeps going.
			logger.Printf("Watcher error: %v", err)
		}
	}
}
