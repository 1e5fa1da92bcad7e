// Package app wires the process reader, snapshot builder, and trace manager
// into the single facade the CLI and TUI talk to.
package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"stdutil/internal/config"
	"stdutil/internal/procfs"
	"stdutil/internal/snapshot"
	"stdutil/internal/trace"
)

// Options configures the facade.
type Options struct {
	Config config.Config
	Logger *log.Logger
}

// Update is one completed refresh, published to the view layer.
type Update struct {
	Snapshot *snapshot.Snapshot
	Diff     snapshot.Diff
	Err      error
}

// App owns the two pieces of long-lived state: the current snapshot and the
// current trace session. Both are replaced atomically, never mutated in
// place.
type App struct {
	cfg     config.Config
	log     *log.Logger
	reader  *procfs.Reader
	builder *snapshot.Builder
	traces  *trace.Manager

	mu      sync.RWMutex
	current *snapshot.Snapshot

	updates  chan Update
	kick     chan struct{}
	inFlight atomic.Bool
}

// New constructs the facade from config.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg := opts.Config
	reader := procfs.NewReader(cfg.ProcRoot, cfg.MaxFDs, cfg.MaxMaps)
	return &App{
		cfg:     cfg,
		log:     logger,
		reader:  reader,
		builder: snapshot.NewBuilder(reader, cfg.Workers, cfg.ReadTimeout),
		traces:  trace.NewManager(cfg.TracerPath, cfg.RingCapacity, cfg.KillGrace),
		updates: make(chan Update, 4),
		kick:    make(chan struct{}, 1),
	}
}

// Reader exposes the underlying process reader for one-shot commands.
func (a *App) Reader() *procfs.Reader { return a.reader }

// Run drives the refresh tick until ctx is cancelled, then tears down any
// active trace session. A refresh still in flight when the next tick fires
// is skipped, not queued, so at most one refresh runs at a time.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.RefreshInterval)
	defer ticker.Stop()

	a.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			a.traces.Stop()
			return ctx.Err()
		case <-ticker.C:
			a.refresh(ctx)
		case <-a.kick:
			a.refresh(ctx)
		}
	}
}

func (a *App) refresh(ctx context.Context) {
	if !a.inFlight.CompareAndSwap(false, true) {
		a.log.Debug("refresh still in flight, skipping tick")
		return
	}
	go func() {
		defer a.inFlight.Store(false)
		snap, diff, err := a.builder.Refresh(ctx, a.Current())
		if err != nil {
			// Losing the process table entirely is the one fatal condition;
			// surface it to the view instead of freezing silently.
			a.log.Error("refresh failed", "err", err)
			a.publish(Update{Err: err})
			return
		}
		a.mu.Lock()
		a.current = snap
		a.mu.Unlock()
		a.publish(Update{Snapshot: snap, Diff: diff})
	}()
}

// publish never blocks the refresh loop: when the consumer lags, the oldest
// pending update is dropped in favor of the newest.
func (a *App) publish(u Update) {
	for {
		select {
		case a.updates <- u:
			return
		default:
			select {
			case <-a.updates:
			default:
			}
		}
	}
}

// Updates is the stream of completed refreshes.
func (a *App) Updates() <-chan Update { return a.updates }

// Current returns the most recently published snapshot, or nil before the
// first refresh completes.
func (a *App) Current() *snapshot.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// RefreshNow requests an immediate refresh without waiting for the tick.
func (a *App) RefreshNow() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

// RefreshOnce performs a single synchronous refresh, for one-shot commands
// that run without the background loop.
func (a *App) RefreshOnce(ctx context.Context) (*snapshot.Snapshot, snapshot.Diff, error) {
	snap, diff, err := a.builder.Refresh(ctx, a.Current())
	if err != nil {
		return nil, snapshot.Diff{}, err
	}
	a.mu.Lock()
	a.current = snap
	a.mu.Unlock()
	return snap, diff, nil
}

// StartTrace attaches the tracer to pid, replacing any active session.
func (a *App) StartTrace(pid procfs.PID) error {
	a.log.Info("starting trace", "pid", int(pid))
	_, err := a.traces.Start(pid)
	if err != nil {
		a.log.Error("trace start failed", "pid", int(pid), "err", err)
	}
	return err
}

// StopTrace tears down the active session, if any.
func (a *App) StopTrace() {
	a.traces.Stop()
}

// PollTrace drains newly captured trace lines.
func (a *App) PollTrace() []string {
	return a.traces.Poll()
}

// TraceSession returns the current session or nil.
func (a *App) TraceSession() *trace.Session {
	return a.traces.Session()
}
