package quicktext

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"pkt.systems/pslog"
	"pkt.systems/quicktext/core"
	"pkt.systems/quicktext/internal/autosave"
	"pkt.systems/quicktext/internal/eventbus"
	"pkt.systems/quicktext/internal/host"
	"pkt.systems/quicktext/internal/persist"
	"pkt.systems/quicktext/schema"
)

// Config configures the application root.
type Config struct {
	Service schema.ServiceConfig
	Host    host.Config
}

// Deps captures the collaborators injected into the application root.
type Deps struct {
	// Store overrides the file-backed store opened under Service.StateDir.
	Store     *persist.Store
	Picker    host.Picker
	Confirmer core.Confirmer
	EventSink core.EventSink
	Fs        afero.Fs
	Logger    pslog.Logger
	GOOS      string
	Getenv    func(string) string
}

// StartResult reports what Start did.
type StartResult struct {
	Reconcile schema.ReconcileResult
	FirstRun  bool
}

// App owns the entry store, host adapter, registry, event bus and autosave
// scheduler for one editor process.
type App struct {
	cfg       schema.ServiceConfig
	store     *persist.Store
	ownsStore bool
	host      host.Adapter
	registry  core.Registry
	bus       *eventbus.Bus
	autosave  *autosave.Scheduler
	logger    pslog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	closed  bool
}

// New wires the application root. Nothing is read until Start.
func New(cfg Config, deps Deps) (*App, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	store := deps.Store
	ownsStore := false
	if store == nil {
		store, err = persist.NewStoreWithLogger(normalized.StateDir, logger)
		if err != nil {
			return nil, fmt.Errorf("open state: %w", err)
		}
		ownsStore = true
	}

	adapter, err := host.Select(cfg.Host, host.Deps{
		Store:  store,
		Picker: deps.Picker,
		Fs:     deps.Fs,
		Logger: logger,
		GOOS:   deps.GOOS,
		Getenv: deps.Getenv,
	})
	if err != nil {
		if ownsStore {
			_ = store.Close()
		}
		return nil, err
	}

	bus := eventbus.New(logger)
	var sink core.EventSink = bus
	if deps.EventSink != nil {
		sink = eventFanout{sinks: []core.EventSink{deps.EventSink, bus}}
	}

	registry, err := core.NewRegistry(normalized, core.RegistryDeps{
		Host:      adapter,
		Store:     store,
		EventSink: sink,
		Confirmer: deps.Confirmer,
	})
	if err != nil {
		if ownsStore {
			_ = store.Close()
		}
		return nil, err
	}

	app := &App{
		cfg:       normalized,
		store:     store,
		ownsStore: ownsStore,
		host:      adapter,
		registry:  registry,
		bus:       bus,
		logger:    logger,
	}
	app.autosave = autosave.New(app.saveSession, normalized.AutosaveInterval, logger)
	return app, nil
}

// Registry returns the session registry.
func (a *App) Registry() core.Registry { return a.registry }

// Host returns the selected host adapter.
func (a *App) Host() host.Adapter { return a.host }

// Store returns the entry store.
func (a *App) Store() *persist.Store { return a.store }

// Bus returns the registry event bus.
func (a *App) Bus() *eventbus.Bus { return a.bus }

// Autosave exposes the scheduler so callers can inject a ticker before Start.
func (a *App) Autosave() *autosave.Scheduler { return a.autosave }

// Start records the first run, reconciles the launch inputs and starts the
// autosave loop.
func (a *App) Start(ctx context.Context, req schema.LaunchRequest) (StartResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return StartResult{}, errors.New("app closed")
	}
	if a.started {
		a.mu.Unlock()
		a.logger.Warn("app start rejected", "reason", "already started")
		return StartResult{}, errors.New("app already started")
	}
	a.started = true
	a.mu.Unlock()

	ctx = pslog.ContextWithLogger(ctx, a.logger)
	firstRun, err := a.store.MarkInstalled(ctx)
	if err != nil {
		a.logger.Warn("app installed flag failed", "err", err)
	}

	result, err := a.registry.Reconcile(ctx, req)
	if err != nil {
		return StartResult{FirstRun: firstRun}, err
	}
	a.logger.Info("app start",
		"host", string(a.host.Kind()),
		"source", string(result.Source),
		"tabs", result.Tabs,
		"pruned", len(result.Pruned),
		"first_run", firstRun,
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	a.mu.Lock()
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()
	go func() {
		defer close(done)
		a.autosave.Run(runCtx)
	}()

	return StartResult{Reconcile: result, FirstRun: firstRun}, nil
}

// Hide requests a snapshot save, as when the window is hidden.
func (a *App) Hide() {
	a.autosave.Hide()
}

// SaveSession writes the current snapshot immediately.
func (a *App) SaveSession(ctx context.Context) error {
	return a.saveSession(ctx, autosave.ReasonInterval)
}

func (a *App) saveSession(ctx context.Context, _ autosave.Reason) error {
	return a.store.SaveSessionSnapshot(ctx, a.registry.Snapshot(ctx))
}

// CloseWindow prompts for every unsaved tab and closes the app when the
// user does not cancel. It reports whether the app closed.
func (a *App) CloseWindow(ctx context.Context) (bool, error) {
	proceed, err := a.registry.PromptAllUnsaved(ctx, nil)
	if err != nil || !proceed {
		return false, err
	}
	if err := a.Close(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Close stops autosave, writes the teardown snapshot, retains the open files
// and releases the store. It is safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	cancel := a.cancel
	done := a.done
	started := a.started
	a.mu.Unlock()

	log := a.logger
	log.Info("app stop requested")
	if cancel != nil {
		cancel()
		<-done
	}

	var errs []error
	if started {
		ctx = pslog.ContextWithLogger(ctx, log)
		if err := a.autosave.Flush(ctx, autosave.ReasonTeardown); err != nil {
			errs = append(errs, fmt.Errorf("teardown snapshot: %w", err))
		}
		if err := a.registry.RetainOpenFiles(ctx); err != nil {
			log.Warn("app retention failed", "err", err)
			errs = append(errs, fmt.Errorf("retain open files: %w", err))
		}
	}
	if a.ownsStore {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close state: %w", err))
		}
	}
	if len(errs) == 0 {
		log.Info("app stopped")
	}
	return errors.Join(errs...)
}
