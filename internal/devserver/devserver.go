package devserver

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/alfycore/veko/internal/config"
	"github.com/alfycore/veko/internal/constants"
	"github.com/alfycore/veko/internal/observability"
	"github.com/alfycore/veko/internal/router"
	"github.com/alfycore/veko/internal/view"
)

// Engine owns the development pipeline: filesystem watcher, reload
// coordinator, and live reload hub. The HTTP server keeps serving from
// the shared route store whether or not the engine runs; losing the
// push-protocol listener only costs the browser refreshes.
type Engine struct {
	cfg     *config.Config
	store   *router.Store
	views   *view.Cache
	layouts *view.LayoutCache
	logger  *zap.Logger
	metrics *observability.Metrics

	watcher     *Watcher
	coordinator *Coordinator
	hub         *Hub

	mu      sync.Mutex
	wsPort  int
	started bool
}

// NewEngine creates the engine around the shared route store and
// template caches. Setup starts it.
func NewEngine(
	cfg *config.Config,
	store *router.Store,
	views *view.Cache,
	layouts *view.LayoutCache,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   store,
		views:   views,
		layouts: layouts,
		logger:  logger,
		metrics: metrics,
	}
}

// Setup negotiates the push-protocol port, starts the listener, and
// begins watching the configured roots. Port exhaustion disables the
// live reload path only; an unwatchable root is skipped, not fatal.
func (e *Engine) Setup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errors.New("dev engine already started")
	}

	var broadcaster Broadcaster = noopBroadcaster{}

	port, err := FindAvailablePort(e.cfg.Dev.WSPort, constants.PortProbeAttempts)
	if err != nil {
		var exhausted *PortExhaustionError
		if !errors.As(err, &exhausted) {
			return fmt.Errorf("negotiating live reload port: %w", err)
		}
		e.logger.Error("No free live reload port, continuing without browser push",
			zap.Int("start", exhausted.Start),
			zap.Int("attempts", exhausted.Attempts))
	} else {
		e.wsPort = port
		e.hub = NewHub(e.cfg.Dev.Prefetch, e.logger, e.metrics)
		e.hub.RoutesFunc = e.prefetchRoutes
		e.hub.Serve(fmt.Sprintf("%s:%d", e.cfg.Server.Host, port))
		broadcaster = e.hub
	}

	watcher, err := NewWatcher(e.logger)
	if err != nil {
		if e.hub != nil {
			e.hub.Shutdown()
		}
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	e.watcher = watcher

	for _, root := range e.cfg.WatchRoots() {
		if err := e.watcher.AddRoot(root); err != nil {
			e.logger.Warn("Cannot watch root, skipping",
				zap.String("root", root),
				zap.Error(err))
		}
	}

	e.coordinator = NewCoordinator(
		e.watcher.Events(),
		e.store,
		e.views,
		e.layouts,
		broadcaster,
		ClassifierConfig{
			RoutesDir:   e.cfg.App.RoutesDir,
			ViewsDir:    e.cfg.App.ViewsDir,
			LayoutsDir:  e.cfg.App.Layouts.LayoutsDir,
			TemplateExt: e.cfg.App.Layouts.Extension,
		},
		e.cfg.Dev.Debounce,
		e.logger,
		e.metrics,
	)

	e.watcher.Start()
	e.coordinator.Start()
	e.started = true

	e.logger.Info("Dev engine running",
		zap.Strings("roots", e.cfg.WatchRoots()),
		zap.Int("ws_port", e.wsPort),
		zap.Bool("live_reload", e.hub != nil))
	return nil
}

// Stop tears the pipeline down in dependency order. Idempotent and
// safe before Setup.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.started = false

	e.watcher.Stop()
	e.coordinator.Stop()
	if e.hub != nil {
		e.hub.Shutdown()
	}
	e.logger.Info("Dev engine stopped")
}

// Broadcaster returns the frame sink for the engine. Always non-nil;
// without a listener frames are discarded.
func (e *Engine) Broadcaster() Broadcaster {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hub != nil {
		return e.hub
	}
	return noopBroadcaster{}
}

// WSPort returns the negotiated listener port, or 0 when the push
// protocol is disabled.
func (e *Engine) WSPort() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wsPort
}

// LiveReloadActive reports whether browsers can receive push frames.
func (e *Engine) LiveReloadActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hub != nil
}

// prefetchRoutes lists externally navigable paths. Administrative
// endpoints and parameterized routes are excluded; the browser cannot
// guess parameter values.
func (e *Engine) prefetchRoutes() []string {
	var out []string
	for _, rt := range e.store.Current().Routes() {
		if rt.IsParameterized() {
			continue
		}
		if internalPath(rt.Path) {
			continue
		}
		out = append(out, rt.Path)
	}
	return out
}

func internalPath(p string) bool {
	switch p {
	case constants.PathHealth, constants.PathReady, constants.PathMetrics:
		return true
	}
	return len(p) >= len(constants.InternalPrefix) && p[:len(constants.InternalPrefix)] == constants.InternalPrefix
}

// noopBroadcaster swallows frames when no listener could be started.
type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(Message) {}
