package devserver

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alfycore/veko/internal/observability"
	"github.com/alfycore/veko/internal/router"
)

// Broadcaster pushes protocol frames to connected browsers.
type Broadcaster interface {
	Broadcast(msg Message)
}

// ViewInvalidator drops a single compiled view from its cache.
type ViewInvalidator interface {
	Invalidate(sourceFile string)
}

// LayoutDropper discards every cached layout template.
type LayoutDropper interface {
	DropCache()
}

// Coordinator consumes normalized change events, coalesces bursts, and
// applies one reload action per surviving change: route swaps on the
// shared store, cache invalidation for views and layouts, and the
// matching push frame. All mutations happen on the coordinator
// goroutine, so a reload is never observed half-applied.
type Coordinator struct {
	store      *router.Store
	views      ViewInvalidator
	layouts    LayoutDropper
	hub        Broadcaster
	classifier ClassifierConfig
	loadRoute  func(path string) (*router.Route, error)

	logger  *zap.Logger
	metrics *observability.Metrics

	events   <-chan ChangeEvent
	debounce time.Duration

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewCoordinator wires a coordinator to its collaborators. events is
// normally a Watcher's channel; tests feed it directly.
func NewCoordinator(
	events <-chan ChangeEvent,
	store *router.Store,
	views ViewInvalidator,
	layouts LayoutDropper,
	hub Broadcaster,
	cfg ClassifierConfig,
	debounce time.Duration,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Coordinator {
	// Roots are pinned to absolute spellings so classification and
	// cache keys agree with event paths no matter how the directories
	// were configured.
	cfg.RoutesDir = absPath(cfg.RoutesDir)
	cfg.ViewsDir = absPath(cfg.ViewsDir)
	cfg.LayoutsDir = absPath(cfg.LayoutsDir)

	c := &Coordinator{
		store:      store,
		views:      views,
		layouts:    layouts,
		hub:        hub,
		classifier: cfg,
		logger:     logger,
		metrics:    metrics,
		events:     events,
		debounce:   debounce,
		done:       make(chan struct{}),
	}
	c.loadRoute = func(path string) (*router.Route, error) {
		return router.LoadRouteFile(path, cfg.RoutesDir)
	}
	return c
}

// Start launches the coalescing loop.
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go c.run()
	c.logger.Info("Reload coordinator started",
		zap.Duration("debounce", c.debounce))
}

// Stop ends the loop after the current batch finishes. Idempotent.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		c.logger.Info("Reload coordinator stopped")
	})
}

// run collects events until the debounce window closes with no new
// arrivals, then applies the batch. Later events for the same path
// supersede earlier ones, so a save storm collapses to one action.
func (c *Coordinator) run() {
	defer c.wg.Done()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]ChangeKind)
		order   []string
	)

	for {
		select {
		case <-c.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-c.events:
			if !ok {
				if len(pending) > 0 {
					c.apply(pending, order)
				}
				return
			}
			path := absPath(ev.Path)
			if _, seen := pending[path]; !seen {
				order = append(order, path)
			}
			pending[path] = ev.Kind

			if timer == nil {
				timer = time.NewTimer(c.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					<-timerC
				}
				timer.Reset(c.debounce)
			}

		case <-timerC:
			c.apply(pending, order)
			pending = make(map[string]ChangeKind)
			order = order[:0]
			timer = nil
			timerC = nil
		}
	}
}

// apply dispatches one coalesced batch. A batch sends at most one
// layout-reload and at most one full reload, no matter how many files
// of those categories changed.
func (c *Coordinator) apply(pending map[string]ChangeKind, order []string) {
	var (
		layoutFile  string
		genericSeen bool
	)

	for _, path := range order {
		kind := pending[path]
		path = absPath(path)
		category := Classify(path, c.classifier)
		c.logger.Debug("Processing source change",
			zap.String("path", path),
			zap.String("kind", string(kind)),
			zap.String("category", string(category)))

		switch category {
		case CategoryRoute:
			c.applyRouteChange(path, kind)

		case CategoryView:
			c.views.Invalidate(path)
			c.hub.Broadcast(ViewReloadMessage(path))
			c.record(category, "ok")
			c.logger.Info("View invalidated", zap.String("file", path))

		case CategoryLayout:
			layoutFile = path

		case CategoryGeneric:
			genericSeen = true
		}
	}

	if layoutFile != "" {
		c.layouts.DropCache()
		c.hub.Broadcast(LayoutReloadMessage(layoutFile))
		c.record(CategoryLayout, "ok")
		c.logger.Info("Layout cache dropped", zap.String("file", layoutFile))
	}
	if genericSeen {
		c.hub.Broadcast(ReloadMessage())
		c.record(CategoryGeneric, "ok")
	}
}

// applyRouteChange swaps exactly one entry of the route table. The new
// table is built first and published in a single store replacement, so
// requests either see the previous handler or the finished new one.
// When compilation fails the previous table stays live and browsers
// fall back to a full refresh.
func (c *Coordinator) applyRouteChange(path string, kind ChangeKind) {
	if kind == KindRemoved {
		c.removeRoute(path)
		return
	}

	prev, existed := c.store.FileToRoute(path)

	rt, err := c.loadRoute(path)
	if err != nil {
		// The previous table stays live; the browser falls back to a
		// full refresh instead of observing a half-swapped route.
		c.logger.Error("Route compilation failed, keeping previous handler",
			zap.String("file", path),
			zap.Error(err),
			zap.Stack("stack"))
		c.hub.Broadcast(ReloadMessage())
		c.record(CategoryRoute, "error")
		return
	}

	if existed {
		rt.Generation = prev.Generation + 1
	}

	table := c.store.Current()
	if existed && prev.Path != rt.Path {
		// Frontmatter renamed the route; the old path must not
		// survive alongside the new one.
		table = table.WithoutPath(prev.Path)
	}
	if shadowed, ok := table.Get(rt.Path); ok && shadowed.SourceFile != path {
		c.logger.Warn("Route path collision, newer file replaces older mapping",
			zap.String("path", rt.Path),
			zap.String("kept", path),
			zap.String("replaced", shadowed.SourceFile))
	}
	table = table.With(rt)
	c.store.Replace(table, path, rt)
	c.setTableSize(table.Len())

	c.hub.Broadcast(RouteReloadMessage(path, rt.Path))
	c.record(CategoryRoute, "ok")
	c.logger.Info("Route swapped",
		zap.String("file", path),
		zap.String("route", rt.Path),
		zap.Uint64("generation", rt.Generation))
}

func (c *Coordinator) removeRoute(path string) {
	record, existed := c.store.FileToRoute(path)
	if !existed {
		c.logger.Debug("Removed file had no route record", zap.String("file", path))
		return
	}

	table := c.store.Current().WithoutPath(record.Path)
	c.store.Replace(table, path, nil)
	c.setTableSize(table.Len())

	c.hub.Broadcast(RouteReloadMessage(path, record.Path))
	c.record(CategoryRoute, "ok")
	c.logger.Info("Route removed",
		zap.String("file", path),
		zap.String("route", record.Path))
}

func (c *Coordinator) record(category Category, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordReload(string(category), outcome)
	}
}

func (c *Coordinator) setTableSize(n int) {
	if c.metrics != nil {
		c.metrics.RouteTableSize.Set(float64(n))
	}
}
