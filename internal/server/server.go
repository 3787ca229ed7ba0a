package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/alfycore/veko/internal/config"
	"github.com/alfycore/veko/internal/constants"
	"github.com/alfycore/veko/internal/devserver"
	"github.com/alfycore/veko/internal/observability"
	"github.com/alfycore/veko/internal/router"
	"github.com/alfycore/veko/internal/view"
)

type Server struct {
	config   *config.Config
	store    *router.Store
	views    *view.Cache
	layouts  *view.LayoutCache
	renderer *view.Renderer
	engine   *devserver.Engine
	server   *http.Server

	// Observability
	logger    *observability.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	startTime time.Time
}

func New(cfg *config.Config) (*Server, error) {
	// Initialize observability
	logger, err := observability.NewLogger(cfg.Observability.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	metrics := observability.NewMetrics()
	if err := metrics.Register(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	tracer, err := observability.NewTracer(cfg.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	store := router.NewStore()
	if err := store.Discover(cfg.App.RoutesDir, cfg.App.Layouts.Extension); err != nil {
		return nil, fmt.Errorf("failed to discover routes: %w", err)
	}
	metrics.RouteTableSize.Set(float64(store.Current().Len()))

	views := view.NewCache(cfg.App.ViewsDir, cfg.App.Layouts.Extension)
	layouts := view.NewLayoutCache(cfg.App.Layouts.LayoutsDir, cfg.App.Layouts.Extension)
	renderer := view.NewRenderer(views, layouts)

	s := &Server{
		config:    cfg,
		store:     store,
		views:     views,
		layouts:   layouts,
		renderer:  renderer,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		startTime: time.Now(),
	}

	if cfg.Dev.Enabled {
		s.engine = devserver.NewEngine(cfg, store, views, layouts, logger.Logger, metrics)
		renderer.InjectHTML = devserver.InjectSnippet()
	}

	return s, nil
}

func (s *Server) Start() error {
	// In development the preferred port is a suggestion, not a
	// requirement: another instance may hold it.
	if s.engine != nil {
		port, err := devserver.FindAvailablePort(s.config.Server.Port, constants.PortProbeAttempts)
		if err != nil {
			return fmt.Errorf("negotiating server port: %w", err)
		}
		if port != s.config.Server.Port {
			s.logger.Logger.Warn("Preferred port busy, moving",
				zap.Int("preferred", s.config.Server.Port),
				zap.Int("port", port))
			s.config.Server.Port = port
		}
	}

	// Bind before the engine negotiates its own port so the push
	// listener can never land on the HTTP port.
	listener, err := net.Listen("tcp", s.config.GetServerAddress())
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.config.GetServerAddress(), err)
	}

	if s.engine != nil {
		if err := s.engine.Setup(); err != nil {
			listener.Close()
			return fmt.Errorf("failed to start dev engine: %w", err)
		}
	}

	mux := http.NewServeMux()

	mux.HandleFunc(constants.PathHealth, s.healthHandler)
	mux.HandleFunc(constants.PathMetrics, s.metricsHandler)
	mux.HandleFunc(constants.PathReady, s.readinessHandler)
	mux.HandleFunc(constants.PathClientJS, s.clientScriptHandler)
	mux.HandleFunc("/", s.pageHandler)

	handler := s.applyMiddleware(mux)

	s.server = &http.Server{
		Addr:           s.config.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	s.logger.Logger.Info("Starting server",
		zap.String("host", s.config.Server.Host),
		zap.Int("port", s.config.Server.Port),
		zap.Int("routes", s.store.Current().Len()),
		zap.Bool("dev", s.config.Dev.Enabled),
	)

	s.metrics.SetHealthStatus(true)

	// Start metrics server in background
	var metricsServer *http.Server
	if s.config.Observability.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(constants.PathMetrics, s.metrics.Handler())
		metricsServer = &http.Server{
			Addr:              s.config.GetMetricsAddress(),
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.logger.Logger.Info("Starting metrics server",
			zap.Int("port", s.config.Server.MetricsPort),
		)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.logger.Logger.Info("Shutting down server...")
	s.metrics.SetHealthStatus(false)

	if s.engine != nil {
		s.engine.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metricsServer.Shutdown(ctx); err != nil {
				s.logger.Logger.Error("Failed to shutdown metrics server", zap.Error(err))
				errChan <- fmt.Errorf("metrics server shutdown: %w", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Logger.Error("Failed to shutdown main server", zap.Error(err))
			errChan <- fmt.Errorf("main server shutdown: %w", err)
		}
	}()

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}
