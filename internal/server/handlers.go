package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/alfycore/veko/internal/constants"
	"github.com/alfycore/veko/internal/devserver"
	"github.com/alfycore/veko/internal/observability"
)

// pageHandler serves every application page from the current route
// table snapshot. An in-flight request keeps the table version it
// matched against even if a hot swap lands mid-render.
func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	_, span := s.tracer.StartSpan(r.Context(), "handle_page",
		attribute.String("http.method", r.Method),
		attribute.String("http.path", r.URL.Path),
	)
	defer span.End()

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.sendErrorPage(w, http.StatusMethodNotAllowed)
		s.metrics.RecordRequest(r.Method, r.URL.Path, http.StatusMethodNotAllowed, time.Since(start), 0)
		return
	}

	table := s.store.Current()
	route, params := table.Match(r.URL.Path)
	if route == nil {
		if s.serveStatic(w, r) {
			s.metrics.RecordRequest(r.Method, "static", http.StatusOK, time.Since(start), 0)
			return
		}
		s.sendErrorPage(w, http.StatusNotFound)
		s.metrics.RecordRequest(r.Method, r.URL.Path, http.StatusNotFound, time.Since(start), 0)
		s.logger.Logger.Debug("No route matched",
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)
		return
	}

	// Render fully before writing so a template failure never leaks a
	// half-built page.
	var buf bytes.Buffer
	if err := s.renderer.RenderRoute(&buf, route, params); err != nil {
		s.logger.Logger.Error("Page render failed",
			zap.String("route", route.Path),
			zap.String("file", route.SourceFile),
			zap.Error(err),
		)
		if s.engine != nil {
			s.engine.Broadcaster().Broadcast(devserver.ErrorMessage(err.Error(), ""))
		}
		s.sendErrorPage(w, http.StatusInternalServerError)
		s.metrics.RecordRequest(r.Method, route.Path, http.StatusInternalServerError, time.Since(start), 0)
		return
	}

	w.Header().Set("Content-Type", constants.ContentTypeHTML)
	w.WriteHeader(http.StatusOK)
	size, _ := buf.WriteTo(w)

	s.metrics.RecordRequest(r.Method, route.Path, http.StatusOK, time.Since(start), size)
	s.logger.Logger.Debug("Page served",
		zap.String("route", route.Path),
		zap.Uint64("generation", route.Generation),
		zap.Duration("duration", time.Since(start)),
	)
}

// serveStatic tries the public directory for an unmatched path.
// Returns false when no file exists so the caller can send a 404 page.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) bool {
	if s.config.App.PublicDir == "" {
		return false
	}
	rel := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	name := filepath.Join(s.config.App.PublicDir, rel)
	info, err := os.Stat(name)
	if err != nil || info.IsDir() {
		return false
	}
	http.ServeFile(w, r, name)
	return true
}

// clientScriptHandler serves the live-reload agent bound to the
// negotiated push-protocol port.
func (s *Server) clientScriptHandler(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil || !s.engine.LiveReloadActive() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", constants.ContentTypeJS)
	_, _ = w.Write([]byte(devserver.ClientScript(s.engine.WSPort())))
}

func (s *Server) sendErrorPage(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", constants.ContentTypeHTML)
	w.WriteHeader(status)
	_, _ = w.Write([]byte("<!DOCTYPE html><html><body><h1>" +
		http.StatusText(status) + "</h1></body></html>"))
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "health_check")
	defer span.End()

	uptime := time.Since(s.startTime)
	health := observability.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Uptime:    uptime.String(),
		Checks: map[string]bool{
			"routes":      s.store.Current().Len() > 0,
			"live_reload": s.engine != nil && s.engine.LiveReloadActive(),
		},
	}

	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// readinessHandler handles readiness check requests
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.StartSpan(r.Context(), "readiness_check")
	defer span.End()

	ready := s.store.Current().Len() > 0

	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	if ready {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
	}
}

// metricsHandler serves Prometheus metrics on the main listener
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	s.metrics.Handler().ServeHTTP(w, r)
}
