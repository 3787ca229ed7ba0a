package server

import (
	"net/http"

	"github.com/alfycore/veko/internal/constants"
	"github.com/alfycore/veko/internal/devserver"
	"github.com/alfycore/veko/internal/server/middleware"
)

// applyMiddleware applies the complete middleware chain to the handler
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware chain in reverse order

	// Panic recovery; in dev mode the panic is also pushed to the
	// browser as an error frame.
	var sink func(message, stack string)
	if s.engine != nil {
		sink = func(message, stack string) {
			s.engine.Broadcaster().Broadcast(devserver.ErrorMessage(message, stack))
		}
	}
	handler = middleware.RecoveryMiddleware(s.logger.Logger, sink)(handler)

	// Request size limit middleware
	handler = middleware.RequestSizeLimitMiddleware(constants.ServerMaxRequestSize)(handler)

	// Permissive CORS for dev-mode asset requests
	if s.config.Dev.Enabled {
		handler = middleware.CORSMiddleware()(handler)
	}

	// Logging middleware
	handler = middleware.LoggingMiddleware(s.logger.Logger)(handler)

	return handler
}
