package constants

import "time"

// Environment variable constants
const (
	EnvHost            = "VEKO_HOST"
	EnvPort            = "VEKO_PORT"
	EnvMetricsPort     = "VEKO_METRICS_PORT"
	EnvWSPort          = "VEKO_WS_PORT"
	EnvReadTimeout     = "VEKO_READ_TIMEOUT"
	EnvWriteTimeout    = "VEKO_WRITE_TIMEOUT"
	EnvIdleTimeout     = "VEKO_IDLE_TIMEOUT"
	EnvShutdownTimeout = "VEKO_SHUTDOWN_TIMEOUT"
	EnvRoutesDir       = "VEKO_ROUTES_DIR"
	EnvViewsDir        = "VEKO_VIEWS_DIR"
	EnvLayoutsDir      = "VEKO_LAYOUTS_DIR"
	EnvPublicDir       = "VEKO_PUBLIC_DIR"
	EnvDevEnabled      = "VEKO_DEV"
	EnvDevDebounce     = "VEKO_DEV_DEBOUNCE"
	EnvLogLevel        = "VEKO_LOG_LEVEL"
	EnvLogFormat       = "VEKO_LOG_FORMAT"
)

// Push-protocol message types, one per frame
const (
	MsgConnected    = "connected"
	MsgRoutes       = "routes"
	MsgRouteReload  = "route-reload"
	MsgViewReload   = "view-reload"
	MsgLayoutReload = "layout-reload"
	MsgReload       = "reload"
	MsgError        = "error"
)

// Internal paths never exposed to clients as prefetch targets
const (
	PathHealth     = "/health"
	PathReady      = "/ready"
	PathMetrics    = "/metrics"
	PathWebSocket  = "/__veko/live"
	PathClientJS   = "/__veko/client.js"
	InternalPrefix = "/__veko/"
)

// Directory names never watched for changes
var SkippedDirs = []string{
	"node_modules",
	"vendor",
	".git",
	".veko",
}

// Server timeout constants
const (
	// ServerReadTimeout is the read timeout for the HTTP server
	ServerReadTimeout = 15 * time.Second
	// ServerWriteTimeout is the write timeout for the HTTP server
	ServerWriteTimeout = 15 * time.Second
	// ServerIdleTimeout is the idle timeout for the HTTP server
	ServerIdleTimeout = 60 * time.Second
	// ServerMaxRequestSize is the maximum request body size (10MB)
	ServerMaxRequestSize = 10 * 1024 * 1024
	// ServerShutdownTimeout is the graceful shutdown timeout
	ServerShutdownTimeout = 30 * time.Second
)

// Dev engine constants
const (
	// DevDebounce is the default window for coalescing filesystem events
	DevDebounce = 300 * time.Millisecond
	// PortProbeAttempts is how many sequential ports are tried before giving up
	PortProbeAttempts = 10
	// PrefetchDelay is the default wait before pushing the route list to a new client
	PrefetchDelay = 1500 * time.Millisecond
	// ErrorBroadcastRate caps error frames pushed to clients per second
	ErrorBroadcastRate = 5
	// ClientMaxRetries bounds browser reconnect attempts after a disconnect
	ClientMaxRetries = 10
	// ClientRetryDelay is the fixed wait between browser reconnect attempts
	ClientRetryDelay = 2 * time.Second
	// ClientReloadDelay lets the server finish writing before the browser refreshes
	ClientReloadDelay = 100 * time.Millisecond
)

// Content type constants
const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeJS   = "application/javascript"
)
