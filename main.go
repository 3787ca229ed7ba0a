package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/alfycore/veko/internal/config"
	"github.com/alfycore/veko/internal/constants"
	"github.com/alfycore/veko/internal/server"
)

func main() {
	configFile := pflag.String("config", "", "Path to configuration file (YAML or JSON)")
	host := pflag.String("host", "localhost", "Host to bind the server on")
	port := pflag.Int("port", 3000, "Port to serve the application on")
	metricsPort := pflag.Int("metrics-port", 9090, "Port to serve Prometheus metrics on")
	wsPort := pflag.Int("ws-port", 35729, "Preferred port for the live reload listener")

	routesDir := pflag.String("routes-dir", "routes", "Directory holding route templates")
	viewsDir := pflag.String("views-dir", "views", "Directory holding view partials")
	layoutsDir := pflag.String("layouts-dir", "layouts", "Directory holding layout templates")
	publicDir := pflag.String("public-dir", "public", "Directory served as static files")

	dev := pflag.Bool("dev", false, "Enable the development engine (watching, hot swap, live reload)")
	devDebounce := pflag.Duration("dev-debounce", constants.DevDebounce, "Debounce window for coalescing file changes")

	logLevel := pflag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := pflag.String("log-format", "console", "Log format: console, json")

	showUsage := pflag.BoolP("help", "h", false, "Show usage")
	pflag.Parse()

	if *showUsage {
		printUsage()
		os.Exit(0)
	}

	cliFlags := &config.CLIFlags{
		Host:        host,
		Port:        port,
		MetricsPort: metricsPort,
		WSPort:      wsPort,
		RoutesDir:   routesDir,
		ViewsDir:    viewsDir,
		LayoutsDir:  layoutsDir,
		PublicDir:   publicDir,
		Dev:         dev,
		DevDebounce: devDebounce,
		LogLevel:    logLevel,
		LogFormat:   logFormat,
	}

	// Load configuration with precedence (CLI > Env > File > Defaults)
	cfg, err := config.LoadConfig(*configFile, cliFlags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := os.Stat(cfg.App.RoutesDir); os.IsNotExist(err) {
		log.Fatalf("Routes directory not found: %s", cfg.App.RoutesDir)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// printUsage prints the usage information
func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nServer configuration:\n")
	fmt.Fprintf(os.Stderr, "  --host\t\tHost to bind the server on (default: localhost)\n")
	fmt.Fprintf(os.Stderr, "  --port\t\tPort to serve the application on (default: 3000)\n")
	fmt.Fprintf(os.Stderr, "  --metrics-port\tPort to serve Prometheus metrics on (default: 9090)\n")
	fmt.Fprintf(os.Stderr, "  --ws-port\t\tPreferred live reload listener port (default: 35729)\n")
	fmt.Fprintf(os.Stderr, "\nApplication layout:\n")
	fmt.Fprintf(os.Stderr, "  --routes-dir\t\tDirectory holding route templates (default: routes)\n")
	fmt.Fprintf(os.Stderr, "  --views-dir\t\tDirectory holding view partials (default: views)\n")
	fmt.Fprintf(os.Stderr, "  --layouts-dir\t\tDirectory holding layout templates (default: layouts)\n")
	fmt.Fprintf(os.Stderr, "  --public-dir\t\tDirectory served as static files (default: public)\n")
	fmt.Fprintf(os.Stderr, "\nDevelopment engine:\n")
	fmt.Fprintf(os.Stderr, "  --dev\t\t\tEnable file watching, hot swap and live reload\n")
	fmt.Fprintf(os.Stderr, "  --dev-debounce\tDebounce window for coalescing file changes (default: %s)\n", constants.DevDebounce)
	fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
	fmt.Fprintf(os.Stderr, "  VEKO_HOST, VEKO_PORT, VEKO_METRICS_PORT, VEKO_WS_PORT\n")
	fmt.Fprintf(os.Stderr, "  VEKO_ROUTES_DIR, VEKO_VIEWS_DIR, VEKO_LAYOUTS_DIR, VEKO_PUBLIC_DIR\n")
	fmt.Fprintf(os.Stderr, "  VEKO_DEV, VEKO_DEV_DEBOUNCE, VEKO_LOG_LEVEL, VEKO_LOG_FORMAT\n")
	fmt.Fprintf(os.Stderr, "\nExample usage:\n")
	fmt.Fprintf(os.Stderr, "  %s --dev\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s --dev --port 3001 --ws-port 35800\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  VEKO_DEV=true %s --routes-dir ./app/routes\n", os.Args[0])
}
