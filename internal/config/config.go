package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/Azure/ai4ops-mcp/internal/telemetry"
	flag "github.com/spf13/pflag"
)

// Environment variables consulted for the default subscription, in order.
var subscriptionEnvVars = []string{"SUBSCRIPTION_ID", "AZURE_SUBSCRIPTION_ID"}

// ConfigData holds the global configuration
type ConfigData struct {
	// Query timeout in seconds
	Timeout int

	// Command-line specific options
	Transport string
	Host      string
	Port      int

	// Subscription used when a subscription-scoped report omits subscription_ids
	SubscriptionID string
	// Upper bound on Resource Graph result pages fetched per query
	MaxGraphPages int

	// Verbose logging
	Verbose  bool
	LogLevel string
	// Directory for the session log file; empty logs to stderr only
	LogDir string

	// OTLP endpoint for OpenTelemetry traces
	OTLPEndpoint string
	// Listen address for the Prometheus /metrics endpoint; empty disables it
	MetricsAddr string

	// Telemetry service
	TelemetryService *telemetry.Service
}

// NewConfig creates and returns a new configuration instance
func NewConfig() *ConfigData {
	return &ConfigData{
		Timeout:        600,
		Transport:      "stdio",
		Host:           "127.0.0.1",
		Port:           8000,
		SubscriptionID: defaultSubscriptionID(),
		MaxGraphPages:  10,
		LogLevel:       "info",
	}
}

func defaultSubscriptionID() string {
	for _, name := range subscriptionEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// QueryTimeout returns the per-call timeout.
func (cfg *ConfigData) QueryTimeout() time.Duration {
	return time.Duration(cfg.Timeout) * time.Second
}

// RegisterFlags binds every option to fs.
func (cfg *ConfigData) RegisterFlags(fs *flag.FlagSet) {
	// Server configuration
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport mechanism to use (stdio, sse or streamable-http)")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Host to listen for the server (only used with transport sse or streamable-http)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen for the server (only used with transport sse or streamable-http)")
	fs.IntVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout for a single report query in seconds")

	// Azure settings
	fs.StringVar(&cfg.SubscriptionID, "subscription-id", cfg.SubscriptionID,
		"Default subscription for Resource Graph reports (defaults to $SUBSCRIPTION_ID or $AZURE_SUBSCRIPTION_ID)")
	fs.IntVar(&cfg.MaxGraphPages, "max-graph-pages", cfg.MaxGraphPages, "Maximum Resource Graph result pages fetched per query")

	// Logging settings
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for the session log file (ignored inside Azure Functions)")

	// Observability settings
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP endpoint for OpenTelemetry traces (e.g. localhost:4317)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Address for the Prometheus metrics endpoint (e.g. :9090)")
}

// ParseArgs parses args into the configuration using a fresh flag set.
func (cfg *ConfigData) ParseArgs(name string, args []string) (showHelp bool, err error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfg.RegisterFlags(fs)
	fs.BoolVarP(&showHelp, "help", "h", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return false, err
	}
	if showHelp {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", name)
		fs.PrintDefaults()
	}
	if cfg.Verbose && cfg.LogLevel == "info" {
		cfg.LogLevel = "debug"
	}
	return showHelp, nil
}

// ParseFlags parses command line arguments and updates the configuration
func (cfg *ConfigData) ParseFlags() {
	showHelp, err := cfg.ParseArgs(os.Args[0], os.Args[1:])
	if err != nil {
		os.Exit(1)
	}
	if showHelp {
		os.Exit(0)
	}
}

// InitializeTelemetry initializes the telemetry service
func (cfg *ConfigData) InitializeTelemetry(ctx context.Context, serviceName, serviceVersion string) {
	telemetryConfig := telemetry.NewConfig(serviceName, serviceVersion)

	if cfg.OTLPEndpoint != "" {
		telemetryConfig.SetOTLPEndpoint(cfg.OTLPEndpoint)
	}

	cfg.TelemetryService = telemetry.NewService(telemetryConfig)
	if err := cfg.TelemetryService.Initialize(ctx); err != nil {
		// Continue without telemetry - this is not a fatal error
		logger.Warnf("Failed to initialize telemetry: %v", err)
	}

	cfg.TelemetryService.TrackServiceStartup(ctx, cfg.Transport)
}
