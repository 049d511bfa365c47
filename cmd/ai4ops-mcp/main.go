package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Azure/ai4ops-mcp/internal/azcli"
	"github.com/Azure/ai4ops-mcp/internal/config"
	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/Azure/ai4ops-mcp/internal/server"
	"github.com/Azure/ai4ops-mcp/internal/version"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code once every deferred shutdown has run.
func run() int {
	// Create configuration instance and parse command line arguments
	cfg := config.NewConfig()
	cfg.ParseFlags()

	closeLog, err := logger.Init(logger.Options{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		return 1
	}
	defer func() { _ = closeLog() }()

	// Fall back to the az cli account for the default subscription
	azcli.ResolveDefaultSubscription(context.Background(), cfg)

	// Create validator and run validation checks
	v := config.NewValidator(cfg)
	if !v.Validate() {
		fmt.Fprintln(os.Stderr, "Validation failed:")
		v.PrintErrors()
		return 1
	}

	for _, w := range v.GetWarnings() {
		logger.Warnf("%s", w)
	}
	if path := logger.File(); path != "" {
		logger.Infof("Writing session log to %s", path)
	}
	info := version.GetVersionInfo()
	logger.Infow("Starting ai4ops-mcp", "version", info["version"], "commit", info["gitCommit"], "go", info["goVersion"])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize telemetry service in config
	cfg.InitializeTelemetry(ctx, "ai4ops-mcp", version.GetVersion())

	// Ensure telemetry shutdown on exit
	defer func() {
		if cfg.TelemetryService != nil {
			if err := cfg.TelemetryService.Shutdown(context.Background()); err != nil {
				logger.Errorf("Failed to shutdown telemetry: %v", err)
			}
		}
	}()

	// Create and initialize the service
	service := server.NewService(cfg)
	if err := service.Initialize(); err != nil {
		logger.Errorf("Initialization error: %v", err)
		return 1
	}

	// Start service in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- service.Run(ctx)
	}()

	// Wait for shutdown signal or service error
	select {
	case sig := <-sigChan:
		logger.Infof("Received %s, shutting down", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Errorf("Service error: %v", err)
			return 1
		}
	}
	return 0
}
