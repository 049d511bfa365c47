package server

import (
	"context"
	"fmt"

	"github.com/Azure/ai4ops-mcp/internal/azureclient"
	"github.com/Azure/ai4ops-mcp/internal/catalog"
	"github.com/Azure/ai4ops-mcp/internal/components/monitor"
	"github.com/Azure/ai4ops-mcp/internal/config"
	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/Azure/ai4ops-mcp/internal/metrics"
	"github.com/Azure/ai4ops-mcp/internal/prompts"
	"github.com/Azure/ai4ops-mcp/internal/query"
	"github.com/Azure/ai4ops-mcp/internal/tools"
	"github.com/Azure/ai4ops-mcp/internal/version"
	"github.com/mark3labs/mcp-go/server"
)

// Service represents the AI4Ops MCP service
type Service struct {
	cfg       *config.ConfigData
	mcpServer *server.MCPServer
	backend   query.Backend
	catalog   *catalog.Catalog
}

// NewService creates a new AI4Ops MCP service backed by Azure
func NewService(cfg *config.ConfigData) *Service {
	return &Service{
		cfg: cfg,
	}
}

// NewServiceWithBackend creates a service that sends every query to backend
// instead of Azure.
func NewServiceWithBackend(cfg *config.ConfigData, backend query.Backend) *Service {
	return &Service{
		cfg:     cfg,
		backend: backend,
	}
}

// Initialize initializes the service
func (s *Service) Initialize() error {
	logger.Infof("Initializing AI4Ops MCP service...")

	// Phase 1: Initialize core infrastructure
	if err := s.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 2: Register tools and prompts
	s.registerReportComponent()
	s.registerPrompts()

	logger.Infof("AI4Ops MCP service initialization completed successfully")
	return nil
}

// initializeInfrastructure sets up the query backend, the catalog and the MCP server
func (s *Service) initializeInfrastructure() error {
	if s.backend == nil {
		azClient, err := azureclient.NewAzureClient(s.cfg)
		if err != nil {
			return fmt.Errorf("failed to create Azure client: %w", err)
		}
		s.backend = azClient
		logger.Infof("Azure client initialized successfully")
	}

	s.catalog = catalog.New(s.cfg, query.NewDispatcher(s.backend), nil)

	s.mcpServer = server.NewMCPServer(
		"AI4Ops MCP",
		version.GetVersion(),
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)
	logger.Infof("MCP server initialized successfully")

	return nil
}

// registerReportComponent registers one tool per report definition
func (s *Service) registerReportComponent() {
	logger.Infof("Registering monitoring report tools...")
	for _, tool := range monitor.RegisterReportTools() {
		logger.Debugf("Registering report tool: %s", tool.Name)
		s.mcpServer.AddTool(tool, tools.CreateResourceHandler(s.catalog.Handler(tool.Name), s.cfg))
	}
	logger.Infof("Registered %d report tools", len(s.catalog.Definitions()))
}

// registerPrompts registers the guided review prompts
func (s *Service) registerPrompts() {
	logger.Infof("Registering prompts...")
	prompts.RegisterHealthPrompts(s.mcpServer, s.cfg)
	prompts.RegisterSqlEstatePrompt(s.mcpServer, s.cfg)
}

// Run starts the service with the configured transport. The metrics endpoint,
// when configured, stops with ctx.
func (s *Service) Run(ctx context.Context) error {
	logger.Infof("AI4Ops MCP version: %s", version.GetVersion())

	if s.cfg.MetricsAddr != "" {
		go func() {
			logger.Infof("Metrics endpoint listening on %s/metrics", s.cfg.MetricsAddr)
			if err := metrics.Serve(ctx, s.cfg.MetricsAddr); err != nil {
				logger.Errorf("Metrics endpoint failed: %v", err)
			}
		}()
	}

	// Start the server
	switch s.cfg.Transport {
	case "stdio":
		logger.Infof("Listening for requests on STDIO...")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		sse := server.NewSSEServer(s.mcpServer)
		addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
		logger.Infof("SSE server listening on %s", addr)
		return sse.Start(addr)
	case "streamable-http":
		streamableServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
		logger.Infof("Streamable HTTP server listening on %s", addr)
		return streamableServer.Start(addr)
	default:
		return fmt.Errorf("invalid transport type: %s (must be 'stdio', 'sse' or 'streamable-http')", s.cfg.Transport)
	}
}
