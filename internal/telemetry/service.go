package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/microsoft/ApplicationInsights-Go/appinsights"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Invocation describes one finished report tool call.
type Invocation struct {
	Tool          string
	Scope         string
	CorrelationID string
	Rows          int
	Duration      time.Duration
	Success       bool
	ErrorCode     string
}

// Service provides telemetry functionality for the AI4Ops MCP server
type Service struct {
	config            *Config
	tracer            oteltrace.Tracer
	tracerProvider    *trace.TracerProvider
	appInsightsClient appinsights.TelemetryClient
	isInitialized     bool
}

// NewService creates a new telemetry service
func NewService(config *Config) *Service {
	return &Service{
		config:        config,
		isInitialized: false,
	}
}

// Initialize sets up the telemetry providers and exporters
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.initializeTracing(ctx); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if s.config.HasApplicationInsights() {
		s.initializeApplicationInsights()
	}

	if s.tracer == nil {
		s.tracer = otel.Tracer(s.config.ServiceName)
	}
	s.isInitialized = true
	return nil
}

// initializeTracing sets up OpenTelemetry tracing
func (s *Service) initializeTracing(ctx context.Context) error {
	if !s.config.HasOTLP() {
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", s.config.ServiceName),
			attribute.String("service.version", s.config.ServiceVersion),
			attribute.String("device.id", s.config.DeviceID),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporters []trace.SpanExporter
	otlpExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(s.config.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		logger.Warnf("Failed to create OTLP gRPC exporter: %v", err)
	} else {
		exporters = append(exporters, otlpExporter)
	}

	var options []trace.TracerProviderOption
	options = append(options, trace.WithResource(res))
	for _, exporter := range exporters {
		processor := trace.NewBatchSpanProcessor(exporter)
		options = append(options, trace.WithSpanProcessor(processor))
	}

	options = append(options, trace.WithSampler(trace.AlwaysSample()))
	s.tracerProvider = trace.NewTracerProvider(options...)

	otel.SetTracerProvider(s.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	s.tracer = s.tracerProvider.Tracer(s.config.ServiceName)
	return nil
}

// initializeApplicationInsights sets up Application Insights client
func (s *Service) initializeApplicationInsights() {
	if !s.config.Enabled {
		return
	}

	config := appinsights.NewTelemetryConfiguration(s.config.instrumentationKey)
	s.appInsightsClient = appinsights.NewTelemetryClientFromConfig(config)

	commonProps := s.appInsightsClient.Context().CommonProperties
	commonProps["service.name"] = s.config.ServiceName
	commonProps["service.version"] = s.config.ServiceVersion
	commonProps["device.id"] = s.config.DeviceID
}

// StartActivity starts a new telemetry activity (span)
func (s *Service) StartActivity(ctx context.Context, activityName string) (context.Context, oteltrace.Span) {
	if s == nil || !s.isInitialized || s.tracer == nil {
		return ctx, oteltrace.SpanFromContext(ctx)
	}

	return s.tracer.Start(ctx, activityName)
}

// TrackToolInvocation records a finished report call on every configured sink.
// Parameter values are never exported; only the tool name and outcome are.
func (s *Service) TrackToolInvocation(ctx context.Context, inv Invocation) {
	if s == nil || !s.isInitialized {
		return
	}

	if s.config.HasOTLP() && s.tracer != nil {
		_, span := s.tracer.Start(ctx, "ToolInvocation")
		span.SetAttributes(
			attribute.String("tool.name", inv.Tool),
			attribute.String("tool.scope", inv.Scope),
			attribute.String("tool.correlation_id", inv.CorrelationID),
			attribute.Int("tool.rows", inv.Rows),
			attribute.Int64("tool.duration_ms", inv.Duration.Milliseconds()),
			attribute.Bool("tool.success", inv.Success),
		)
		if !inv.Success {
			span.SetStatus(codes.Error, inv.ErrorCode)
		}
		span.End()
	}

	if s.config.HasApplicationInsights() && s.appInsightsClient != nil {
		trace := appinsights.NewTraceTelemetry("ToolInvocation", appinsights.Information)
		trace.Properties["tool.name"] = inv.Tool
		trace.Properties["tool.scope"] = inv.Scope
		trace.Properties["tool.correlation_id"] = inv.CorrelationID
		trace.Properties["tool.rows"] = strconv.Itoa(inv.Rows)
		trace.Properties["tool.duration_ms"] = strconv.FormatInt(inv.Duration.Milliseconds(), 10)
		trace.Properties["tool.success"] = strconv.FormatBool(inv.Success)
		if inv.ErrorCode != "" {
			trace.Properties["tool.error_code"] = inv.ErrorCode
		}

		s.appInsightsClient.Track(trace)
	}
}

// TrackServiceStartup tracks service startup with machine metadata
func (s *Service) TrackServiceStartup(ctx context.Context, transport string) {
	if s == nil || !s.isInitialized {
		return
	}

	if s.config.HasOTLP() && s.tracer != nil {
		_, span := s.tracer.Start(ctx, "ServiceStartup")
		defer span.End()

		span.SetAttributes(
			attribute.String("service.name", s.config.ServiceName),
			attribute.String("service.version", s.config.ServiceVersion),
			attribute.String("service.transport", transport),
			attribute.String("device.id", s.config.DeviceID),
		)
	}

	if s.config.HasApplicationInsights() && s.appInsightsClient != nil {
		trace := appinsights.NewTraceTelemetry("ServiceStartup", appinsights.Information)
		trace.Properties["service.name"] = s.config.ServiceName
		trace.Properties["service.version"] = s.config.ServiceVersion
		trace.Properties["service.transport"] = transport
		trace.Properties["device.id"] = s.config.DeviceID

		s.appInsightsClient.Track(trace)
	}
}

// Shutdown gracefully shuts down the telemetry service
func (s *Service) Shutdown(ctx context.Context) error {
	if s == nil || !s.isInitialized {
		return nil
	}

	if s.appInsightsClient != nil {
		select {
		case <-s.appInsightsClient.Channel().Close(2 * time.Second):
		case <-ctx.Done():
		}
	}

	if s.tracerProvider != nil {
		return s.tracerProvider.Shutdown(ctx)
	}

	return nil
}

// IsInitialized returns whether the service has been initialized
func (s *Service) IsInitialized() bool {
	return s != nil && s.isInitialized
}
