// Package catalog resolves tool calls to reports and runs them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/ai4ops-mcp/internal/components/monitor"
	"github.com/Azure/ai4ops-mcp/internal/config"
	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/Azure/ai4ops-mcp/internal/metrics"
	"github.com/Azure/ai4ops-mcp/internal/query"
	"github.com/Azure/ai4ops-mcp/internal/telemetry"
	"github.com/Azure/ai4ops-mcp/internal/timespan"
	"github.com/Azure/ai4ops-mcp/internal/tools"
	"github.com/google/uuid"
)

// Catalog maps tool names to report definitions. It holds no per-call state
// and is safe for concurrent use when its backend is.
type Catalog struct {
	cfg        *config.ConfigData
	parser     *timespan.Parser
	dispatcher *query.Dispatcher
	telemetry  *telemetry.Service
}

// New creates a catalog. A nil cfg means the defaults of config.NewConfig;
// parser may be nil for the wall clock.
func New(cfg *config.ConfigData, dispatcher *query.Dispatcher, parser *timespan.Parser) *Catalog {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if parser == nil {
		parser = timespan.NewParser(nil)
	}
	return &Catalog{
		cfg:        cfg,
		parser:     parser,
		dispatcher: dispatcher,
		telemetry:  cfg.TelemetryService,
	}
}

// Definitions lists the reports exposed as tools.
func (c *Catalog) Definitions() []*monitor.Definition {
	return monitor.GetDefinitions()
}

// Invoke runs the named report and returns its result. It never returns a Go
// error; every failure is carried in the result.
func (c *Catalog) Invoke(ctx context.Context, name string, args map[string]any) query.Result {
	start := time.Now()
	correlationID := uuid.NewString()

	def, ok := monitor.GetDefinition(name)
	if !ok {
		result := query.ErrorResult(query.CodeUnknownReport, "unknown report %q", name)
		c.record(ctx, name, "", correlationID, start, result)
		return result
	}

	ctx, span := c.telemetry.StartActivity(ctx, name)
	defer span.End()

	args = c.withDefaults(def, args)
	token := timespanToken(args[monitor.ParamTimespan])
	window := c.parser.Parse(token, def.DefaultTimespan())

	logger.Infow("Report invoked",
		"tool", name,
		"correlation_id", correlationID,
		"scope", string(def.Scope),
		"timespan", window.KQL(),
	)

	spec, err := monitor.Build(def, args, window)
	if err != nil {
		result := buildErrorResult(err)
		logger.Warnf("Report %s rejected [%s]: %v", name, correlationID, err)
		c.record(ctx, name, def.Scope, correlationID, start, result)
		return result
	}

	if def.Scope == monitor.ScopeWorkspace && !monitor.IsWorkspaceID(spec.Target.WorkspaceID) {
		logger.Warnf("Workspace id %q for %s does not look like a GUID; sending it anyway", spec.Target.WorkspaceID, name)
	}

	if timeout := c.cfg.QueryTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result := c.dispatcher.Execute(ctx, spec)
	c.record(ctx, name, def.Scope, correlationID, start, result)
	return result
}

// Handler adapts the named report to the MCP tool handler interface.
func (c *Catalog) Handler(name string) tools.ResourceHandler {
	return tools.ResourceHandlerFunc(func(ctx context.Context, params map[string]interface{}, _ *config.ConfigData) (string, error) {
		return c.Invoke(ctx, name, params).JSON(), nil
	})
}

// withDefaults fills subscription_ids from the configured default
// subscription when the caller sent none.
func (c *Catalog) withDefaults(def *monitor.Definition, args map[string]any) map[string]any {
	if def.Scope != monitor.ScopeSubscriptions || c.cfg.SubscriptionID == "" {
		return args
	}
	if hasValue(args[monitor.ParamSubscriptionIDs]) || hasValue(args["subscription_id"]) {
		return args
	}

	logger.Infof("Using default subscription %s for %s", c.cfg.SubscriptionID, def.Name)
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	out[monitor.ParamSubscriptionIDs] = []string{c.cfg.SubscriptionID}
	return out
}

func (c *Catalog) record(ctx context.Context, name string, scope monitor.Scope, correlationID string, start time.Time, result query.Result) {
	outcome := "success"
	var code string
	switch {
	case result.Err == nil:
	case result.Err.Code == query.CodeBackendFault || result.Err.Code == query.CodeInvalidResult:
		outcome, code = "error", result.Err.Code
	default:
		outcome, code = "invalid", result.Err.Code
	}

	elapsed := time.Since(start)
	metrics.ObserveToolInvocation(name, outcome, result.RowCount())
	c.telemetry.TrackToolInvocation(ctx, telemetry.Invocation{
		Tool:          name,
		Scope:         string(scope),
		CorrelationID: correlationID,
		Rows:          result.RowCount(),
		Duration:      elapsed,
		Success:       result.OK(),
		ErrorCode:     code,
	})
	logger.Infow("Report finished",
		"tool", name,
		"correlation_id", correlationID,
		"outcome", outcome,
		"rows", result.RowCount(),
		"duration", elapsed,
	)
}

func buildErrorResult(err error) query.Result {
	var missing *monitor.MissingParameterError
	if errors.As(err, &missing) {
		return query.ErrorResult(query.CodeMissingParameter, "%s", err.Error())
	}
	var invalid *monitor.InvalidParameterError
	if errors.As(err, &invalid) {
		return query.ErrorResult(query.CodeInvalidArgument, "%s", err.Error())
	}
	return query.ErrorResult(query.CodeInvalidArgument, "%v", err)
}

// timespanToken accepts any scalar; anything unusable parses to the fallback.
func timespanToken(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func hasValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case []string:
		return len(x) > 0
	}
	return true
}
