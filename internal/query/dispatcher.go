package query

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/Azure/ai4ops-mcp/internal/metrics"
)

// Dispatcher sends rendered queries to a single backend. It performs exactly
// one attempt per call; there are no retries.
type Dispatcher struct {
	backend Backend
}

// NewDispatcher creates a dispatcher over an already authenticated backend.
func NewDispatcher(backend Backend) *Dispatcher {
	return &Dispatcher{backend: backend}
}

// Execute runs spec and returns its normalized result. Backend errors and
// panics are converted into an Error result; Execute itself never fails.
func (d *Dispatcher) Execute(ctx context.Context, spec Spec) (result Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Query dispatch for %s panicked: %v\n%s", spec.Report, r, debug.Stack())
			result = ErrorResult(CodeBackendFault, "query backend failed: %v", r)
		}
		metrics.ObserveBackendCall(spec.Report, backendKind(spec.Target), result.OK(), time.Since(start))
	}()

	if d.backend == nil {
		return ErrorResult(CodeBackendFault, "no query backend configured")
	}

	logger.Debugf("Dispatching %s to %s over %s", spec.Report, spec.Target, spec.Window)
	logger.Debugf("Query: %s", spec.Query)

	payload, err := d.backend.Run(ctx, spec.Query, spec.Target, spec.Window)
	if err != nil {
		logger.Errorf("Query %s failed after %s: %v", spec.Report, time.Since(start), err)
		return Result{Err: &Error{Code: CodeBackendFault, Message: err.Error()}}
	}

	rows, err := Normalize(payload)
	if err != nil {
		logger.Errorf("Query %s returned an unusable result: %v", spec.Report, err)
		return ErrorResult(CodeInvalidResult, "%v", err)
	}

	if spec.RowCap > 0 && len(rows.Values) > spec.RowCap {
		logger.Warnf("Query %s returned %d rows, truncating to %d", spec.Report, len(rows.Values), spec.RowCap)
		rows.Values = rows.Values[:spec.RowCap]
	}

	logger.Infof("Query %s returned %d rows in %s", spec.Report, len(rows.Values), time.Since(start))
	return RowsResult(rows)
}

func backendKind(t Target) string {
	if t.IsWorkspace() {
		return "log_analytics"
	}
	return "resource_graph"
}
