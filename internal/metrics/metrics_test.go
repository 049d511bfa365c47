package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveToolInvocation(t *testing.T) {
	before := testutil.ToFloat64(ToolInvocationsTotal.WithLabelValues("GetSwConfig", "success"))

	ObserveToolInvocation("GetSwConfig", "success", 12)
	ObserveToolInvocation("GetSwConfig", "error", 0)

	after := testutil.ToFloat64(ToolInvocationsTotal.WithLabelValues("GetSwConfig", "success"))
	if after-before != 1 {
		t.Errorf("expected success counter to grow by 1, grew by %v", after-before)
	}
	if got := testutil.ToFloat64(ToolInvocationsTotal.WithLabelValues("GetSwConfig", "error")); got < 1 {
		t.Errorf("expected error counter to be recorded, got %v", got)
	}
}

func TestObserveBackendCall(t *testing.T) {
	ObserveBackendCall("GetAnomalies", "log_analytics", true, 150*time.Millisecond)
	ObserveBackendCall("GetAnomalies", "log_analytics", false, time.Second)

	if n := testutil.CollectAndCount(BackendCallDuration, "ai4ops_mcp_backend_call_duration_seconds"); n < 2 {
		t.Errorf("expected at least two series, got %d", n)
	}
}
