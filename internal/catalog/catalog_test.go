package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Azure/ai4ops-mcp/internal/config"
	"github.com/Azure/ai4ops-mcp/internal/query"
	"github.com/Azure/ai4ops-mcp/internal/timespan"
)

var fixedNow = time.Date(2025, 7, 15, 10, 30, 0, 0, time.UTC)

type recordingBackend struct {
	payload any
	err     error

	calls    int
	query    string
	target   query.Target
	window   timespan.Window
	deadline bool
}

func (b *recordingBackend) Run(ctx context.Context, q string, target query.Target, window timespan.Window) (any, error) {
	b.calls++
	b.query = q
	b.target = target
	b.window = window
	_, b.deadline = ctx.Deadline()
	return b.payload, b.err
}

func newTestCatalog(t *testing.T, backend query.Backend, subscription string) *Catalog {
	t.Helper()
	t.Setenv("SUBSCRIPTION_ID", "")
	t.Setenv("AZURE_SUBSCRIPTION_ID", "")
	cfg := config.NewConfig()
	cfg.SubscriptionID = subscription
	cfg.Timeout = 30
	parser := timespan.NewParser(func() time.Time { return fixedNow })
	return New(cfg, query.NewDispatcher(backend), parser)
}

func twoRowPayload() []*query.Table {
	return []*query.Table{{
		Name:    "PrimaryResult",
		Columns: []string{"TargetType", "TargetName", "Severity", "CheckId"},
		Rows: [][]any{
			{"Server", "SQL01", "High", "TF174"},
			{"Database", "SalesDb", "Medium", "AutoShrink"},
		},
	}}
}

func TestInvokeSqlBpAssessmentEndToEnd(t *testing.T) {
	backend := &recordingBackend{payload: twoRowPayload()}
	c := newTestCatalog(t, backend, "")

	out := c.Invoke(context.Background(), "GetSqlBpAssessment", map[string]any{"workspace_id": "abc"}).JSON()

	if !strings.Contains(backend.query, "where TimeGenerated > ago(30d)") {
		t.Errorf("Expected the 30 day default in the query, got: %s", backend.query)
	}
	if backend.window.Duration() != 30*timespan.Day || !backend.window.End().Equal(fixedNow) {
		t.Errorf("Expected 30 day window ending now, got %s", backend.window)
	}
	if backend.target.WorkspaceID != "abc" {
		t.Errorf("Expected workspace target abc, got %+v", backend.target)
	}
	if !backend.deadline {
		t.Error("Expected the configured timeout to bound the backend call")
	}

	var records []map[string]any
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("Expected JSON array, got %s", out)
	}
	if len(records) != 2 {
		t.Fatalf("Expected two records, got %d", len(records))
	}

	want := `[{"TargetType":"Server","TargetName":"SQL01","Severity":"High","CheckId":"TF174"},` +
		`{"TargetType":"Database","TargetName":"SalesDb","Severity":"Medium","CheckId":"AutoShrink"}]`
	if out != want {
		t.Errorf("Expected column order to be preserved\n got: %s\nwant: %s", out, want)
	}
}

func TestInvokeExplicitTimespan(t *testing.T) {
	tests := []struct {
		token    any
		wantKQL  string
		wantSpan time.Duration
	}{
		{"7d", "ago(7d)", 7 * timespan.Day},
		{"12H", "ago(12h)", 12 * time.Hour},
		{"P3D", "ago(3d)", 3 * timespan.Day},
		{"0d", "ago(0d)", 0},
		{"garbage", "ago(1d)", timespan.Day},
		{42, "ago(1d)", timespan.Day},
		{"", "ago(30d)", 30 * timespan.Day},
	}

	for _, tt := range tests {
		backend := &recordingBackend{payload: twoRowPayload()}
		c := newTestCatalog(t, backend, "")

		res := c.Invoke(context.Background(), "GetAnomalies", map[string]any{"workspace_id": "abc", "timespan": tt.token})
		if !res.OK() {
			t.Fatalf("timespan %v: expected rows, got %v", tt.token, res.Err)
		}
		if !strings.Contains(backend.query, tt.wantKQL) {
			t.Errorf("timespan %v: expected %s in query, got: %s", tt.token, tt.wantKQL, backend.query)
		}
		if backend.window.Duration() != tt.wantSpan {
			t.Errorf("timespan %v: expected window %s, got %s", tt.token, tt.wantSpan, backend.window.Duration())
		}
	}
}

func TestInvokeMissingParameter(t *testing.T) {
	backend := &recordingBackend{}
	c := newTestCatalog(t, backend, "")

	res := c.Invoke(context.Background(), "GetServerMetadata", map[string]any{})
	if res.Err == nil || res.Err.Code != query.CodeMissingParameter {
		t.Fatalf("Expected missing parameter error, got %+v", res)
	}
	if got := res.JSON(); got != `{"error":"missing required parameter(s): subscription_ids"}` {
		t.Errorf("Unexpected envelope: %s", got)
	}
	if backend.calls != 0 {
		t.Error("Backend must not be called when parameters are missing")
	}
}

func TestInvokeUsesDefaultSubscription(t *testing.T) {
	backend := &recordingBackend{payload: map[string]any{"columns": []any{}, "rows": []any{}}}
	c := newTestCatalog(t, backend, "44444444-4444-4444-4444-444444444444")

	res := c.Invoke(context.Background(), "GetPatchingLevel", map[string]any{})
	if !res.OK() {
		t.Fatalf("Expected success with default subscription, got %v", res.Err)
	}
	if len(backend.target.SubscriptionIDs) != 1 || backend.target.SubscriptionIDs[0] != "44444444-4444-4444-4444-444444444444" {
		t.Errorf("Expected default subscription target, got %+v", backend.target)
	}

	args := map[string]any{"subscription_ids": []any{"sub-x"}}
	c.Invoke(context.Background(), "GetPatchingLevel", args)
	if backend.target.SubscriptionIDs[0] != "sub-x" {
		t.Errorf("Explicit subscriptions must win over the default, got %+v", backend.target)
	}
	if _, mutated := args["subscription_id"]; mutated || len(args) != 1 {
		t.Error("Caller arguments must not be mutated")
	}
}

func TestInvokeBackendFault(t *testing.T) {
	backend := &recordingBackend{err: errors.New("(BadArgumentError) The request had some invalid properties")}
	c := newTestCatalog(t, backend, "")

	res := c.Invoke(context.Background(), "GetSwConfig", map[string]any{"workspace_id": "abc", "server_name": "srv01"})
	if res.Err == nil || res.Err.Code != query.CodeBackendFault {
		t.Fatalf("Expected backend fault, got %+v", res)
	}
	if got := res.JSON(); got != `{"error":"(BadArgumentError) The request had some invalid properties"}` {
		t.Errorf("Unexpected envelope: %s", got)
	}
}

func TestInvokeUnknownReport(t *testing.T) {
	res := newTestCatalog(t, &recordingBackend{}, "").Invoke(context.Background(), "GetEverything", nil)
	if res.Err == nil || res.Err.Code != query.CodeUnknownReport {
		t.Fatalf("Expected unknown report error, got %+v", res)
	}
}

func TestInvokeInvalidArgument(t *testing.T) {
	res := newTestCatalog(t, &recordingBackend{}, "").Invoke(context.Background(), "GetSwConfig",
		map[string]any{"workspace_id": "abc", "server_name": []any{"a", "b"}})
	if res.Err == nil || res.Err.Code != query.CodeInvalidArgument {
		t.Fatalf("Expected invalid argument error, got %+v", res)
	}
}

func TestHandler(t *testing.T) {
	backend := &recordingBackend{payload: twoRowPayload()}
	c := newTestCatalog(t, backend, "")

	out, err := c.Handler("GetWinBpAssessment").Handle(context.Background(), map[string]interface{}{"workspace_id": "abc"}, nil)
	if err != nil {
		t.Fatalf("Handler must report failures in the payload, got %v", err)
	}
	if !strings.HasPrefix(out, `[{"TargetType"`) {
		t.Errorf("Unexpected handler output: %s", out)
	}

	out, err = c.Handler("GetWinBpAssessment").Handle(context.Background(), map[string]interface{}{}, nil)
	if err != nil || !strings.HasPrefix(out, `{"error":`) {
		t.Errorf("Expected error envelope, got %s %v", out, err)
	}
}

func TestDefinitionsExposeEveryReport(t *testing.T) {
	defs := newTestCatalog(t, &recordingBackend{}, "").Definitions()
	if len(defs) != 10 {
		t.Errorf("Expected 10 tools, got %d", len(defs))
	}
}

func TestNewWithoutConfig(t *testing.T) {
	t.Setenv("SUBSCRIPTION_ID", "")
	t.Setenv("AZURE_SUBSCRIPTION_ID", "")
	backend := &recordingBackend{payload: twoRowPayload()}

	c := New(nil, query.NewDispatcher(backend), nil)
	res := c.Invoke(context.Background(), "GetSqlBpAssessment", map[string]any{"workspace_id": "abc"})
	if !res.OK() || res.RowCount() != 2 {
		t.Fatalf("Expected defaults to be used without a config, got %+v", res)
	}
	if !backend.deadline {
		t.Error("Expected the default timeout to bound the backend call")
	}
}
