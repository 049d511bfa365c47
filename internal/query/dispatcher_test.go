package query

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Azure/ai4ops-mcp/internal/timespan"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// fakeBackend captures inputs and returns a preset payload/error.
type fakeBackend struct {
	payload any
	err     error
	panicV  any

	calls      int
	lastQuery  string
	lastTarget Target
	lastWindow timespan.Window
}

func (f *fakeBackend) Run(_ context.Context, query string, target Target, window timespan.Window) (any, error) {
	f.calls++
	f.lastQuery = query
	f.lastTarget = target
	f.lastWindow = window
	if f.panicV != nil {
		panic(f.panicV)
	}
	return f.payload, f.err
}

func testSpec() Spec {
	now := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)
	return Spec{
		Report: "GetSwConfig",
		Query:  "ConfigurationData | take 1",
		Target: Target{WorkspaceID: "ws"},
		Window: timespan.NewWindow(now, 30*timespan.Day),
		RowCap: 1000,
	}
}

func TestExecutePassesSpecToBackend(t *testing.T) {
	b := &fakeBackend{payload: Table{Columns: []string{"a"}, Rows: [][]any{{1}}}}
	spec := testSpec()

	res := NewDispatcher(b).Execute(context.Background(), spec)

	if !res.OK() {
		t.Fatalf("expected rows, got error %v", res.Err)
	}
	if b.calls != 1 {
		t.Errorf("expected exactly one backend call, got %d", b.calls)
	}
	if b.lastQuery != spec.Query || b.lastTarget.WorkspaceID != "ws" || b.lastWindow != spec.Window {
		t.Errorf("backend received unexpected inputs: %q %v %v", b.lastQuery, b.lastTarget, b.lastWindow)
	}
}

func TestExecuteConvertsBackendError(t *testing.T) {
	b := &fakeBackend{err: errors.New("workspace not found")}

	res := NewDispatcher(b).Execute(context.Background(), testSpec())

	if res.OK() || res.Err == nil {
		t.Fatal("expected error result")
	}
	if res.Err.Code != CodeBackendFault {
		t.Errorf("expected code %s, got %s", CodeBackendFault, res.Err.Code)
	}
	if b.calls != 1 {
		t.Errorf("expected no retries, got %d calls", b.calls)
	}
	if got := res.JSON(); got != `{"error":"workspace not found"}` {
		t.Errorf("unexpected envelope: %s", got)
	}
}

func TestExecuteRecoversFromPanic(t *testing.T) {
	b := &fakeBackend{panicV: "boom"}

	var res Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("panic escaped the dispatcher: %v", r)
			}
		}()
		res = NewDispatcher(b).Execute(context.Background(), testSpec())
	}()

	if res.Err == nil || res.Err.Code != CodeBackendFault {
		t.Fatalf("expected backend fault, got %+v", res)
	}
	if !strings.Contains(res.Err.Message, "boom") {
		t.Errorf("expected panic value in message, got %s", res.Err.Message)
	}
}

func TestExecuteWithoutBackend(t *testing.T) {
	res := NewDispatcher(nil).Execute(context.Background(), testSpec())
	if res.Err == nil || res.Err.Code != CodeBackendFault {
		t.Fatalf("expected backend fault, got %+v", res)
	}
}

func TestExecuteRejectsUnsupportedShape(t *testing.T) {
	b := &fakeBackend{payload: 42}

	res := NewDispatcher(b).Execute(context.Background(), testSpec())
	if res.Err == nil || res.Err.Code != CodeInvalidResult {
		t.Fatalf("expected invalid_result, got %+v", res)
	}
}

func TestExecuteEnforcesRowCap(t *testing.T) {
	b := &fakeBackend{payload: Table{Columns: []string{"n"}, Rows: [][]any{{1}, {2}, {3}}}}
	spec := testSpec()
	spec.RowCap = 2

	res := NewDispatcher(b).Execute(context.Background(), spec)
	if res.RowCount() != 2 {
		t.Fatalf("expected rows to be capped at 2, got %d", res.RowCount())
	}

	spec.RowCap = 0
	if res := NewDispatcher(b).Execute(context.Background(), spec); res.RowCount() != 3 {
		t.Errorf("expected uncapped result, got %d rows", res.RowCount())
	}
}

func TestExecuteTwoRowsPreservesColumnOrder(t *testing.T) {
	ts := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	b := &fakeBackend{payload: []*Table{{
		Name:    "PrimaryResult",
		Columns: []string{"TargetName", "Severity", "CheckId", "At"},
		Rows: [][]any{
			{"srv01", "High", "TF174", ts},
			{"srv02", "Low", "MaxDOP", ts.Add(time.Hour)},
		},
	}}}

	res := NewDispatcher(b).Execute(context.Background(), testSpec())
	out := res.JSON()

	var records []map[string]any
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("result is not a JSON array: %v\n%s", err, out)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1]["At"] != "2025-07-01T09:00:00Z" {
		t.Errorf("expected ISO timestamp, got %v", records[1]["At"])
	}

	first := out[:strings.Index(out, "}")]
	order := []string{`"TargetName"`, `"Severity"`, `"CheckId"`, `"At"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(first, key)
		if idx <= last {
			t.Fatalf("column %s out of order in %s", key, first)
		}
		last = idx
	}
}

func TestNormalizeShapes(t *testing.T) {
	ordered := orderedmap.New[string, any]()
	ordered.Set("z", 1)
	ordered.Set("a", 2)

	tests := []struct {
		name     string
		payload  any
		wantCols []string
		wantRows [][]any
		wantErr  bool
	}{
		{
			name:     "nil",
			payload:  nil,
			wantCols: []string{},
			wantRows: [][]any{},
		},
		{
			name:     "table with short row",
			payload:  &Table{Columns: []string{"a", "b"}, Rows: [][]any{{1}}},
			wantCols: []string{"a", "b"},
			wantRows: [][]any{{int64(1), nil}},
		},
		{
			name: "multiple tables",
			payload: []Table{
				{Columns: []string{"a", "b"}, Rows: [][]any{{1, 2}}},
				{Columns: []string{"b", "c"}, Rows: [][]any{{3, 4}}},
			},
			wantCols: []string{"a", "b", "c"},
			wantRows: [][]any{{int64(1), int64(2), nil}, {nil, int64(3), int64(4)}},
		},
		{
			name: "resource graph table format",
			payload: map[string]any{
				"columns": []any{
					map[string]any{"name": "name", "type": "string"},
					map[string]any{"name": "location", "type": "string"},
				},
				"rows": []any{[]any{"vm1", "westeurope"}},
			},
			wantCols: []string{"name", "location"},
			wantRows: [][]any{{"vm1", "westeurope"}},
		},
		{
			name:     "data envelope with object array",
			payload:  map[string]any{"data": []any{map[string]any{"b": 1, "a": "x"}}, "count": 1},
			wantCols: []string{"a", "b"},
			wantRows: [][]any{{"x", int64(1)}},
		},
		{
			name:     "record list",
			payload:  []map[string]any{{"name": "a"}, {"name": "b", "extra": true}},
			wantCols: []string{"name", "extra"},
			wantRows: [][]any{{"a", nil}, {"b", true}},
		},
		{
			name:     "ordered record",
			payload:  []*orderedmap.OrderedMap[string, any]{ordered},
			wantCols: []string{"z", "a"},
			wantRows: [][]any{{int64(1), int64(2)}},
		},
		{
			name:    "columns not a list",
			payload: map[string]any{"columns": "oops"},
			wantErr: true,
		},
		{
			name:    "list of scalars",
			payload: []any{1, 2},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Normalize(tt.payload)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", rows)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(rows.Columns, tt.wantCols) {
				t.Errorf("columns = %v, want %v", rows.Columns, tt.wantCols)
			}
			if !reflect.DeepEqual(rows.Values, tt.wantRows) {
				t.Errorf("rows = %#v, want %#v", rows.Values, tt.wantRows)
			}
		})
	}
}

func TestResultJSONEmpty(t *testing.T) {
	res := RowsResult(&Rows{Columns: []string{"a"}, Values: nil})
	if got := res.JSON(); got != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}
	if got := (Result{}).JSON(); got != `{"error":"empty result"}` {
		t.Errorf("unexpected zero result JSON: %s", got)
	}
}
