// Package query executes rendered KQL against a backend and normalizes
// whatever comes back into a single JSON-safe result envelope.
package query

import (
	"context"
	"strings"

	"github.com/Azure/ai4ops-mcp/internal/timespan"
)

// Target identifies where a query runs. Exactly one of SubscriptionIDs or
// WorkspaceID is meaningful, depending on the report scope.
type Target struct {
	// SubscriptionIDs scopes an Azure Resource Graph query
	SubscriptionIDs []string
	// WorkspaceID selects a Log Analytics workspace
	WorkspaceID string
}

// IsWorkspace reports whether the target is a Log Analytics workspace.
func (t Target) IsWorkspace() bool {
	return t.WorkspaceID != ""
}

func (t Target) String() string {
	if t.IsWorkspace() {
		return "workspace:" + t.WorkspaceID
	}
	return "subscriptions:" + strings.Join(t.SubscriptionIDs, ",")
}

// Spec is one fully rendered query, ready for dispatch.
type Spec struct {
	Report string
	Query  string
	Target Target
	Window timespan.Window
	RowCap int
}

// Table is the canonical tabular shape a backend may return.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Backend runs a query against a managed query service. The returned payload
// may be a Table, a slice of tables, a Resource Graph style
// {"columns": ..., "rows": ...} map, a {"data": ...} envelope or a list of
// records. Implementations must be safe for concurrent use if the caller
// dispatches concurrently.
type Backend interface {
	Run(ctx context.Context, query string, target Target, window timespan.Window) (any, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, query string, target Target, window timespan.Window) (any, error)

// Run calls f.
func (f BackendFunc) Run(ctx context.Context, query string, target Target, window timespan.Window) (any, error) {
	return f(ctx, query, target, window)
}
