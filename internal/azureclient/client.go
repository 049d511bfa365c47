// Package azureclient is the Azure query backend: workspace targets go to Log
// Analytics, subscription targets go to Resource Graph.
package azureclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Azure/ai4ops-mcp/internal/config"
	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/Azure/ai4ops-mcp/internal/query"
	"github.com/Azure/ai4ops-mcp/internal/timespan"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/monitor/query/azlogs"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
)

// graphPageSize is the largest page Resource Graph returns.
const graphPageSize int32 = 1000

// LogsQuerier is the subset of azlogs.Client used here.
type LogsQuerier interface {
	QueryWorkspace(ctx context.Context, workspaceID string, body azlogs.QueryBody, options *azlogs.QueryWorkspaceOptions) (azlogs.QueryWorkspaceResponse, error)
}

// GraphQuerier is the subset of armresourcegraph.Client used here.
type GraphQuerier interface {
	Resources(ctx context.Context, query armresourcegraph.QueryRequest, options *armresourcegraph.ClientResourcesOptions) (armresourcegraph.ClientResourcesResponse, error)
}

// AzureClient runs KQL against Azure. It is safe for concurrent use.
type AzureClient struct {
	logs          LogsQuerier
	graph         GraphQuerier
	maxGraphPages int
}

// NewAzureClient creates a client authenticated with the default credential chain
func NewAzureClient(cfg *config.ConfigData) (*AzureClient, error) {
	cred, err := NewCredential()
	if err != nil {
		return nil, err
	}
	return NewAzureClientWithCredential(cfg, cred)
}

// NewAzureClientWithCredential creates a client using cred for both services
func NewAzureClientWithCredential(cfg *config.ConfigData, cred azcore.TokenCredential) (*AzureClient, error) {
	logs, err := azlogs.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Log Analytics client: %w", err)
	}
	graph, err := armresourcegraph.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Resource Graph client: %w", err)
	}
	return New(logs, graph, cfg.MaxGraphPages), nil
}

// New wires already constructed service clients.
func New(logs LogsQuerier, graph GraphQuerier, maxGraphPages int) *AzureClient {
	if maxGraphPages < 1 {
		maxGraphPages = 1
	}
	return &AzureClient{logs: logs, graph: graph, maxGraphPages: maxGraphPages}
}

// Run implements query.Backend.
func (c *AzureClient) Run(ctx context.Context, q string, target query.Target, window timespan.Window) (any, error) {
	if target.IsWorkspace() {
		return c.queryWorkspace(ctx, q, target.WorkspaceID, window)
	}
	return c.queryGraph(ctx, q, target.SubscriptionIDs)
}

func (c *AzureClient) queryWorkspace(ctx context.Context, q, workspaceID string, window timespan.Window) ([]*query.Table, error) {
	if c.logs == nil {
		return nil, errors.New("log analytics client is not configured")
	}

	body := azlogs.QueryBody{
		Query:    to.Ptr(q),
		Timespan: to.Ptr(azlogs.NewTimeInterval(window.Start(), window.End())),
	}

	var opts *azlogs.QueryWorkspaceOptions
	if deadline, ok := ctx.Deadline(); ok {
		if wait := int(math.Ceil(time.Until(deadline).Seconds())); wait > 0 {
			opts = &azlogs.QueryWorkspaceOptions{Options: &azlogs.QueryOptions{Wait: to.Ptr(wait)}}
		}
	}

	logger.Debugf("Querying Log Analytics workspace %s over %s", workspaceID, window.Interval())
	res, err := c.logs.QueryWorkspace(ctx, workspaceID, body, opts)
	if err != nil {
		return nil, err
	}
	if res.Error != nil {
		return nil, fmt.Errorf("log analytics query returned an error: %s", res.Error.Code)
	}

	tables := make([]*query.Table, 0, len(res.Tables))
	for i := range res.Tables {
		tables = append(tables, convertLogsTable(&res.Tables[i]))
	}
	return tables, nil
}

func convertLogsTable(t *azlogs.Table) *query.Table {
	out := &query.Table{Columns: make([]string, len(t.Columns)), Rows: make([][]any, 0, len(t.Rows))}
	if t.Name != nil {
		out.Name = *t.Name
	}

	types := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		if col.Name != nil {
			out.Columns[i] = *col.Name
		}
		if col.Type != nil {
			types[i] = string(*col.Type)
		}
	}

	for _, row := range t.Rows {
		values := make([]any, len(row))
		for i, v := range row {
			colType := ""
			if i < len(types) {
				colType = types[i]
			}
			values[i] = convertCell(colType, v)
		}
		out.Rows = append(out.Rows, values)
	}
	return out
}

// convertCell turns wire values into native ones using the declared column
// type. Values that do not match their declared type are kept as received.
func convertCell(colType string, v any) any {
	switch strings.ToLower(colType) {
	case string(azlogs.ColumnTypeDatetime):
		if s, ok := v.(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return ts.UTC()
			}
		}
	case string(azlogs.ColumnTypeDynamic), "object":
		if s, ok := v.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return decoded
			}
		}
	case string(azlogs.ColumnTypeInt), string(azlogs.ColumnTypeLong), "integer":
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
	}
	return v
}

func (c *AzureClient) queryGraph(ctx context.Context, q string, subscriptions []string) (*query.Table, error) {
	if c.graph == nil {
		return nil, errors.New("resource graph client is not configured")
	}
	if len(subscriptions) == 0 {
		return nil, errors.New("no subscriptions to query")
	}

	req := armresourcegraph.QueryRequest{
		Query:         to.Ptr(q),
		Subscriptions: to.SliceOfPtrs(subscriptions...),
		Options: &armresourcegraph.QueryRequestOptions{
			ResultFormat: to.Ptr(armresourcegraph.ResultFormatTable),
			Top:          to.Ptr(graphPageSize),
		},
	}

	table := &query.Table{Name: "resources"}
	var colTypes []string

	for page := 1; ; page++ {
		logger.Debugf("Querying Resource Graph page %d across %d subscription(s)", page, len(subscriptions))
		res, err := c.graph.Resources(ctx, req, nil)
		if err != nil {
			return nil, err
		}

		columns, types, rows, err := parseGraphTable(res.Data)
		if err != nil {
			return nil, err
		}
		if page == 1 {
			table.Columns = columns
			colTypes = types
		}
		for _, row := range rows {
			values := make([]any, len(row))
			for i, v := range row {
				colType := ""
				if i < len(colTypes) {
					colType = colTypes[i]
				}
				values[i] = convertCell(colType, v)
			}
			table.Rows = append(table.Rows, values)
		}

		if res.ResultTruncated != nil && *res.ResultTruncated == armresourcegraph.ResultTruncatedTrue {
			logger.Warnf("Resource Graph reported a truncated result")
		}
		if res.SkipToken == nil || *res.SkipToken == "" {
			break
		}
		if page >= c.maxGraphPages {
			logger.Warnf("Stopping Resource Graph paging after %d pages; %d rows returned", page, len(table.Rows))
			break
		}
		req.Options.SkipToken = res.SkipToken
	}

	return table, nil
}

// parseGraphTable reads the table result format: {"columns": [{"name", "type"}], "rows": [[...]]}.
func parseGraphTable(data any) (columns, types []string, rows [][]any, err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return nil, nil, nil, fmt.Errorf("unexpected Resource Graph payload %T", data)
	}

	rawCols, _ := m["columns"].([]any)
	for _, rc := range rawCols {
		col, ok := rc.(map[string]any)
		if !ok {
			return nil, nil, nil, fmt.Errorf("unexpected Resource Graph column %T", rc)
		}
		name, _ := col["name"].(string)
		colType, _ := col["type"].(string)
		columns = append(columns, name)
		types = append(types, colType)
	}

	rawRows, _ := m["rows"].([]any)
	for _, rr := range rawRows {
		row, ok := rr.([]any)
		if !ok {
			return nil, nil, nil, fmt.Errorf("unexpected Resource Graph row %T", rr)
		}
		rows = append(rows, row)
	}
	return columns, types, rows, nil
}
