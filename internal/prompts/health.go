package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/ai4ops-mcp/internal/config"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const serverHealthDescription = "Health review of a single server: inventory, missing patches, installed software, recent changes, Windows best practices and metric anomalies"

// RegisterHealthPrompts registers the server health review prompt.
func RegisterHealthPrompts(s *server.MCPServer, cfg *config.ConfigData) {
	s.AddPrompt(mcp.NewPrompt("review_server_health",
		mcp.WithPromptDescription(serverHealthDescription),
		mcp.WithArgument("server_name",
			mcp.ArgumentDescription("Computer name of the server to review"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("workspace_id",
			mcp.ArgumentDescription("Log Analytics workspace collecting the server's data"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("subscription_id",
			mcp.ArgumentDescription("Subscription holding the Arc or Azure machine; defaults to the server's configured subscription"),
		),
		mcp.WithArgument("timespan",
			mcp.ArgumentDescription("Look-back window such as 7d or 12h; defaults to 30d"),
		),
	), func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return serverHealthPrompt(request.Params.Arguments, cfg)
	})
}

func serverHealthPrompt(args map[string]string, cfg *config.ConfigData) (*mcp.GetPromptResult, error) {
	serverName := strings.TrimSpace(args["server_name"])
	workspaceID := strings.TrimSpace(args["workspace_id"])
	if serverName == "" || workspaceID == "" {
		return nil, fmt.Errorf("server_name and workspace_id are required")
	}
	subscriptionID := argOrDefault(args, "subscription_id", defaultSubscription(cfg))
	timespan := argOrDefault(args, "timespan", "30d")

	promptContent := fmt.Sprintf(`# Server Health Review: %[1]s

This guide reviews the health of server %[1]s over the last %[3]s using the monitoring reports of this server. Each report returns a JSON array of rows, or an object with an "error" field.

## Steps

### 1. Locate the server
Invoke GetServerMetadata tool:
{
  "subscription_ids": ["%[4]s"]
}
Find the row whose name matches %[1]s and note its operating system, location and status.

### 2. Check missing patches
Invoke GetPatchingLevel tool:
{
  "subscription_ids": ["%[4]s"]
}
Keep only rows whose ServerName is %[1]s. Group the missed patches by classification and flag critical or security updates.

### 3. Inventory installed software
Invoke GetSwConfig tool:
{
  "workspace_id": "%[2]s",
  "server_name": "%[1]s",
  "timespan": "%[3]s"
}
Highlight unsupported or outdated versions.

### 4. Review recent software changes
Invoke GetSwChangesList tool:
{
  "workspace_id": "%[2]s",
  "timespan": "%[3]s"
}
Keep changes on %[1]s and relate them to anything found in the following steps.

### 5. Check Windows best practices
Invoke GetWinBpAssessment tool:
{
  "workspace_id": "%[2]s",
  "timespan": "%[3]s"
}
Report the high weight recommendations that apply to %[1]s.

### 6. Detect metric anomalies
Invoke GetAnomalies tool:
{
  "workspace_id": "%[2]s",
  "timespan": "%[3]s"
}
List the hours where %[1]s exceeded the processor or disk threshold.

### 7. Summarize
Produce a short health report for %[1]s ordered by severity, with a concrete remediation for each finding. If a report returned an error, say which one and why.
`, serverName, workspaceID, timespan, subscriptionID)

	return &mcp.GetPromptResult{
		Description: serverHealthDescription,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleAssistant,
				Content: mcp.TextContent{
					Type: "text",
					Text: promptContent,
				},
			},
		},
	}, nil
}

func argOrDefault(args map[string]string, name, def string) string {
	if v := strings.TrimSpace(args[name]); v != "" {
		return v
	}
	return def
}

func defaultSubscription(cfg *config.ConfigData) string {
	if cfg.SubscriptionID == "" {
		return "<SUBSCRIPTION_ID>"
	}
	return cfg.SubscriptionID
}
