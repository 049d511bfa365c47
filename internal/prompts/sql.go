package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/ai4ops-mcp/internal/config"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterSqlEstatePrompt registers the prompt that reviews the SQL Server
// estate across subscriptions.
func RegisterSqlEstatePrompt(s *server.MCPServer, cfg *config.ConfigData) {
	s.AddPrompt(mcp.NewPrompt("review_sql_estate",
		mcp.WithPromptDescription("Review SQL Server instances and their best practices assessment results"),
		mcp.WithArgument("workspace_id",
			mcp.ArgumentDescription("Log Analytics workspace receiving the SQL best practices assessment"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("subscription_id",
			mcp.ArgumentDescription("Subscription to inventory; defaults to the server's configured subscription"),
		),
	), func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		workspaceID := strings.TrimSpace(request.Params.Arguments["workspace_id"])
		if workspaceID == "" {
			return nil, fmt.Errorf("workspace_id is required")
		}
		subscriptionID := argOrDefault(request.Params.Arguments, "subscription_id", defaultSubscription(cfg))

		promptContent := fmt.Sprintf(`# SQL Server Estate Review

## Steps

### 1. Inventory SQL Server instances
Invoke GetSqlMetadata tool:
{
  "subscription_ids": ["%s"]
}
List each instance with its host server, edition, version and license type.

### 2. Collect the best practices assessment
Invoke GetSqlBpAssessment tool:
{
  "workspace_id": "%s"
}
Group the findings by instance and severity. Match TargetName against the inventory from Step 1.

### 3. Recommend
For every High severity finding, explain the risk and the fix. Point out instances that appear in the inventory but have no assessment data.
`, subscriptionID, workspaceID)

		return &mcp.GetPromptResult{
			Description: "SQL Server estate review",
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
	})
}
