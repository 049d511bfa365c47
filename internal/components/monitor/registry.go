package monitor

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// RegisterReportTool builds the MCP tool schema for a report definition
func RegisterReportTool(def *Definition) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(toolDescription(def)),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	}

	for _, p := range def.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}

		switch p.Kind {
		case KindStringList:
			props = append(props, mcp.Items(map[string]any{"type": "string"}))
			opts = append(opts, mcp.WithArray(p.Name, props...))
		default:
			if p.Default != "" {
				props = append(props, mcp.DefaultString(p.Default))
			}
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}

	return mcp.NewTool(def.Name, opts...)
}

// RegisterReportTools builds the schemas for every report, in table order
func RegisterReportTools() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(definitions))
	for _, def := range definitions {
		tools = append(tools, RegisterReportTool(def))
	}
	return tools
}

func toolDescription(def *Definition) string {
	var b strings.Builder
	b.WriteString(def.Description)
	b.WriteString("\n\n")

	switch def.Scope {
	case ScopeWorkspace:
		b.WriteString("Runs on Azure Log Analytics.")
	default:
		b.WriteString("Runs on Azure Resource Graph.")
	}
	if def.RowCap > 0 {
		fmt.Fprintf(&b, " Returns at most %d rows.", def.RowCap)
	}
	b.WriteString(` Returns a JSON array of records, or {"error": "<message>"} on failure.`)
	return b.String()
}
