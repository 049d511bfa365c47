package version

import (
	"fmt"
	"runtime"
)

// Populated at build time via -ldflags "-X github.com/Azure/ai4ops-mcp/internal/version.GitVersion=..."
var (
	GitVersion   = "dev"
	GitCommit    = "unknown"
	GitTreeState = "unknown"
	BuildDate    = "unknown"
)

// GetVersion returns the version string reported to MCP clients and telemetry.
func GetVersion() string {
	return GitVersion
}

// GetVersionInfo returns build details for the --version output.
func GetVersionInfo() map[string]string {
	return map[string]string{
		"version":      GitVersion,
		"gitCommit":    GitCommit,
		"gitTreeState": GitTreeState,
		"buildDate":    BuildDate,
		"goVersion":    runtime.Version(),
		"platform":     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
