package config

import (
	"fmt"
	"os"
	"os/exec"
	"slices"

	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/google/uuid"
)

var supportedTransports = []string{"stdio", "sse", "streamable-http"}

// Validator handles all validation logic for the AI4Ops MCP server
type Validator struct {
	// Configuration to validate
	config *ConfigData
	// Errors discovered during validation
	errors []string
	// Problems that do not prevent startup
	warnings []string
}

// NewValidator creates a new validator instance
func NewValidator(cfg *ConfigData) *Validator {
	return &Validator{
		config: cfg,
		errors: make([]string, 0),
	}
}

// isCliInstalled checks if a CLI tool is installed and available in the system PATH
func (v *Validator) isCliInstalled(cliName string) bool {
	_, err := exec.LookPath(cliName)
	return err == nil
}

// validateCli only warns: the Azure CLI credential is the first link of the
// credential chain, not a hard requirement.
func (v *Validator) validateCli() bool {
	if !v.isCliInstalled("az") {
		v.warnings = append(v.warnings, "az is not installed or not found in PATH; Azure CLI credentials will be skipped")
	}
	return true
}

func (v *Validator) validateServer() bool {
	valid := true

	if !slices.Contains(supportedTransports, v.config.Transport) {
		v.errors = append(v.errors, fmt.Sprintf("invalid transport %q (supported: stdio, sse, streamable-http)", v.config.Transport))
		valid = false
	}

	if v.config.Transport != "stdio" && (v.config.Port < 1 || v.config.Port > 65535) {
		v.errors = append(v.errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", v.config.Port))
		valid = false
	}

	if v.config.Timeout <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("invalid timeout %d: must be a positive number of seconds", v.config.Timeout))
		valid = false
	}

	return valid
}

func (v *Validator) validateQuery() bool {
	valid := true

	if v.config.MaxGraphPages < 1 {
		v.errors = append(v.errors, fmt.Sprintf("invalid max-graph-pages %d: must be at least 1", v.config.MaxGraphPages))
		valid = false
	}

	if v.config.SubscriptionID != "" {
		if _, err := uuid.Parse(v.config.SubscriptionID); err != nil {
			v.errors = append(v.errors, fmt.Sprintf("invalid subscription-id %q: must be a GUID", v.config.SubscriptionID))
			valid = false
		}
	} else {
		v.warnings = append(v.warnings, "no default subscription configured; subscription-scoped reports require subscription_ids")
	}

	return valid
}

func (v *Validator) validateLogging() bool {
	if _, err := logger.ParseLevel(v.config.LogLevel); err != nil {
		v.errors = append(v.errors, err.Error())
		return false
	}
	return true
}

// Validate runs all validation checks
func (v *Validator) Validate() bool {
	validCli := v.validateCli()
	validServer := v.validateServer()
	validQuery := v.validateQuery()
	validLogging := v.validateLogging()

	return validCli && validServer && validQuery && validLogging
}

// GetErrors returns all errors found during validation
func (v *Validator) GetErrors() []string {
	return v.errors
}

// GetWarnings returns problems that do not block startup
func (v *Validator) GetWarnings() []string {
	return v.warnings
}

// PrintErrors prints all validation errors to stderr
func (v *Validator) PrintErrors() {
	for _, err := range v.errors {
		fmt.Fprintln(os.Stderr, err)
	}
}
