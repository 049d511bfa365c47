// Package azcli reads the signed-in Azure CLI account so the server can fall
// back to the CLI's default subscription.
package azcli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Azure/ai4ops-mcp/internal/config"
	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/google/uuid"
)

const azLoginPrompt = "Please run 'az login'"

// ErrNotLoggedIn is returned when the CLI has no active account.
var ErrNotLoggedIn = errors.New("az cli is not logged in")

// Proc runs one az invocation and returns its combined stdout and stderr.
type Proc interface {
	Run(ctx context.Context, args ...string) (string, error)
}

type shellProc struct {
	binary string
}

func (p shellProc) Run(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, p.binary, args...).CombinedOutput() // #nosec G204 -- fixed binary, fixed arguments
	return string(out), err
}

// NewShellProc is a package-level Proc factory so tests can avoid invoking
// the real `az` binary.
var NewShellProc = func() Proc {
	return shellProc{binary: "az"}
}

// DefaultSubscription returns the id of the CLI's active subscription.
func DefaultSubscription(ctx context.Context, proc Proc) (string, error) {
	out, err := proc.Run(ctx, "account", "show", "--query", "id", "-o", "tsv")
	trimmed := strings.TrimSpace(out)
	if strings.Contains(trimmed, azLoginPrompt) || strings.HasPrefix(trimmed, "ERROR:") {
		return "", fmt.Errorf("%w: %s", ErrNotLoggedIn, trimmed)
	}
	if err != nil {
		return "", fmt.Errorf("az account show failed: %w", err)
	}
	if trimmed == "" {
		return "", ErrNotLoggedIn
	}
	if _, err := uuid.Parse(trimmed); err != nil {
		return "", fmt.Errorf("az account show returned an unexpected subscription id %q", trimmed)
	}
	return trimmed, nil
}

// ResolveDefaultSubscription fills cfg.SubscriptionID from the CLI account
// when neither the flags nor the environment provided one. Failures are
// logged and leave the configuration unchanged.
func ResolveDefaultSubscription(ctx context.Context, cfg *config.ConfigData) {
	if cfg.SubscriptionID != "" {
		return
	}
	if _, err := exec.LookPath("az"); err != nil {
		return
	}
	ResolveDefaultSubscriptionWithProc(ctx, NewShellProc(), cfg)
}

// ResolveDefaultSubscriptionWithProc is the testable implementation that uses
// an injected Proc.
func ResolveDefaultSubscriptionWithProc(ctx context.Context, proc Proc, cfg *config.ConfigData) {
	if cfg.SubscriptionID != "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	id, err := DefaultSubscription(ctx, proc)
	if err != nil {
		logger.Debugf("No default subscription from az cli: %v", err)
		return
	}
	logger.Infof("Using az cli default subscription %s", id)
	cfg.SubscriptionID = id
}
