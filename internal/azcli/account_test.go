package azcli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Azure/ai4ops-mcp/internal/config"
)

// Command to be run and expected output/error
type accountCommandResponse struct {
	cmd string
	out string
	err error
}

// Mocks az invocations in tests
type accountCommands struct {
	idx  int
	resp []accountCommandResponse
}

// Simulate running a command and return the expected output/error
func (c *accountCommands) Run(_ context.Context, args ...string) (string, error) {
	cmd := strings.Join(args, " ")
	if c.idx >= len(c.resp) {
		return "", fmt.Errorf("no more responses, unexpected command: %s", cmd)
	}
	expected := c.resp[c.idx]
	c.idx++
	// match prefix so tests are less brittle
	if expected.cmd != "" && !strings.HasPrefix(cmd, expected.cmd) {
		return "", fmt.Errorf("expected cmd prefix %q but got %q", expected.cmd, cmd)
	}
	return expected.out, expected.err
}

const testSubscription = "33333333-3333-3333-3333-333333333333"

func TestDefaultSubscription(t *testing.T) {
	tests := []struct {
		name    string
		resp    accountCommandResponse
		want    string
		wantErr error
	}{
		{
			name: "logged in",
			resp: accountCommandResponse{cmd: "account show --query id -o tsv", out: testSubscription + "\n"},
			want: testSubscription,
		},
		{
			name:    "not logged in",
			resp:    accountCommandResponse{out: "ERROR: Please run 'az login' to setup account.", err: errors.New("exit status 1")},
			wantErr: ErrNotLoggedIn,
		},
		{
			name:    "empty output",
			resp:    accountCommandResponse{out: "  \n"},
			wantErr: ErrNotLoggedIn,
		},
		{
			name: "process failure",
			resp: accountCommandResponse{err: errors.New("exec: killed")},
		},
		{
			name: "unexpected output",
			resp: accountCommandResponse{out: "not-a-guid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &accountCommands{resp: []accountCommandResponse{tt.resp}}
			got, err := DefaultSubscription(context.Background(), p)

			if tt.want != "" {
				if err != nil || got != tt.want {
					t.Fatalf("expected %s, got %q (%v)", tt.want, got, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error, got %q", got)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveDefaultSubscription(t *testing.T) {
	t.Setenv("SUBSCRIPTION_ID", "")
	t.Setenv("AZURE_SUBSCRIPTION_ID", "")

	cfg := config.NewConfig()
	p := &accountCommands{resp: []accountCommandResponse{{out: testSubscription}}}
	ResolveDefaultSubscriptionWithProc(context.Background(), p, cfg)
	if cfg.SubscriptionID != testSubscription {
		t.Errorf("expected subscription from az cli, got %q", cfg.SubscriptionID)
	}

	// configured subscription wins; proc should not be invoked
	cfg.SubscriptionID = "configured"
	p = &accountCommands{}
	ResolveDefaultSubscriptionWithProc(context.Background(), p, cfg)
	if cfg.SubscriptionID != "configured" || p.idx != 0 {
		t.Errorf("expected configured subscription to be kept without calling az, got %q", cfg.SubscriptionID)
	}

	// failures leave the configuration unchanged
	cfg.SubscriptionID = ""
	p = &accountCommands{resp: []accountCommandResponse{{out: "ERROR: Please run 'az login'", err: errors.New("exit status 1")}}}
	ResolveDefaultSubscriptionWithProc(context.Background(), p, cfg)
	if cfg.SubscriptionID != "" {
		t.Errorf("expected no subscription, got %q", cfg.SubscriptionID)
	}
}
