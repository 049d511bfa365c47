package azureclient

import (
	"errors"
	"fmt"

	"github.com/Azure/ai4ops-mcp/internal/logger"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// credentialSource builds one link of the credential chain.
type credentialSource struct {
	name  string
	build func() (azcore.TokenCredential, error)
}

var defaultCredentialSources = []credentialSource{
	{"AzureCLICredential", func() (azcore.TokenCredential, error) {
		return azidentity.NewAzureCLICredential(nil)
	}},
	{"EnvironmentCredential", func() (azcore.TokenCredential, error) {
		return azidentity.NewEnvironmentCredential(nil)
	}},
	{"ManagedIdentityCredential", func() (azcore.TokenCredential, error) {
		return azidentity.NewManagedIdentityCredential(nil)
	}},
}

// NewCredential returns a chain preferring the signed-in Azure CLI user, then
// service principal environment variables, then managed identity. Links that
// cannot be constructed in this environment are skipped.
func NewCredential() (azcore.TokenCredential, error) {
	return newChainedCredential(defaultCredentialSources)
}

func newChainedCredential(sources []credentialSource) (azcore.TokenCredential, error) {
	var (
		creds []azcore.TokenCredential
		errs  []error
	)
	for _, src := range sources {
		cred, err := src.build()
		if err != nil {
			logger.Debugf("Skipping %s: %v", src.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", src.name, err))
			continue
		}
		creds = append(creds, cred)
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("no Azure credential available: %w", errors.Join(errs...))
	}

	chain, err := azidentity.NewChainedTokenCredential(creds, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential chain: %w", err)
	}
	logger.Infof("Created Azure credential chain with %d of %d sources", len(creds), len(sources))
	return chain, nil
}
