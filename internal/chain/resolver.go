package chain

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/compose-network/mediactl/configs"
	"github.com/compose-network/mediactl/internal/domain"
	"github.com/compose-network/mediactl/internal/logger"
)

const apiKeyPlaceholder = "{apiKey}"

type (
	// Endpoint describes where transactions are sent.
	Endpoint struct {
		URL     string
		Network string
		// ChainID is the chain the endpoint must serve; 0 leaves it unchecked.
		ChainID uint64

		redactedURL string
	}

	// DeploymentContext is the resolved execution identity of one invocation.
	DeploymentContext struct {
		NetworkID domain.NetworkID
		Identity  Identity
		Endpoint  Endpoint
	}

	// Resolver turns credentials and a network selector into a DeploymentContext.
	// Resolution is local and deterministic; it never touches the network.
	Resolver struct {
		networks configs.Networks
		logger   *slog.Logger
	}
)

func (e Endpoint) LogValue() slog.Value {
	url := e.redactedURL
	if url == "" {
		url = configs.RedactURL(e.URL)
	}
	return slog.GroupValue(
		slog.String("url", url),
		slog.String("network", e.Network),
		slog.Uint64("chain_id", e.ChainID),
	)
}

// NewResolver creates a resolver over the named-network endpoint table.
func NewResolver(networks configs.Networks) *Resolver {
	return &Resolver{
		networks: networks,
		logger:   logger.Named("chain_resolver"),
	}
}

// Resolve applies the resolution policy: an explicit RPC endpoint always pairs with
// the raw key; otherwise the named network's default endpoint is used with whichever
// single credential source is configured.
func (r *Resolver) Resolve(networkID domain.NetworkID, creds configs.Credentials) (DeploymentContext, error) {
	if err := networkID.Validate(); err != nil {
		return DeploymentContext{}, err
	}

	var (
		endpoint Endpoint
		source   CredentialSource
		err      error
	)

	switch {
	case strings.TrimSpace(creds.RPCEndpoint) != "":
		endpoint, source, err = r.resolveExplicit(creds)
	case strings.TrimSpace(creds.Network) != "":
		endpoint, source, err = r.resolveNamed(creds)
	default:
		err = domain.ErrMissingNetworkSelector
	}
	if err != nil {
		return DeploymentContext{}, err
	}

	if chainID, ok := networkID.ChainID(); ok {
		if endpoint.ChainID != 0 && endpoint.ChainID != chainID {
			return DeploymentContext{}, fmt.Errorf("%w: network id %s, endpoint %q expects chain %d",
				domain.ErrChainIDMismatch, networkID, endpoint.Network, endpoint.ChainID)
		}
		endpoint.ChainID = chainID
	}

	identity, err := NewIdentity(source)
	if err != nil {
		return DeploymentContext{}, err
	}

	resolved := DeploymentContext{
		NetworkID: networkID,
		Identity:  identity,
		Endpoint:  endpoint,
	}

	r.logger.
		With("network_id", networkID).
		With("endpoint", endpoint).
		With("identity", identity).
		Info("chain connection resolved")

	return resolved, nil
}

func (r *Resolver) resolveExplicit(creds configs.Credentials) (Endpoint, CredentialSource, error) {
	if strings.TrimSpace(creds.PrivateKey) == "" {
		return Endpoint{}, nil, fmt.Errorf("%w: RPC_ENDPOINT requires PRIVATE_KEY", domain.ErrMissingCredential)
	}
	if strings.TrimSpace(creds.Mnemonic) != "" {
		return Endpoint{}, nil, fmt.Errorf("%w: both PRIVATE_KEY and MNEMONIC are set", domain.ErrAmbiguousCredential)
	}

	url := strings.TrimSpace(creds.RPCEndpoint)
	endpoint := Endpoint{URL: url, redactedURL: configs.RedactURL(url)}

	return endpoint, RawKeySource{Hex: creds.PrivateKey}, nil
}

func (r *Resolver) resolveNamed(creds configs.Credentials) (Endpoint, CredentialSource, error) {
	name := strings.TrimSpace(creds.Network)

	network, ok := r.networks.Lookup(name)
	if !ok {
		return Endpoint{}, nil, fmt.Errorf("%w: %q", domain.ErrUnknownNetwork, name)
	}

	url := network.URL
	if strings.Contains(url, apiKeyPlaceholder) {
		if creds.APIKey == "" {
			return Endpoint{}, nil, fmt.Errorf("%w: network %q requires an api key (ALCHEMY_KEY)", domain.ErrMissingCredential, name)
		}
		url = strings.ReplaceAll(url, apiKeyPlaceholder, creds.APIKey)
	}

	hasKey := strings.TrimSpace(creds.PrivateKey) != ""
	hasMnemonic := strings.TrimSpace(creds.Mnemonic) != ""

	var source CredentialSource
	switch {
	case hasKey && hasMnemonic:
		return Endpoint{}, nil, fmt.Errorf("%w: both PRIVATE_KEY and MNEMONIC are set", domain.ErrAmbiguousCredential)
	case hasKey:
		source = RawKeySource{Hex: creds.PrivateKey}
	case hasMnemonic:
		source = MnemonicSource{Phrase: creds.Mnemonic, Path: creds.MnemonicPath}
	default:
		return Endpoint{}, nil, fmt.Errorf("%w: set PRIVATE_KEY or MNEMONIC", domain.ErrMissingCredential)
	}

	endpoint := Endpoint{
		URL:         url,
		Network:     name,
		ChainID:     network.ChainID,
		redactedURL: configs.RedactURL(url),
	}

	return endpoint, source, nil
}
