package configs

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/compose-network/mediactl/internal/domain"
)

var Values Config

type (
	NetworkName string

	Config struct {
		Log         Log           `mapstructure:"log"`
		Network     Network       `mapstructure:"network"`
		Credentials Credentials   `mapstructure:"credentials"`
		Networks    Networks      `mapstructure:"networks"`
		AddressBook AddressBook   `mapstructure:"addressbook"`
		Contracts   Contracts     `mapstructure:"contracts"`
		Gas         Gas           `mapstructure:"gas"`
		Timeout     time.Duration `mapstructure:"timeout"`
		Devnet      Devnet        `mapstructure:"devnet"`
	}

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	}

	Network struct {
		ID string `mapstructure:"id"`
	}

	// Credentials mirrors the recognised environment options.
	Credentials struct {
		RPCEndpoint  string `mapstructure:"rpc-endpoint"`
		PrivateKey   string `mapstructure:"private-key"`
		Network      string `mapstructure:"network"`
		APIKey       string `mapstructure:"api-key"`
		Mnemonic     string `mapstructure:"mnemonic"`
		MnemonicPath string `mapstructure:"mnemonic-path"`
	}

	// Networks is the named-network endpoint table.
	Networks map[NetworkName]NamedNetwork

	// NamedNetwork is a default endpoint. URL may contain the {apiKey} placeholder.
	NamedNetwork struct {
		URL     string `mapstructure:"url"`
		ChainID uint64 `mapstructure:"chain-id"`
	}

	AddressBook struct {
		Dir string `mapstructure:"dir"`
	}

	Contracts struct {
		ArtifactsDir string `mapstructure:"artifacts-dir"`
	}

	Gas struct {
		PriceGwei   int64  `mapstructure:"price-gwei"`
		DeployLimit uint64 `mapstructure:"deploy-limit"`
		CallLimit   uint64 `mapstructure:"call-limit"`
		MintLimit   uint64 `mapstructure:"mint-limit"`
	}

	Devnet struct {
		Image         string `mapstructure:"image"`
		ContainerName string `mapstructure:"container-name"`
		Port          int    `mapstructure:"port"`
		ChainID       uint64 `mapstructure:"chain-id"`
		Mnemonic      string `mapstructure:"mnemonic"`
	}
)

const (
	minGasPriceGwei = 1
	maxGasPriceGwei = 99
)

// ValidateGasPriceGwei enforces the accepted gas price range (exclusive 0..100 gwei).
func ValidateGasPriceGwei(gwei int64) error {
	if gwei < minGasPriceGwei || gwei > maxGasPriceGwei {
		return domain.Configurationf("gas price %d gwei is outside %d..%d", gwei, minGasPriceGwei, maxGasPriceGwei)
	}
	return nil
}

// Validate checks everything an on-chain operation needs before any network call.
func (c *Config) Validate() error {
	var errs []error

	if err := domain.NetworkID(c.Network.ID).Validate(); err != nil {
		errs = append(errs, errors.New("network.id (--chain-id) is required and must be a plain identifier"))
	}
	if c.AddressBook.Dir == "" {
		errs = append(errs, errors.New("addressbook.dir is required"))
	}
	if c.Contracts.ArtifactsDir == "" {
		errs = append(errs, errors.New("contracts.artifacts-dir is required"))
	}
	if err := ValidateGasPriceGwei(c.Gas.PriceGwei); err != nil {
		errs = append(errs, fmt.Errorf("gas.price-gwei: %d is outside %d..%d", c.Gas.PriceGwei, minGasPriceGwei, maxGasPriceGwei))
	}
	if c.Gas.DeployLimit == 0 {
		errs = append(errs, errors.New("gas.deploy-limit is required"))
	}
	if c.Gas.CallLimit == 0 {
		errs = append(errs, errors.New("gas.call-limit is required"))
	}
	if c.Gas.MintLimit == 0 {
		errs = append(errs, errors.New("gas.mint-limit is required"))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	for name, network := range c.Networks {
		if network.URL == "" {
			errs = append(errs, fmt.Errorf("networks.%s.url is required", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
	}

	return nil
}

// Validate checks the local devnet section.
func (d *Devnet) Validate() error {
	var errs []error

	if d.Image == "" {
		errs = append(errs, errors.New("devnet.image is required"))
	}
	if d.ContainerName == "" {
		errs = append(errs, errors.New("devnet.container-name is required"))
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Errorf("devnet.port %d is not a valid port", d.Port))
	}
	if d.ChainID == 0 {
		errs = append(errs, errors.New("devnet.chain-id is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
	}

	return nil
}

// LogValue keeps secrets out of the logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("rpc_endpoint", RedactURL(c.RPCEndpoint)),
		slog.Bool("private_key_set", c.PrivateKey != ""),
		slog.String("network", c.Network),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("mnemonic_set", c.Mnemonic != ""),
		slog.String("mnemonic_path", c.MnemonicPath),
	)
}

// RedactURL keeps only the scheme and host of an endpoint. Providers put API keys in
// the path, query or userinfo, so all of those are replaced.
func RedactURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "***"
	}

	redacted := parsed.Scheme + "://" + parsed.Host
	if parsed.User != nil {
		redacted = parsed.Scheme + "://***@" + parsed.Host
	}
	if strings.Trim(parsed.EscapedPath(), "/") != "" || parsed.RawQuery != "" || parsed.Fragment != "" {
		redacted += "/***"
	}

	return redacted
}

// LogValue redacts the devnet mnemonic.
func (d Devnet) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("image", d.Image),
		slog.String("container_name", d.ContainerName),
		slog.Int("port", d.Port),
		slog.Uint64("chain_id", d.ChainID),
		slog.Bool("mnemonic_set", d.Mnemonic != ""),
	)
}

// Lookup finds a named network, case-insensitively.
func (n Networks) Lookup(name string) (NamedNetwork, bool) {
	if network, ok := n[NetworkName(name)]; ok {
		return network, true
	}
	for key, network := range n {
		if strings.EqualFold(string(key), name) {
			return network, true
		}
	}
	return NamedNetwork{}, false
}
