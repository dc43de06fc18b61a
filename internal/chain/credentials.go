package chain

import (
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/compose-network/mediactl/internal/domain"
	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	SourceRawKey   = "raw-key"
	SourceMnemonic = "mnemonic"
)

// CredentialSource yields the key that signs outgoing transactions.
type CredentialSource interface {
	Kind() string
	PrivateKey() (*ecdsa.PrivateKey, error)
}

// Identity is a resolved signing identity.
type Identity struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
	Source  string
}

func (i Identity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("address", i.Address.Hex()),
		slog.String("source", i.Source),
	)
}

// NewIdentity resolves a credential source into an identity.
func NewIdentity(source CredentialSource) (Identity, error) {
	key, err := source.PrivateKey()
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		Key:     key,
		Address: crypto.PubkeyToAddress(key.PublicKey),
		Source:  source.Kind(),
	}, nil
}

// RawKeySource is a hex encoded secp256k1 key, with or without 0x.
type RawKeySource struct {
	Hex string
}

func (s RawKeySource) Kind() string {
	return SourceRawKey
}

func (s RawKeySource) PrivateKey() (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s.Hex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse private key: %w", domain.ErrMissingCredential, err)
	}
	return key, nil
}

// MnemonicSource derives a key from a BIP-39 phrase along a BIP-32 path.
type MnemonicSource struct {
	Phrase string
	Path   string
}

func (s MnemonicSource) Kind() string {
	return SourceMnemonic
}

func (s MnemonicSource) PrivateKey() (*ecdsa.PrivateKey, error) {
	phrase := strings.Join(strings.Fields(s.Phrase), " ")

	seed, err := bip39.NewSeedWithErrorChecking(phrase, "")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid mnemonic: %w", domain.ErrMissingCredential, err)
	}

	path := accounts.DefaultBaseDerivationPath
	if s.Path != "" {
		path, err = accounts.ParseDerivationPath(s.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid derivation path %q: %w", domain.ErrConfiguration, s.Path, err)
		}
	}

	return deriveKey(seed, path)
}

// deriveKey walks path from the master key. accounts.DerivationPath already
// carries the hardened offset, so components map 1:1 onto Derive.
func deriveKey(seed []byte, path accounts.DerivationPath) (*ecdsa.PrivateKey, error) {
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	for _, component := range path {
		key, err = key.Derive(component)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s: %w", path, err)
		}
	}

	privateKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}

	return crypto.ToECDSA(privateKey.Serialize())
}
