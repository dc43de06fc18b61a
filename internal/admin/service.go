package admin

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/compose-network/mediactl/internal/contracts"
	"github.com/compose-network/mediactl/internal/domain"
	"github.com/compose-network/mediactl/internal/logger"
	"github.com/compose-network/mediactl/internal/txsubmit"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type (
	AddressBook interface {
		Load(networkID domain.NetworkID) (domain.AddressBookEntry, error)
	}

	// Chain is the read side of the connection.
	Chain interface {
		Sender() common.Address
		Query(ctx context.Context, address common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error)
	}

	Submitter interface {
		Invoke(ctx context.Context, step domain.DeploymentStep, target common.Address, artifact contracts.Artifact, gas domain.GasParams) (domain.PendingTransaction, error)
		Await(ctx context.Context, pending domain.PendingTransaction, mode domain.ConfirmationMode) (txsubmit.Result, error)
	}

	// Dialer connects to the network. It is only called once the target contract is
	// known to be recorded.
	Dialer func(ctx context.Context) (Chain, Submitter, error)

	// Gas holds the per-operation gas limits.
	Gas struct {
		CallLimit uint64
		MintLimit uint64
	}

	// TxOptions are the per-invocation knobs of a state-changing operation.
	TxOptions struct {
		// GasPrice overrides the configured default when set.
		GasPrice *big.Int
		Mode     domain.ConfirmationMode
	}

	Service struct {
		networkID domain.NetworkID
		store     AddressBook
		artifacts contracts.Set
		dial      Dialer
		gas       Gas
		logger    *slog.Logger
	}
)

func NewService(networkID domain.NetworkID, store AddressBook, artifacts contracts.Set, dial Dialer, gas Gas) *Service {
	return &Service{
		networkID: networkID,
		store:     store,
		artifacts: artifacts,
		dial:      dial,
		gas:       gas,
		logger:    logger.Named("admin").With("network_id", networkID),
	}
}

// SetPrice sets the Media contract's current price.
func (s *Service) SetPrice(ctx context.Context, priceWei *big.Int, opts TxOptions) (Outcome, error) {
	if priceWei == nil || priceWei.Sign() < 0 {
		return Outcome{}, domain.Configurationf("price must not be negative")
	}
	return s.invoke(ctx, contracts.MethodSetCurrentPrice, s.gas.CallLimit, opts, priceWei)
}

// Mint mints tokenID with its media data.
func (s *Service) Mint(ctx context.Context, tokenID *big.Int, data contracts.MediaData, opts TxOptions) (Outcome, error) {
	return s.invoke(ctx, contracts.MethodMint, s.gas.MintLimit, opts, tokenID, data)
}

// Transfer moves tokenID from one holder to another. A zero from address means the signer.
func (s *Service) Transfer(ctx context.Context, from, to common.Address, tokenID *big.Int, opts TxOptions) (Outcome, error) {
	if to == (common.Address{}) {
		return Outcome{}, domain.Configurationf("transfer recipient is required")
	}

	media, err := s.media()
	if err != nil {
		return Outcome{}, err
	}

	chain, submitter, err := s.dial(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if from == (common.Address{}) {
		from = chain.Sender()
	}

	return s.send(ctx, submitter, media, contracts.MethodTransferFrom, s.gas.CallLimit, opts, from, to, tokenID)
}

// SetLoveMessage attaches a message to tokenID.
func (s *Service) SetLoveMessage(ctx context.Context, tokenID *big.Int, message string, opts TxOptions) (Outcome, error) {
	if message == "" {
		return Outcome{}, domain.Configurationf("message is required")
	}
	return s.invoke(ctx, contracts.MethodSetLoveMessage, s.gas.CallLimit, opts, tokenID, message)
}

// CurrentPrice reads the Media contract's current price.
func (s *Service) CurrentPrice(ctx context.Context) (Price, error) {
	media, err := s.media()
	if err != nil {
		return Price{}, err
	}

	chain, _, err := s.dial(ctx)
	if err != nil {
		return Price{}, err
	}

	out, err := chain.Query(ctx, media, s.artifacts.Media.ABI, contracts.MethodCurrentPrice)
	if err != nil {
		return Price{}, err
	}
	wei, err := single[*big.Int](out, contracts.MethodCurrentPrice)
	if err != nil {
		return Price{}, err
	}

	return Price{Media: media, Wei: wei}, nil
}

// MediaInfo reads the URIs and hashes recorded for tokenID.
func (s *Service) MediaInfo(ctx context.Context, tokenID *big.Int) (MediaInfo, error) {
	media, err := s.media()
	if err != nil {
		return MediaInfo{}, err
	}

	chain, _, err := s.dial(ctx)
	if err != nil {
		return MediaInfo{}, err
	}

	info := MediaInfo{Media: media, TokenID: new(big.Int).Set(tokenID)}
	query := func(method string) ([]any, error) {
		return chain.Query(ctx, media, s.artifacts.Media.ABI, method, tokenID)
	}

	out, err := query(contracts.MethodTokenURI)
	if err != nil {
		return MediaInfo{}, err
	}
	if info.TokenURI, err = single[string](out, contracts.MethodTokenURI); err != nil {
		return MediaInfo{}, err
	}

	if out, err = query(contracts.MethodTokenContentHashes); err != nil {
		return MediaInfo{}, err
	}
	if info.ContentHash, err = single[[32]byte](out, contracts.MethodTokenContentHashes); err != nil {
		return MediaInfo{}, err
	}

	if out, err = query(contracts.MethodTokenMetadataURI); err != nil {
		return MediaInfo{}, err
	}
	if info.MetadataURI, err = single[string](out, contracts.MethodTokenMetadataURI); err != nil {
		return MediaInfo{}, err
	}

	if out, err = query(contracts.MethodTokenMetadataHashes); err != nil {
		return MediaInfo{}, err
	}
	if info.MetadataHash, err = single[[32]byte](out, contracts.MethodTokenMetadataHashes); err != nil {
		return MediaInfo{}, err
	}

	return info, nil
}

func (s *Service) invoke(ctx context.Context, method string, gasLimit uint64, opts TxOptions, args ...any) (Outcome, error) {
	media, err := s.media()
	if err != nil {
		return Outcome{}, err
	}

	_, submitter, err := s.dial(ctx)
	if err != nil {
		return Outcome{}, err
	}

	return s.send(ctx, submitter, media, method, gasLimit, opts, args...)
}

func (s *Service) send(ctx context.Context, submitter Submitter, media common.Address, method string, gasLimit uint64, opts TxOptions, args ...any) (Outcome, error) {
	step := domain.DeploymentStep{
		Name:     method,
		Kind:     domain.StepInvoke,
		Contract: domain.ContractMedia,
		Method:   method,
		Args:     args,
		Requires: []domain.ContractName{domain.ContractMedia},
	}

	pending, err := submitter.Invoke(ctx, step, media, s.artifacts.Media, domain.GasParams{Limit: gasLimit, Price: opts.GasPrice})
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Operation: method, Media: media, TxHash: pending.Hash, State: domain.TxSubmitted}
	result, err := submitter.Await(ctx, pending, opts.Mode)
	if err != nil {
		return outcome, err
	}

	outcome.State = result.State
	if result.Receipt != nil {
		outcome.Block = result.Receipt.BlockNumber
	}
	s.logger.With("method", method, "tx_hash", pending.Hash.Hex(), "state", outcome.State).Info("operation finished")

	return outcome, nil
}

// media returns the recorded Media address. It fails before anything touches the network.
func (s *Service) media() (common.Address, error) {
	entry, err := s.store.Load(s.networkID)
	if err != nil {
		return common.Address{}, err
	}

	address, ok := entry.Address(domain.ContractMedia)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: Media has not been deployed on %s", domain.ErrTargetNotDeployed, s.networkID)
	}

	return address, nil
}

func single[T any](out []any, method string) (T, error) {
	var zero T
	if len(out) != 1 {
		return zero, fmt.Errorf("%s returned %d values, expected 1", method, len(out))
	}
	value, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s returned %T, expected %T", method, out[0], zero)
	}
	return value, nil
}
