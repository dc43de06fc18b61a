package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/compose-network/mediactl/internal/domain"
	"github.com/compose-network/mediactl/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

type (
	// Backend is the RPC surface the client needs. Both *ethclient.Client and the
	// simulated backend's client satisfy it.
	Backend interface {
		bind.ContractBackend
		bind.DeployBackend
		ethereum.TransactionReader
		BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
		ChainID(ctx context.Context) (*big.Int, error)
	}

	// Client is the chain connection used by every operation: it signs with one
	// identity against one endpoint.
	Client struct {
		backend  Backend
		identity Identity
		chainID  *big.Int
		closer   func()
		logger   *slog.Logger
	}
)

// Dial connects to the resolved endpoint and checks it serves the expected chain.
func Dial(ctx context.Context, resolved DeploymentContext) (*Client, error) {
	logger := logger.Named("chain_client").With("endpoint", resolved.Endpoint)

	logger.Info("dialing RPC endpoint")
	rpcClient, err := ethclient.DialContext(ctx, resolved.Endpoint.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect: %w", domain.ErrConnectionResolution, err)
	}

	client, err := NewClient(ctx, rpcClient, resolved.Identity, rpcClient.Close)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}

	if expected := resolved.Endpoint.ChainID; expected != 0 && client.chainID.Uint64() != expected {
		client.Close()
		return nil, fmt.Errorf("%w: expected chain %d, endpoint reports %s", domain.ErrChainIDMismatch, expected, client.chainID)
	}

	logger.With("chain_id", client.chainID).Info("chain ID was fetched")

	return client, nil
}

// NewClient wraps an already connected backend.
func NewClient(ctx context.Context, backend Backend, identity Identity, closer func()) (*Client, error) {
	if identity.Key == nil {
		return nil, domain.ErrMissingCredential
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get chain ID: %w", domain.ErrConnectionResolution, err)
	}

	return &Client{
		backend:  backend,
		identity: identity,
		chainID:  chainID,
		closer:   closer,
		logger:   logger.Named("chain_client"),
	}, nil
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Sender is the address transactions are signed by.
func (c *Client) Sender() common.Address {
	return c.identity.Address
}

// Deploy broadcasts a contract creation. The returned address is only valid once mined.
func (c *Client) Deploy(ctx context.Context, contractABI abi.ABI, bytecode []byte, gas domain.GasParams, args ...any) (common.Address, *types.Transaction, error) {
	auth, err := c.transactor(ctx, gas)
	if err != nil {
		return common.Address{}, nil, err
	}

	address, tx, _, err := bind.DeployContract(auth, contractABI, bytecode, c.backend, args...)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to deploy contract: %w", err)
	}

	return address, tx, nil
}

// Transact broadcasts a state-changing method call.
func (c *Client) Transact(ctx context.Context, address common.Address, contractABI abi.ABI, method string, gas domain.GasParams, args ...any) (*types.Transaction, error) {
	auth, err := c.transactor(ctx, gas)
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(address, contractABI, c.backend, c.backend, c.backend)
	tx, err := contract.Transact(auth, method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	return tx, nil
}

// Query performs a read-only call; no gas, no signature.
func (c *Client) Query(ctx context.Context, address common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	contract := bind.NewBoundContract(address, contractABI, c.backend, c.backend, c.backend)

	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx, From: c.identity.Address}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	return out, nil
}

// TransactionByHash returns the transaction and whether it is still pending.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx, pending, err := c.backend.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get transaction %s: %w", hash.Hex(), err)
	}
	return tx, pending, nil
}

// TransactionReceipt returns the receipt, or (nil, nil) while the transaction is unmined.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := c.backend.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}

// BlockByNumber returns a block; a nil number means the latest one.
func (c *Client) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	block, err := c.backend.BlockByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	return block, nil
}

// TransactionSender recovers the signer of an arbitrary transaction, including
// pre-EIP-155 ones that carry no chain id.
func (c *Client) TransactionSender(tx *types.Transaction) (common.Address, error) {
	if !tx.Protected() {
		return types.Sender(types.HomesteadSigner{}, tx)
	}
	return types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
}

func (c *Client) transactor(ctx context.Context, gas domain.GasParams) (*bind.TransactOpts, error) {
	if gas.Limit == 0 || gas.Price == nil || gas.Price.Sign() <= 0 {
		return nil, domain.Configurationf("explicit gas limit and gas price are required")
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.identity.Key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	auth.Context = ctx
	auth.GasLimit = gas.Limit
	auth.GasPrice = new(big.Int).Set(gas.Price)

	return auth, nil
}
