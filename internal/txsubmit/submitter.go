package txsubmit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/compose-network/mediactl/internal/contracts"
	"github.com/compose-network/mediactl/internal/domain"
	"github.com/compose-network/mediactl/internal/logger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const defaultPollInterval = time.Second

type (
	// Chain is the part of the chain connection the submitter needs.
	Chain interface {
		Deploy(ctx context.Context, contractABI abi.ABI, bytecode []byte, gas domain.GasParams, args ...any) (common.Address, *types.Transaction, error)
		Transact(ctx context.Context, address common.Address, contractABI abi.ABI, method string, gas domain.GasParams, args ...any) (*types.Transaction, error)
		TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	}

	Defaults struct {
		// GasPrice is used when the caller does not supply one.
		GasPrice     *big.Int
		PollInterval time.Duration
	}

	// Result is the outcome of awaiting a pending transaction.
	Result struct {
		Pending         domain.PendingTransaction
		State           domain.TxState
		Receipt         *types.Receipt
		ContractAddress common.Address
	}

	Submitter struct {
		chain    Chain
		defaults Defaults
		now      func() time.Time
		logger   *slog.Logger
	}
)

func NewSubmitter(chain Chain, defaults Defaults) *Submitter {
	if defaults.PollInterval <= 0 {
		defaults.PollInterval = defaultPollInterval
	}

	return &Submitter{
		chain:    chain,
		defaults: defaults,
		now:      time.Now,
		logger:   logger.Named("tx_submitter"),
	}
}

// Submit broadcasts the step: a contract creation for deploy steps, a method call
// on target for invoke steps.
func (s *Submitter) Submit(ctx context.Context, step domain.DeploymentStep, artifact contracts.Artifact, target common.Address, gas domain.GasParams) (domain.PendingTransaction, error) {
	switch step.Kind {
	case domain.StepDeploy:
		return s.Deploy(ctx, step, artifact, gas)
	case domain.StepInvoke:
		return s.Invoke(ctx, step, target, artifact, gas)
	default:
		return domain.PendingTransaction{}, fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

// Deploy broadcasts the creation of step.Contract with step.Args as constructor arguments.
func (s *Submitter) Deploy(ctx context.Context, step domain.DeploymentStep, artifact contracts.Artifact, gas domain.GasParams) (domain.PendingTransaction, error) {
	gas, err := s.gas(gas)
	if err != nil {
		return domain.PendingTransaction{}, err
	}

	s.logger.With("step", step.Name, "contract", step.Contract).Info("deploying contract")
	address, tx, err := s.chain.Deploy(ctx, artifact.ABI, artifact.Bytecode, gas, step.Args...)
	if err != nil {
		return domain.PendingTransaction{}, fmt.Errorf("%s: %w", step.Name, err)
	}

	pending := s.pending(step, tx, gas)
	pending.ContractAddress = address
	s.logger.With("step", step.Name, "tx_hash", pending.Hash.Hex()).Info("deploy transaction submitted")

	return pending, nil
}

// Invoke broadcasts step.Method on the contract at target.
func (s *Submitter) Invoke(ctx context.Context, step domain.DeploymentStep, target common.Address, artifact contracts.Artifact, gas domain.GasParams) (domain.PendingTransaction, error) {
	gas, err := s.gas(gas)
	if err != nil {
		return domain.PendingTransaction{}, err
	}

	s.logger.With("step", step.Name, "method", step.Method, "target", target.Hex()).Info("sending transaction")
	tx, err := s.chain.Transact(ctx, target, artifact.ABI, step.Method, gas, step.Args...)
	if err != nil {
		return domain.PendingTransaction{}, fmt.Errorf("%s: %w", step.Name, err)
	}

	pending := s.pending(step, tx, gas)
	s.logger.With("step", step.Name, "tx_hash", pending.Hash.Hex()).Info("transaction submitted")

	return pending, nil
}

// Await resolves a pending transaction according to mode. Failures are never retried.
func (s *Submitter) Await(ctx context.Context, pending domain.PendingTransaction, mode domain.ConfirmationMode) (Result, error) {
	result := Result{Pending: pending, State: domain.TxSubmitted}
	if mode == domain.FireAndForget {
		s.logger.With("tx_hash", pending.Hash.Hex()).Info("not waiting for confirmation")
		return result, nil
	}

	logger := s.logger.With("step", pending.Step, "tx_hash", pending.Hash.Hex())
	logger.Info("waiting for confirmation")

	ticker := time.NewTicker(s.defaults.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.chain.TransactionReceipt(ctx, pending.Hash)
		if err != nil {
			if ctx.Err() != nil {
				return s.failed(result, fmt.Sprintf("dropped or not confirmed: %v", ctx.Err()))
			}
			return s.failed(result, fmt.Sprintf("receipt lookup failed: %v", err))
		}

		if receipt != nil {
			result.Receipt = receipt
			if receipt.Status != types.ReceiptStatusSuccessful {
				return s.failed(result, fmt.Sprintf("reverted in block %s", receipt.BlockNumber))
			}

			result.State = domain.TxConfirmed
			result.ContractAddress = receipt.ContractAddress
			logger.With("block", receipt.BlockNumber, "gas_used", receipt.GasUsed).Info("transaction confirmed")
			return result, nil
		}

		select {
		case <-ctx.Done():
			return s.failed(result, fmt.Sprintf("dropped or not confirmed: %v", ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (s *Submitter) failed(result Result, reason string) (Result, error) {
	result.State = domain.TxFailed
	s.logger.With("step", result.Pending.Step, "tx_hash", result.Pending.Hash.Hex(), "reason", reason).Error("transaction failed")

	return result, &domain.TransactionFailedError{
		Step:   result.Pending.Step,
		TxHash: result.Pending.Hash,
		Reason: reason,
	}
}

func (s *Submitter) gas(gas domain.GasParams) (domain.GasParams, error) {
	if gas.Price == nil {
		gas.Price = s.defaults.GasPrice
	}
	if gas.Limit == 0 {
		return gas, domain.Configurationf("gas limit is required")
	}
	if gas.Price == nil || gas.Price.Sign() <= 0 {
		return gas, domain.Configurationf("gas price must be positive")
	}

	return gas, nil
}

func (s *Submitter) pending(step domain.DeploymentStep, tx *types.Transaction, gas domain.GasParams) domain.PendingTransaction {
	return domain.PendingTransaction{
		Step:        step.Name,
		Hash:        tx.Hash(),
		SubmittedAt: s.now().UTC(),
		GasLimit:    gas.Limit,
		GasPrice:    new(big.Int).Set(gas.Price),
	}
}

// IsTransactionFailed reports whether err is a failed transaction and returns it.
func IsTransactionFailed(err error) (*domain.TransactionFailedError, bool) {
	var failed *domain.TransactionFailedError
	if errors.As(err, &failed) {
		return failed, true
	}
	return nil, false
}
