package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type (
	ContractName string
	StepKind     string
	TxState      string

	// ConfirmationMode selects whether the caller blocks until the transaction is mined.
	ConfirmationMode int
)

const (
	ContractMarket ContractName = "Market"
	ContractMedia  ContractName = "Media"

	StepDeploy StepKind = "deploy"
	StepInvoke StepKind = "invoke"

	TxSubmitted TxState = "submitted"
	TxConfirmed TxState = "confirmed"
	TxFailed    TxState = "failed"
)

const (
	WaitForConfirmation ConfirmationMode = iota
	FireAndForget
)

func (m ConfirmationMode) String() string {
	if m == FireAndForget {
		return "fire-and-forget"
	}
	return "wait-for-confirmation"
}

// DeploymentStep is one unit of orchestration work: deploy Contract, or invoke Method on Contract.
type DeploymentStep struct {
	Name     string
	Kind     StepKind
	Contract ContractName
	Method   string
	Args     []any

	// Requires lists the contracts that must be recorded before the step runs,
	// Forbids the ones that must not be.
	Requires  []ContractName
	Forbids   []ContractName
	Populates ContractName
}

// Precondition checks the step against the current entry.
func (s DeploymentStep) Precondition(entry AddressBookEntry) error {
	for _, name := range s.Requires {
		if !entry.Has(name) {
			return fmt.Errorf("%w: step %q requires %s", ErrPreconditionViolation, s.Name, name)
		}
	}
	for _, name := range s.Forbids {
		if entry.Has(name) {
			return fmt.Errorf("%w: step %q would redeploy %s", ErrAddressOverwrite, s.Name, name)
		}
	}

	return nil
}

// Has reports whether the named contract is recorded.
func (e AddressBookEntry) Has(name ContractName) bool {
	switch name {
	case ContractMarket:
		return e.HasMarket()
	case ContractMedia:
		return e.HasMedia()
	}
	return false
}

// Address returns the recorded address of the named contract.
func (e AddressBookEntry) Address(name ContractName) (common.Address, bool) {
	switch name {
	case ContractMarket:
		return e.Market, e.HasMarket()
	case ContractMedia:
		return e.Media, e.HasMedia()
	}
	return common.Address{}, false
}

// PendingTransaction is a broadcast call that has not reached a terminal state yet.
type PendingTransaction struct {
	Step        string
	Hash        common.Hash
	SubmittedAt time.Time
	GasLimit    uint64
	GasPrice    *big.Int

	// ContractAddress is set for contract creations; it is only valid once confirmed.
	ContractAddress common.Address
}

// GasParams are always supplied by the caller; nothing is estimated.
type GasParams struct {
	Limit uint64
	Price *big.Int
}
