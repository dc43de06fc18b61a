package domain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Error classes. Every error returned to the operator wraps exactly one of them.
var (
	ErrConfiguration         = errors.New("configuration error")
	ErrConnectionResolution  = errors.New("connection resolution error")
	ErrPreconditionViolation = errors.New("precondition violation")
	ErrTransactionFailed     = errors.New("transaction failed")
	ErrStoreIO               = errors.New("address book i/o error")
)

var (
	ErrMissingCredential      = fmt.Errorf("%w: no usable signing identity", ErrConnectionResolution)
	ErrAmbiguousCredential    = fmt.Errorf("%w: more than one signing identity configured", ErrConnectionResolution)
	ErrMissingNetworkSelector = fmt.Errorf("%w: neither rpc endpoint nor named network given", ErrConnectionResolution)
	ErrUnknownNetwork         = fmt.Errorf("%w: unknown network", ErrConnectionResolution)
	ErrChainIDMismatch        = fmt.Errorf("%w: endpoint serves a different chain", ErrConnectionResolution)

	ErrTargetNotDeployed      = fmt.Errorf("%w: target contract not deployed", ErrPreconditionViolation)
	ErrAddressOverwrite       = fmt.Errorf("%w: recorded address would be overwritten", ErrPreconditionViolation)
	ErrInconsistentEntry      = fmt.Errorf("%w: media recorded without market", ErrPreconditionViolation)
	ErrNetworkAlreadyDeployed = fmt.Errorf("%w: network already has recorded deployments", ErrPreconditionViolation)
)

// TransactionFailedError reports a submitted transaction that reverted or was never confirmed.
type TransactionFailedError struct {
	Step   string
	TxHash common.Hash
	Reason string
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("%s: step %q, tx %s: %s", ErrTransactionFailed, e.Step, e.TxHash.Hex(), e.Reason)
}

func (e *TransactionFailedError) Unwrap() error {
	return ErrTransactionFailed
}

// Configurationf builds an ErrConfiguration with a formatted message.
func Configurationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
