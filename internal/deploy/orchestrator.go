package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/compose-network/mediactl/internal/contracts"
	"github.com/compose-network/mediactl/internal/domain"
	"github.com/compose-network/mediactl/internal/logger"
	"github.com/compose-network/mediactl/internal/txsubmit"
	"github.com/ethereum/go-ethereum/common"
)

// State is a position in the deployment state machine.
type State string

const (
	StateStart            State = "start"
	StateMarketPending    State = "market-pending"
	StateMarketSkipped    State = "market-skipped"
	StateMediaPending     State = "media-pending"
	StateMediaSkipped     State = "media-skipped"
	StateConfigurePending State = "configure-pending"
	StateConfigureSkipped State = "configure-skipped"
	StateDone             State = "done"
)

const (
	stepDeployMarket    = "deploy-market"
	stepDeployMedia     = "deploy-media"
	stepConfigureMarket = "configure-market"
)

type (
	AddressBook interface {
		Load(networkID domain.NetworkID) (domain.AddressBookEntry, error)
		Save(networkID domain.NetworkID, entry domain.AddressBookEntry) error
	}

	Submitter interface {
		Submit(ctx context.Context, step domain.DeploymentStep, artifact contracts.Artifact, target common.Address, gas domain.GasParams) (domain.PendingTransaction, error)
		Await(ctx context.Context, pending domain.PendingTransaction, mode domain.ConfirmationMode) (txsubmit.Result, error)
	}

	Options struct {
		// FreshOnly refuses to run against a network that already has recorded addresses.
		FreshOnly bool
		DeployGas domain.GasParams
		CallGas   domain.GasParams
	}

	// Report describes what a run did. On error it holds the progress made before the failure.
	Report struct {
		NetworkID    domain.NetworkID
		Entry        domain.AddressBookEntry
		States       []State
		Transactions []domain.PendingTransaction
	}

	Orchestrator struct {
		store     AddressBook
		submitter Submitter
		artifacts contracts.Set
		options   Options
		logger    *slog.Logger
	}
)

func NewOrchestrator(store AddressBook, submitter Submitter, artifacts contracts.Set, options Options) *Orchestrator {
	return &Orchestrator{
		store:     store,
		submitter: submitter,
		artifacts: artifacts,
		options:   options,
		logger:    logger.Named("deploy_orchestrator"),
	}
}

// Run brings the network to the fully deployed and configured state, resuming from
// whatever the address book already records. Every confirmed deployment is persisted
// before the next step starts.
func (o *Orchestrator) Run(ctx context.Context, networkID domain.NetworkID) (Report, error) {
	report := Report{NetworkID: networkID, States: []State{StateStart}}
	logger := o.logger.With("network_id", networkID)

	entry, err := o.store.Load(networkID)
	if err != nil {
		return report, err
	}
	report.Entry = entry

	if o.options.FreshOnly && !entry.IsEmpty() {
		return report, fmt.Errorf("%w: %s", domain.ErrNetworkAlreadyDeployed, networkID)
	}

	if entry.HasMarket() {
		logger.With("market", entry.Market.Hex()).Info("market already deployed, skipping")
		report.States = append(report.States, StateMarketSkipped)
	} else {
		report.States = append(report.States, StateMarketPending)
		logger.Info("deploying Market")

		address, err := o.deploy(ctx, &report, marketStep(), o.artifacts.Market)
		if err != nil {
			return report, err
		}
		logger.With("market", address.Hex()).Info("Market deployed")
		if entry, err = o.record(networkID, entry, stepDeployMarket, domain.ContractMarket, address); err != nil {
			return report, err
		}
		report.Entry = entry
	}

	mediaDeployed := false
	if entry.HasMedia() {
		logger.With("media", entry.Media.Hex()).Info("media already deployed, skipping")
		report.States = append(report.States, StateMediaSkipped)
	} else {
		report.States = append(report.States, StateMediaPending)
		logger.Info("deploying Media")

		address, err := o.deploy(ctx, &report, mediaStep(entry.Market), o.artifacts.Media)
		if err != nil {
			return report, err
		}
		logger.With("media", address.Hex()).Info("Media deployed")
		if entry, err = o.record(networkID, entry, stepDeployMedia, domain.ContractMedia, address); err != nil {
			return report, err
		}
		report.Entry = entry
		mediaDeployed = true
	}

	// Configure only follows a media deployment from this run, so re-running against
	// a configured network sends nothing.
	if mediaDeployed {
		report.States = append(report.States, StateConfigurePending)
		logger.Info("configuring Market")

		step := configureStep(entry.Media)
		if err := step.Precondition(entry); err != nil {
			return report, err
		}
		if _, err := o.execute(ctx, &report, step, o.artifacts.Market, entry.Market, o.options.CallGas); err != nil {
			logger.With("market", entry.Market.Hex(), "media", entry.Media.Hex()).
				Warn("media is recorded but market was not configured; configure it manually before re-running")
			return report, err
		}
		logger.Info("Market configured")
	} else {
		report.States = append(report.States, StateConfigureSkipped)
	}

	report.States = append(report.States, StateDone)
	logger.Info("contracts deployed and configured")

	return report, nil
}

func (o *Orchestrator) deploy(ctx context.Context, report *Report, step domain.DeploymentStep, artifact contracts.Artifact) (common.Address, error) {
	if err := step.Precondition(report.Entry); err != nil {
		return common.Address{}, err
	}

	result, err := o.execute(ctx, report, step, artifact, common.Address{}, o.options.DeployGas)
	if err != nil {
		return common.Address{}, err
	}

	if result.ContractAddress == (common.Address{}) {
		return common.Address{}, &domain.TransactionFailedError{
			Step:   step.Name,
			TxHash: result.Pending.Hash,
			Reason: "receipt carries no contract address",
		}
	}

	return result.ContractAddress, nil
}

func (o *Orchestrator) execute(ctx context.Context, report *Report, step domain.DeploymentStep, artifact contracts.Artifact, target common.Address, gas domain.GasParams) (txsubmit.Result, error) {
	pending, err := o.submitter.Submit(ctx, step, artifact, target, gas)
	if err != nil {
		return txsubmit.Result{}, fmt.Errorf("step %s: %w", step.Name, err)
	}
	report.Transactions = append(report.Transactions, pending)

	return o.submitter.Await(ctx, pending, domain.WaitForConfirmation)
}

// record persists a confirmed deployment. On failure the error names the address so it
// can be recorded by hand.
func (o *Orchestrator) record(networkID domain.NetworkID, entry domain.AddressBookEntry, step string, name domain.ContractName, address common.Address) (domain.AddressBookEntry, error) {
	var (
		updated domain.AddressBookEntry
		err     error
	)
	switch name {
	case domain.ContractMarket:
		updated, err = entry.WithMarket(address)
	case domain.ContractMedia:
		updated, err = entry.WithMedia(address)
	}
	if err == nil {
		err = o.store.Save(networkID, updated)
	}
	if err != nil {
		return entry, fmt.Errorf("step %s: %s confirmed at %s but not recorded: %w", step, name, address.Hex(), err)
	}

	return updated, nil
}

func marketStep() domain.DeploymentStep {
	return domain.DeploymentStep{
		Name:      stepDeployMarket,
		Kind:      domain.StepDeploy,
		Contract:  domain.ContractMarket,
		Forbids:   []domain.ContractName{domain.ContractMarket},
		Populates: domain.ContractMarket,
	}
}

func mediaStep(market common.Address) domain.DeploymentStep {
	return domain.DeploymentStep{
		Name:      stepDeployMedia,
		Kind:      domain.StepDeploy,
		Contract:  domain.ContractMedia,
		Args:      []any{market},
		Requires:  []domain.ContractName{domain.ContractMarket},
		Forbids:   []domain.ContractName{domain.ContractMedia},
		Populates: domain.ContractMedia,
	}
}

func configureStep(media common.Address) domain.DeploymentStep {
	return domain.DeploymentStep{
		Name:     stepConfigureMarket,
		Kind:     domain.StepInvoke,
		Contract: domain.ContractMarket,
		Method:   contracts.MethodConfigure,
		Args:     []any{media},
		Requires: []domain.ContractName{domain.ContractMarket, domain.ContractMedia},
	}
}
