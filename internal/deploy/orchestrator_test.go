package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/compose-network/mediactl/internal/addressbook"
	"github.com/compose-network/mediactl/internal/contracts"
	"github.com/compose-network/mediactl/internal/domain"
	fsjson "github.com/compose-network/mediactl/internal/infra/filesystem/json"
	"github.com/compose-network/mediactl/internal/txsubmit"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	existingMarket = common.HexToAddress("0x000000000000000000000000000000000000000A")
	existingMedia  = common.HexToAddress("0x000000000000000000000000000000000000000B")
)

type submittedCall struct {
	step     string
	kind     domain.StepKind
	contract domain.ContractName
	method   string
	target   common.Address
	args     []any
}

// fakeSubmitter confirms every transaction and hands out sequential contract addresses.
type fakeSubmitter struct {
	calls   []submittedCall
	next    int64
	created map[common.Hash]common.Address
	failOn  map[string]error
	// store is checked on every submission to observe what was persisted before it.
	store     *addressbook.Store
	snapshots []domain.AddressBookEntry
}

func newFakeSubmitter(store *addressbook.Store) *fakeSubmitter {
	return &fakeSubmitter{
		next:    0x100,
		created: make(map[common.Hash]common.Address),
		failOn:  make(map[string]error),
		store:   store,
	}
}

func (f *fakeSubmitter) Submit(_ context.Context, step domain.DeploymentStep, artifact contracts.Artifact, target common.Address, gas domain.GasParams) (domain.PendingTransaction, error) {
	if f.store != nil {
		entry, err := f.store.Load("4")
		if err != nil {
			return domain.PendingTransaction{}, err
		}
		f.snapshots = append(f.snapshots, entry)
	}

	f.calls = append(f.calls, submittedCall{
		step:     step.Name,
		kind:     step.Kind,
		contract: artifact.Name,
		method:   step.Method,
		target:   target,
		args:     step.Args,
	})

	hash := common.BigToHash(big.NewInt(int64(len(f.calls))))
	if step.Kind == domain.StepDeploy {
		f.created[hash] = common.BigToAddress(big.NewInt(f.next))
		f.next++
	}

	return domain.PendingTransaction{Step: step.Name, Hash: hash, GasLimit: gas.Limit, GasPrice: gas.Price}, nil
}

func (f *fakeSubmitter) Await(_ context.Context, pending domain.PendingTransaction, mode domain.ConfirmationMode) (txsubmit.Result, error) {
	if mode != domain.WaitForConfirmation {
		return txsubmit.Result{}, errors.New("orchestrator must wait for confirmation")
	}
	if err, ok := f.failOn[pending.Step]; ok {
		return txsubmit.Result{Pending: pending, State: domain.TxFailed}, err
	}

	return txsubmit.Result{
		Pending:         pending,
		State:           domain.TxConfirmed,
		Receipt:         &types.Receipt{Status: types.ReceiptStatusSuccessful},
		ContractAddress: f.created[pending.Hash],
	}, nil
}

func testArtifacts() contracts.Set {
	return contracts.Set{
		Market: contracts.Artifact{Name: domain.ContractMarket, Bytecode: []byte{0x01}},
		Media:  contracts.Artifact{Name: domain.ContractMedia, Bytecode: []byte{0x02}},
	}
}

func testOptions() Options {
	return Options{
		DeployGas: domain.GasParams{Limit: 6_000_000, Price: big.NewInt(6_000_000_000)},
		CallGas:   domain.GasParams{Limit: 1_000_000, Price: big.NewInt(6_000_000_000)},
	}
}

func newTestStore(t *testing.T) (*addressbook.Store, string) {
	t.Helper()
	dir := t.TempDir()
	return addressbook.NewStore(dir, fsjson.NewReader(), fsjson.NewWriter()), dir
}

func seed(t *testing.T, store *addressbook.Store, entry domain.AddressBookEntry) {
	t.Helper()
	require.NoError(t, store.Save("4", entry))
}

func TestOrchestrator_FreshNetwork(t *testing.T) {
	store, _ := newTestStore(t)
	submitter := newFakeSubmitter(store)

	report, err := NewOrchestrator(store, submitter, testArtifacts(), testOptions()).Run(context.Background(), "4")
	require.NoError(t, err)

	require.Len(t, submitter.calls, 3)
	market := common.BigToAddress(big.NewInt(0x100))
	media := common.BigToAddress(big.NewInt(0x101))

	assert.Equal(t, submittedCall{step: stepDeployMarket, kind: domain.StepDeploy, contract: domain.ContractMarket}, submitter.calls[0])
	assert.Equal(t, submittedCall{step: stepDeployMedia, kind: domain.StepDeploy, contract: domain.ContractMedia, args: []any{market}}, submitter.calls[1])
	assert.Equal(t, submittedCall{
		step:     stepConfigureMarket,
		kind:     domain.StepInvoke,
		contract: domain.ContractMarket,
		method:   contracts.MethodConfigure,
		target:   market,
		args:     []any{media},
	}, submitter.calls[2])

	// Market was persisted before media was submitted; media before configure.
	assert.True(t, submitter.snapshots[0].IsEmpty())
	assert.Equal(t, market, submitter.snapshots[1].Market)
	assert.False(t, submitter.snapshots[1].HasMedia())
	assert.Equal(t, media, submitter.snapshots[2].Media)

	stored, err := store.Load("4")
	require.NoError(t, err)
	assert.Equal(t, market, stored.Market)
	assert.Equal(t, media, stored.Media)
	assert.Equal(t, stored.Market, report.Entry.Market)
	assert.Len(t, report.Transactions, 3)
	assert.Equal(t, []State{StateStart, StateMarketPending, StateMediaPending, StateConfigurePending, StateDone}, report.States)
}

func TestOrchestrator_MarketOnly(t *testing.T) {
	store, _ := newTestStore(t)
	seed(t, store, domain.AddressBookEntry{Market: existingMarket})
	submitter := newFakeSubmitter(nil)

	report, err := NewOrchestrator(store, submitter, testArtifacts(), testOptions()).Run(context.Background(), "4")
	require.NoError(t, err)

	require.Len(t, submitter.calls, 2)
	assert.Equal(t, stepDeployMedia, submitter.calls[0].step)
	assert.Equal(t, []any{existingMarket}, submitter.calls[0].args)
	assert.Equal(t, stepConfigureMarket, submitter.calls[1].step)
	assert.Equal(t, existingMarket, submitter.calls[1].target)

	stored, err := store.Load("4")
	require.NoError(t, err)
	assert.Equal(t, existingMarket, stored.Market)
	assert.Equal(t, common.BigToAddress(big.NewInt(0x100)), stored.Media)
	assert.Equal(t, []State{StateStart, StateMarketSkipped, StateMediaPending, StateConfigurePending, StateDone}, report.States)
}

func TestOrchestrator_FullyDeployedIsNoop(t *testing.T) {
	store, dir := newTestStore(t)
	seed(t, store, domain.AddressBookEntry{Market: existingMarket, Media: existingMedia})
	before, err := os.ReadFile(filepath.Join(dir, "4.json"))
	require.NoError(t, err)

	submitter := newFakeSubmitter(nil)
	report, err := NewOrchestrator(store, submitter, testArtifacts(), testOptions()).Run(context.Background(), "4")
	require.NoError(t, err)

	assert.Empty(t, submitter.calls)
	assert.Empty(t, report.Transactions)
	assert.Equal(t, []State{StateStart, StateMarketSkipped, StateMediaSkipped, StateConfigureSkipped, StateDone}, report.States)

	after, err := os.ReadFile(filepath.Join(dir, "4.json"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestOrchestrator_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)
	submitter := newFakeSubmitter(nil)
	orchestrator := NewOrchestrator(store, submitter, testArtifacts(), testOptions())

	first, err := orchestrator.Run(context.Background(), "4")
	require.NoError(t, err)
	require.Len(t, submitter.calls, 3)

	second, err := orchestrator.Run(context.Background(), "4")
	require.NoError(t, err)

	assert.Len(t, submitter.calls, 3)
	assert.Empty(t, second.Transactions)
	assert.Equal(t, first.Entry.Market, second.Entry.Market)
	assert.Equal(t, first.Entry.Media, second.Entry.Media)
}

func TestOrchestrator_ResumesAfterFailure(t *testing.T) {
	store, _ := newTestStore(t)
	submitter := newFakeSubmitter(nil)
	failure := &domain.TransactionFailedError{Step: stepDeployMedia, TxHash: common.HexToHash("0x02"), Reason: "reverted in block 3"}
	submitter.failOn[stepDeployMedia] = failure
	orchestrator := NewOrchestrator(store, submitter, testArtifacts(), testOptions())

	report, err := orchestrator.Run(context.Background(), "4")
	require.ErrorIs(t, err, domain.ErrTransactionFailed)
	assert.Equal(t, []State{StateStart, StateMarketPending, StateMediaPending}, report.States)

	stored, err := store.Load("4")
	require.NoError(t, err)
	market := common.BigToAddress(big.NewInt(0x100))
	assert.Equal(t, market, stored.Market)
	assert.False(t, stored.HasMedia())

	delete(submitter.failOn, stepDeployMedia)
	submitter.calls = nil

	_, err = orchestrator.Run(context.Background(), "4")
	require.NoError(t, err)

	require.Len(t, submitter.calls, 2)
	assert.Equal(t, stepDeployMedia, submitter.calls[0].step)
	assert.Equal(t, []any{market}, submitter.calls[0].args)
	assert.Equal(t, stepConfigureMarket, submitter.calls[1].step)
}

func TestOrchestrator_ConfigureFailureKeepsMedia(t *testing.T) {
	store, _ := newTestStore(t)
	submitter := newFakeSubmitter(nil)
	submitter.failOn[stepConfigureMarket] = &domain.TransactionFailedError{Step: stepConfigureMarket, Reason: "reverted"}

	_, err := NewOrchestrator(store, submitter, testArtifacts(), testOptions()).Run(context.Background(), "4")
	require.ErrorIs(t, err, domain.ErrTransactionFailed)

	stored, err := store.Load("4")
	require.NoError(t, err)
	assert.True(t, stored.HasMarket())
	assert.True(t, stored.HasMedia())
}

func TestOrchestrator_FreshOnly(t *testing.T) {
	store, _ := newTestStore(t)
	seed(t, store, domain.AddressBookEntry{Market: existingMarket})
	submitter := newFakeSubmitter(nil)

	options := testOptions()
	options.FreshOnly = true

	_, err := NewOrchestrator(store, submitter, testArtifacts(), options).Run(context.Background(), "4")
	require.ErrorIs(t, err, domain.ErrNetworkAlreadyDeployed)
	require.ErrorIs(t, err, domain.ErrPreconditionViolation)
	assert.Empty(t, submitter.calls)

	t.Run("empty network proceeds", func(t *testing.T) {
		store, _ := newTestStore(t)
		submitter := newFakeSubmitter(nil)

		_, err := NewOrchestrator(store, submitter, testArtifacts(), options).Run(context.Background(), "4")
		require.NoError(t, err)
		assert.Len(t, submitter.calls, 3)
	})
}

func TestOrchestrator_StoreErrorsStopTheRun(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "4.json"), []byte("{not json"), 0o644))
	submitter := newFakeSubmitter(nil)

	_, err := NewOrchestrator(store, submitter, testArtifacts(), testOptions()).Run(context.Background(), "4")
	require.ErrorIs(t, err, domain.ErrStoreIO)
	assert.Empty(t, submitter.calls)
}

// unwritableStore loads an empty entry and fails every save.
type unwritableStore struct{}

func (unwritableStore) Load(domain.NetworkID) (domain.AddressBookEntry, error) {
	return domain.AddressBookEntry{}, nil
}

func (unwritableStore) Save(domain.NetworkID, domain.AddressBookEntry) error {
	return fmt.Errorf("%w: disk full", domain.ErrStoreIO)
}

func TestOrchestrator_SaveFailureNamesConfirmedAddress(t *testing.T) {
	submitter := newFakeSubmitter(nil)

	report, err := NewOrchestrator(unwritableStore{}, submitter, testArtifacts(), testOptions()).Run(context.Background(), "4")
	require.ErrorIs(t, err, domain.ErrStoreIO)

	market := common.BigToAddress(big.NewInt(0x100))
	assert.Contains(t, err.Error(), market.Hex())
	assert.Contains(t, err.Error(), stepDeployMarket)
	assert.False(t, report.Entry.HasMarket())
	require.Len(t, report.Transactions, 1)
	assert.Len(t, submitter.calls, 1)
}

func TestOrchestrator_InconsistentEntry(t *testing.T) {
	store, dir := newTestStore(t)
	doc := `{"media": "` + existingMedia.Hex() + `"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "4.json"), []byte(doc), 0o644))
	submitter := newFakeSubmitter(nil)

	_, err := NewOrchestrator(store, submitter, testArtifacts(), testOptions()).Run(context.Background(), "4")
	require.ErrorIs(t, err, domain.ErrPreconditionViolation)
	assert.Empty(t, submitter.calls)
}

func TestReportView_RenderText(t *testing.T) {
	report := Report{
		NetworkID: "4",
		Entry:     domain.AddressBookEntry{Market: existingMarket, Media: existingMedia},
		States:    []State{StateStart, StateMarketSkipped, StateMediaSkipped, StateConfigureSkipped, StateDone},
	}

	var buf strings.Builder
	require.NoError(t, newReportView(report, "addresses/4.json").RenderText(&buf))

	assert.Contains(t, buf.String(), "Nothing to do on 4.")
	assert.Contains(t, buf.String(), "Market: "+existingMarket.Hex())
	assert.Contains(t, buf.String(), "Media:  "+existingMedia.Hex())
}
