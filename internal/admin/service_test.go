package admin

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/compose-network/mediactl/internal/addressbook"
	"github.com/compose-network/mediactl/internal/contracts"
	"github.com/compose-network/mediactl/internal/domain"
	fsjson "github.com/compose-network/mediactl/internal/infra/filesystem/json"
	"github.com/compose-network/mediactl/internal/txsubmit"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	marketAddr = common.HexToAddress("0x000000000000000000000000000000000000000A")
	mediaAddr  = common.HexToAddress("0x000000000000000000000000000000000000000B")
	signer     = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	holder     = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	txHash     = common.HexToHash("0x1234")
)

type mockChain struct {
	mock.Mock
}

func (m *mockChain) Sender() common.Address {
	return m.Called().Get(0).(common.Address)
}

func (m *mockChain) Query(ctx context.Context, address common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	ret := m.Called(address, method, args)
	out, _ := ret.Get(0).([]any)
	return out, ret.Error(1)
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Invoke(ctx context.Context, step domain.DeploymentStep, target common.Address, artifact contracts.Artifact, gas domain.GasParams) (domain.PendingTransaction, error) {
	ret := m.Called(step.Method, target, step.Args, gas)
	return ret.Get(0).(domain.PendingTransaction), ret.Error(1)
}

func (m *mockSubmitter) Await(ctx context.Context, pending domain.PendingTransaction, mode domain.ConfirmationMode) (txsubmit.Result, error) {
	ret := m.Called(pending.Hash, mode)
	return ret.Get(0).(txsubmit.Result), ret.Error(1)
}

type fixture struct {
	service   *Service
	chain     *mockChain
	submitter *mockSubmitter
	dials     int
}

func newFixture(t *testing.T, entry domain.AddressBookEntry) *fixture {
	t.Helper()

	store := addressbook.NewStore(filepath.Join(t.TempDir(), "addresses"), fsjson.NewReader(), fsjson.NewWriter())
	if !entry.IsEmpty() {
		require.NoError(t, store.Save("ganache", entry))
	}

	f := &fixture{chain: new(mockChain), submitter: new(mockSubmitter)}
	dial := func(context.Context) (Chain, Submitter, error) {
		f.dials++
		return f.chain, f.submitter, nil
	}
	f.service = NewService("ganache", store, contracts.Set{}, dial, Gas{CallLimit: 1_000_000, MintLimit: 660_000})

	return f
}

func deployed() domain.AddressBookEntry {
	return domain.AddressBookEntry{Market: marketAddr, Media: mediaAddr}
}

func TestService_TargetNotDeployed(t *testing.T) {
	tokenID := big.NewInt(1)
	operations := map[string]func(f *fixture) error{
		"set price": func(f *fixture) error {
			_, err := f.service.SetPrice(context.Background(), big.NewInt(1), TxOptions{})
			return err
		},
		"mint": func(f *fixture) error {
			_, err := f.service.Mint(context.Background(), tokenID, contracts.MediaData{}, TxOptions{})
			return err
		},
		"transfer": func(f *fixture) error {
			_, err := f.service.Transfer(context.Background(), common.Address{}, holder, tokenID, TxOptions{})
			return err
		},
		"love note": func(f *fixture) error {
			_, err := f.service.SetLoveMessage(context.Background(), tokenID, "hi", TxOptions{})
			return err
		},
		"current price": func(f *fixture) error {
			_, err := f.service.CurrentPrice(context.Background())
			return err
		},
		"media info": func(f *fixture) error {
			_, err := f.service.MediaInfo(context.Background(), tokenID)
			return err
		},
	}

	for name, op := range operations {
		t.Run(name, func(t *testing.T) {
			for _, entry := range []domain.AddressBookEntry{{}, {Market: marketAddr}} {
				f := newFixture(t, entry)

				err := op(f)
				require.ErrorIs(t, err, domain.ErrTargetNotDeployed)
				require.ErrorIs(t, err, domain.ErrPreconditionViolation)
				assert.Zero(t, f.dials, "no network call before the precondition holds")
			}
		})
	}
}

func TestService_SetPrice(t *testing.T) {
	f := newFixture(t, deployed())
	price := big.NewInt(40_000_000_000_000_000)
	gasPrice := big.NewInt(6_000_000_000)

	f.submitter.On("Invoke", contracts.MethodSetCurrentPrice, mediaAddr, []any{price}, domain.GasParams{Limit: 1_000_000, Price: gasPrice}).
		Return(domain.PendingTransaction{Hash: txHash}, nil).Once()
	f.submitter.On("Await", txHash, domain.WaitForConfirmation).
		Return(txsubmit.Result{State: domain.TxConfirmed, Receipt: &types.Receipt{BlockNumber: big.NewInt(12)}}, nil).Once()

	outcome, err := f.service.SetPrice(context.Background(), price, TxOptions{GasPrice: gasPrice, Mode: domain.WaitForConfirmation})
	require.NoError(t, err)

	assert.Equal(t, domain.TxConfirmed, outcome.State)
	assert.Equal(t, txHash, outcome.TxHash)
	assert.Equal(t, big.NewInt(12), outcome.Block)
	assert.Equal(t, 1, f.dials)
	f.submitter.AssertExpectations(t)

	_, err = f.service.SetPrice(context.Background(), big.NewInt(-1), TxOptions{})
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestService_Mint(t *testing.T) {
	f := newFixture(t, deployed())
	data := contracts.MediaData{TokenURI: "ipfs://token", MetadataURI: "ipfs://meta"}
	tokenID := big.NewInt(7)

	f.submitter.On("Invoke", contracts.MethodMint, mediaAddr, []any{tokenID, data}, domain.GasParams{Limit: 660_000}).
		Return(domain.PendingTransaction{Hash: txHash}, nil).Once()
	f.submitter.On("Await", txHash, domain.FireAndForget).
		Return(txsubmit.Result{State: domain.TxSubmitted}, nil).Once()

	outcome, err := f.service.Mint(context.Background(), tokenID, data, TxOptions{Mode: domain.FireAndForget})
	require.NoError(t, err)

	assert.Equal(t, domain.TxSubmitted, outcome.State)
	assert.Nil(t, outcome.Block)
	f.submitter.AssertExpectations(t)
}

func TestService_Transfer(t *testing.T) {
	tokenID := big.NewInt(3)

	t.Run("defaults from to the signer", func(t *testing.T) {
		f := newFixture(t, deployed())
		f.chain.On("Sender").Return(signer).Once()
		f.submitter.On("Invoke", contracts.MethodTransferFrom, mediaAddr, []any{signer, holder, tokenID}, mock.Anything).
			Return(domain.PendingTransaction{Hash: txHash}, nil).Once()
		f.submitter.On("Await", txHash, domain.FireAndForget).Return(txsubmit.Result{State: domain.TxSubmitted}, nil).Once()

		_, err := f.service.Transfer(context.Background(), common.Address{}, holder, tokenID, TxOptions{Mode: domain.FireAndForget})
		require.NoError(t, err)
		f.chain.AssertExpectations(t)
		f.submitter.AssertExpectations(t)
	})

	t.Run("explicit holder", func(t *testing.T) {
		f := newFixture(t, deployed())
		f.submitter.On("Invoke", contracts.MethodTransferFrom, mediaAddr, []any{holder, signer, tokenID}, mock.Anything).
			Return(domain.PendingTransaction{Hash: txHash}, nil).Once()
		f.submitter.On("Await", txHash, domain.FireAndForget).Return(txsubmit.Result{State: domain.TxSubmitted}, nil).Once()

		_, err := f.service.Transfer(context.Background(), holder, signer, tokenID, TxOptions{Mode: domain.FireAndForget})
		require.NoError(t, err)
		f.chain.AssertNotCalled(t, "Sender")
	})

	t.Run("recipient required", func(t *testing.T) {
		f := newFixture(t, deployed())
		_, err := f.service.Transfer(context.Background(), holder, common.Address{}, tokenID, TxOptions{})
		require.ErrorIs(t, err, domain.ErrConfiguration)
		assert.Zero(t, f.dials)
	})
}

func TestService_FailedTransactionKeepsHash(t *testing.T) {
	f := newFixture(t, deployed())
	failure := &domain.TransactionFailedError{Step: contracts.MethodSetLoveMessage, TxHash: txHash, Reason: "reverted in block 5"}

	f.submitter.On("Invoke", contracts.MethodSetLoveMessage, mediaAddr, []any{big.NewInt(1), "☼☽"}, mock.Anything).
		Return(domain.PendingTransaction{Hash: txHash}, nil).Once()
	f.submitter.On("Await", txHash, domain.WaitForConfirmation).
		Return(txsubmit.Result{State: domain.TxFailed}, failure).Once()

	outcome, err := f.service.SetLoveMessage(context.Background(), big.NewInt(1), "☼☽", TxOptions{Mode: domain.WaitForConfirmation})
	require.ErrorIs(t, err, domain.ErrTransactionFailed)
	assert.Equal(t, txHash, outcome.TxHash)
}

func TestService_CurrentPrice(t *testing.T) {
	f := newFixture(t, deployed())
	f.chain.On("Query", mediaAddr, contracts.MethodCurrentPrice, []any(nil)).
		Return([]any{big.NewInt(40_000_000_000_000_000)}, nil).Once()

	price, err := f.service.CurrentPrice(context.Background())
	require.NoError(t, err)

	assert.Equal(t, mediaAddr, price.Media)
	assert.Equal(t, "40000000000000000", price.Wei.String())
	assert.Equal(t, "0.0400 ETH (40000000000000000 wei)", price.view().Ether)
}

func TestService_MediaInfo(t *testing.T) {
	f := newFixture(t, deployed())
	tokenID := big.NewInt(1)
	content := [32]byte{0x1c}
	metadata := [32]byte{0x7d}

	f.chain.On("Query", mediaAddr, contracts.MethodTokenURI, []any{tokenID}).Return([]any{"ipfs://token"}, nil).Once()
	f.chain.On("Query", mediaAddr, contracts.MethodTokenContentHashes, []any{tokenID}).Return([]any{content}, nil).Once()
	f.chain.On("Query", mediaAddr, contracts.MethodTokenMetadataURI, []any{tokenID}).Return([]any{"ipfs://meta"}, nil).Once()
	f.chain.On("Query", mediaAddr, contracts.MethodTokenMetadataHashes, []any{tokenID}).Return([]any{metadata}, nil).Once()

	info, err := f.service.MediaInfo(context.Background(), tokenID)
	require.NoError(t, err)

	assert.Equal(t, "ipfs://token", info.TokenURI)
	assert.Equal(t, "ipfs://meta", info.MetadataURI)
	assert.Equal(t, content, info.ContentHash)
	assert.Equal(t, metadata, info.MetadataHash)
	assert.Equal(t, "0x1c00000000000000000000000000000000000000000000000000000000000000", info.view().ContentHash)
	f.chain.AssertExpectations(t)

	t.Run("unexpected output", func(t *testing.T) {
		f := newFixture(t, deployed())
		f.chain.On("Query", mediaAddr, contracts.MethodTokenURI, []any{tokenID}).Return([]any{42}, nil).Once()

		_, err := f.service.MediaInfo(context.Background(), tokenID)
		require.Error(t, err)
	})
}

func TestParseTokenID(t *testing.T) {
	id, err := ParseTokenID("0")
	require.NoError(t, err)
	assert.Zero(t, id.Sign())

	for _, bad := range []string{"", "-1", "abc", "1.5"} {
		_, err := ParseTokenID(bad)
		assert.ErrorIs(t, err, domain.ErrConfiguration, bad)
	}
}
