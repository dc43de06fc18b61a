package inspect

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/compose-network/mediactl/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type (
	Chain interface {
		TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
		TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
		BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
		TransactionSender(tx *types.Transaction) (common.Address, error)
	}

	Transaction struct {
		Hash     string   `json:"hash" yaml:"hash"`
		From     string   `json:"from" yaml:"from"`
		To       string   `json:"to,omitempty" yaml:"to,omitempty"`
		Nonce    uint64   `json:"nonce" yaml:"nonce"`
		Gas      uint64   `json:"gas" yaml:"gas"`
		GasPrice string   `json:"gasPrice" yaml:"gasPrice"`
		Value    string   `json:"value" yaml:"value"`
		Pending  bool     `json:"pending" yaml:"pending"`
		Receipt  *Receipt `json:"receipt,omitempty" yaml:"receipt,omitempty"`
	}

	Receipt struct {
		Status          string `json:"status" yaml:"status"`
		BlockNumber     string `json:"blockNumber" yaml:"blockNumber"`
		GasUsed         uint64 `json:"gasUsed" yaml:"gasUsed"`
		ContractAddress string `json:"contractAddress,omitempty" yaml:"contractAddress,omitempty"`
	}

	Block struct {
		Number       string   `json:"number" yaml:"number"`
		Hash         string   `json:"hash" yaml:"hash"`
		Time         uint64   `json:"time" yaml:"time"`
		GasUsed      uint64   `json:"gasUsed" yaml:"gasUsed"`
		GasLimit     uint64   `json:"gasLimit" yaml:"gasLimit"`
		Transactions []string `json:"transactions" yaml:"transactions"`
	}
)

// LookupTransaction looks up a transaction and, once mined, its receipt.
func LookupTransaction(ctx context.Context, chain Chain, hash common.Hash) (Transaction, error) {
	tx, pending, err := chain.TransactionByHash(ctx, hash)
	if err != nil {
		return Transaction{}, err
	}

	from, err := chain.TransactionSender(tx)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to recover sender of %s: %w", hash.Hex(), err)
	}

	view := Transaction{
		Hash:     tx.Hash().Hex(),
		From:     from.Hex(),
		Nonce:    tx.Nonce(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice().String(),
		Value:    tx.Value().String(),
		Pending:  pending,
	}
	if to := tx.To(); to != nil {
		view.To = to.Hex()
	}

	if pending {
		return view, nil
	}

	receipt, err := chain.TransactionReceipt(ctx, hash)
	if err != nil {
		return Transaction{}, err
	}
	if receipt != nil {
		view.Receipt = &Receipt{
			Status:      receiptStatus(receipt.Status),
			BlockNumber: receipt.BlockNumber.String(),
			GasUsed:     receipt.GasUsed,
		}
		if receipt.ContractAddress != (common.Address{}) {
			view.Receipt.ContractAddress = receipt.ContractAddress.Hex()
		}
	}

	return view, nil
}

// LookupBlock returns a block summary; a nil number means the latest block.
func LookupBlock(ctx context.Context, chain Chain, number *big.Int) (Block, error) {
	block, err := chain.BlockByNumber(ctx, number)
	if err != nil {
		return Block{}, err
	}

	view := Block{
		Number:       block.Number().String(),
		Hash:         block.Hash().Hex(),
		Time:         block.Time(),
		GasUsed:      block.GasUsed(),
		GasLimit:     block.GasLimit(),
		Transactions: make([]string, 0, len(block.Transactions())),
	}
	for _, tx := range block.Transactions() {
		view.Transactions = append(view.Transactions, tx.Hash().Hex())
	}

	return view, nil
}

// ParseBlockNumber accepts a decimal block number or "latest".
func ParseBlockNumber(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "latest") {
		return nil, nil
	}

	number, ok := new(big.Int).SetString(value, 10)
	if !ok || number.Sign() < 0 {
		return nil, domain.Configurationf("invalid block number %q", value)
	}
	return number, nil
}

// ParseHash accepts a 0x-prefixed 32-byte transaction hash.
func ParseHash(value string) (common.Hash, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "0x") || len(value) != 2+2*common.HashLength {
		return common.Hash{}, domain.Configurationf("invalid transaction hash %q", value)
	}
	return common.HexToHash(value), nil
}

func receiptStatus(status uint64) string {
	if status == types.ReceiptStatusSuccessful {
		return "success"
	}
	return "reverted"
}
