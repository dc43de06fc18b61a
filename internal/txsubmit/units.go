package txsubmit

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/compose-network/mediactl/internal/domain"
	"github.com/ethereum/go-ethereum/params"
)

func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(params.GWei))
}

// ParseEther converts a decimal ether amount ("0.04") to wei. Amounts finer than one wei are rejected.
func ParseEther(value string) (*big.Int, error) {
	amount, ok := new(big.Rat).SetString(strings.TrimSpace(value))
	if !ok {
		return nil, domain.Configurationf("invalid ether amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, domain.Configurationf("ether amount must not be negative: %q", value)
	}

	wei := amount.Mul(amount, new(big.Rat).SetInt64(params.Ether))
	if !wei.IsInt() {
		return nil, domain.Configurationf("ether amount %q has more than 18 decimals", value)
	}

	return new(big.Int).Set(wei.Num()), nil
}

// FormatEther renders wei as ether with the raw value alongside.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		wei = new(big.Int)
	}

	eth := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		new(big.Float).SetInt(big.NewInt(params.Ether)),
	)

	return fmt.Sprintf("%.4f ETH (%s wei)", eth, wei.String())
}
