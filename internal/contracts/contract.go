package contracts

import (
	"github.com/compose-network/mediactl/internal/domain"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Artifact is a compiled contract: its ABI and creation bytecode.
type Artifact struct {
	Name     domain.ContractName
	ABI      abi.ABI
	Bytecode []byte
}

// Set holds the artifacts the toolbox works with.
type Set struct {
	Market Artifact
	Media  Artifact
}

// Market methods.
const (
	MethodConfigure = "configure"
)

// Media methods.
const (
	MethodSetCurrentPrice     = "setCurrentPrice"
	MethodCurrentPrice        = "currentPrice"
	MethodMint                = "mint"
	MethodTransferFrom        = "transferFrom"
	MethodSetLoveMessage      = "setLoveMessage"
	MethodTokenURI            = "tokenURI"
	MethodTokenContentHashes  = "tokenContentHashes"
	MethodTokenMetadataURI    = "tokenMetadataURI"
	MethodTokenMetadataHashes = "tokenMetadataHashes"
)

var requiredMethods = map[domain.ContractName][]string{
	domain.ContractMarket: {MethodConfigure},
	domain.ContractMedia: {
		MethodSetCurrentPrice,
		MethodCurrentPrice,
		MethodMint,
		MethodTransferFrom,
		MethodTokenURI,
		MethodTokenContentHashes,
		MethodTokenMetadataURI,
		MethodTokenMetadataHashes,
	},
}
