package admin

import (
	"fmt"
	"io"
	"math/big"

	"github.com/compose-network/mediactl/internal/domain"
	"github.com/compose-network/mediactl/internal/txsubmit"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type (
	// Outcome is the result of a state-changing operation.
	Outcome struct {
		Operation string
		Media     common.Address
		TxHash    common.Hash
		State     domain.TxState
		Block     *big.Int
	}

	Price struct {
		Media common.Address
		Wei   *big.Int
	}

	MediaInfo struct {
		Media        common.Address
		TokenID      *big.Int
		TokenURI     string
		ContentHash  [32]byte
		MetadataURI  string
		MetadataHash [32]byte
	}
)

type outcomeView struct {
	Operation string `json:"operation" yaml:"operation"`
	Media     string `json:"media" yaml:"media"`
	TxHash    string `json:"txHash" yaml:"txHash"`
	State     string `json:"state" yaml:"state"`
	Block     string `json:"block,omitempty" yaml:"block,omitempty"`
}

func (o Outcome) view() outcomeView {
	view := outcomeView{
		Operation: o.Operation,
		Media:     o.Media.Hex(),
		TxHash:    o.TxHash.Hex(),
		State:     string(o.State),
	}
	if o.Block != nil {
		view.Block = o.Block.String()
	}
	return view
}

func (v outcomeView) RenderText(w io.Writer) error {
	if v.Block != "" {
		_, err := fmt.Fprintf(w, "%s tx %s %s in block %s\n", v.Operation, v.TxHash, v.State, v.Block)
		return err
	}
	_, err := fmt.Fprintf(w, "%s tx %s %s\n", v.Operation, v.TxHash, v.State)
	return err
}

type priceView struct {
	Media string `json:"media" yaml:"media"`
	Wei   string `json:"wei" yaml:"wei"`
	Ether string `json:"ether" yaml:"ether"`
}

func (p Price) view() priceView {
	return priceView{Media: p.Media.Hex(), Wei: p.Wei.String(), Ether: txsubmit.FormatEther(p.Wei)}
}

func (v priceView) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Current price: %s\n", v.Ether)
	return err
}

type mediaInfoView struct {
	Media        string `json:"media" yaml:"media"`
	TokenID      string `json:"tokenId" yaml:"tokenId"`
	TokenURI     string `json:"tokenURI" yaml:"tokenURI"`
	ContentHash  string `json:"contentHash" yaml:"contentHash"`
	MetadataURI  string `json:"metadataURI" yaml:"metadataURI"`
	MetadataHash string `json:"metadataHash" yaml:"metadataHash"`
}

func (m MediaInfo) view() mediaInfoView {
	return mediaInfoView{
		Media:        m.Media.Hex(),
		TokenID:      m.TokenID.String(),
		TokenURI:     m.TokenURI,
		ContentHash:  hexutil.Encode(m.ContentHash[:]),
		MetadataURI:  m.MetadataURI,
		MetadataHash: hexutil.Encode(m.MetadataHash[:]),
	}
}

func (v mediaInfoView) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"Media information for token %s\n  tokenURI:     %s\n  contentHash:  %s\n  metadataURI:  %s\n  metadataHash: %s\n",
		v.TokenID, v.TokenURI, v.ContentHash, v.MetadataURI, v.MetadataHash)
	return err
}
