package inspect

import (
	"fmt"
	"io"
)

func (t Transaction) RenderText(w io.Writer) error {
	to := t.To
	if to == "" {
		to = "(contract creation)"
	}
	if _, err := fmt.Fprintf(w, "Transaction %s\n  from:      %s\n  to:        %s\n  nonce:     %d\n  gas:       %d\n  gas price: %s wei\n  value:     %s wei\n",
		t.Hash, t.From, to, t.Nonce, t.Gas, t.GasPrice, t.Value); err != nil {
		return err
	}

	switch {
	case t.Pending:
		_, err := fmt.Fprintln(w, "  status:    pending")
		return err
	case t.Receipt == nil:
		_, err := fmt.Fprintln(w, "  status:    no receipt")
		return err
	}

	if _, err := fmt.Fprintf(w, "  status:    %s in block %s\n  gas used:  %d\n", t.Receipt.Status, t.Receipt.BlockNumber, t.Receipt.GasUsed); err != nil {
		return err
	}
	if t.Receipt.ContractAddress != "" {
		_, err := fmt.Fprintf(w, "  contract:  %s\n", t.Receipt.ContractAddress)
		return err
	}
	return nil
}

func (b Block) RenderText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Block %s %s\n  time:      %d\n  gas used:  %d / %d\n  txs:       %d\n",
		b.Number, b.Hash, b.Time, b.GasUsed, b.GasLimit, len(b.Transactions)); err != nil {
		return err
	}
	for _, hash := range b.Transactions {
		if _, err := fmt.Fprintf(w, "    %s\n", hash); err != nil {
			return err
		}
	}
	return nil
}
