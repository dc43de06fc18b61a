package deploy

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/compose-network/mediactl/configs"
	"github.com/compose-network/mediactl/internal/domain"
	"github.com/compose-network/mediactl/internal/output"
	"github.com/compose-network/mediactl/internal/session"
	"github.com/compose-network/mediactl/internal/txsubmit"
	"github.com/spf13/cobra"
)

const freshOnlyFlag = "fresh-only"

var CMD = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy and configure the Market and Media contracts, resuming from the address book",
	RunE: func(cmd *cobra.Command, args []string) error {
		freshOnly, err := cmd.Flags().GetBool(freshOnlyFlag)
		if err != nil {
			return err
		}
		format, err := output.FromFlags(cmd)
		if err != nil {
			return err
		}

		slog.Info("starting deploy command. Validating config", slog.Any("config", configs.Values.Credentials))

		sess, err := session.Open(configs.Values)
		if err != nil {
			return err
		}
		defer sess.Close()

		artifacts, err := sess.Artifacts()
		if err != nil {
			return err
		}

		ctx, cancel := sess.WithTimeout(cmd.Context())
		defer cancel()

		conn, err := sess.Connect(ctx)
		if err != nil {
			return err
		}

		gas := sess.Config.Gas
		price := txsubmit.GweiToWei(gas.PriceGwei)
		orchestrator := NewOrchestrator(sess.Store, conn.Submitter, artifacts, Options{
			FreshOnly: freshOnly,
			DeployGas: domain.GasParams{Limit: gas.DeployLimit, Price: price},
			CallGas:   domain.GasParams{Limit: gas.CallLimit, Price: price},
		})

		report, err := orchestrator.Run(ctx, sess.NetworkID)
		if err != nil {
			return fmt.Errorf("deployment of %s stopped: %w", sess.NetworkID, err)
		}

		return output.Render(cmd.OutOrStdout(), format, newReportView(report, sess.Store.Path(sess.NetworkID)))
	},
}

func init() {
	CMD.Flags().Bool(freshOnlyFlag, false, "Refuse to run if the address book already records any contract")
	output.AddFlag(CMD)
}

type (
	reportView struct {
		NetworkID    string            `json:"networkId" yaml:"networkId"`
		AddressBook  string            `json:"addressBook" yaml:"addressBook"`
		Market       string            `json:"market" yaml:"market"`
		Media        string            `json:"media" yaml:"media"`
		States       []State           `json:"states" yaml:"states"`
		Transactions []transactionView `json:"transactions" yaml:"transactions"`
	}

	transactionView struct {
		Step string `json:"step" yaml:"step"`
		Hash string `json:"hash" yaml:"hash"`
	}
)

func newReportView(report Report, path string) reportView {
	view := reportView{
		NetworkID:    report.NetworkID.String(),
		AddressBook:  path,
		Market:       report.Entry.Market.Hex(),
		Media:        report.Entry.Media.Hex(),
		States:       report.States,
		Transactions: make([]transactionView, 0, len(report.Transactions)),
	}
	for _, tx := range report.Transactions {
		view.Transactions = append(view.Transactions, transactionView{Step: tx.Step, Hash: tx.Hash.Hex()})
	}
	return view
}

func (v reportView) RenderText(w io.Writer) error {
	if len(v.Transactions) == 0 {
		if _, err := fmt.Fprintf(w, "Nothing to do on %s.\n", v.NetworkID); err != nil {
			return err
		}
	}
	for _, tx := range v.Transactions {
		if _, err := fmt.Fprintf(w, "%-17s %s\n", tx.Step, tx.Hash); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Market: %s\nMedia:  %s\nContracts deployed and configured (%s).\n", v.Market, v.Media, v.AddressBook)
	return err
}
