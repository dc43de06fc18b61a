package inspect

import (
	"context"
	"log/slog"

	"github.com/compose-network/mediactl/configs"
	"github.com/compose-network/mediactl/internal/output"
	"github.com/compose-network/mediactl/internal/session"
	"github.com/spf13/cobra"
)

var (
	txCmd = &cobra.Command{
		Use:   "tx <hash>",
		Short: "Show a transaction and its receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := ParseHash(args[0])
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, chain Chain) (any, error) {
				return LookupTransaction(ctx, chain, hash)
			})
		},
	}

	blockCmd = &cobra.Command{
		Use:   "block <number|latest>",
		Short: "Show a block",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := "latest"
			if len(args) == 1 {
				value = args[0]
			}
			number, err := ParseBlockNumber(value)
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, chain Chain) (any, error) {
				return LookupBlock(ctx, chain, number)
			})
		},
	}

	Commands = []*cobra.Command{txCmd, blockCmd}
)

func init() {
	output.AddFlag(txCmd)
	output.AddFlag(blockCmd)
}

func run(cmd *cobra.Command, lookup func(ctx context.Context, chain Chain) (any, error)) error {
	format, err := output.FromFlags(cmd)
	if err != nil {
		return err
	}

	sess, err := session.Open(configs.Values)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := sess.WithTimeout(cmd.Context())
	defer cancel()

	conn, err := sess.Connect(ctx)
	if err != nil {
		return err
	}

	slog.Debug("looking up "+cmd.Name(), "network_id", sess.NetworkID)
	result, err := lookup(ctx, conn.Client)
	if err != nil {
		return err
	}

	return output.Render(cmd.OutOrStdout(), format, result)
}
