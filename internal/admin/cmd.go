package admin

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/compose-network/mediactl/configs"
	"github.com/compose-network/mediactl/internal/contracts"
	"github.com/compose-network/mediactl/internal/domain"
	"github.com/compose-network/mediactl/internal/flags"
	"github.com/compose-network/mediactl/internal/output"
	"github.com/compose-network/mediactl/internal/session"
	"github.com/compose-network/mediactl/internal/txsubmit"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

const (
	tokenIDFlag     = "token-id"
	priceFlag       = "price"
	metadataFlag    = "metadata"
	metadataDirFlag = "metadata-dir"
	toFlag          = "to"
	fromFlag        = "from"
	messageFlag     = "message"
	waitFlag        = "wait"
)

var (
	priceCmd = &cobra.Command{
		Use:   "price",
		Short: "Read or change the Media contract's current price",
	}

	priceSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Set the current price (in ether) and wait for confirmation",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := requiredString(cmd, priceFlag)
			if err != nil {
				return err
			}
			priceWei, err := txsubmit.ParseEther(value)
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, svc *Service) (any, error) {
				outcome, err := svc.SetPrice(ctx, priceWei, txOptions(domain.WaitForConfirmation))
				return outcome.view(), err
			})
		},
	}

	priceGetCmd = &cobra.Command{
		Use:   "get",
		Short: "Read the current price",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, svc *Service) (any, error) {
				price, err := svc.CurrentPrice(ctx)
				return price.view(), err
			})
		},
	}

	mintCmd = &cobra.Command{
		Use:   "mint",
		Short: "Mint a token from its <token-id>.media.json metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID, err := requiredTokenID(cmd)
			if err != nil {
				return err
			}
			path, err := metadataPath(cmd, tokenID)
			if err != nil {
				return err
			}
			data, err := contracts.LoadMediaData(path)
			if err != nil {
				return err
			}
			mode, err := confirmationMode(cmd)
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, svc *Service) (any, error) {
				outcome, err := svc.Mint(ctx, tokenID, data, txOptions(mode))
				return outcome.view(), err
			})
		},
	}

	transferCmd = &cobra.Command{
		Use:   "transfer",
		Short: "Transfer a token to another address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed(flags.Gwei) {
				return domain.Configurationf("--%s is required", flags.Gwei)
			}
			tokenID, err := requiredTokenID(cmd)
			if err != nil {
				return err
			}
			to, err := requiredAddress(cmd, toFlag)
			if err != nil {
				return err
			}
			from, err := optionalAddress(cmd, fromFlag)
			if err != nil {
				return err
			}
			mode, err := confirmationMode(cmd)
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, svc *Service) (any, error) {
				outcome, err := svc.Transfer(ctx, from, to, tokenID, txOptions(mode))
				return outcome.view(), err
			})
		},
	}

	loveNoteCmd = &cobra.Command{
		Use:   "love-note",
		Short: "Attach a love message to a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID, err := requiredTokenID(cmd)
			if err != nil {
				return err
			}
			message, err := requiredString(cmd, messageFlag)
			if err != nil {
				return err
			}
			mode, err := confirmationMode(cmd)
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, svc *Service) (any, error) {
				outcome, err := svc.SetLoveMessage(ctx, tokenID, message, txOptions(mode))
				return outcome.view(), err
			})
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Show the URIs and hashes recorded for a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID, err := requiredTokenID(cmd)
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, svc *Service) (any, error) {
				info, err := svc.MediaInfo(ctx, tokenID)
				return info.view(), err
			})
		},
	}

	// Commands are the administrative commands registered on the root command.
	Commands = []*cobra.Command{priceCmd, mintCmd, transferCmd, loveNoteCmd, infoCmd}
)

func init() {
	priceCmd.AddCommand(priceSetCmd, priceGetCmd)

	priceSetCmd.Flags().String(priceFlag, "", "New price in ether, e.g. 0.04")

	for _, cmd := range []*cobra.Command{mintCmd, transferCmd, loveNoteCmd, infoCmd} {
		cmd.Flags().String(tokenIDFlag, "", "Token ID")
	}

	mintCmd.Flags().String(metadataFlag, "", "Path of the token's media.json")
	mintCmd.Flags().String(metadataDirFlag, "", "Directory holding <token-id>.media.json files")
	mintCmd.Flags().Bool(waitFlag, false, "Wait for the transaction to be mined")

	transferCmd.Flags().String(toFlag, "", "Recipient address")
	transferCmd.Flags().String(fromFlag, "", "Current holder (defaults to the signer)")
	transferCmd.Flags().Bool(waitFlag, false, "Wait for the transaction to be mined")

	loveNoteCmd.Flags().String(messageFlag, "", "Message to attach")
	loveNoteCmd.Flags().Bool(waitFlag, true, "Wait for the transaction to be mined")

	for _, cmd := range []*cobra.Command{priceSetCmd, priceGetCmd, mintCmd, transferCmd, loveNoteCmd, infoCmd} {
		output.AddFlag(cmd)
	}
}

// run opens the session and executes op. Parameter validation has already happened,
// so configuration errors surface before any network resolution.
func run(cmd *cobra.Command, op func(ctx context.Context, svc *Service) (any, error)) error {
	format, err := output.FromFlags(cmd)
	if err != nil {
		return err
	}

	slog.Info("starting "+cmd.CommandPath(), slog.Any("credentials", configs.Values.Credentials))

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

	svc := NewService(sess.NetworkID, sess.Store, artifacts, sessionDialer(sess), Gas{
		CallLimit: sess.Config.Gas.CallLimit,
		MintLimit: sess.Config.Gas.MintLimit,
	})

	result, err := op(ctx, svc)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.CommandPath(), err)
	}

	return output.Render(cmd.OutOrStdout(), format, result)
}

func sessionDialer(sess *session.Session) Dialer {
	return func(ctx context.Context) (Chain, Submitter, error) {
		conn, err := sess.Connect(ctx)
		if err != nil {
			return nil, nil, err
		}
		return conn, conn.Submitter, nil
	}
}

// txOptions leaves the gas price to the submitter, which uses gas.price-gwei (--gwei).
func txOptions(mode domain.ConfirmationMode) TxOptions {
	return TxOptions{Mode: mode}
}

func confirmationMode(cmd *cobra.Command) (domain.ConfirmationMode, error) {
	wait, err := cmd.Flags().GetBool(waitFlag)
	if err != nil {
		return 0, err
	}
	if wait {
		return domain.WaitForConfirmation, nil
	}
	return domain.FireAndForget, nil
}

func requiredString(cmd *cobra.Command, name string) (string, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", domain.Configurationf("--%s is required", name)
	}
	return value, nil
}

func requiredTokenID(cmd *cobra.Command) (*big.Int, error) {
	value, err := requiredString(cmd, tokenIDFlag)
	if err != nil {
		return nil, err
	}
	return ParseTokenID(value)
}

// ParseTokenID accepts a non-negative decimal token ID.
func ParseTokenID(value string) (*big.Int, error) {
	tokenID, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || tokenID.Sign() < 0 {
		return nil, domain.Configurationf("invalid token ID %q", value)
	}
	return tokenID, nil
}

func requiredAddress(cmd *cobra.Command, name string) (common.Address, error) {
	value, err := requiredString(cmd, name)
	if err != nil {
		return common.Address{}, err
	}
	return parseAddress(name, value)
}

func optionalAddress(cmd *cobra.Command, name string) (common.Address, error) {
	value, err := cmd.Flags().GetString(name)
	if err != nil || value == "" {
		return common.Address{}, err
	}
	return parseAddress(name, value)
}

func parseAddress(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, domain.Configurationf("--%s %q is not an address", name, value)
	}
	return common.HexToAddress(value), nil
}

func metadataPath(cmd *cobra.Command, tokenID *big.Int) (string, error) {
	path, err := cmd.Flags().GetString(metadataFlag)
	if err != nil {
		return "", err
	}
	if path != "" {
		return path, nil
	}

	dir, err := cmd.Flags().GetString(metadataDirFlag)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", domain.Configurationf("--%s or --%s is required", metadataFlag, metadataDirFlag)
	}
	return contracts.MediaDataPath(dir, tokenID.String()), nil
}
