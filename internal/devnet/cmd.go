package devnet

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/compose-network/mediactl/configs"
	"github.com/compose-network/mediactl/internal/flags"
	"github.com/compose-network/mediactl/internal/infra/docker"
	"github.com/compose-network/mediactl/internal/output"
	"github.com/spf13/cobra"
)

var (
	CMD = &cobra.Command{
		Use:   "devnet",
		Short: "Manage a local development chain in Docker",
	}

	upCmd = &cobra.Command{
		Use:   "up",
		Short: "Start the local devnet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *Service) (any, error) {
				return svc.Up(ctx)
			})
		},
	}

	downCmd = &cobra.Command{
		Use:   "down",
		Short: "Stop the local devnet and discard its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *Service) (any, error) {
				if err := svc.Down(ctx); err != nil {
					return nil, err
				}
				return svc.Status(ctx)
			})
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show whether the local devnet is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *Service) (any, error) {
				return svc.Status(ctx)
			})
		},
	}

	stringFlags = []flags.Def[string]{
		{Name: "image", ViperKey: "devnet.image", DefaultValue: "", Description: "Devnet image"},
		{Name: "container-name", ViperKey: "devnet.container-name", DefaultValue: "", Description: "Devnet container name"},
	}

	intFlags = []flags.Def[int]{
		{Name: "port", ViperKey: "devnet.port", DefaultValue: 0, Description: "Host port for the devnet RPC"},
	}
)

func init() {
	flags.MustDeclarePersistent(CMD, stringFlags)
	flags.MustDeclarePersistent(CMD, intFlags)

	for _, cmd := range []*cobra.Command{upCmd, downCmd, statusCmd} {
		output.AddFlag(cmd)
		CMD.AddCommand(cmd)
	}
}

func withService(cmd *cobra.Command, op func(ctx context.Context, svc *Service) (any, error)) error {
	format, err := output.FromFlags(cmd)
	if err != nil {
		return err
	}

	slog.Info("devnet "+cmd.Name(), slog.Any("devnet", configs.Values.Devnet))

	client, err := docker.New()
	if err != nil {
		return fmt.Errorf("failed to create docker client: %w", err)
	}
	defer client.Close()

	result, err := op(cmd.Context(), NewService(client, configs.Values.Devnet, ProbeChainID))
	if err != nil {
		return err
	}

	return output.Render(cmd.OutOrStdout(), format, result)
}

func (s Status) RenderText(w io.Writer) error {
	if !s.Running {
		_, err := fmt.Fprintf(w, "devnet %s: %s\n", s.Name, s.State)
		return err
	}

	if _, err := fmt.Fprintf(w, "devnet %s: running (%s)\n  RPC_ENDPOINT=%s\n  chain id: %d\n", s.Name, s.Image, s.RPCURL, s.ChainID); err != nil {
		return err
	}
	for i, account := range s.Accounts {
		if _, err := fmt.Fprintf(w, "  account %d: %s\n", i, account); err != nil {
			return err
		}
	}
	return nil
}
