package devnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/compose-network/mediactl/configs"
	"github.com/compose-network/mediactl/internal/chain"
	"github.com/compose-network/mediactl/internal/infra/docker"
	"github.com/compose-network/mediactl/internal/logger"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	rpcPort        = 8545
	hostIP         = "127.0.0.1"
	managedByLabel = "mediactl.managed-by"
	readyTimeout   = 30 * time.Second
	devAccounts    = 2
)

type (
	Docker interface {
		ImageExists(ctx context.Context, imageName string) (bool, error)
		PullImage(ctx context.Context, imageName string) error
		RunDetached(ctx context.Context, opts docker.RunOptions) (string, error)
		Inspect(ctx context.Context, name string) (docker.ContainerState, bool, error)
		Remove(ctx context.Context, name string) error
	}

	// ChainIDProbe asks an RPC endpoint for its chain ID.
	ChainIDProbe func(ctx context.Context, url string) (uint64, error)

	Service struct {
		docker       Docker
		cfg          configs.Devnet
		probe        ChainIDProbe
		pollInterval time.Duration
		logger       *slog.Logger
	}

	Status struct {
		Name     string   `json:"name" yaml:"name"`
		Image    string   `json:"image" yaml:"image"`
		State    string   `json:"state" yaml:"state"`
		Running  bool     `json:"running" yaml:"running"`
		RPCURL   string   `json:"rpcUrl,omitempty" yaml:"rpcUrl,omitempty"`
		ChainID  uint64   `json:"chainId" yaml:"chainId"`
		Accounts []string `json:"accounts,omitempty" yaml:"accounts,omitempty"`
	}
)

func NewService(docker Docker, cfg configs.Devnet, probe ChainIDProbe) *Service {
	return &Service{
		docker:       docker,
		cfg:          cfg,
		probe:        probe,
		pollInterval: 500 * time.Millisecond,
		logger:       logger.Named("devnet"),
	}
}

// Up starts the devnet container unless it is already running and waits for its RPC.
func (s *Service) Up(ctx context.Context) (Status, error) {
	if err := s.cfg.Validate(); err != nil {
		return Status{}, err
	}

	state, found, err := s.docker.Inspect(ctx, s.cfg.ContainerName)
	if err != nil {
		return Status{}, err
	}
	if found && state.Running {
		s.logger.With("name", s.cfg.ContainerName).Info("devnet already running")
		return s.status(state, true)
	}
	if found {
		s.logger.With("name", s.cfg.ContainerName, "state", state.Status).Info("removing stopped devnet container")
		if err := s.docker.Remove(ctx, s.cfg.ContainerName); err != nil {
			return Status{}, err
		}
	}

	exists, err := s.docker.ImageExists(ctx, s.cfg.Image)
	if err != nil {
		return Status{}, fmt.Errorf("failed to check image %s: %w", s.cfg.Image, err)
	}
	if !exists {
		if err := s.docker.PullImage(ctx, s.cfg.Image); err != nil {
			return Status{}, err
		}
	}

	if _, err := s.docker.RunDetached(ctx, s.runOptions()); err != nil {
		return Status{}, err
	}

	if err := s.waitReady(ctx); err != nil {
		return Status{}, err
	}

	state, _, err = s.docker.Inspect(ctx, s.cfg.ContainerName)
	if err != nil {
		return Status{}, err
	}

	s.logger.With("rpc_url", s.rpcURL()).Info("devnet is up")

	return s.status(state, true)
}

// Down removes the devnet container and with it the chain state.
func (s *Service) Down(ctx context.Context) error {
	return s.docker.Remove(ctx, s.cfg.ContainerName)
}

// Status reports whether the devnet container is running.
func (s *Service) Status(ctx context.Context) (Status, error) {
	state, found, err := s.docker.Inspect(ctx, s.cfg.ContainerName)
	if err != nil {
		return Status{}, err
	}
	return s.status(state, found)
}

func (s *Service) status(state docker.ContainerState, found bool) (Status, error) {
	status := Status{
		Name:    s.cfg.ContainerName,
		Image:   s.cfg.Image,
		State:   "absent",
		ChainID: s.cfg.ChainID,
	}
	if !found {
		return status, nil
	}

	status.State = state.Status
	status.Running = state.Running
	if state.Image != "" {
		status.Image = state.Image
	}
	if !state.Running {
		return status, nil
	}

	status.RPCURL = s.rpcURL()
	if port, ok := state.Ports[rpcPort]; ok {
		status.RPCURL = "http://" + hostIP + ":" + strconv.Itoa(port)
	}

	accounts, err := DevAccounts(s.cfg.Mnemonic, devAccounts)
	if err != nil {
		return Status{}, err
	}
	status.Accounts = accounts

	return status, nil
}

func (s *Service) runOptions() docker.RunOptions {
	cmd := []string{
		"--host", "0.0.0.0",
		"--port", strconv.Itoa(rpcPort),
		"--chain-id", strconv.FormatUint(s.cfg.ChainID, 10),
	}
	if s.cfg.Mnemonic != "" {
		cmd = append(cmd, "--mnemonic", s.cfg.Mnemonic)
	}

	return docker.RunOptions{
		Name:       s.cfg.ContainerName,
		Image:      s.cfg.Image,
		Entrypoint: []string{"anvil"},
		Cmd:        cmd,
		Labels:     map[string]string{managedByLabel: "mediactl"},
		Ports:      map[int]int{rpcPort: s.cfg.Port},
		HostIP:     hostIP,
	}
}

func (s *Service) rpcURL() string {
	return "http://" + hostIP + ":" + strconv.Itoa(s.cfg.Port)
}

func (s *Service) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	url := s.rpcURL()
	var lastErr error
	for {
		chainID, err := s.probe(ctx, url)
		if err == nil {
			if chainID != s.cfg.ChainID {
				return fmt.Errorf("devnet at %s reports chain %d, expected %d", url, chainID, s.cfg.ChainID)
			}
			return nil
		}
		lastErr = err
		s.logger.With("rpc_url", url, "err", err).Debug("devnet RPC not ready yet")

		select {
		case <-ctx.Done():
			return errors.Join(fmt.Errorf("devnet RPC at %s did not become ready", url), lastErr)
		case <-ticker.C:
		}
	}
}

// DevAccounts derives the first n accounts of the devnet mnemonic.
func DevAccounts(mnemonic string, n int) ([]string, error) {
	if mnemonic == "" {
		return nil, nil
	}

	accounts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		identity, err := chain.NewIdentity(chain.MnemonicSource{
			Phrase: mnemonic,
			Path:   fmt.Sprintf("m/44'/60'/0'/0/%d", i),
		})
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, identity.Address.Hex())
	}

	return accounts, nil
}

// ProbeChainID dials url and asks for its chain ID.
func ProbeChainID(ctx context.Context, url string) (uint64, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return chainID.Uint64(), nil
}
