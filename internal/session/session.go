package session

import (
	"context"
	"log/slog"

	"github.com/compose-network/mediactl/configs"
	"github.com/compose-network/mediactl/internal/addressbook"
	"github.com/compose-network/mediactl/internal/chain"
	"github.com/compose-network/mediactl/internal/contracts"
	"github.com/compose-network/mediactl/internal/domain"
	fsjson "github.com/compose-network/mediactl/internal/infra/filesystem/json"
	"github.com/compose-network/mediactl/internal/logger"
	"github.com/compose-network/mediactl/internal/txsubmit"
)

type (
	// Session is the wiring of one invocation: the connection is resolved once and
	// only dialed when an operation needs the network.
	Session struct {
		Config    configs.Config
		NetworkID domain.NetworkID
		Resolved  chain.DeploymentContext
		Store     *addressbook.Store

		artifacts *contracts.Set
		conn      *Connection
		logger    *slog.Logger
	}

	// Connection pairs the chain client with a submitter using the configured gas price.
	Connection struct {
		*chain.Client
		Submitter *txsubmit.Submitter
	}
)

// Open validates the configuration and resolves the chain connection. Nothing here
// touches the network.
func Open(cfg configs.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	networkID := domain.NetworkID(cfg.Network.ID)
	resolved, err := chain.NewResolver(cfg.Networks).Resolve(networkID, cfg.Credentials)
	if err != nil {
		return nil, err
	}

	return &Session{
		Config:    cfg,
		NetworkID: networkID,
		Resolved:  resolved,
		Store:     addressbook.NewStore(cfg.AddressBook.Dir, fsjson.NewReader(), fsjson.NewWriter()),
		logger:    logger.Named("session").With("network_id", networkID),
	}, nil
}

// Artifacts loads the compiled contracts on first use.
func (s *Session) Artifacts() (contracts.Set, error) {
	if s.artifacts != nil {
		return *s.artifacts, nil
	}

	set, err := contracts.Load(s.Config.Contracts.ArtifactsDir)
	if err != nil {
		return contracts.Set{}, err
	}
	s.artifacts = &set

	return set, nil
}

// Connect dials the resolved endpoint once per session.
func (s *Session) Connect(ctx context.Context) (*Connection, error) {
	if s.conn != nil {
		return s.conn, nil
	}

	client, err := chain.Dial(ctx, s.Resolved)
	if err != nil {
		return nil, err
	}

	s.conn = &Connection{
		Client: client,
		Submitter: txsubmit.NewSubmitter(client, txsubmit.Defaults{
			GasPrice: txsubmit.GweiToWei(s.Config.Gas.PriceGwei),
		}),
	}
	s.logger.With("sender", client.Sender().Hex()).Debug("session connected")

	return s.conn, nil
}

// WithTimeout bounds ctx by the operator-configured timeout, if any.
func (s *Session) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Config.Timeout)
}

func (s *Session) Close() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}
