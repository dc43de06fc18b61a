package addressbook

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/compose-network/mediactl/internal/domain"
	"github.com/compose-network/mediactl/internal/infra/filesystem"
	"github.com/compose-network/mediactl/internal/logger"
)

const fileExtension = ".json"

// Store keeps one JSON document per network under dir.
// There is no locking: one writer per network at a time.
type Store struct {
	dir    string
	reader filesystem.Reader
	writer filesystem.Writer
	logger *slog.Logger
}

// NewStore creates a new address book store
func NewStore(dir string, reader filesystem.Reader, writer filesystem.Writer) *Store {
	return &Store{
		dir:    dir,
		reader: reader,
		writer: writer,
		logger: logger.Named("addressbook_store"),
	}
}

// Path returns the document location for a network.
func (s *Store) Path(networkID domain.NetworkID) string {
	return filepath.Join(s.dir, string(networkID)+fileExtension)
}

// Load returns the recorded entry, or an empty one if nothing was recorded yet.
func (s *Store) Load(networkID domain.NetworkID) (domain.AddressBookEntry, error) {
	if err := networkID.Validate(); err != nil {
		return domain.AddressBookEntry{}, err
	}

	entry, err := s.read(networkID)
	if err != nil {
		return domain.AddressBookEntry{}, err
	}

	if err := entry.CheckConsistent(); err != nil {
		return domain.AddressBookEntry{}, fmt.Errorf("%s: %w", s.Path(networkID), err)
	}

	s.logger.
		With("network_id", networkID).
		With("market", addressOrEmpty(entry.HasMarket(), entry.Market.Hex())).
		With("media", addressOrEmpty(entry.HasMedia(), entry.Media.Hex())).
		Debug("address book loaded")

	return entry, nil
}

// Save atomically replaces the document for a network. The new entry must keep every
// address already on disk.
func (s *Store) Save(networkID domain.NetworkID, entry domain.AddressBookEntry) error {
	if err := networkID.Validate(); err != nil {
		return err
	}
	if err := entry.CheckConsistent(); err != nil {
		return err
	}

	current, err := s.read(networkID)
	if err != nil {
		return err
	}
	if err := entry.Covers(current); err != nil {
		return fmt.Errorf("refusing to save %s: %w", s.Path(networkID), err)
	}

	path := s.Path(networkID)
	if err := s.writer.WriteJSON(path, entry); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrStoreIO, path, err)
	}

	s.logger.With("path", path).Info("address book saved")

	return nil
}

func (s *Store) read(networkID domain.NetworkID) (domain.AddressBookEntry, error) {
	path := s.Path(networkID)

	var entry domain.AddressBookEntry
	if err := s.reader.ReadJSON(path, &entry); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.AddressBookEntry{}, nil
		}
		return domain.AddressBookEntry{}, fmt.Errorf("%w: %s: %w", domain.ErrStoreIO, path, err)
	}

	return entry, nil
}

func addressOrEmpty(ok bool, addr string) string {
	if !ok {
		return ""
	}
	return addr
}
