package addressbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/compose-network/mediactl/internal/domain"
	fsjson "github.com/compose-network/mediactl/internal/infra/filesystem/json"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	marketAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	mediaAddr  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return NewStore(dir, fsjson.NewReader(), fsjson.NewWriter()), dir
}

func TestStore_Load(t *testing.T) {
	t.Run("missing document yields empty entry", func(t *testing.T) {
		store, _ := newTestStore(t)

		entry, err := store.Load("4")
		require.NoError(t, err)
		assert.True(t, entry.IsEmpty())
	})

	t.Run("reads legacy document with empty strings", func(t *testing.T) {
		store, dir := newTestStore(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ganache.json"), []byte(`{"media": "", "market": "`+marketAddr.Hex()+`"}`), 0644))

		entry, err := store.Load("ganache")
		require.NoError(t, err)
		assert.Equal(t, marketAddr, entry.Market)
		assert.False(t, entry.HasMedia())
	})

	t.Run("corrupt document is a store error", func(t *testing.T) {
		store, dir := newTestStore(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "4.json"), []byte(`{`), 0644))

		_, err := store.Load("4")
		assert.ErrorIs(t, err, domain.ErrStoreIO)
	})

	t.Run("media without market is rejected", func(t *testing.T) {
		store, dir := newTestStore(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "4.json"), []byte(`{"media": "`+mediaAddr.Hex()+`"}`), 0644))

		_, err := store.Load("4")
		assert.ErrorIs(t, err, domain.ErrInconsistentEntry)
	})

	t.Run("invalid network id", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.Load("../4")
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestStore_Save(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		store, _ := newTestStore(t)
		entry := domain.AddressBookEntry{Market: marketAddr, Media: mediaAddr}

		require.NoError(t, store.Save("4", entry))

		loaded, err := store.Load("4")
		require.NoError(t, err)
		assert.Equal(t, marketAddr, loaded.Market)
		assert.Equal(t, mediaAddr, loaded.Media)
	})

	t.Run("networks are isolated", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save("1", domain.AddressBookEntry{Market: marketAddr}))

		other, err := store.Load("4")
		require.NoError(t, err)
		assert.True(t, other.IsEmpty())
	})

	t.Run("refuses to drop a recorded address", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save("4", domain.AddressBookEntry{Market: marketAddr, Media: mediaAddr}))

		err := store.Save("4", domain.AddressBookEntry{Market: marketAddr})
		assert.ErrorIs(t, err, domain.ErrAddressOverwrite)

		loaded, err := store.Load("4")
		require.NoError(t, err)
		assert.Equal(t, mediaAddr, loaded.Media)
	})

	t.Run("refuses to change a recorded address", func(t *testing.T) {
		store, _ := newTestStore(t)
		require.NoError(t, store.Save("4", domain.AddressBookEntry{Market: marketAddr}))

		err := store.Save("4", domain.AddressBookEntry{Market: mediaAddr})
		assert.ErrorIs(t, err, domain.ErrAddressOverwrite)
	})

	t.Run("refuses inconsistent entry", func(t *testing.T) {
		store, _ := newTestStore(t)

		err := store.Save("4", domain.AddressBookEntry{Media: mediaAddr})
		assert.ErrorIs(t, err, domain.ErrInconsistentEntry)
	})

	t.Run("keeps hand-edited keys", func(t *testing.T) {
		store, dir := newTestStore(t)
		path := filepath.Join(dir, "4.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"market": "`+marketAddr.Hex()+`", "deployer": "ops"}`), 0644))

		entry, err := store.Load("4")
		require.NoError(t, err)
		entry, err = entry.WithMedia(mediaAddr)
		require.NoError(t, err)
		require.NoError(t, store.Save("4", entry))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"deployer": "ops"`)
		assert.Contains(t, string(raw), mediaAddr.Hex())
	})

	t.Run("unwritable directory is a store error", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "blocker")
		require.NoError(t, os.WriteFile(blocker, nil, 0644))

		store := NewStore(filepath.Join(blocker, "addresses"), fsjson.NewReader(), fsjson.NewWriter())
		err := store.Save("4", domain.AddressBookEntry{Market: marketAddr})
		assert.ErrorIs(t, err, domain.ErrStoreIO)
	})
}
