package contracts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compose-network/mediactl/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// MediaData is the mint tuple. Field names match the ABI component names.
type MediaData struct {
	TokenURI     string
	MetadataURI  string
	ContentHash  [32]byte
	MetadataHash [32]byte
}

type mediaDataFile struct {
	TokenURI     string `json:"tokenURI"`
	MetadataURI  string `json:"metadataURI"`
	ContentHash  string `json:"contentHash"`
	MetadataHash string `json:"metadataHash"`
}

// MediaDataPath returns the conventional location of a token's metadata: <dir>/<tokenId>.media.json.
func MediaDataPath(dir, tokenID string) string {
	return filepath.Join(dir, tokenID+".media.json")
}

// LoadMediaData reads a token's mint metadata.
func LoadMediaData(path string) (MediaData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MediaData{}, fmt.Errorf("%w: failed to read media metadata: %w", domain.ErrConfiguration, err)
	}

	var file mediaDataFile
	if err := json.Unmarshal(data, &file); err != nil {
		return MediaData{}, fmt.Errorf("%w: failed to parse %s: %w", domain.ErrConfiguration, path, err)
	}

	if file.TokenURI == "" || file.MetadataURI == "" {
		return MediaData{}, domain.Configurationf("%s: tokenURI and metadataURI are required", path)
	}

	contentHash, err := parseHash(file.ContentHash)
	if err != nil {
		return MediaData{}, domain.Configurationf("%s: contentHash: %v", path, err)
	}
	metadataHash, err := parseHash(file.MetadataHash)
	if err != nil {
		return MediaData{}, domain.Configurationf("%s: metadataHash: %v", path, err)
	}

	return MediaData{
		TokenURI:     file.TokenURI,
		MetadataURI:  file.MetadataURI,
		ContentHash:  contentHash,
		MetadataHash: metadataHash,
	}, nil
}

func parseHash(value string) ([32]byte, error) {
	raw, err := hexutil.Decode(value)
	if err != nil {
		return [32]byte{}, err
	}
	if len(raw) != common.HashLength {
		return [32]byte{}, fmt.Errorf("expected %d bytes, got %d", common.HashLength, len(raw))
	}
	return common.BytesToHash(raw), nil
}
