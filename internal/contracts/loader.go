package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/compose-network/mediactl/internal/domain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Load reads the Market and Media artifacts from dir. Both the hardhat layout
// (<dir>/Market.sol/Market.json) and a flat one (<dir>/Market.json) are accepted.
func Load(dir string) (Set, error) {
	market, err := loadArtifact(dir, domain.ContractMarket)
	if err != nil {
		return Set{}, err
	}

	media, err := loadArtifact(dir, domain.ContractMedia)
	if err != nil {
		return Set{}, err
	}

	return Set{Market: market, Media: media}, nil
}

func loadArtifact(dir string, name domain.ContractName) (Artifact, error) {
	candidates := []string{
		filepath.Join(dir, string(name)+".sol", string(name)+".json"),
		filepath.Join(dir, string(name)+".json"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Artifact{}, fmt.Errorf("%w: failed to read %s: %w", domain.ErrConfiguration, path, err)
		}

		artifact, err := ParseArtifact(name, data)
		if err != nil {
			return Artifact{}, fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, path, err)
		}

		return artifact, nil
	}

	return Artifact{}, fmt.Errorf("%w: artifact for %s not found in %s", domain.ErrConfiguration, name, dir)
}

// ParseArtifact parses a compiled contract JSON document ({"abi": [...], "bytecode": "0x..."}).
func ParseArtifact(name domain.ContractName, data []byte) (Artifact, error) {
	var raw struct {
		ABI      json.RawMessage `json:"abi"`
		Bytecode string          `json:"bytecode"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Artifact{}, fmt.Errorf("failed to parse compiled contract: %w", err)
	}

	if len(raw.ABI) == 0 {
		return Artifact{}, fmt.Errorf("%s: abi is missing", name)
	}
	parsedABI, err := abi.JSON(strings.NewReader(string(raw.ABI)))
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to parse ABI for %s: %w", name, err)
	}

	for _, method := range requiredMethods[name] {
		if _, ok := parsedABI.Methods[method]; !ok {
			return Artifact{}, fmt.Errorf("%s ABI has no %s method", name, method)
		}
	}

	bytecodeHex := strings.TrimPrefix(strings.TrimSpace(raw.Bytecode), "0x")
	if bytecodeHex == "" {
		return Artifact{}, fmt.Errorf("%s: bytecode is empty", name)
	}
	bytecode := common.Hex2Bytes(bytecodeHex)
	if len(bytecode) == 0 {
		return Artifact{}, fmt.Errorf("%s: bytecode is not valid hex", name)
	}

	return Artifact{
		Name:     name,
		ABI:      parsedABI,
		Bytecode: bytecode,
	}, nil
}
