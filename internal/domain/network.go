package domain

import (
	"strconv"
	"strings"
)

// NetworkID selects the address book entry and, when numeric, the expected chain id.
type NetworkID string

func (n NetworkID) String() string {
	return string(n)
}

// Validate ensures the id can be used as a single file name.
func (n NetworkID) Validate() error {
	id := strings.TrimSpace(string(n))
	if id == "" {
		return Configurationf("network id is required")
	}
	if id != string(n) || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return Configurationf("network id %q is not a valid identifier", string(n))
	}

	return nil
}

// ChainID returns the numeric chain id encoded in the network id, if any.
func (n NetworkID) ChainID() (uint64, bool) {
	id, err := strconv.ParseUint(string(n), 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}
