package domain

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/ethereum/go-ethereum/common"
)

const (
	fieldMarket = "market"
	fieldMedia  = "media"
)

// AddressBookEntry is the persisted record of deployed contracts for one network.
// Keys other than market and media are kept as-is so hand edits survive a save.
type AddressBookEntry struct {
	Market common.Address
	Media  common.Address

	extra map[string]json.RawMessage
}

func (e AddressBookEntry) HasMarket() bool {
	return e.Market != (common.Address{})
}

func (e AddressBookEntry) HasMedia() bool {
	return e.Media != (common.Address{})
}

func (e AddressBookEntry) IsEmpty() bool {
	return !e.HasMarket() && !e.HasMedia()
}

// CheckConsistent rejects an entry with media recorded but no market.
func (e AddressBookEntry) CheckConsistent() error {
	if e.HasMedia() && !e.HasMarket() {
		return ErrInconsistentEntry
	}

	return nil
}

// WithMarket returns a copy with the market address recorded.
func (e AddressBookEntry) WithMarket(addr common.Address) (AddressBookEntry, error) {
	if addr == (common.Address{}) {
		return e, fmt.Errorf("%w: zero market address", ErrPreconditionViolation)
	}
	if e.HasMarket() && e.Market != addr {
		return e, fmt.Errorf("%w: market is %s", ErrAddressOverwrite, e.Market.Hex())
	}

	next := e.clone()
	next.Market = addr

	return next, nil
}

// WithMedia returns a copy with the media address recorded. Market must already be set.
func (e AddressBookEntry) WithMedia(addr common.Address) (AddressBookEntry, error) {
	if addr == (common.Address{}) {
		return e, fmt.Errorf("%w: zero media address", ErrPreconditionViolation)
	}
	if !e.HasMarket() {
		return e, ErrInconsistentEntry
	}
	if e.HasMedia() && e.Media != addr {
		return e, fmt.Errorf("%w: media is %s", ErrAddressOverwrite, e.Media.Hex())
	}

	next := e.clone()
	next.Media = addr

	return next, nil
}

// Covers reports whether every address recorded in prev is recorded unchanged in e.
func (e AddressBookEntry) Covers(prev AddressBookEntry) error {
	if prev.HasMarket() && e.Market != prev.Market {
		return fmt.Errorf("%w: market %s -> %s", ErrAddressOverwrite, prev.Market.Hex(), e.Market.Hex())
	}
	if prev.HasMedia() && e.Media != prev.Media {
		return fmt.Errorf("%w: media %s -> %s", ErrAddressOverwrite, prev.Media.Hex(), e.Media.Hex())
	}

	return nil
}

func (e AddressBookEntry) clone() AddressBookEntry {
	e.extra = maps.Clone(e.extra)
	return e
}

func (e AddressBookEntry) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(e.extra)+2)
	for k, v := range e.extra {
		doc[k] = v
	}
	if e.HasMarket() {
		doc[fieldMarket] = e.Market.Hex()
	}
	if e.HasMedia() {
		doc[fieldMedia] = e.Media.Hex()
	}

	return json.Marshal(doc)
}

func (e *AddressBookEntry) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	market, err := popAddress(doc, fieldMarket)
	if err != nil {
		return err
	}
	media, err := popAddress(doc, fieldMedia)
	if err != nil {
		return err
	}

	*e = AddressBookEntry{Market: market, Media: media}
	if len(doc) > 0 {
		e.extra = doc
	}

	return nil
}

// popAddress removes key from doc. Missing, null and "" all mean unset.
func popAddress(doc map[string]json.RawMessage, key string) (common.Address, error) {
	raw, ok := doc[key]
	if !ok {
		return common.Address{}, nil
	}
	delete(doc, key)

	var value *string
	if err := json.Unmarshal(raw, &value); err != nil {
		return common.Address{}, fmt.Errorf("%s: expected a string address: %w", key, err)
	}
	if value == nil || *value == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(*value) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", key, *value)
	}

	return common.HexToAddress(*value), nil
}
