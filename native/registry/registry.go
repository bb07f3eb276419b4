package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrAddressNotFound indicates a logical contract name has no registered
// address. Every consumer treats this as a fatal configuration error.
var ErrAddressNotFound = errors.New("registry: address not found")

// Well-known logical contract names.
const (
	NameLoans      = "loans"
	NameDex        = "dex"
	NameOracle     = "oracle"
	NameStaking    = "staking"
	NameGovernance = "governance"
	NameSICX       = "sicx"
	NameBnUSD      = "bnUSD"
)

// Storage captures the state manager capabilities the registry persists
// through.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var addressPrefix = []byte("registry/address/")

func addressKey(name string) []byte {
	trimmed := strings.TrimSpace(name)
	buf := make([]byte, len(addressPrefix)+len(trimmed))
	copy(buf, addressPrefix)
	copy(buf[len(addressPrefix):], trimmed)
	return buf
}

// Registry resolves logical contract names to live contract addresses. It is
// the single source of truth for cross-contract wiring, so a missing entry
// aborts the enclosing operation before any arithmetic or external call.
type Registry struct {
	store Storage
	cache map[string]common.Address
}

// New constructs a registry bound to the provided storage backend.
func New(store Storage) *Registry {
	return &Registry{store: store, cache: make(map[string]common.Address)}
}

// SetAddress registers or replaces the address for a logical name.
func (r *Registry) SetAddress(name string, addr common.Address) error {
	if r == nil || r.store == nil {
		return fmt.Errorf("registry: storage not configured")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("registry: name must not be empty")
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("registry: address for %s must not be zero", trimmed)
	}
	if err := r.store.KVPut(addressKey(trimmed), addr); err != nil {
		return err
	}
	if r.cache != nil {
		r.cache[trimmed] = addr
	}
	return nil
}

// UpdateAddress drops the cached entry for a logical name and re-reads it from
// state, so a governance re-pointing takes effect without restarting.
func (r *Registry) UpdateAddress(name string) (common.Address, error) {
	if r == nil || r.store == nil {
		return common.Address{}, fmt.Errorf("registry: storage not configured")
	}
	trimmed := strings.TrimSpace(name)
	if r.cache != nil {
		delete(r.cache, trimmed)
	}
	return r.Address(trimmed)
}

// Address resolves the live contract address for a logical name.
func (r *Registry) Address(name string) (common.Address, error) {
	if r == nil || r.store == nil {
		return common.Address{}, fmt.Errorf("registry: storage not configured")
	}
	trimmed := strings.TrimSpace(name)
	if r.cache != nil {
		if addr, ok := r.cache[trimmed]; ok {
			return addr, nil
		}
	}
	var addr common.Address
	ok, err := r.store.KVGet(addressKey(trimmed), &addr)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrAddressNotFound, trimmed)
	}
	if r.cache != nil {
		r.cache[trimmed] = addr
	}
	return addr, nil
}
