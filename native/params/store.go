package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Pauses toggles individual modules off for maintenance or emergencies.
type Pauses struct {
	Loans      bool `json:"loans"`
	Rebalancer bool `json:"rebalancer"`
}

// IsPaused reports whether the named module is paused.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "loans":
		return p.Loans
	case "rebalancer":
		return p.Rebalancer
	default:
		return false
	}
}

// Store provides typed accessors for governance-controlled parameters.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// SetPriceThreshold persists the rebalancing deviation threshold. The value is
// marshalled as a decimal string so signed magnitudes survive encoding.
func (s *Store) SetPriceThreshold(value *big.Int) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if value == nil {
		return fmt.Errorf("params: price threshold must not be nil")
	}
	encoded, err := json.Marshal(value.String())
	if err != nil {
		return fmt.Errorf("params: encode price threshold: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyPriceThreshold, encoded)
}

// PriceThreshold loads the persisted deviation threshold. The second return is
// false when the threshold has never been configured.
func (s *Store) PriceThreshold() (*big.Int, bool, error) {
	state, err := s.withState()
	if err != nil {
		return nil, false, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyPriceThreshold)
	if err != nil {
		return nil, false, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return nil, false, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, false, fmt.Errorf("params: decode price threshold: %w", err)
	}
	value, valid := new(big.Int).SetString(text, 10)
	if !valid {
		return nil, false, fmt.Errorf("params: invalid price threshold %q", text)
	}
	return value, true, nil
}

// SetAdmin persists the protocol admin address.
func (s *Store) SetAdmin(addr common.Address) error {
	return s.setAddress(ParamsKeyAdmin, addr)
}

// Admin loads the protocol admin address if configured.
func (s *Store) Admin() (common.Address, bool, error) {
	return s.address(ParamsKeyAdmin)
}

// SetGovernance persists the governance contract address.
func (s *Store) SetGovernance(addr common.Address) error {
	return s.setAddress(ParamsKeyGovernance, addr)
}

// Governance loads the governance contract address if configured.
func (s *Store) Governance() (common.Address, bool, error) {
	return s.address(ParamsKeyGovernance)
}

func (s *Store) setAddress(key string, addr common.Address) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(addr.Hex())
	if err != nil {
		return fmt.Errorf("params: encode %s: %w", key, err)
	}
	return state.ParamStoreSet(key, encoded)
}

func (s *Store) address(key string) (common.Address, bool, error) {
	state, err := s.withState()
	if err != nil {
		return common.Address{}, false, err
	}
	raw, ok, err := state.ParamStoreGet(key)
	if err != nil {
		return common.Address{}, false, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return common.Address{}, false, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return common.Address{}, false, fmt.Errorf("params: decode %s: %w", key, err)
	}
	if !common.IsHexAddress(text) {
		return common.Address{}, false, fmt.Errorf("params: invalid address %q for %s", text, key)
	}
	return common.HexToAddress(text), true, nil
}

// SetPauses persists the supplied pause configuration under the canonical
// parameter store key. Values are marshalled as JSON to align with governance
// proposal payloads.
func (s *Store) SetPauses(pauses Pauses) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(pauses)
	if err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyPauses, encoded)
}

// Pauses loads the persisted pause configuration. When unset, a zero-value
// configuration is returned.
func (s *Store) Pauses() (Pauses, error) {
	state, err := s.withState()
	if err != nil {
		return Pauses{}, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyPauses)
	if err != nil {
		return Pauses{}, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return Pauses{}, nil
	}
	var pauses Pauses
	if err := json.Unmarshal(raw, &pauses); err != nil {
		return Pauses{}, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, nil
}
