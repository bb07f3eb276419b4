package loans

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAssetNotFound  = errors.New("loans: asset not registered")
	ErrAssetExists    = errors.New("loans: asset already registered")
	ErrNegativeAmount = errors.New("loans: amount must not be negative")
	ErrUnauthorized   = errors.New("loans: caller is not the admin")

	errStoreNotConfigured  = errors.New("loans: state not configured")
	errTokensNotConfigured = errors.New("loans: token source not configured")
)

// DefaultReferenceSymbol is the collateral asset every liquidation pool is
// valued against.
const DefaultReferenceSymbol = "sICX"

// Storage captures the state manager capabilities the ledger persists through.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// AdminView reports the configured protocol admin, when one exists.
type AdminView interface {
	Admin() (common.Address, bool, error)
}

// Ledger is the per-asset debt and collateral book. One record is kept per
// registered market symbol.
type Ledger struct {
	store     Storage
	tokens    TokenSource
	admins    AdminView
	reference string
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store Storage, tokens TokenSource) *Ledger {
	return &Ledger{
		store:     store,
		tokens:    tokens,
		reference: DefaultReferenceSymbol,
	}
}

// SetAdminView wires the governance parameter view used to gate mutators.
// Without a view the ledger trusts its caller, which suits bootstrap flows.
func (l *Ledger) SetAdminView(view AdminView) {
	if l == nil {
		return
	}
	l.admins = view
}

// SetReferenceSymbol overrides the collateral asset liquidation pools are
// valued against.
func (l *Ledger) SetReferenceSymbol(symbol string) {
	if l == nil {
		return
	}
	trimmed := strings.TrimSpace(symbol)
	if trimmed != "" {
		l.reference = trimmed
	}
}

func (l *Ledger) requireAdmin(caller common.Address) error {
	if l == nil || l.admins == nil {
		return nil
	}
	admin, ok, err := l.admins.Admin()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if caller != admin {
		return ErrUnauthorized
	}
	return nil
}

func (l *Ledger) loadAsset(symbol string) (*Asset, error) {
	if l == nil || l.store == nil {
		return nil, errStoreNotConfigured
	}
	var stored storedAsset
	ok, err := l.store.KVGet(assetKey(symbol), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, strings.TrimSpace(symbol))
	}
	return stored.toAsset()
}

func (l *Ledger) putAsset(asset *Asset) error {
	if l == nil || l.store == nil {
		return errStoreNotConfigured
	}
	return l.store.KVPut(assetKey(asset.Symbol), asset.toStored())
}

func (l *Ledger) token(asset *Asset) (TokenAdapter, error) {
	if l == nil || l.tokens == nil {
		return nil, errTokensNotConfigured
	}
	return l.tokens.Token(asset.Address)
}

// Register adds a market record for a token contract. The added time and the
// collateral flag are immutable afterwards.
func (l *Ledger) Register(caller common.Address, symbol string, addr common.Address, addedTime uint64, active, isCollateral bool) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return fmt.Errorf("loans: symbol must not be empty")
	}
	if l.store == nil {
		return errStoreNotConfigured
	}
	var existing storedAsset
	ok, err := l.store.KVGet(assetKey(trimmed), &existing)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, trimmed)
	}
	return l.putAsset(&Asset{
		Symbol:          trimmed,
		Address:         addr,
		AddedTime:       addedTime,
		BadDebt:         big.NewInt(0),
		LiquidationPool: big.NewInt(0),
		TotalBurned:     big.NewInt(0),
		IsCollateral:    isCollateral,
		Active:          active,
	})
}

// Asset returns a deep copy of the stored record.
func (l *Ledger) Asset(symbol string) (*Asset, error) {
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return nil, err
	}
	return asset.Copy(), nil
}

// SetActive toggles whether the market accepts new activity.
func (l *Ledger) SetActive(caller common.Address, symbol string, active bool) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return err
	}
	asset.Active = active
	return l.putAsset(asset)
}

// IsActive reports whether the market is active.
func (l *Ledger) IsActive(symbol string) (bool, error) {
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return false, err
	}
	return asset.Active, nil
}

// IsCollateral reports whether the asset was registered as collateral.
func (l *Ledger) IsCollateral(symbol string) (bool, error) {
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return false, err
	}
	return asset.IsCollateral, nil
}

// SetBadDebt overwrites the unrecoverable debt recorded for the market.
func (l *Ledger) SetBadDebt(caller common.Address, symbol string, amount *big.Int) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return err
	}
	asset.BadDebt = new(big.Int).Set(amount)
	return l.putAsset(asset)
}

// BadDebt returns the unrecoverable debt recorded for the market.
func (l *Ledger) BadDebt(symbol string) (*big.Int, error) {
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(asset.BadDebt), nil
}

// SetLiquidationPool overwrites the reserve available to offset bad debt.
func (l *Ledger) SetLiquidationPool(caller common.Address, symbol string, amount *big.Int) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return err
	}
	asset.LiquidationPool = new(big.Int).Set(amount)
	return l.putAsset(asset)
}

// LiquidationPool returns the reserve available to offset bad debt.
func (l *Ledger) LiquidationPool(symbol string) (*big.Int, error) {
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(asset.LiquidationPool), nil
}

// AssetAddedTime returns the registration timestamp.
func (l *Ledger) AssetAddedTime(symbol string) (uint64, error) {
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return 0, err
	}
	return asset.AddedTime, nil
}

// TotalBurned returns the cumulative amount destroyed through Burn and
// BurnFrom.
func (l *Ledger) TotalBurned(symbol string) (*big.Int, error) {
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(asset.TotalBurned), nil
}

// Burn destroys tokens held by the protocol. The external burn call runs
// first; only once it succeeds is the local counter advanced, so a failed
// call leaves the record untouched.
func (l *Ledger) Burn(symbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return err
	}
	token, err := l.token(asset)
	if err != nil {
		return err
	}
	if err := token.Burn(amount); err != nil {
		return fmt.Errorf("loans: burn %s: %w", asset.Symbol, err)
	}
	asset.TotalBurned = new(big.Int).Add(asset.TotalBurned, amount)
	return l.putAsset(asset)
}

// BurnFrom destroys tokens held by a specific account, with the same call
// ordering as Burn.
func (l *Ledger) BurnFrom(symbol string, holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return err
	}
	token, err := l.token(asset)
	if err != nil {
		return err
	}
	if err := token.BurnFrom(holder, amount); err != nil {
		return fmt.Errorf("loans: burn from %s: %w", asset.Symbol, err)
	}
	asset.TotalBurned = new(big.Int).Add(asset.TotalBurned, amount)
	return l.putAsset(asset)
}
