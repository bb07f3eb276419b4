package loans

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenAdapter is the external token contract surface consumed by the ledger
// and the dead market check. Calls are synchronous; any failure aborts the
// enclosing operation.
type TokenAdapter interface {
	Symbol() (string, error)
	TotalSupply() (*big.Int, error)
	PriceInReferenceUnit() (*big.Int, error)
	Burn(amount *big.Int) error
	BurnFrom(holder common.Address, amount *big.Int) error
}

// TokenSource resolves the adapter bound to a token contract address.
type TokenSource interface {
	Token(addr common.Address) (TokenAdapter, error)
}

// Asset is the per-symbol market record. Amounts are scaled by 10^18 and never
// negative; TotalBurned only grows. DeadMarket is a cached evaluation result,
// meaningful only for active non-collateral assets.
type Asset struct {
	Symbol          string
	Address         common.Address
	AddedTime       uint64
	BadDebt         *big.Int
	LiquidationPool *big.Int
	TotalBurned     *big.Int
	IsCollateral    bool
	Active          bool
	DeadMarket      bool
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (a *Asset) Copy() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	if a.BadDebt != nil {
		clone.BadDebt = new(big.Int).Set(a.BadDebt)
	}
	if a.LiquidationPool != nil {
		clone.LiquidationPool = new(big.Int).Set(a.LiquidationPool)
	}
	if a.TotalBurned != nil {
		clone.TotalBurned = new(big.Int).Set(a.TotalBurned)
	}
	return &clone
}

// storedAsset mirrors Asset with decimal-string amounts so the RLP encoding
// stays stable across big.Int internals.
type storedAsset struct {
	Symbol          string
	Address         common.Address
	AddedTime       uint64
	BadDebt         string
	LiquidationPool string
	TotalBurned     string
	IsCollateral    bool
	Active          bool
	DeadMarket      bool
}

func (a *Asset) toStored() *storedAsset {
	return &storedAsset{
		Symbol:          a.Symbol,
		Address:         a.Address,
		AddedTime:       a.AddedTime,
		BadDebt:         amountString(a.BadDebt),
		LiquidationPool: amountString(a.LiquidationPool),
		TotalBurned:     amountString(a.TotalBurned),
		IsCollateral:    a.IsCollateral,
		Active:          a.Active,
		DeadMarket:      a.DeadMarket,
	}
}

func (s *storedAsset) toAsset() (*Asset, error) {
	badDebt, err := parseAmount(s.BadDebt)
	if err != nil {
		return nil, fmt.Errorf("loans: bad debt for %s: %w", s.Symbol, err)
	}
	pool, err := parseAmount(s.LiquidationPool)
	if err != nil {
		return nil, fmt.Errorf("loans: liquidation pool for %s: %w", s.Symbol, err)
	}
	burned, err := parseAmount(s.TotalBurned)
	if err != nil {
		return nil, fmt.Errorf("loans: total burned for %s: %w", s.Symbol, err)
	}
	return &Asset{
		Symbol:          s.Symbol,
		Address:         s.Address,
		AddedTime:       s.AddedTime,
		BadDebt:         badDebt,
		LiquidationPool: pool,
		TotalBurned:     burned,
		IsCollateral:    s.IsCollateral,
		Active:          s.Active,
		DeadMarket:      s.DeadMarket,
	}, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseAmount(text string) (*big.Int, error) {
	if text == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", text)
	}
	return v, nil
}
