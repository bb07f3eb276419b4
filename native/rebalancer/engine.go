package rebalancer

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "balanced/native/common"
	"balanced/native/fixedmath"
	"balanced/native/params"
	"balanced/native/registry"
)

var (
	ErrThresholdNotSet = errors.New("rebalancer: price threshold not configured")
	ErrZeroReserve     = errors.New("rebalancer: zero pool reserve")
	ErrZeroPrice       = errors.New("rebalancer: zero oracle price")
	ErrUnauthorized    = errors.New("rebalancer: caller is not governance")

	errNotConfigured = errors.New("rebalancer: engine not fully configured")
)

const moduleName = "rebalancer"

// StableOracleSymbol is the oracle feed used to price the protocol stable
// asset in the shared reference unit.
const StableOracleSymbol = "USD"

// Oracle prices symbols in the shared reference unit.
type Oracle interface {
	PriceInReferenceUnit(symbol string) (*big.Int, error)
}

// PoolStats carries the two reserves of a constant-product pool. Base is the
// collateral side, Quote the stable side.
type PoolStats struct {
	Base  *big.Int
	Quote *big.Int
}

// Dex resolves pools and reserves on the exchange contract.
type Dex interface {
	PoolID(base, quote common.Address) (uint64, error)
	PoolStats(id uint64) (PoolStats, error)
}

// Loans applies the computed correction on the lending contract.
type Loans interface {
	RaisePrice(symbol string, amount *big.Int) error
	LowerPrice(symbol string, amount *big.Int) error
}

// Symbols resolves the ticker symbol of a token contract.
type Symbols interface {
	Symbol(addr common.Address) (string, error)
}

// Rollbacker is the snapshot surface the engine uses to keep operations
// all-or-nothing when an external call fails mid-way.
type Rollbacker interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// Status is the result triple of a rebalancing check. Forward and Reverse are
// mutually exclusive; TokensToSell is positive only when one of them is set.
type Status struct {
	Forward      bool
	TokensToSell *big.Int
	Reverse      bool
}

// Engine measures the deviation between the oracle-implied and pool-implied
// exchange rate of a collateral asset against the protocol stable asset, and
// sizes the trade that moves the pool back to the oracle price.
type Engine struct {
	params   *params.Store
	registry *registry.Registry
	oracle   Oracle
	dex      Dex
	loans    Loans
	symbols  Symbols
	state    Rollbacker
	pauses   nativecommon.PauseView
	guard    nativecommon.ReentrancyGuard
}

// NewEngine constructs a rebalancing engine over the governance parameter
// store and the contract registry.
func NewEngine(store *params.Store, reg *registry.Registry) *Engine {
	return &Engine{params: store, registry: reg}
}

// SetOracle wires the price oracle adapter.
func (e *Engine) SetOracle(oracle Oracle) {
	if e == nil {
		return
	}
	e.oracle = oracle
}

// SetDex wires the exchange adapter.
func (e *Engine) SetDex(dex Dex) {
	if e == nil {
		return
	}
	e.dex = dex
}

// SetLoans wires the lending price-adjustment adapter.
func (e *Engine) SetLoans(loans Loans) {
	if e == nil {
		return
	}
	e.loans = loans
}

// SetSymbols wires the token symbol resolver.
func (e *Engine) SetSymbols(symbols Symbols) {
	if e == nil {
		return
	}
	e.symbols = symbols
}

// SetState wires the snapshot source used to roll back failed operations.
func (e *Engine) SetState(state Rollbacker) {
	if e == nil {
		return
	}
	e.state = state
}

// SetPauses wires the module pause view.
func (e *Engine) SetPauses(pauses nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = pauses
}

func (e *Engine) requireWired() error {
	if e == nil || e.params == nil || e.registry == nil || e.oracle == nil || e.dex == nil || e.symbols == nil {
		return errNotConfigured
	}
	return nil
}

// sizeTrade solves the constant-product invariant for the injection that moves
// the post-trade spot price to the target: sqrt(price*reserveIn*reserveOut) -
// reserveIn, everything floor-divided at exa scale.
func sizeTrade(price, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	scaled, err := fixedmath.MulDiv(price, reserveIn, fixedmath.Exa)
	if err != nil {
		return nil, err
	}
	product := new(big.Int).Mul(scaled, reserveOut)
	root, err := fixedmath.Isqrt(product)
	if err != nil {
		return nil, err
	}
	return root.Sub(root, reserveIn), nil
}

// StatusFor reports whether the pool holding collateral against the protocol
// stable asset deviates from the oracle rate beyond the governance threshold,
// and by how many tokens to correct it. It is read-only.
func (e *Engine) StatusFor(collateral common.Address) (Status, error) {
	if err := e.requireWired(); err != nil {
		return Status{}, err
	}
	threshold, ok, err := e.params.PriceThreshold()
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{}, ErrThresholdNotSet
	}

	symbol, err := e.symbols.Symbol(collateral)
	if err != nil {
		return Status{}, fmt.Errorf("rebalancer: resolve symbol: %w", err)
	}
	stable, err := e.registry.Address(registry.NameBnUSD)
	if err != nil {
		return Status{}, err
	}
	poolID, err := e.dex.PoolID(collateral, stable)
	if err != nil {
		return Status{}, fmt.Errorf("rebalancer: resolve pool: %w", err)
	}

	stablePrice, err := e.oracle.PriceInReferenceUnit(StableOracleSymbol)
	if err != nil {
		return Status{}, fmt.Errorf("rebalancer: stable price: %w", err)
	}
	collateralPrice, err := e.oracle.PriceInReferenceUnit(symbol)
	if err != nil {
		return Status{}, fmt.Errorf("rebalancer: %s price: %w", symbol, err)
	}
	if stablePrice == nil || stablePrice.Sign() == 0 || collateralPrice == nil || collateralPrice.Sign() == 0 {
		return Status{}, ErrZeroPrice
	}

	stats, err := e.dex.PoolStats(poolID)
	if err != nil {
		return Status{}, fmt.Errorf("rebalancer: pool stats: %w", err)
	}
	if stats.Base == nil || stats.Base.Sign() == 0 || stats.Quote == nil || stats.Quote.Sign() == 0 {
		return Status{}, ErrZeroReserve
	}

	// Stable-asset price expressed in collateral units, per the oracle.
	syntheticPrice, err := fixedmath.MulDiv(stablePrice, fixedmath.Exa, collateralPrice)
	if err != nil {
		return Status{}, err
	}
	// The same rate implied by the pool reserves.
	poolPrice, err := fixedmath.MulDiv(stats.Base, fixedmath.Exa, stats.Quote)
	if err != nil {
		return Status{}, err
	}
	diff := new(big.Int).Sub(syntheticPrice, poolPrice)
	deviation, err := fixedmath.MulDiv(diff, fixedmath.Exa, syntheticPrice)
	if err != nil {
		return Status{}, err
	}

	forward := deviation.Cmp(threshold) > 0
	reverse := deviation.Cmp(new(big.Int).Neg(threshold)) < 0

	tokensToSell := big.NewInt(0)
	switch {
	case forward:
		// The pool underprices the stable asset: inject collateral.
		tokensToSell, err = sizeTrade(syntheticPrice, stats.Base, stats.Quote)
	case reverse:
		// The pool overprices the stable asset: inject stable tokens,
		// sized with the inverse-oriented rate and swapped reserves.
		var inversePrice *big.Int
		inversePrice, err = fixedmath.MulDiv(collateralPrice, fixedmath.Exa, stablePrice)
		if err == nil {
			tokensToSell, err = sizeTrade(inversePrice, stats.Quote, stats.Base)
		}
	}
	if err != nil {
		return Status{}, err
	}
	// Rounding at the threshold boundary can push the closed form to a
	// non-positive size; that is a no-op, not an error.
	if tokensToSell.Sign() < 0 {
		tokensToSell = big.NewInt(0)
	}
	return Status{Forward: forward, TokensToSell: tokensToSell, Reverse: reverse}, nil
}

// Rebalance checks the deviation for the collateral asset and, when it exceeds
// the threshold, triggers the lending contract to correct the pool. A zero
// collateral address defaults to the protocol staked-collateral asset. Within
// the band the call is an idempotent no-op issuing no external calls.
func (e *Engine) Rebalance(collateral common.Address) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireWired(); err != nil {
		return err
	}
	if e.loans == nil {
		return errNotConfigured
	}

	var snapshot int
	if e.state != nil {
		snapshot = e.state.Snapshot()
	}
	if err := e.rebalance(collateral); err != nil {
		if e.state != nil {
			e.state.RevertToSnapshot(snapshot)
		}
		return err
	}
	return nil
}

func (e *Engine) rebalance(collateral common.Address) error {
	if collateral == (common.Address{}) {
		staked, err := e.registry.Address(registry.NameSICX)
		if err != nil {
			return err
		}
		collateral = staked
	}
	symbol, err := e.symbols.Symbol(collateral)
	if err != nil {
		return fmt.Errorf("rebalancer: resolve symbol: %w", err)
	}
	status, err := e.StatusFor(collateral)
	if err != nil {
		return err
	}
	switch {
	case status.Forward && status.TokensToSell.Sign() > 0:
		if err := e.loans.RaisePrice(symbol, status.TokensToSell); err != nil {
			return fmt.Errorf("rebalancer: raise price: %w", err)
		}
	case status.Reverse && status.TokensToSell.Sign() > 0:
		if err := e.loans.LowerPrice(symbol, status.TokensToSell); err != nil {
			return fmt.Errorf("rebalancer: lower price: %w", err)
		}
	}
	return nil
}
