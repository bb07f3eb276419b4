package loans

import (
	"errors"
	"fmt"
	"math/big"

	"balanced/native/fixedmath"
)

// ErrZeroPrice indicates an oracle or token returned a zero price, which makes
// the liquidation pool valuation undefined.
var ErrZeroPrice = errors.New("loans: zero price")

// Evaluate decides whether a market is dead: net unrecoverable debt exceeding
// half the still-outstanding supply, at which point even liquidating
// everything outstanding could not restore solvency. Collateral and inactive
// markets are never evaluated. The cached flag on the record is rewritten only
// when the verdict changes.
//
// The verdict depends on live total supply and prices, so two calls with the
// same ledger state can differ when the external feeds move.
func (l *Ledger) Evaluate(symbol string) (bool, error) {
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return false, err
	}
	if asset.IsCollateral || !asset.Active {
		return false, nil
	}

	token, err := l.token(asset)
	if err != nil {
		return false, err
	}
	supply, err := token.TotalSupply()
	if err != nil {
		return false, fmt.Errorf("loans: total supply of %s: %w", asset.Symbol, err)
	}
	assetPrice, err := token.PriceInReferenceUnit()
	if err != nil {
		return false, fmt.Errorf("loans: price of %s: %w", asset.Symbol, err)
	}

	reference, err := l.loadAsset(l.reference)
	if err != nil {
		return false, err
	}
	referenceToken, err := l.token(reference)
	if err != nil {
		return false, err
	}
	referencePrice, err := referenceToken.PriceInReferenceUnit()
	if err != nil {
		return false, fmt.Errorf("loans: price of %s: %w", reference.Symbol, err)
	}
	if referencePrice == nil || referencePrice.Sign() == 0 {
		return false, fmt.Errorf("%w: %s", ErrZeroPrice, reference.Symbol)
	}

	outstanding := new(big.Int).Sub(supply, asset.BadDebt)
	// Liquidation reserve valued in units of the reference collateral.
	poolValue, err := fixedmath.MulDiv(asset.LiquidationPool, assetPrice, referencePrice)
	if err != nil {
		return false, err
	}
	netBadDebt := new(big.Int).Sub(asset.BadDebt, poolValue)
	isDead := netBadDebt.Cmp(fixedmath.Half(outstanding)) > 0

	if asset.DeadMarket != isDead {
		asset.DeadMarket = isDead
		if err := l.putAsset(asset); err != nil {
			return false, err
		}
	}
	return isDead, nil
}

// IsDeadMarket returns the cached verdict from the last evaluation.
func (l *Ledger) IsDeadMarket(symbol string) (bool, error) {
	asset, err := l.loadAsset(symbol)
	if err != nil {
		return false, err
	}
	return asset.DeadMarket, nil
}
